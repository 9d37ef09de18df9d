package uthread

// config collects Init's ambient knobs. quantumUsecs is passed
// positionally to Init, not through here, since it is the one
// parameter the host library itself exposes.
type config struct {
	maxThreads int
	logger     Logger
	timer      TimerSource
}

func defaultConfig() *config {
	return &config{
		maxThreads: MaxThreads,
		logger:     NopLogger{},
		timer:      newOSTimerSource(),
	}
}

// Option customizes Init. The zero value of every option is the
// behavior of the original host library.
type Option func(*config)

// WithLogger installs a Logger for scheduling diagnostics. Defaults to
// NopLogger.
func WithLogger(l Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxThreads overrides the size of the thread table. Defaults to
// MaxThreads. Mainly useful for tests that want to exhaust the table
// without spawning 100 real threads.
func WithMaxThreads(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxThreads = n
		}
	}
}

// WithTimerSource overrides the source of quantum-expiry ticks. Tests
// use this to substitute a fake, hand-driven TimerSource for the real
// OS interval timer.
func WithTimerSource(t TimerSource) Option {
	return func(c *config) { c.timer = t }
}
