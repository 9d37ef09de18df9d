package uthread

// TimerSource abstracts the host's virtual-time interval timer so the
// scheduler's algorithm can be driven by a real SIGVTALRM in
// production and by a hand-fed fake in tests. Arm installs onExpire to
// be called once per quantum; Rearm restarts the countdown early (used
// after an induced yield, so the new thread gets a full quantum rather
// than whatever was left of the old one); Stop releases the timer.
type TimerSource interface {
	Arm(quantumUsecs int, onExpire func()) error
	Rearm() error
	Stop()
}
