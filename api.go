package uthread

import (
	"container/list"
	"fmt"
	"os"
	"runtime"
	"sync"
)

var (
	schedMu sync.Mutex
	sched   *Scheduler
)

func setScheduler(s *Scheduler) {
	schedMu.Lock()
	defer schedMu.Unlock()
	sched = s
}

func clearScheduler() {
	schedMu.Lock()
	defer schedMu.Unlock()
	sched = nil
}

func currentScheduler() (*Scheduler, error) {
	schedMu.Lock()
	defer schedMu.Unlock()
	if sched == nil {
		return nil, newMisuseError("uthread", "library not initialized")
	}
	return sched, nil
}

// Init creates the main thread (tid 0) and arms the preemption timer.
// It fails only if quantumUsecs is not positive; a failure to arm the
// host timer is a system error and terminates the process, per
// spec.md §7.
func Init(quantumUsecs int, opts ...Option) error {
	if quantumUsecs <= 0 {
		return newMisuseError("init", "quantum_usecs must be positive")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Scheduler{
		ready:        list.New(),
		sleeping:     make(map[int]*Thread),
		table:        make([]*Thread, cfg.maxThreads),
		maxThreads:   cfg.maxThreads,
		quantumUsecs: quantumUsecs,
		totalQuantum: 1,
		timer:        cfg.timer,
		logger:       cfg.logger,
	}
	main := &Thread{tid: 0, state: StateRunning, quantumCount: 1, parker: newParker()}
	s.table[0] = main
	main.elem = s.ready.PushBack(main)

	setScheduler(s)

	if err := s.timer.Arm(quantumUsecs, s.preemptTick); err != nil {
		clearScheduler()
		sysErr := newSystemError("init", err)
		emitSystemAndExit(cfg.logger, sysErr)
		return sysErr // unreachable, emitSystemAndExit exits the process
	}
	return nil
}

// Spawn creates a new thread running entry, READY at the tail of the
// ready queue, and returns its tid.
func Spawn(entry func()) (int, error) {
	s, err := currentScheduler()
	if err != nil {
		return -1, err
	}

	s.mu.Lock()
	tid, ok := s.allocTID()
	if !ok {
		s.mu.Unlock()
		misuseErr := newMisuseError("spawn", "no free thread id")
		emitMisuse(s.logger, misuseErr)
		return -1, misuseErr
	}
	t := &Thread{
		tid:    tid,
		state:  StateReady,
		entry:  entry,
		parker: newParker(),
		stack:  make([]byte, StackSize),
	}
	s.table[tid] = t
	t.elem = s.ready.PushBack(t)
	s.mu.Unlock()

	go s.runThread(t)
	return tid, nil
}

// runThread is the body of every spawned thread's goroutine: park
// until first dispatched, run the client's entry function, then
// self-terminate if it ever returns.
func (s *Scheduler) runThread(t *Thread) {
	t.parker.park()
	t.entry()
	_ = Terminate(t.tid)
}

// Terminate destroys tid. Terminating tid 0 releases every resource
// this scheduler owns and exits the process with status 0; it never
// returns. Terminating the running thread switches away and never
// returns to its caller either.
func Terminate(tid int) error {
	s, err := currentScheduler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if tid < 0 || tid >= s.maxThreads || s.table[tid] == nil {
		s.mu.Unlock()
		misuseErr := newMisuseError("terminate", fmt.Sprintf("tid %d does not exist", tid))
		emitMisuse(s.logger, misuseErr)
		return misuseErr
	}

	if tid == 0 {
		s.teardownLocked()
		s.mu.Unlock()
		clearScheduler()
		os.Exit(0)
		return nil // unreachable
	}

	t := s.table[tid]
	running := t.state == StateRunning
	s.releaseThreadLocked(t)
	if !running {
		s.mu.Unlock()
		return nil
	}

	s.dispatchNext()
	// Self-termination never resumes; end this thread's goroutine
	// without returning to the entry function's caller.
	runtime.Goexit()
	return nil
}

// Shutdown releases every resource Init acquired without exiting the
// process, for use by embedders and tests that must not kill their
// own process the way Terminate(0) does.
func Shutdown() error {
	s, err := currentScheduler()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.teardownLocked()
	s.mu.Unlock()
	clearScheduler()
	return nil
}

// Block marks tid explicitly blocked. A no-op if it already is.
// Blocking the running thread switches execution away and does not
// return to its caller until a later Resume makes it eligible again.
func Block(tid int) error {
	s, err := currentScheduler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if tid <= 0 || tid >= s.maxThreads || s.table[tid] == nil {
		s.mu.Unlock()
		misuseErr := newMisuseError("block", fmt.Sprintf("tid %d cannot be blocked", tid))
		emitMisuse(s.logger, misuseErr)
		return misuseErr
	}

	t := s.table[tid]
	if t.explicitBlock {
		s.mu.Unlock()
		return nil
	}

	t.explicitBlock = true
	running := t.state == StateRunning
	t.state = StateBlocked
	if t.elem != nil {
		s.ready.Remove(t.elem)
		t.elem = nil
	}
	if !running {
		s.mu.Unlock()
		return nil
	}

	s.dispatchNext()
	t.parker.park()
	return nil
}

// Resume clears tid's explicit-block flag. If the thread is not
// sleeping it becomes READY immediately; it never preempts the
// caller.
func Resume(tid int) error {
	s, err := currentScheduler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if tid < 0 || tid >= s.maxThreads || s.table[tid] == nil {
		s.mu.Unlock()
		misuseErr := newMisuseError("resume", fmt.Sprintf("tid %d does not exist", tid))
		emitMisuse(s.logger, misuseErr)
		return misuseErr
	}

	t := s.table[tid]
	if !t.explicitBlock {
		s.mu.Unlock()
		return nil
	}
	t.explicitBlock = false
	if t.wakeupQuantum > 0 {
		s.mu.Unlock()
		return nil
	}
	t.state = StateReady
	t.elem = s.ready.PushBack(t)
	s.mu.Unlock()
	return nil
}

// Sleep blocks the calling thread until at least numQuantums new
// quanta have started. The main thread cannot sleep.
func Sleep(numQuantums int) error {
	s, err := currentScheduler()
	if err != nil {
		return err
	}

	s.mu.Lock()
	if numQuantums <= 0 {
		s.mu.Unlock()
		misuseErr := newMisuseError("sleep", "num_quantums must be positive")
		emitMisuse(s.logger, misuseErr)
		return misuseErr
	}

	self := s.ready.Front().Value.(*Thread)
	if self.tid == 0 {
		s.mu.Unlock()
		misuseErr := newMisuseError("sleep", "the main thread cannot sleep")
		emitMisuse(s.logger, misuseErr)
		return misuseErr
	}

	self.wakeupQuantum = s.totalQuantum + numQuantums + 1
	self.state = StateBlocked
	s.sleeping[self.tid] = self
	s.ready.Remove(self.elem)
	self.elem = nil

	s.dispatchNext()
	self.parker.park()
	return nil
}

// GetTid returns the tid of the currently RUNNING thread. Never
// fails.
func GetTid() int {
	s, err := currentScheduler()
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.Front().Value.(*Thread).tid
}

// GetTotalQuantums returns the global quantum counter. Never fails.
func GetTotalQuantums() int {
	s, err := currentScheduler()
	if err != nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalQuantum
}

// GetQuantums returns how many quanta tid has spent RUNNING.
func GetQuantums(tid int) (int, error) {
	s, err := currentScheduler()
	if err != nil {
		return -1, err
	}
	s.mu.Lock()
	if tid < 0 || tid >= s.maxThreads || s.table[tid] == nil {
		s.mu.Unlock()
		misuseErr := newMisuseError("get_quantums", fmt.Sprintf("tid %d does not exist", tid))
		emitMisuse(s.logger, misuseErr)
		return -1, misuseErr
	}
	quantumCount := s.table[tid].quantumCount
	s.mu.Unlock()
	return quantumCount, nil
}

// QuantumUsecs returns the configured quantum length. Added beyond the
// original nine operations: spec.md's scheduler state already tracks
// quantum_usecs but never surfaces it, and any embedding host that
// wants to log or assert against it needs a way to read it back.
func QuantumUsecs() (int, error) {
	s, err := currentScheduler()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantumUsecs, nil
}
