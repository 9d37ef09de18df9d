package uthread

// parker is a single-slot park/ready primitive: it suspends one
// goroutine at a time and wakes it with minimal overhead, the same
// shape as the thread-parking primitive this scheduler's context
// switch is modeled on, adapted from raw runtime hooks to a plain
// buffered channel so that parking and readying can never race each
// other into a missed wakeup or a double park.
//
// The buffer of one means a ready() that arrives before the matching
// park() is not lost, it simply lets the next park() return
// immediately, which is also what lets the scheduler dispatch a newly
// spawned thread whose goroutine hasn't reached its park point yet.
type parker struct {
	resume chan struct{}
}

func newParker() *parker {
	return &parker{resume: make(chan struct{}, 1)}
}

// park suspends the calling goroutine until ready is called.
func (p *parker) park() {
	<-p.resume
}

// ready wakes the parked goroutine, if any, without blocking the
// caller. Called only from within the scheduler's critical section or
// immediately after releasing it, never while holding a lock the
// target might also need.
func (p *parker) ready() {
	select {
	case p.resume <- struct{}{}:
	default:
	}
}
