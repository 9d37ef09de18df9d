package uthread

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// osTimerSource drives quantum expiry from a real virtual-time
// interval timer delivering SIGVTALRM, the host dependency spec.md
// calls for directly.
type osTimerSource struct {
	mu         sync.Mutex
	quantum    int
	sigCh      chan os.Signal
	stopCh     chan struct{}
	stoppedSig bool
}

func newOSTimerSource() *osTimerSource {
	return &osTimerSource{}
}

func (ts *osTimerSource) Arm(quantumUsecs int, onExpire func()) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.quantum = quantumUsecs
	ts.sigCh = make(chan os.Signal, 1)
	ts.stopCh = make(chan struct{})
	signal.Notify(ts.sigCh, syscall.SIGVTALRM)

	if err := setitimer(quantumUsecs); err != nil {
		signal.Stop(ts.sigCh)
		return err
	}

	sigCh, stopCh := ts.sigCh, ts.stopCh
	go func() {
		for {
			select {
			case <-sigCh:
				onExpire()
			case <-stopCh:
				return
			}
		}
	}()
	return nil
}

func (ts *osTimerSource) Rearm() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return setitimer(ts.quantum)
}

func (ts *osTimerSource) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.stoppedSig {
		return
	}
	ts.stoppedSig = true
	signal.Stop(ts.sigCh)
	close(ts.stopCh)
	_ = unix.Setitimer(unix.ITIMER_VIRTUAL, &unix.Itimerval{}, nil)
}

func setitimer(quantumUsecs int) error {
	tv := unix.Timeval{
		Sec:  int64(quantumUsecs / 1e6),
		Usec: int64(quantumUsecs % 1e6),
	}
	it := unix.Itimerval{Value: tv, Interval: tv}
	return unix.Setitimer(unix.ITIMER_VIRTUAL, &it, nil)
}
