package uthread

import (
	"container/list"
	"sync"
)

// Scheduler owns all the mutable state spec.md calls the "singleton":
// the ready queue, the sleeping set, the TID table, and the quantum
// counters. Every field below is read or written only while mu is
// held; mu stands in for the host signal mask that guards critical
// sections in the library this scheduler is modeled on.
type Scheduler struct {
	mu sync.Mutex

	ready      *list.List
	sleeping   map[int]*Thread
	table      []*Thread
	maxThreads int

	quantumUsecs int
	totalQuantum int

	timer  TimerSource
	logger Logger
}

func (s *Scheduler) allocTID() (int, bool) {
	for tid := 1; tid < s.maxThreads; tid++ {
		if s.table[tid] == nil {
			return tid, true
		}
	}
	return 0, false
}

// wakeUpLocked implements §4.4: every sleeping thread whose
// wakeup_quantum matches the current total_quantum is woken, and
// moved to READY unless it is also explicitly blocked. mu must be
// held.
func (s *Scheduler) wakeUpLocked() {
	for tid, t := range s.sleeping {
		if t.wakeupQuantum != s.totalQuantum {
			continue
		}
		t.wakeupQuantum = 0
		delete(s.sleeping, tid)
		if !t.explicitBlock {
			t.state = StateReady
			t.elem = s.ready.PushBack(t)
		}
	}
}

// dispatchNext implements the common tail of every induced yield:
// advance total_quantum, run wake-ups, promote the new ready-queue
// head to RUNNING, re-arm the timer for its fresh quantum, release the
// critical section, and ready its goroutine. mu must be held on entry
// and is always released before return. The caller is responsible for
// parking its own thread afterward if it is the outgoing thread.
func (s *Scheduler) dispatchNext() *Thread {
	s.totalQuantum++
	s.wakeUpLocked()
	next := s.ready.Front().Value.(*Thread)
	next.state = StateRunning
	next.quantumCount++
	_ = s.timer.Rearm()
	s.mu.Unlock()
	next.parker.ready()
	return next
}

// releaseThreadLocked removes a thread from every container that
// might reference it and frees its table slot. mu must be held.
func (s *Scheduler) releaseThreadLocked(t *Thread) {
	if t.elem != nil {
		s.ready.Remove(t.elem)
		t.elem = nil
	}
	delete(s.sleeping, t.tid)
	s.table[t.tid] = nil
}

// preemptTick is the preemption driver, §4.3, invoked from the timer
// goroutine on every SIGVTALRM delivery.
//
// Rotating the ready queue here only updates bookkeeping and readies
// the new head; it cannot also force the outgoing thread off the CPU,
// since nothing in Go lets one goroutine suspend another from outside.
// Threads that cooperate by eventually calling Block, Sleep, or
// returning (which self-terminates) are switched out exactly as
// spec.md describes; a thread that never does either of those keeps
// running concurrently with whatever this tick promotes, a limitation
// recorded in DESIGN.md.
func (s *Scheduler) preemptTick() {
	s.mu.Lock()
	if s.ready.Len() <= 1 {
		s.totalQuantum++
		s.wakeUpLocked()
		s.mu.Unlock()
		return
	}
	s.totalQuantum++
	s.wakeUpLocked()
	old := s.ready.Front().Value.(*Thread)
	old.state = StateReady
	s.ready.MoveToBack(old.elem)
	next := s.ready.Front().Value.(*Thread)
	next.state = StateRunning
	next.quantumCount++
	s.mu.Unlock()
	next.parker.ready()
}

// teardownLocked releases every resource the scheduler owns. mu must
// be held; the caller is responsible for unlocking (terminate(0) and
// Shutdown differ only in what they do after this returns).
func (s *Scheduler) teardownLocked() {
	s.timer.Stop()
	for tid := range s.table {
		s.table[tid] = nil
	}
	s.sleeping = map[int]*Thread{}
	s.ready = list.New()
}
