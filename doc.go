// Package uthread implements a user-level cooperative-with-preemption
// thread library: a single-process scheduler that lets one logical
// thread run at a time, round-robin, driven by a virtual-time interval
// timer.
//
// A "thread" here is not an OS thread and not a bare goroutine either:
// each thread owns exactly one goroutine that parks whenever the thread
// blocks or sleeps and proceeds only when the scheduler dispatches it,
// so that for threads that call back into the library, library state
// (the ready queue, the sleeping set, per-thread quantum counts)
// describes a single coherent point of execution. A timer tick does not
// park the outgoing goroutine: a thread whose entry function never
// calls back into the library keeps running after its quantum ends (see
// preemptTick). See parker.go for the handoff primitive and
// scheduler.go for the state machine.
package uthread

// MaxThreads is the default number of thread identifiers available,
// including the main thread (tid 0). Overridable via WithMaxThreads for
// embedding and tests.
const MaxThreads = 100

// StackSize is the nominal per-thread stack allocation carried for
// parity with the host library this package's scheduling discipline is
// modeled on. Go threads run on goroutine stacks the runtime grows and
// shrinks automatically; this buffer is bookkeeping only and is never
// read from or written to as a stack.
const StackSize = 4096
