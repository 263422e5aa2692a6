package scheduler

// State is a read-only snapshot of the scheduler's internal bookkeeping,
// useful for tests and observability without exposing the live,
// single-goroutine-owned fields directly.
type State struct {
	FrameNo      uint32
	SkippedInRow int
	Generating   bool
}

// State returns a snapshot of the current scheduler state. Like every
// other method on Scheduler, it must only be called from the goroutine
// running Run, or after Run has returned.
func (s *Scheduler) State() State {
	return State{
		FrameNo:      s.frameNo,
		SkippedInRow: s.skippedInRow,
		Generating:   s.current != nil,
	}
}

// FramesSent reports how many frames have been emitted on the wire so
// far, the length of the cumulative fragment-count sequence.
func (s *Scheduler) FramesSent() int {
	return s.counters.Len()
}

// FragmentsSent reports the total number of fragments emitted across
// every frame sent so far.
func (s *Scheduler) FragmentsSent() uint64 {
	return s.counters.Back()
}
