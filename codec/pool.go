package codec

import (
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"
)

// Pool bounds how many encode jobs may run concurrently. A generation
// may submit several jobs at once; detaching a job whose deadline has
// passed lets it keep burning CPU until it finishes, so the pool caps
// concurrency rather than letting an unbounded number of stragglers
// pile up. The cap must still admit at least one job per generation.
type Pool struct {
	sem    chan struct{}
	logger golog.Logger
}

// NewPool returns a Pool that runs at most maxConcurrent jobs at once.
func NewPool(maxConcurrent int, logger golog.Logger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{sem: make(chan struct{}, maxConcurrent), logger: logger}
}

// A Future is a handle to one spawned job's eventual Output. Unlike a
// single-value channel, Done() can be observed by more than one reader
// (the per-generation coordinator waiting for "all done", and the
// scheduler picking the first ready output) without racing to drain a
// value: result is written once, then doneCh is closed, and the
// channel close is what makes that write visible to every reader.
type Future struct {
	frameNo uint32
	doneCh  chan struct{}
	result  result
}

type result struct {
	out Output
	err error
}

// Spawn runs job on its own goroutine and returns immediately. The job
// cannot be cancelled once started: if nobody ever observes Done(), or
// observes it too late, the goroutine still runs to completion and its
// result is simply never collected.
func (p *Pool) Spawn(job Job) *Future {
	f := &Future{frameNo: job.FrameNo, doneCh: make(chan struct{})}
	utils.ManagedGo(func() {
		select {
		case p.sem <- struct{}{}:
		default:
			p.logger.Debugw("pool at capacity, job waiting for a slot", "frame_no", job.FrameNo)
			p.sem <- struct{}{}
		}
		defer func() { <-p.sem }()
		defer job.Raster.Release()

		start := time.Now()
		out, err := Encode(job)
		out.Elapsed = time.Since(start)
		if err != nil {
			p.logger.Errorw("encode job failed", "frame_no", job.FrameNo, "error", err)
		}
		f.result = result{out: out, err: err}
		close(f.doneCh)
	}, func() {})
	return f
}

// Done is closed exactly once, when the job's result becomes available.
func (f *Future) Done() <-chan struct{} { return f.doneCh }

// Ready reports whether the job has already finished, without blocking.
func (f *Future) Ready() bool {
	select {
	case <-f.doneCh:
		return true
	default:
		return false
	}
}

// Result returns the job's outcome. Only valid once Ready() is true or
// Done() has fired; calling it earlier returns the zero Output.
func (f *Future) Result() (Output, error) {
	return f.result.out, f.result.err
}

// Wait blocks until the job completes or deadline passes, whichever is
// first. ok is false on timeout; the job's goroutine keeps running to
// completion regardless.
func (f *Future) Wait(deadline time.Time) (Output, bool) {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case <-f.doneCh:
		if f.result.err != nil {
			return Output{}, false
		}
		return f.result.out, true
	case <-timer.C:
		return Output{}, false
	}
}
