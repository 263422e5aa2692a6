package scheduler

import (
	"context"
	"time"

	"go.viam.com/utils"

	"github.com/dlcast/videosend/codec"
)

// A generation is the set of encode jobs spawned by a single tick, plus
// bookkeeping to let exactly one generation-ended signal fire once
// either all of them finish or the deadline passes, whichever is first.
type generation struct {
	frameNo  uint32
	deadline time.Time
	futures  []*codec.Future
}

// awaitAll is the per-generation coordinator: it selects over "all
// futures done" and the deadline timer, then posts this generation on
// the wake channel exactly once. It never blocks the scheduler's own
// event loop on any individual future.
func (g *generation) awaitAll(ctx context.Context, genEndedCh chan<- *generation) {
	allDone := make(chan struct{})
	utils.ManagedGo(func() {
		for _, f := range g.futures {
			<-f.Done()
		}
		close(allDone)
	}, func() {})

	timer := time.NewTimer(time.Until(g.deadline))
	defer timer.Stop()

	select {
	case <-allDone:
	case <-timer.C:
	case <-ctx.Done():
		return
	}

	select {
	case genEndedCh <- g:
	case <-ctx.Done():
	}
}

// firstReady returns the output of the first (in submission order) job
// whose future has completed successfully at the moment firstReady is
// called; the scheduler calls it while handling the generation-ended
// signal. A ready job that reported an error is passed over. ok is false
// if no job was ready and successful (the generation is discarded in
// that case). A non-nil error, returned only when no ready job
// succeeded, means a job reported an internal encode error, which is
// always a programmer bug, never a protocol condition.
func (g *generation) firstReady() (codec.Output, bool, error) {
	var firstErr error
	for _, f := range g.futures {
		if !f.Ready() {
			continue
		}
		out, err := f.Result()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return out, true, nil
	}
	return codec.Output{}, false, firstErr
}
