package scheduler

import (
	"github.com/dlcast/videosend/codec"
	"github.com/dlcast/videosend/feedback"
	"github.com/dlcast/videosend/fragment"
)

// plan computes the encoding plan for a valid tick: the set of jobs to
// spawn, or none if this tick is a skip. s.lastRaster is this
// generation's own Raster reference; plan always either hands it to
// exactly one job or releases it itself on a skip.
func (s *Scheduler) plan() []codec.Job {
	fb := s.tracker.State()

	base := codec.Job{
		FrameNo: s.frameNo,
		Raster:  s.lastRaster,
		State:   s.committed.Clone(),
	}

	if !fb.Known {
		base.Mode = codec.ConstantQuantizer
		base.QuantizerIndex = s.cfg.QuantizerIndex
		return []codec.Job{base}
	}

	target := s.targetSizeBytes(fb)
	switch {
	case target <= 0 && s.skippedInRow < s.cfg.MaxSkipped:
		s.skippedInRow++
		base.Raster.Release()
		return nil

	case target <= 0:
		// Skip quota exhausted: force a low-quality frame through
		// rather than skip again, to keep the stream alive.
		base.Mode = codec.TargetSize
		base.TargetBytes = fragment.MTU
		return []codec.Job{base}

	default:
		base.Mode = codec.TargetSize
		base.TargetBytes = target
		return []codec.Job{base}
	}
}

// targetSizeBytes implements the feedback-driven target-size rule:
// estimate how many MTU packets can be injected before the imputed
// one-way delay exceeds MaxDelayMicros, subtract those already
// unacknowledged, and size the next frame to exactly fill that window.
// packetsInFlight is not clamped to zero on its own: an ack whose
// LastAcked exceeds the sender's own fragment count (a malformed or
// out-of-range ack) pushes it negative, which only ever widens the
// final budget, matching the two-term formula literally rather than
// clamping each term separately.
func (s *Scheduler) targetSizeBytes(fb feedback.State) int {
	packetsInFlight := int64(s.counters.Back()) - int64(fb.LastAcked)

	avgDelay := fb.AvgDelayMicros
	if avgDelay < 1 {
		avgDelay = 1
	}

	budgetPackets := int64(s.cfg.MaxDelayMicros)/int64(avgDelay) - packetsInFlight
	if budgetPackets < 0 {
		budgetPackets = 0
	}
	return int(budgetPackets) * fragment.MTU
}
