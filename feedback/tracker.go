// Package feedback implements the feedback tracker (C3): it consumes
// ack datagrams and derives the average inter-packet delay and the
// last-acked cumulative fragment index that the scheduler's target-size
// rule depends on.
package feedback

import (
	"github.com/edaniels/golog"

	"github.com/dlcast/videosend/fragment"
)

// State is the feedback signal the scheduler reads when planning the
// next encode. Known is false until the first ack for this session
// arrives, represented by the zero State rather than by magic values.
type State struct {
	AvgDelayMicros uint32
	LastAcked      uint64
	Known          bool
}

// Tracker applies a "last ack wins" update rule: whichever ack is
// ingested most recently replaces the prior state outright, with no
// attempt to reorder or ignore out-of-order acks. It has no internal
// locking: ack handling runs on the same single-threaded event loop as
// everything else, so Tracker is only ever called from that one
// goroutine.
type Tracker struct {
	sessionID uint16
	logger    golog.Logger
	state     State
}

// NewTracker returns a Tracker that only accepts acks whose
// connection_id equals sessionID.
func NewTracker(sessionID uint16, logger golog.Logger) *Tracker {
	return &Tracker{sessionID: sessionID, logger: logger}
}

// State returns the current feedback signal.
func (t *Tracker) State() State { return t.state }

// Ingest applies one received ack against the sender's fragment
// counters. Acks for a different connection, or referencing a frame the
// sender never sent, are dropped silently (logged at Debug).
func (t *Tracker) Ingest(ack Ack, counters *fragment.Counters) {
	if ack.ConnectionID != t.sessionID {
		t.logger.Debugw("dropping ack for foreign connection",
			"got", ack.ConnectionID, "want", t.sessionID)
		return
	}

	var base uint64
	if ack.FrameNo > 0 {
		var ok bool
		base, ok = counters.At(ack.FrameNo - 1)
		if !ok {
			t.logger.Debugw("dropping ack for a frame never sent", "frame_no", ack.FrameNo)
			return
		}
	}

	t.state = State{
		AvgDelayMicros: ack.AvgDelayMicros,
		LastAcked:      base + uint64(ack.FragmentNo),
		Known:          true,
	}
}
