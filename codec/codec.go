// Package codec implements the encode worker pool (C2): it turns an
// EncodeJob into an EncodeOutput by running a small block-transform +
// entropy-coding pipeline, either at a fixed quantizer or bisecting the
// quantizer to approximate a target output size.
//
// The compression scheme itself is deliberately simple; what matters
// is that it is a real, working collaborator behind the Job/Output
// contract, so the scheduler can be exercised end to end.
package codec

import (
	"fmt"
	"time"

	"github.com/dlcast/videosend/raster"
)

// Mode selects how a Job is encoded.
type Mode int

const (
	// ConstantQuantizer encodes at a fixed quantizer step, producing
	// whatever output size results.
	ConstantQuantizer Mode = iota
	// TargetSize adapts the quantizer to approximate a target output
	// byte length on a best-effort basis.
	TargetSize
)

func (m Mode) String() string {
	switch m {
	case ConstantQuantizer:
		return "constant-quantizer"
	case TargetSize:
		return "target-size"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MinQuantizerIndex and MaxQuantizerIndex bound the valid quantizer index.
const (
	MinQuantizerIndex = 0
	MaxQuantizerIndex = 127
)

// A Job is one encode attempt: a raster to encode, a private clone of
// the encoder state to advance, and a mode describing how to size the
// output.
type Job struct {
	FrameNo uint32

	// Raster is this job's own reference (the caller must Share() it
	// before building the Job if other jobs or the caller still need
	// it). Pool.Spawn releases it once the job finishes, so a detached,
	// deadline-missing job keeps the backing buffers alive for exactly
	// as long as it keeps reading them.
	Raster *raster.Raster

	// State is this job's own exclusive clone, safe to mutate.
	State *State

	Mode Mode

	// QuantizerIndex is used when Mode == ConstantQuantizer.
	QuantizerIndex int

	// TargetBytes is used when Mode == TargetSize.
	TargetBytes int
}

// An Output is the result of successfully running a Job: the advanced
// encoder state, the encoded bytes, and how long the encode took.
type Output struct {
	State   *State
	Frame   []byte
	Elapsed time.Duration
}
