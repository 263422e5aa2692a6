package codec

import "fmt"

// Encode runs job synchronously and returns its output. Pool.Spawn is
// the concurrent entry point; Encode is exported separately so it can
// be exercised directly in tests without the goroutine/deadline
// machinery.
func Encode(job Job) (Output, error) {
	switch job.Mode {
	case ConstantQuantizer:
		return encodeWithQuantizer(job, job.QuantizerIndex)
	case TargetSize:
		return encodeWithTargetSize(job, job.TargetBytes)
	default:
		return Output{}, fmt.Errorf("codec: unsupported encode mode %v", job.Mode)
	}
}

func encodeWithQuantizer(job Job, qi int) (Output, error) {
	r := job.Raster
	step := quantStep(qi)

	yCoeffs, newY := transformPlane(r.Y(), r.Width(), r.Height(), job.State.refY, step)

	cw, ch := chromaDims(r.Width(), r.Height())
	cbCoeffs, _ := transformPlane(r.Cb(), cw, ch, nil, step*2)
	crCoeffs, _ := transformPlane(r.Cr(), cw, ch, nil, step*2)

	frame := make([]byte, 0, len(yCoeffs)/2)
	frame = append(frame, entropyEncode(yCoeffs, &job.State.freq)...)
	frame = append(frame, entropyEncode(cbCoeffs, &job.State.freq)...)
	frame = append(frame, entropyEncode(crCoeffs, &job.State.freq)...)

	job.State.refY = newY

	return Output{State: job.State, Frame: frame}, nil
}

// encodeWithTargetSize bisects the quantizer to approximate target
// bytes on a best-effort basis. Coarser quantizers (higher qi)
// monotonically tend to shrink the output, so a handful of bisection
// steps converges quickly; hitting the target exactly is not required.
func encodeWithTargetSize(job Job, target int) (Output, error) {
	if target <= 0 {
		return encodeWithQuantizer(job, MaxQuantizerIndex)
	}

	original := job.State
	lo, hi := MinQuantizerIndex, MaxQuantizerIndex
	var best Output
	const maxIterations = 7
	for i := 0; i < maxIterations && lo <= hi; i++ {
		qi := (lo + hi) / 2

		// Every trial starts over from the pre-job snapshot: a rejected
		// trial must never leak its refY/freq mutations into the next one.
		trial := job
		trial.State = original.Clone()

		out, err := encodeWithQuantizer(trial, qi)
		if err != nil {
			return Output{}, err
		}
		best = out

		if len(out.Frame) > target {
			lo = qi + 1
		} else {
			hi = qi - 1
		}
	}
	return best, nil
}

func chromaDims(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}
