package codec

// quantStep maps a quantizer index in [MinQuantizerIndex,
// MaxQuantizerIndex] to a coefficient step size. Larger qi means a
// coarser step, fewer distinct reconstructed levels, and (via the
// entropy coder's run-length stage) a smaller encoded frame.
func quantStep(qi int) int {
	if qi < MinQuantizerIndex {
		qi = MinQuantizerIndex
	}
	if qi > MaxQuantizerIndex {
		qi = MaxQuantizerIndex
	}
	return 1 + qi*2
}

// transformPlane predicts, quantizes, and reconstructs one plane,
// returning the quantized coefficients (one per pixel, in block-raster
// order) and the reconstructed plane to carry forward as the new
// reference. When ref is non-nil it is used as a per-pixel temporal
// predictor (inter); otherwise each block predicts from its already-
// reconstructed above/left neighbor average (intra), per the
// neighbor-aware grid iteration.
func transformPlane(cur []byte, width, height int, ref []byte, step int) (coeffs []int16, rec []byte) {
	g := newGrid(width, height)
	rec = make([]byte, len(cur))
	coeffs = make([]int16, 0, len(cur))

	g.forEach(func(b block, above, left *block) {
		pred := 128
		if ref == nil {
			pred = intraPredictor(rec, width, above, left)
		}
		for y := 0; y < b.h; y++ {
			rowOff := (b.y0+y)*width + b.x0
			for x := 0; x < b.w; x++ {
				idx := rowOff + x
				p := pred
				if ref != nil {
					p = int(ref[idx])
				}
				diff := int(cur[idx]) - p
				q := quantize(diff, step)
				coeffs = append(coeffs, int16(q))
				rec[idx] = reconstruct(q, step, p)
			}
		}
	})
	return coeffs, rec
}

func quantize(diff, step int) int {
	if diff >= 0 {
		return (diff + step/2) / step
	}
	return -((-diff + step/2) / step)
}

func reconstruct(q, step, pred int) byte {
	v := q*step + pred
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// intraPredictor averages one already-reconstructed sample from each
// available neighbor block (the above block's bottom-left pixel and the
// left block's top-right pixel); falls back to mid-gray at the frame's
// top-left corner, where neither neighbor exists yet.
func intraPredictor(rec []byte, width int, above, left *block) int {
	sum, n := 0, 0
	if above != nil {
		sum += int(rec[(above.y0+above.h-1)*width+above.x0])
		n++
	}
	if left != nil {
		sum += int(rec[left.y0*width+left.x0+left.w-1])
		n++
	}
	if n == 0 {
		return 128
	}
	return sum / n
}
