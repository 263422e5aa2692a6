package codec

import "encoding/binary"

// entropyEncode packs quantized coefficients with a zero run-length
// stage followed by varint coding of (run, value) pairs. freq is
// updated in place with the observed value distribution so later
// frames' statistics, carried in State, reflect the stream actually
// sent.
func entropyEncode(coeffs []int16, freq *[entropySymbols]uint32) []byte {
	out := make([]byte, 0, len(coeffs)/2+8)
	run := 0
	for _, c := range coeffs {
		if c == 0 {
			run++
			continue
		}
		out = appendVarint(out, uint64(run))
		zig := zigzag(int(c))
		out = appendVarint(out, uint64(zig))
		bumpFreq(freq, zig)
		run = 0
	}
	if run > 0 {
		out = appendVarint(out, uint64(run))
		out = appendVarint(out, 0) // trailing run marker, value 0 (zigzag of 0)
	}
	return out
}

func bumpFreq(freq *[entropySymbols]uint32, zig int) {
	if zig >= 0 && zig < entropySymbols {
		freq[zig]++
	}
}

func zigzag(v int) int {
	if v >= 0 {
		return v * 2
	}
	return -v*2 - 1
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}
