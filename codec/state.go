package codec

// entropySymbols is the size of the toy entropy coder's frequency table:
// it counts zigzag-mapped nonzero coefficient levels below this bound;
// zero-run lengths and larger levels are not counted.
const entropySymbols = 512

// State is the opaque, clone-able encoder state threaded through the
// session: a reference reconstruction of the previous frame (nil before
// the first frame) plus an adaptive symbol-frequency table standing in
// for the codec's probability context. The committed State (held by the
// scheduler) always reflects exactly the sequence of frames that have
// actually been emitted on the wire; every Job gets its own exclusive
// Clone so a discarded job never mutates the committed copy.
type State struct {
	width, height int

	// refY is the previous frame's reconstructed luma plane, used as
	// the prediction basis for the next encode. nil for the very first
	// frame (intra-only).
	refY []byte

	// freq is an adaptive per-symbol frequency table, updated by every
	// encode and carried forward with the state. The entropy coder
	// records into it but does not read it when coding.
	freq [entropySymbols]uint32
}

// NewState returns the initial encoder state for a session with the
// given raster dimensions.
func NewState(width, height int) *State {
	s := &State{width: width, height: height}
	for i := range s.freq {
		s.freq[i] = 1
	}
	return s
}

// Clone returns a deep, independent copy suitable for handing to a
// single encode job.
func (s *State) Clone() *State {
	clone := &State{width: s.width, height: s.height, freq: s.freq}
	if s.refY != nil {
		clone.refY = append([]byte(nil), s.refY...)
	}
	return clone
}
