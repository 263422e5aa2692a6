// Package fragment splits one encoded frame into MTU-sized fragments
// carrying enough header to let a receiver reassemble them, and tracks
// the cumulative per-frame fragment count.
package fragment

import (
	"encoding/binary"
	"fmt"
)

// MTU is the maximum payload size of one outbound fragment.
const MTU = 1400

// HeaderSize is the wire size in bytes of a Fragment's header, ahead of
// its payload: connection_id(u16) frame_no(u32) frame_interval_us(u32)
// fragment_index(u16) fragment_count(u16).
const HeaderSize = 2 + 4 + 4 + 2 + 2

// A Fragment is one on-the-wire datagram's worth of an encoded frame.
type Fragment struct {
	ConnectionID    uint16
	FrameNo         uint32
	FrameIntervalUS uint32
	Index           uint16
	Count           uint16
	Payload         []byte
}

// Encode serializes the fragment header followed by its payload, big-
// endian, matching the inbound ack encoding in package feedback.
func (f Fragment) Encode() []byte {
	b := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint16(b[0:2], f.ConnectionID)
	binary.BigEndian.PutUint32(b[2:6], f.FrameNo)
	binary.BigEndian.PutUint32(b[6:10], f.FrameIntervalUS)
	binary.BigEndian.PutUint16(b[10:12], f.Index)
	binary.BigEndian.PutUint16(b[12:14], f.Count)
	copy(b[HeaderSize:], f.Payload)
	return b
}

// DecodeFragment parses a wire fragment. Used by the test suite to
// exercise the encode/decode round trip; the sender itself never
// decodes fragments.
func DecodeFragment(b []byte) (Fragment, error) {
	if len(b) < HeaderSize {
		return Fragment{}, fmt.Errorf("fragment: short packet: got %d bytes, want at least %d", len(b), HeaderSize)
	}
	f := Fragment{
		ConnectionID:    binary.BigEndian.Uint16(b[0:2]),
		FrameNo:         binary.BigEndian.Uint32(b[2:6]),
		FrameIntervalUS: binary.BigEndian.Uint32(b[6:10]),
		Index:           binary.BigEndian.Uint16(b[10:12]),
		Count:           binary.BigEndian.Uint16(b[12:14]),
	}
	f.Payload = append([]byte(nil), b[HeaderSize:]...)
	return f, nil
}

// Split divides payload into consecutive fragments of up to MTU bytes
// each, in index order. A zero-length payload still produces exactly
// one (empty) fragment, since every sent frame must advance the
// cumulative fragment counter by at least one.
func Split(connectionID uint16, frameNo uint32, frameIntervalUS uint32, payload []byte) []Fragment {
	count := (len(payload) + MTU - 1) / MTU
	if count == 0 {
		count = 1
	}
	fragments := make([]Fragment, count)
	for i := 0; i < count; i++ {
		start := i * MTU
		end := start + MTU
		if end > len(payload) {
			end = len(payload)
		}
		fragments[i] = Fragment{
			ConnectionID:    connectionID,
			FrameNo:         frameNo,
			FrameIntervalUS: frameIntervalUS,
			Index:           uint16(i),
			Count:           uint16(count),
			Payload:         payload[start:end],
		}
	}
	return fragments
}

// Reassemble concatenates a complete, index-ordered set of fragments
// back into the original payload. It returns an error if any index is
// missing or the declared fragment counts disagree.
func Reassemble(fragments []Fragment) ([]byte, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("fragment: no fragments to reassemble")
	}
	want := fragments[0].Count
	byIndex := make([][]byte, want)
	seen := make([]bool, want)
	for _, f := range fragments {
		if f.Count != want {
			return nil, fmt.Errorf("fragment: inconsistent fragment_count %d vs %d", f.Count, want)
		}
		if f.Index >= want {
			return nil, fmt.Errorf("fragment: index %d out of range [0,%d)", f.Index, want)
		}
		byIndex[f.Index] = f.Payload
		seen[f.Index] = true
	}
	var out []byte
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("fragment: missing fragment index %d", i)
		}
		out = append(out, byIndex[i]...)
	}
	return out, nil
}
