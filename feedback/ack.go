package feedback

import (
	"encoding/binary"
	"fmt"
)

// AckSize is the wire size in bytes of an Ack:
// (connection_id: u16, frame_no: u32, fragment_no: u16, avg_delay_us: u32).
const AckSize = 2 + 4 + 2 + 4

// An Ack is one receiver acknowledgement datagram.
type Ack struct {
	ConnectionID  uint16
	FrameNo       uint32
	FragmentNo    uint16
	AvgDelayMicros uint32
}

// DecodeAck parses the fixed-width ack wire format. Byte order is
// big-endian network order, matching the fragment header (package
// fragment).
func DecodeAck(b []byte) (Ack, error) {
	if len(b) < AckSize {
		return Ack{}, fmt.Errorf("feedback: short ack packet: got %d bytes, want %d", len(b), AckSize)
	}
	return Ack{
		ConnectionID:   binary.BigEndian.Uint16(b[0:2]),
		FrameNo:        binary.BigEndian.Uint32(b[2:6]),
		FragmentNo:     binary.BigEndian.Uint16(b[6:8]),
		AvgDelayMicros: binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// Encode serializes the ack. Used by the test suite to synthesize
// inbound packets; the sender never produces acks itself.
func (a Ack) Encode() []byte {
	b := make([]byte, AckSize)
	binary.BigEndian.PutUint16(b[0:2], a.ConnectionID)
	binary.BigEndian.PutUint32(b[2:6], a.FrameNo)
	binary.BigEndian.PutUint16(b[6:8], a.FragmentNo)
	binary.BigEndian.PutUint32(b[8:12], a.AvgDelayMicros)
	return b
}
