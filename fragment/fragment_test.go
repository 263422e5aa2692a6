package fragment

import (
	"bytes"
	"testing"

	"go.viam.com/test"
)

func TestSplitFragmentCounting(t *testing.T) {
	// A 4100-byte frame produces 3 fragments (1400+1400+1300).
	payload := bytes.Repeat([]byte{0xAB}, 4100)
	frags := Split(7, 3, 83333, payload)

	test.That(t, len(frags), test.ShouldEqual, 3)
	test.That(t, len(frags[0].Payload), test.ShouldEqual, 1400)
	test.That(t, len(frags[1].Payload), test.ShouldEqual, 1400)
	test.That(t, len(frags[2].Payload), test.ShouldEqual, 1300)

	for i, f := range frags {
		test.That(t, f.Index, test.ShouldEqual, uint16(i))
		test.That(t, f.Count, test.ShouldEqual, uint16(3))
		test.That(t, f.ConnectionID, test.ShouldEqual, uint16(7))
		test.That(t, f.FrameNo, test.ShouldEqual, uint32(3))
	}
}

func TestRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4, 5}, 1000) // 5000 bytes
	frags := Split(42, 11, 83333, payload)

	var wire [][]byte
	for _, f := range frags {
		wire = append(wire, f.Encode())
	}

	var decoded []Fragment
	for _, w := range wire {
		f, err := DecodeFragment(w)
		test.That(t, err, test.ShouldBeNil)
		decoded = append(decoded, f)
	}

	got, err := Reassemble(decoded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bytes.Equal(got, payload), test.ShouldBeTrue)
}

func TestReassembleDetectsMissingFragment(t *testing.T) {
	frags := Split(1, 1, 83333, bytes.Repeat([]byte{9}, 3000))
	_, err := Reassemble(frags[:2])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCountersMonotone(t *testing.T) {
	var c Counters
	first := c.Append(3)
	second := c.Append(2)

	test.That(t, first, test.ShouldEqual, uint64(3))
	test.That(t, second, test.ShouldEqual, uint64(5))
	test.That(t, second, test.ShouldBeGreaterThan, first)

	v, ok := c.At(0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, uint64(3))

	v, ok = c.At(1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, uint64(5))

	_, ok = c.At(2)
	test.That(t, ok, test.ShouldBeFalse)
}
