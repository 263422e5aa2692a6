package fragment

import "fmt"

// Counters tracks the running total of fragments emitted per frame:
// entry k is the total number of fragments emitted across frames
// 0..k inclusive. It is strictly non-decreasing and its length equals
// the number of frames sent so far.
type Counters struct {
	cumulative []uint64
}

// Append records that the frame after the last one recorded emitted
// fragmentCount fragments, and returns the new cumulative total. It
// panics if fragmentCount is zero: a sent frame always produces at
// least one fragment, so a zero count indicates a caller bug, not a
// protocol condition.
func (c *Counters) Append(fragmentCount int) uint64 {
	if fragmentCount <= 0 {
		panic(fmt.Sprintf("fragment: Append called with fragmentCount=%d", fragmentCount))
	}
	var total uint64
	if n := len(c.cumulative); n > 0 {
		total = c.cumulative[n-1]
	}
	total += uint64(fragmentCount)
	c.cumulative = append(c.cumulative, total)
	return total
}

// At returns the cumulative fragment total through frameNo and true, or
// (0, false) if no frame with that index has been sent yet.
func (c *Counters) At(frameNo uint32) (uint64, bool) {
	if int(frameNo) >= len(c.cumulative) {
		return 0, false
	}
	return c.cumulative[frameNo], true
}

// Back returns the most recent cumulative total, or 0 if no frame has
// been sent yet.
func (c *Counters) Back() uint64 {
	if n := len(c.cumulative); n > 0 {
		return c.cumulative[n-1]
	}
	return 0
}

// Len reports how many frames have been recorded.
func (c *Counters) Len() int { return len(c.cumulative) }
