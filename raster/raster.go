// Package raster implements the frame source (C1): a cheaply shareable
// handle to one decoded input frame's pixel planes, read from a raw
// YUV4MPEG2 stream.
package raster

import "sync/atomic"

// A Raster is an immutable handle to one decoded frame's pixel planes,
// stored I420 (4:2:0) style: a full-resolution luma plane and two
// quarter-resolution chroma planes. It is reference-counted so that
// sharing it across a generation of encode jobs is just a pointer copy.
type Raster struct {
	width, height int
	y, cb, cr     []byte

	refs    int32
	release func(*Raster)
}

func newRaster(width, height int, release func(*Raster)) *Raster {
	cw, ch := chromaDims(width, height)
	return &Raster{
		width:   width,
		height:  height,
		y:       make([]byte, width*height),
		cb:      make([]byte, cw*ch),
		cr:      make([]byte, cw*ch),
		refs:    1,
		release: release,
	}
}

func chromaDims(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}

// New builds a standalone Raster filled with fill, not backed by any
// Source pool. It exists for callers (codec and scheduler tests, mostly)
// that need a Raster without decoding a YUV4MPEG2 stream; Release on the
// result is a no-op past dropping the last reference.
func New(width, height int, fill byte) *Raster {
	r := newRaster(width, height, nil)
	for i := range r.y {
		r.y[i] = fill
	}
	for i := range r.cb {
		r.cb[i] = 128
	}
	for i := range r.cr {
		r.cr[i] = 128
	}
	return r
}

// Width returns the display width in pixels.
func (r *Raster) Width() int { return r.width }

// Height returns the display height in pixels.
func (r *Raster) Height() int { return r.height }

// Y returns the luma plane, row-major, width()*height() bytes.
func (r *Raster) Y() []byte { return r.y }

// Cb returns the blue-difference chroma plane.
func (r *Raster) Cb() []byte { return r.cb }

// Cr returns the red-difference chroma plane.
func (r *Raster) Cr() []byte { return r.cr }

// Share increments the reference count and returns the same handle.
// Use this when handing the raster to a new encode job: it must not
// be mutated, only read, by any holder.
func (r *Raster) Share() *Raster {
	atomic.AddInt32(&r.refs, 1)
	return r
}

// Release drops one reference. Once the last reference is dropped the
// underlying buffers are returned to the source's pool, if any.
func (r *Raster) Release() {
	if atomic.AddInt32(&r.refs, -1) == 0 && r.release != nil {
		r.release(r)
	}
}
