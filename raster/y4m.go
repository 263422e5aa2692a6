package raster

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/edaniels/golog"
)

// ErrEndOfStream is returned by Run once the underlying YUV4MPEG2 stream
// is exhausted. Exhaustion of the frame source is always treated as an
// error, never a clean shutdown: the caller is expected to terminate
// the process with a failure exit status.
var ErrEndOfStream = errors.New("raster: input stream ended")

const magic = "YUV4MPEG2"

// Source reads a raw YUV4MPEG2 stream and exposes non-blocking access to
// the freshest decoded raster. Readiness is observable via Ready(), a
// pollable-channel stand-in for an OS file descriptor's readability.
type Source struct {
	logger        golog.Logger
	br            *bufio.Reader
	width, height int
	frameSize     int

	pool sync.Pool

	mu      sync.Mutex
	pending *Raster

	ready chan struct{}
}

// NewSource parses the YUV4MPEG2 header off r and returns a Source ready
// to be pumped by Run. The header line has the form
// "YUV4MPEG2 W<width> H<height> ..." with space-separated, order-
// independent parameter tags; unrecognized tags are ignored.
func NewSource(r io.Reader, logger golog.Logger) (*Source, error) {
	br := bufio.NewReaderSize(r, 1<<20)

	line, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("raster: reading YUV4MPEG2 header: %w", err)
	}
	line = strings.TrimRight(line, "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != magic {
		return nil, fmt.Errorf("raster: not a YUV4MPEG2 stream (got %q)", line)
	}

	var width, height int
	for _, f := range fields[1:] {
		if len(f) < 2 {
			continue
		}
		switch f[0] {
		case 'W':
			width, err = strconv.Atoi(f[1:])
		case 'H':
			height, err = strconv.Atoi(f[1:])
		}
		if err != nil {
			return nil, fmt.Errorf("raster: parsing header field %q: %w", f, err)
		}
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: missing or invalid width/height in header %q", line)
	}

	cw, ch := chromaDims(width, height)
	frameSize := width*height + 2*cw*ch

	s := &Source{
		logger:    logger,
		br:        br,
		width:     width,
		height:    height,
		frameSize: frameSize,
		ready:     make(chan struct{}, 1),
	}
	s.pool.New = func() interface{} {
		return newRaster(s.width, s.height, s.recycle)
	}
	return s, nil
}

// Width returns the display width announced by the stream header.
func (s *Source) Width() int { return s.width }

// Height returns the display height announced by the stream header.
func (s *Source) Height() int { return s.height }

// Ready signals that a fresh raster has been buffered and is available
// via TryNext. It is safe to select on alongside other readiness sources.
func (s *Source) Ready() <-chan struct{} { return s.ready }

// TryNext returns the most recently buffered raster and clears the
// mailbox, or ok=false if nothing new has arrived since the last call.
// Any raster decoded between two calls to TryNext, other than the
// latest, is dropped (its reference released) and never seen by the
// caller: the scheduler always sees the freshest frame available.
func (s *Source) TryNext() (r *Raster, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil, false
	}
	r, s.pending = s.pending, nil
	return r, true
}

// Run blocks, decoding one frame at a time from the underlying reader
// and publishing each as the new mailbox contents, until ctx is done or
// the stream ends. It returns ErrEndOfStream on clean EOF, wrapping any
// lower-level I/O error.
func (s *Source) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := s.readFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ErrEndOfStream
			}
			return fmt.Errorf("raster: reading frame: %w", err)
		}
		s.publish(r)
	}
}

func (s *Source) publish(r *Raster) {
	s.mu.Lock()
	stale := s.pending
	s.pending = r
	s.mu.Unlock()

	if stale != nil {
		s.logger.Debugw("dropping stale raster, newer frame already decoded")
		stale.Release()
	}

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Source) readFrame() (*Raster, error) {
	line, err := s.br.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "FRAME") {
		return nil, fmt.Errorf("raster: expected FRAME marker, got %q", strings.TrimRight(line, "\n"))
	}

	r, _ := s.pool.Get().(*Raster)
	r.refs = 1

	if _, err := io.ReadFull(s.br, r.y); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.br, r.cb); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(s.br, r.cr); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Source) recycle(r *Raster) {
	s.pool.Put(r)
}
