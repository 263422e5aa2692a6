package raster

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/edaniels/golog"
)

func makeStream(t *testing.T, width, height, frames int) []byte {
	t.Helper()
	cw, ch := chromaDims(width, height)
	frameSize := width*height + 2*cw*ch

	var buf bytes.Buffer
	buf.WriteString("YUV4MPEG2 W")
	buf.WriteString(itoa(width))
	buf.WriteString(" H")
	buf.WriteString(itoa(height))
	buf.WriteString(" F25:1 Ip A1:1 C420jpeg\n")

	for i := 0; i < frames; i++ {
		buf.WriteString("FRAME\n")
		b := make([]byte, frameSize)
		for j := range b {
			b[j] = byte(i)
		}
		buf.Write(b)
	}
	return buf.Bytes()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func TestSourceParsesHeaderAndFrames(t *testing.T) {
	data := makeStream(t, 16, 8, 2)

	// The mailbox keeps only the freshest raster, so the second frame is
	// written only after the first has been taken out of it.
	headerLen := bytes.IndexByte(data, '\n') + 1
	split := headerLen + (len(data)-headerLen)/2
	pr, pw := io.Pipe()
	firstTaken := make(chan struct{})
	go func() {
		pw.Write(data[:split])
		<-firstTaken
		pw.Write(data[split:])
		pw.Close()
	}()

	src, err := NewSource(pr, golog.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	if src.Width() != 16 || src.Height() != 8 {
		t.Fatalf("got %dx%d, want 16x8", src.Width(), src.Height())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- src.Run(ctx) }()

	var got []*Raster
	for len(got) < 2 {
		<-src.Ready()
		if r, ok := src.TryNext(); ok {
			got = append(got, r)
			if len(got) == 1 {
				close(firstTaken)
			}
		}
	}
	cancel()
	<-runErr

	if len(got) != 2 {
		t.Fatalf("got %d rasters, want 2", len(got))
	}
	for _, r := range got {
		if len(r.Y()) != 16*8 {
			t.Errorf("Y plane size = %d, want %d", len(r.Y()), 16*8)
		}
		r.Release()
	}
}

func TestSourceReportsEndOfStream(t *testing.T) {
	data := makeStream(t, 4, 4, 1)
	src, err := NewSource(bytes.NewReader(data), golog.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}

	err = src.Run(context.Background())
	if !errors.Is(err, ErrEndOfStream) {
		t.Fatalf("Run() error = %v, want ErrEndOfStream", err)
	}
}

func TestFreshnessDropsStaleRasters(t *testing.T) {
	data := makeStream(t, 4, 4, 3)
	src, err := NewSource(bytes.NewReader(data), golog.NewTestLogger(t))
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}

	// Drain the whole stream into the single-slot mailbox without ever
	// calling TryNext in between: only the last published raster should
	// be observable afterwards.
	_ = src.Run(context.Background())

	r, ok := src.TryNext()
	if !ok {
		t.Fatal("expected a pending raster after Run completed")
	}
	if r.Y()[0] != 2 {
		t.Errorf("Y()[0] = %d, want 2 (the last frame written)", r.Y()[0])
	}
	r.Release()

	if _, ok := src.TryNext(); ok {
		t.Error("TryNext should report no pending raster after it was consumed")
	}
}
