package scheduler

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"github.com/dlcast/videosend/codec"
	"github.com/dlcast/videosend/feedback"
	"github.com/dlcast/videosend/raster"
	"github.com/dlcast/videosend/transport"
)

// pacedY4MReader returns an io.Reader that streams a YUV4MPEG2 header
// followed by frameCount synthetic frames, one every interval, then
// holds the pipe open for trailingDelay before closing it. This mimics
// a live capture pipe closely enough to exercise real tick/raster
// interleaving, which an instantly-readable in-memory buffer cannot.
func pacedY4MReader(t *testing.T, width, height, frameCount int, interval, trailingDelay time.Duration) io.Reader {
	t.Helper()
	cw, ch := (width+1)/2, (height+1)/2
	frameSize := width*height + 2*cw*ch

	pr, pw := io.Pipe()
	go func() {
		header := fmt.Sprintf("YUV4MPEG2 W%d H%d F25:1 Ip A1:1 C420jpeg\n", width, height)
		if _, err := pw.Write([]byte(header)); err != nil {
			pw.Close()
			return
		}
		for i := 0; i < frameCount; i++ {
			time.Sleep(interval)
			b := make([]byte, frameSize)
			for j := range b {
				b[j] = byte(i)
			}
			if _, err := pw.Write([]byte("FRAME\n")); err != nil {
				pw.Close()
				return
			}
			if _, err := pw.Write(b); err != nil {
				pw.Close()
				return
			}
		}
		time.Sleep(trailingDelay)
		pw.Close()
	}()
	return pr
}

// loopbackReceiver opens a UDP listener on localhost, returns a Socket
// connected to it, and drains every datagram it receives in the
// background so the sender's writes never block on a full buffer.
func loopbackReceiver(t *testing.T) (sender *transport.Socket, stop func()) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port

	sender, err = transport.Dial("127.0.0.1", strconv.Itoa(port))
	if err != nil {
		t.Fatalf("transport.Dial: %v", err)
	}

	done := make(chan struct{})
	go func() {
		buf := make([]byte, 4096)
		for {
			if _, _, err := conn.ReadFromUDP(buf); err != nil {
				return
			}
			select {
			case <-done:
				return
			default:
			}
		}
	}()

	return sender, func() {
		close(done)
		conn.Close()
		sender.Close()
	}
}

func TestRunWarmUpSendsOneFramePerArrival(t *testing.T) {
	// No acks; three rasters, each well separated from the next
	// tick, should each be encoded with ConstantQuantizer and sent.
	const width, height = 16, 16
	source, err := raster.NewSource(pacedY4MReader(t, width, height, 3, 45*time.Millisecond, 100*time.Millisecond), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	sender, stop := loopbackReceiver(t)
	defer stop()

	cfg := DefaultConfig(7, 32)
	cfg.FPS = 50 // 20ms ticks

	sched := New(cfg, golog.NewTestLogger(t),
		source, codec.NewPool(2, golog.NewTestLogger(t)), feedback.NewTracker(7, golog.NewTestLogger(t)),
		sender, width, height)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = sched.Run(ctx)
	test.That(t, err, test.ShouldEqual, raster.ErrEndOfStream)
	test.That(t, sched.FramesSent(), test.ShouldEqual, 3)
	test.That(t, sched.State().FrameNo, test.ShouldEqual, uint32(3))
	test.That(t, sched.State().Generating, test.ShouldBeFalse)
}

func TestRunStaleRastersCollapseToOne(t *testing.T) {
	// Three rasters arrive well within one tick period; only the
	// last is ever encoded and sent.
	const width, height = 16, 16
	source, err := raster.NewSource(pacedY4MReader(t, width, height, 3, 5*time.Millisecond, 120*time.Millisecond), golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	sender, stop := loopbackReceiver(t)
	defer stop()

	cfg := DefaultConfig(11, 16)
	cfg.FPS = 20 // 50ms ticks, comfortably slower than the 5ms frame spacing

	sched := New(cfg, golog.NewTestLogger(t),
		source, codec.NewPool(2, golog.NewTestLogger(t)), feedback.NewTracker(11, golog.NewTestLogger(t)),
		sender, width, height)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = sched.Run(ctx)
	test.That(t, err, test.ShouldEqual, raster.ErrEndOfStream)
	test.That(t, sched.FramesSent(), test.ShouldEqual, 1)
	test.That(t, sched.State().FrameNo, test.ShouldEqual, uint32(1))
}
