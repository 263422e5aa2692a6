// Package scheduler implements the deadline-driven encode scheduler
// (C4): the single cooperative event loop that couples a periodic tick,
// the freshest decoded raster, the feedback signal, and the encode
// worker pool into a decision, each tick, to skip, constant-quantizer
// encode, or size-targeted encode, then fragments and sends whichever
// job finishes in time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/dlcast/videosend/codec"
	"github.com/dlcast/videosend/feedback"
	"github.com/dlcast/videosend/fragment"
	"github.com/dlcast/videosend/raster"
	"github.com/dlcast/videosend/transport"
)

// Config holds the tunables a deployment picks once at startup.
type Config struct {
	SessionID      uint16
	QuantizerIndex int

	FPS               int
	MaxSkipped        int
	MaxDelayMicros    uint32
	MaxConcurrentJobs int
}

// DefaultConfig returns the constants named in the wire-format and
// constants sections: 12 fps, MAX_SKIPPED=5, MAX_DELAY=100ms.
func DefaultConfig(sessionID uint16, quantizerIndex int) Config {
	return Config{
		SessionID:         sessionID,
		QuantizerIndex:    quantizerIndex,
		FPS:               12,
		MaxSkipped:        5,
		MaxDelayMicros:    100_000,
		MaxConcurrentJobs: 4,
	}
}

func (c Config) tickPeriod() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// Scheduler owns the SchedulerState exclusively; every field below is
// touched only by the goroutine running Run.
type Scheduler struct {
	cfg    Config
	logger golog.Logger

	source   *raster.Source
	pool     *codec.Pool
	tracker  *feedback.Tracker
	counters *fragment.Counters
	socket   *transport.Socket

	frameNo      uint32
	skippedInRow int
	lastRaster   *raster.Raster
	committed    *codec.State
	current      *generation

	genEndedCh chan *generation
	ackCh      chan feedback.Ack
}

// New assembles a Scheduler from its collaborators. width/height seed
// the initial, empty encoder state.
func New(
	cfg Config,
	logger golog.Logger,
	source *raster.Source,
	pool *codec.Pool,
	tracker *feedback.Tracker,
	socket *transport.Socket,
	width, height int,
) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		pool:       pool,
		tracker:    tracker,
		counters:   &fragment.Counters{},
		socket:     socket,
		committed:  codec.NewState(width, height),
		genEndedCh: make(chan *generation, 1),
		ackCh:      make(chan feedback.Ack, 8),
	}
}

// Run is the single cooperative event loop. It blocks until ctx is
// cancelled, the frame source terminates, or an unrecoverable error
// occurs. A frame-source exhaustion is always reported as an error: the
// source only defines success as continuous delivery.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sourceErrCh := make(chan error, 1)
	utils.ManagedGo(func() { sourceErrCh <- s.source.Run(ctx) }, func() {})

	recvErrCh := make(chan error, 1)
	utils.ManagedGo(func() { s.recvLoop(ctx, recvErrCh) }, func() {})

	ticker := time.NewTicker(s.cfg.tickPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-sourceErrCh:
			return err

		case err := <-recvErrCh:
			if err != nil {
				s.logger.Debugw("ack socket closed", "error", err)
			}
			// A closed receive socket does not end the session on its
			// own; sending can continue as long as the frame source
			// does. Only the context or the source decides when to stop.

		case <-s.source.Ready():
			s.handleRasterReady()

		case <-ticker.C:
			if err := s.handleTick(ctx); err != nil {
				return err
			}

		case gen := <-s.genEndedCh:
			if err := s.handleGenerationEnded(gen); err != nil {
				return err
			}

		case ack := <-s.ackCh:
			s.tracker.Ingest(ack, s.counters)
		}
	}
}

// recvLoop reads ack datagrams off the socket and forwards them to the
// event loop; it never touches scheduler state directly so that all
// state mutation stays on the single goroutine running Run.
func (s *Scheduler) recvLoop(ctx context.Context, errCh chan<- error) {
	for {
		b, _, err := s.socket.Recv()
		if err != nil {
			errCh <- err
			return
		}
		ack, err := feedback.DecodeAck(b)
		if err != nil {
			s.logger.Debugw("dropping malformed ack", "error", err)
			continue
		}
		select {
		case s.ackCh <- ack:
		case <-ctx.Done():
			return
		}
	}
}

// handleRasterReady is E1: consume the freshest raster, discarding
// whatever was held before it. If the previous raster was never
// consumed by a tick, its reference is released here.
func (s *Scheduler) handleRasterReady() {
	r, ok := s.source.TryNext()
	if !ok {
		return
	}
	if s.lastRaster != nil {
		s.lastRaster.Release()
	}
	s.lastRaster = r
}

// handleTick is E2. A tick with no generation in flight and a raster on
// hand opens a new generation; any other tick is dropped with no side
// effects.
func (s *Scheduler) handleTick(ctx context.Context) error {
	if s.current != nil || s.lastRaster == nil {
		return nil
	}

	jobs := s.plan()
	// plan() always disposes of s.lastRaster one way or another: it
	// hands the reference to the one job it builds, or releases it
	// itself on a skip. Either way this tick has consumed it.
	s.lastRaster = nil
	if len(jobs) == 0 {
		return nil
	}

	deadline := time.Now().Add(s.cfg.tickPeriod())
	gen := &generation{frameNo: s.frameNo, deadline: deadline}
	for _, job := range jobs {
		gen.futures = append(gen.futures, s.pool.Spawn(job))
	}
	s.current = gen

	go gen.awaitAll(ctx, s.genEndedCh)
	return nil
}

// handleGenerationEnded is E3.
func (s *Scheduler) handleGenerationEnded(gen *generation) error {
	out, ok, err := gen.firstReady()
	if err != nil {
		return fmt.Errorf("scheduler: job for frame %d: %w", gen.frameNo, err)
	}
	s.current = nil
	if !ok {
		s.logger.Debugw("generation missed deadline, discarding", "frame_no", gen.frameNo)
		return nil
	}

	if err := s.sendFrame(gen.frameNo, out.Frame); err != nil {
		return fmt.Errorf("scheduler: sending frame %d: %w", gen.frameNo, err)
	}

	s.committed = out.State
	s.skippedInRow = 0
	s.frameNo++
	return nil
}

func (s *Scheduler) sendFrame(frameNo uint32, payload []byte) error {
	frags := fragment.Split(s.cfg.SessionID, frameNo, uint32(s.cfg.tickPeriod().Microseconds()), payload)
	for _, f := range frags {
		if err := s.socket.SendFragment(f); err != nil {
			return err
		}
	}
	s.counters.Append(len(frags))
	return nil
}
