// Command videosend reads a raw YUV4MPEG2 stream on standard input and
// sends it, frame by frame, to a receiver over UDP under a per-frame
// deadline driven by the receiver's ack feedback.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/edaniels/golog"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/dlcast/videosend/codec"
	"github.com/dlcast/videosend/feedback"
	"github.com/dlcast/videosend/raster"
	"github.com/dlcast/videosend/scheduler"
	"github.com/dlcast/videosend/transport"
)

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

var logger = golog.Global().Named("videosend")

// Arguments are the four required positional CLI arguments:
// QUANTIZER HOST PORT CONNECTION_ID.
type Arguments struct {
	Quantizer    strictUint `flag:"0"`
	Host         string     `flag:"1"`
	Port         strictUint `flag:"2"`
	ConnectionID strictUint `flag:"3"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := goutils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if !argsParsed.Quantizer.set || argsParsed.Host == "" || !argsParsed.Port.set || !argsParsed.ConnectionID.set {
		return fmt.Errorf("videosend: usage: videosend QUANTIZER HOST PORT CONNECTION_ID")
	}
	if argsParsed.Quantizer.value > uint64(codec.MaxQuantizerIndex) {
		return fmt.Errorf("videosend: QUANTIZER %d out of range [0,%d]", argsParsed.Quantizer.value, codec.MaxQuantizerIndex)
	}
	if argsParsed.Port.value == 0 || argsParsed.Port.value > 65535 {
		return fmt.Errorf("videosend: PORT %d out of range [1,65535]", argsParsed.Port.value)
	}
	if argsParsed.ConnectionID.value > 65535 {
		return fmt.Errorf("videosend: CONNECTION_ID %d out of range [0,65535]", argsParsed.ConnectionID.value)
	}

	return run(ctx, runConfig{
		quantizer:    int(argsParsed.Quantizer.value),
		host:         argsParsed.Host,
		port:         fmt.Sprintf("%d", argsParsed.Port.value),
		connectionID: uint16(argsParsed.ConnectionID.value),
	}, logger)
}

type runConfig struct {
	quantizer    int
	host, port   string
	connectionID uint16
}

func run(ctx context.Context, cfg runConfig, logger golog.Logger) (err error) {
	source, err := raster.NewSource(os.Stdin, logger.Named("raster"))
	if err != nil {
		return fmt.Errorf("videosend: reading input stream header: %w", err)
	}

	socket, err := transport.Dial(cfg.host, cfg.port)
	if err != nil {
		return fmt.Errorf("videosend: dialing %s:%s: %w", cfg.host, cfg.port, err)
	}
	defer func() {
		err = multierr.Combine(err, socket.Close())
	}()

	schedCfg := scheduler.DefaultConfig(cfg.connectionID, cfg.quantizer)

	pool := codec.NewPool(schedCfg.MaxConcurrentJobs, logger.Named("codec"))
	tracker := feedback.NewTracker(cfg.connectionID, logger.Named("feedback"))

	sched := scheduler.New(
		schedCfg,
		logger.Named("scheduler"),
		source,
		pool,
		tracker,
		socket,
		source.Width(),
		source.Height(),
	)

	return sched.Run(ctx)
}
