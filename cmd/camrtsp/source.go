package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/bluenviron/camrtsp/pkg/sink"
)

// fileSource feeds a sink with the content of a file, at a fixed frame rate.
// It stands in for a capture device.
type fileSource struct {
	sink   *sink.Sink
	path   string
	fps    int
	logger *slog.Logger
}

func (fs *fileSource) run(ctx context.Context) error {
	frame, err := os.ReadFile(fs.path)
	if err != nil {
		return err
	}

	fs.logger.Info("frame source started",
		"file", fs.path,
		"size", len(frame),
		"fps", fs.fps)

	period := time.Second / time.Duration(fs.fps)
	step := uint32(fs.sink.Codec.ClockRate() / fs.fps)

	t := time.NewTicker(period)
	defer t.Stop()

	var ts uint32
	var index int

	for {
		select {
		case <-t.C:
			err = fs.sink.Deposit(frame, ts, index)
			if err != nil {
				if !errors.Is(err, sink.ErrSlotBusy) {
					return err
				}
				fs.logger.Debug("frame dropped", "index", index)
			}

			ts += step
			index++

		case <-ctx.Done():
			return nil
		}
	}
}
