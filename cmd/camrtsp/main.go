// main executable.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluenviron/camrtsp"
	"github.com/bluenviron/camrtsp/internal/conf"
	"github.com/bluenviron/camrtsp/internal/logger"
	"github.com/bluenviron/camrtsp/pkg/sink"
)

func newSink(st conf.Stream, l *slog.Logger) (*sink.Sink, error) {
	codec, err := sink.CodecByName(st.Codec)
	if err != nil {
		return nil, err
	}

	if mjpeg, ok := codec.(*sink.MJPEG); ok {
		mjpeg.FPS = st.FPS
	}

	sk := &sink.Sink{
		Codec:      codec,
		Mode:       st.SinkMode(),
		BufferSize: st.BufferSize,
		Logger:     l,
	}
	err = sk.Initialize()
	if err != nil {
		return nil, err
	}

	return sk, nil
}

func run() int {
	confPath := flag.String("config", "camrtsp.yml", "path of the configuration file")
	flag.Parse()

	c, err := conf.Load(*confPath)
	if err != nil {
		slog.Error("unable to load configuration", "err", err)
		return 1
	}

	l := logger.New(os.Stdout, logger.Options{
		Level:      c.Log.SlogLevel(),
		Color:      c.Log.Color,
		Source:     c.Log.Source,
		TimeFormat: c.Log.TimeFormat,
	})
	slog.SetDefault(l)

	s := &camrtsp.Server{
		RTSPAddress:        c.RTSP.Address,
		SessionTimeout:     c.RTSP.SessionTimeoutMS,
		MaxSubsessions:     c.RTSP.MaxSubsessions,
		MulticastPortBase:  c.RTSP.Ports.Multicast,
		ClientPortBase:     c.RTSP.Ports.Client,
		ServerPortBase:     c.RTSP.Ports.Server,
		SessionName:        c.RTSP.SessionName,
		SessionInfo:        c.RTSP.SessionInfo,
		LinkRestartTimeout: c.Link.RestartTimeout,
		Logger:             l,
	}

	if c.Link.Interface != "" {
		s.LinkChecker = camrtsp.InterfaceLinkChecker{Name: c.Link.Interface}
	}

	var sources []*fileSource

	for _, st := range c.Streams {
		sk, err2 := newSink(st, l)
		if err2 != nil {
			l.Error("unable to create stream", "codec", st.Codec, "err", err2)
			return 1
		}

		id, err2 := s.AddSubsession(sk)
		if err2 != nil {
			l.Error("unable to add stream", "codec", st.Codec, "err", err2)
			return 1
		}

		if st.File != "" {
			sources = append(sources, &fileSource{
				sink:   sk,
				path:   st.File,
				fps:    st.FPS,
				logger: l.With("subsession", id),
			})
		}
	}

	err = s.Start()
	if err != nil {
		l.Error("unable to start server", "err", err)
		return 1
	}

	l.Info("stream is available", "path", "/"+c.RTSP.Path)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, src := range sources {
		go func(src *fileSource) {
			err := src.run(ctx)
			if err != nil {
				src.logger.Error("frame source failed", "err", err)
			}
		}(src)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- s.Wait()
	}()

	select {
	case <-ctx.Done():
		l.Info("shutting down")
		s.Close()
		return 0

	case err = <-waitErr:
		l.Error("server stopped", "err", err)
		return 1
	}
}

func main() {
	os.Exit(run())
}
