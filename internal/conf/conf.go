// Package conf contains the configuration of the camrtsp program.
package conf

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bluenviron/camrtsp/pkg/portalloc"
	"github.com/bluenviron/camrtsp/pkg/sink"
)

// Log is the log section.
type Log struct {
	Level      string `yaml:"level"`
	Color      bool   `yaml:"color"`
	Source     bool   `yaml:"source"`
	TimeFormat string `yaml:"time_format"`
}

// SlogLevel returns the level as a slog.Level.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Ports are the bases of the port pools.
type Ports struct {
	Multicast int `yaml:"multicast"`
	Client    int `yaml:"client"`
	Server    int `yaml:"server"`
}

// RTSP is the rtsp section.
type RTSP struct {
	Address          string `yaml:"address"`
	Path             string `yaml:"path"`
	SessionTimeoutMS int    `yaml:"session_timeout_ms"`
	MaxSubsessions   int    `yaml:"max_subsessions"`
	Ports            Ports  `yaml:"ports"`
	SessionName      string `yaml:"session_name"`
	SessionInfo      string `yaml:"session_info"`
}

// Stream is a media stream.
type Stream struct {
	Codec      string `yaml:"codec"`
	FPS        int    `yaml:"fps"`
	File       string `yaml:"file"`
	Mode       string `yaml:"mode"`
	BufferSize int    `yaml:"buffer_size"`
}

// SinkMode returns the frame storage mode.
func (s Stream) SinkMode() sink.Mode {
	if s.Mode == "by_copy" {
		return sink.ModeByCopy
	}
	return sink.ModeByReference
}

// Link is the link section.
type Link struct {
	Interface      string        `yaml:"interface"`
	RestartTimeout time.Duration `yaml:"restart_timeout"`
}

// Conf is the configuration of the program.
type Conf struct {
	Log     Log      `yaml:"log"`
	RTSP    RTSP     `yaml:"rtsp"`
	Streams []Stream `yaml:"streams"`
	Link    Link     `yaml:"link"`
}

func (c *Conf) setDefaults() {
	c.Log = Log{
		Level:      "info",
		Color:      true,
		TimeFormat: time.DateTime,
	}
	c.RTSP = RTSP{
		Address:          ":554",
		Path:             "stream",
		SessionTimeoutMS: 60000,
		MaxSubsessions:   2,
		Ports: Ports{
			Multicast: portalloc.DefaultMulticastBase,
			Client:    portalloc.DefaultClientBase,
			Server:    portalloc.DefaultServerBase,
		},
	}
	c.Link = Link{
		RestartTimeout: 60 * time.Second,
	}
}

// Validate checks the configuration and fills stream defaults.
func (c *Conf) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.RTSP.Address == "" {
		return fmt.Errorf("rtsp address not provided")
	}

	if c.RTSP.SessionTimeoutMS < 30000 {
		return fmt.Errorf("invalid session_timeout_ms: %d (must be at least 30000)", c.RTSP.SessionTimeoutMS)
	}

	if c.RTSP.MaxSubsessions <= 0 {
		return fmt.Errorf("invalid max_subsessions: %d", c.RTSP.MaxSubsessions)
	}

	alloc := &portalloc.Allocator{
		MulticastBase: c.RTSP.Ports.Multicast,
		ClientBase:    c.RTSP.Ports.Client,
		ServerBase:    c.RTSP.Ports.Server,
	}
	err := alloc.Initialize()
	if err != nil {
		return fmt.Errorf("invalid ports: %w", err)
	}

	if len(c.Streams) == 0 {
		return fmt.Errorf("no streams provided")
	}

	if len(c.Streams) > c.RTSP.MaxSubsessions {
		return fmt.Errorf("too many streams: %d (max_subsessions is %d)", len(c.Streams), c.RTSP.MaxSubsessions)
	}

	for i := range c.Streams {
		st := &c.Streams[i]

		_, err = sink.CodecByName(st.Codec)
		if err != nil {
			return fmt.Errorf("stream %d: %w", i, err)
		}

		if st.FPS == 0 {
			st.FPS = 25
		}
		if st.FPS < 0 || st.FPS > 1000 {
			return fmt.Errorf("stream %d: invalid fps: %d", i, st.FPS)
		}

		switch st.Mode {
		case "":
			st.Mode = "by_ref"
		case "by_ref", "by_copy":
		default:
			return fmt.Errorf("stream %d: invalid mode: %s (must be by_ref or by_copy)", i, st.Mode)
		}

		if st.BufferSize < 0 {
			return fmt.Errorf("stream %d: invalid buffer_size: %d", i, st.BufferSize)
		}
	}

	if c.Link.RestartTimeout <= 0 {
		return fmt.Errorf("invalid link restart_timeout: %v", c.Link.RestartTimeout)
	}

	return nil
}

// Parse decodes a configuration from YAML.
func Parse(buf []byte) (*Conf, error) {
	var c Conf
	c.setDefaults()

	err := yaml.Unmarshal(buf, &c)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	err = c.Validate()
	if err != nil {
		return nil, err
	}

	return &c, nil
}

// Load loads a configuration file.
func Load(path string) (*Conf, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	return Parse(buf)
}
