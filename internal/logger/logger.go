// Package logger builds the logger of the camrtsp program.
package logger

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
)

// Options are the logger options.
type Options struct {
	Level      slog.Level
	Color      bool
	Source     bool
	TimeFormat string
}

// source files are printed without their directory.
func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		if source, ok := a.Value.Any().(*slog.Source); ok {
			source.File = filepath.Base(source.File)
			return slog.Any(a.Key, source)
		}
	}
	return a
}

// New allocates a logger that writes colored, human-readable lines.
func New(w io.Writer, opts Options) *slog.Logger {
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.DateTime
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       opts.Level,
		AddSource:   opts.Source,
		NoColor:     !opts.Color,
		TimeFormat:  timeFormat,
		ReplaceAttr: replaceAttr,
	}))
}
