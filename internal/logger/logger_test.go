package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, ca := range []struct {
		name    string
		level   slog.Level
		printed []string
		hidden  []string
	}{
		{
			"info",
			slog.LevelInfo,
			[]string{"INF listener opened", "WRN frame dropped"},
			[]string{"request received"},
		},
		{
			"debug",
			slog.LevelDebug,
			[]string{"DBG request received", "INF listener opened", "WRN frame dropped"},
			nil,
		},
		{
			"error",
			slog.LevelError,
			nil,
			[]string{"request received", "listener opened", "frame dropped"},
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf, Options{Level: ca.level})

			l.Debug("request received", "method", "OPTIONS")
			l.Info("listener opened", "address", ":8554")
			l.Warn("frame dropped", "subsession", 0)

			out := buf.String()
			for _, p := range ca.printed {
				require.Contains(t, out, p)
			}
			for _, h := range ca.hidden {
				require.NotContains(t, out, h)
			}
		})
	}
}

func TestNewAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Options{Level: slog.LevelInfo, Source: true})

	l.With("conn", "abc").Info("connection opened", "remote", "127.0.0.1:4000")

	out := buf.String()
	require.Contains(t, out, "conn=abc")
	require.Contains(t, out, "remote=127.0.0.1:4000")
	require.Contains(t, out, "logger_test.go")
	require.False(t, strings.Contains(out, "/logger_test.go"))
	require.NotContains(t, out, "\x1b[")
}
