// Package logger provides structured logging setup for CareerForge.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Strob0t/CareerForge/internal/config"
)

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout (and to a rotated file when cfg.File is set) with a
// "service" attribute on every record. The returned Closer flushes the async
// handler and closes the log file; it is a no-op otherwise.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level := parseLevel(cfg.Level)

	var w io.Writer = os.Stdout
	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		}
		w = io.MultiWriter(os.Stdout, file)
	}

	var handler slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	closers := multiCloser{}
	if cfg.Async {
		ah := NewAsyncHandler(handler, 4096, 2)
		handler = ah
		closers = append(closers, ah)
	}
	if file != nil {
		closers = append(closers, fileCloser{file})
	}

	l := slog.New(handler).With("service", cfg.Service)
	if len(closers) == 0 {
		return l, nopCloser{}
	}
	return l, closers
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fileCloser struct{ l *lumberjack.Logger }

func (f fileCloser) Close() { _ = f.l.Close() }

// multiCloser closes in order; the async handler drains before the file closes.
type multiCloser []Closer

func (m multiCloser) Close() {
	for _, c := range m {
		c.Close()
	}
}
