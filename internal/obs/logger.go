package obs

import (
	"context"
	"log/slog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// Logger is the call contract for the engine's log sink. Calls are
// fire-and-forget: implementations must not block the request path.
// trace correlates all lines of one connection; source names the component
// emitting the line.
type Logger interface {
	Log(trace string, level Level, source, msg string, err error)
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Log(trace string, level Level, source, msg string, err error) {}

// SlogLogger bridges the log contract onto log/slog, filtered by a minimum
// severity.
type SlogLogger struct {
	S   *slog.Logger
	Min Level
}

func (s SlogLogger) Log(trace string, level Level, source, msg string, err error) {
	if s.S == nil || level < s.Min {
		return
	}
	attrs := []slog.Attr{
		slog.String("trace", trace),
		slog.String("source", source),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	s.S.LogAttrs(context.Background(), level.slog(), msg, attrs...)
}

// ParseLevel maps a config string to a Level; unknown values mean Info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}
