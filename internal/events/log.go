package events

import (
	"log/slog"
)

// LogSink writes events as structured log records
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink on top of logger
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "monitor")}
}

func (s *LogSink) Emit(e Event) {
	attrs := []any{"event", string(e.Type)}
	if e.SessionID != "" {
		attrs = append(attrs, "session", e.SessionID)
	}
	if e.IdentityID != "" {
		attrs = append(attrs, "identity", e.IdentityID)
	}
	if e.Name != "" {
		attrs = append(attrs, "name", e.Name)
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}

	switch e.Type {
	case AttendanceFailed, GalleryError:
		s.logger.Error(msg, attrs...)
	case UnknownFailed, DetectionError, CycleSkipped:
		s.logger.Warn(msg, attrs...)
	case Status:
		s.logger.Debug(msg, attrs...)
	default:
		s.logger.Info(msg, attrs...)
	}
}
