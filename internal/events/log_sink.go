package events

import (
	"context"
	"log/slog"
)

// LogSink writes events to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, event Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	level := slog.LevelInfo
	if event.Type == TypeFailed {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "composition event",
		slog.String("id", event.ID),
		slog.String("type", string(event.Type)),
		slog.String("outcome", event.Outcome),
		slog.String("provider_used", event.ProviderUsed),
		slog.Int("attempts", len(event.Attempts)),
		slog.String("cost", event.Cost.String()),
		slog.String("message", event.Message),
		slog.Time("timestamp", event.Timestamp),
	)
	return nil
}
