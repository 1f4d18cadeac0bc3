package activitymap

import (
	"context"

	accounts "github.com/goliatone/go-accounts"
)

// LogSink is an accounts.ActivitySink that writes normalized records to a
// logger at info level.
type LogSink struct {
	logger accounts.Logger
	opts   []Option
}

// NewLogSink returns a LogSink. A nil logger falls back to slog's default.
func NewLogSink(logger accounts.Logger, opts ...Option) *LogSink {
	if logger == nil {
		logger = accounts.NewSlogLogger(nil)
	}
	return &LogSink{logger: logger, opts: opts}
}

// Record implements accounts.ActivitySink.
func (s *LogSink) Record(_ context.Context, event accounts.ActivityEvent) error {
	n := Normalize(event, s.opts...)

	args := []any{
		"verb", n.Verb,
		"actor_id", n.ActorID,
		"channel", n.Channel,
		"occurred_at", n.OccurredAt,
	}
	if n.ObjectID != "" {
		args = append(args, "object_type", n.ObjectType, "object_id", n.ObjectID)
	}
	if len(n.Metadata) > 0 {
		args = append(args, "metadata", n.Metadata)
	}

	s.logger.Info("activity", args...)
	return nil
}
