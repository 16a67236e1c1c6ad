package notification

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Sink delivers one notification to one user.
type Sink interface {
	NotifyUser(ctx context.Context, userID, title, message, eventType string) error
}

// MultiSink fans a notification out to every sink and reports all failures.
type MultiSink []Sink

func (m MultiSink) NotifyUser(ctx context.Context, userID, title, message, eventType string) error {
	var errs []error
	for _, s := range m {
		if err := s.NotifyUser(ctx, userID, title, message, eventType); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink only writes notifications to the log. Used when no broker is
// configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) NotifyUser(_ context.Context, userID, title, message, eventType string) error {
	s.log.Info("notification",
		zap.String("user_id", userID),
		zap.String("type", eventType),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}
