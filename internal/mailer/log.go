package mailer

import (
	"context"

	"go.uber.org/zap"
)

// LogSender logs messages instead of delivering them. Used when no SMTP
// transport is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message metadata and drops the body.
func (s *LogSender) Send(_ context.Context, to []string, subject, text, _ string) error {
	s.logger.Info("mail send skipped (no transport configured)",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.Int("text_len", len(text)),
	)
	return nil
}
