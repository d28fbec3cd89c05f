// Package notify fans announcement emails out to subscribers with bounded
// retries and admin escalation.
package notify

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/opennotify/autonotifier/internal/announce"
	"github.com/opennotify/autonotifier/internal/metrics"
)

// DefaultMaxAttempts bounds retried sends.
const DefaultMaxAttempts = 3

// Config controls Notifier behavior.
type Config struct {
	AdminEmail  string
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (counted
	// from 1). Nil selects exponential backoff: 2^attempt seconds.
	Backoff func(attempt int) time.Duration
	// Sleep waits between attempts; injectable for tests. Nil selects a
	// context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Notifier sends one message per record to all recipients, retrying each
// logical send and escalating terminal failures to the admin address.
type Notifier struct {
	sender announce.Sender
	cfg    Config
	strip  *bluemonday.Policy
	clock  announce.Clock
	logger *zap.Logger
}

// New builds a Notifier.
func New(sender announce.Sender, clock announce.Clock, cfg Config, logger *zap.Logger) *Notifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Backoff == nil {
		cfg.Backoff = func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		}
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sender: sender,
		cfg:    cfg,
		strip:  bluemonday.StrictPolicy(),
		clock:  clock,
		logger: logger,
	}
}

// Dispatch sends one record to all recipients in a single transport call.
func (n *Notifier) Dispatch(ctx context.Context, rec announce.Record, recipients []string) error {
	subject := "📢 IGNOU: " + rec.Title
	return n.send(ctx, recipients, subject, recordBody(rec.Title, rec.Description, rec.Time))
}

// DispatchRetrying wraps Dispatch with the bounded retry policy. After
// exhausting attempts the last error is surfaced as *announce.DeliveryError.
func (n *Notifier) DispatchRetrying(ctx context.Context, rec announce.Record, recipients []string) error {
	subject := "📢 IGNOU: " + rec.Title
	return n.sendRetrying(ctx, recipients, subject, recordBody(rec.Title, rec.Description, rec.Time))
}

// NotifyRunFailure escalates a failed run to the admin address.
func (n *Notifier) NotifyRunFailure(ctx context.Context, runErr error) error {
	if n.cfg.AdminEmail == "" {
		n.logger.Warn("no admin email configured, dropping failure report", zap.Error(runErr))
		return nil
	}
	body := runErrorBody(n.clock.Now(), runErr.Error())
	return n.send(ctx, []string{n.cfg.AdminEmail}, "⚠️ IGNOU: Scheduled Run Failed", body)
}

// NotifyDeliverySummary reports a successful fan-out to the admin address.
func (n *Notifier) NotifyDeliverySummary(ctx context.Context, recipientCount, notificationCount int) error {
	if n.cfg.AdminEmail == "" {
		return nil
	}
	body := adminSummaryBody(recipientCount, notificationCount)
	return n.send(ctx, []string{n.cfg.AdminEmail}, "🎉 IGNOU: Notifications Successfully Sent", body)
}

// NotifyDeliveryFailures reports terminal per-batch delivery failures to
// the admin address.
func (n *Notifier) NotifyDeliveryFailures(ctx context.Context, failures []string) error {
	if n.cfg.AdminEmail == "" || len(failures) == 0 {
		return nil
	}
	body := deliveryFailureBody(failures)
	return n.send(ctx, []string{n.cfg.AdminEmail}, "⚠️ IGNOU: Notification Delivery Failures", body)
}

func (n *Notifier) sendRetrying(ctx context.Context, to []string, subject, body string) error {
	var lastErr error
	for attempt := 1; attempt <= n.cfg.MaxAttempts; attempt++ {
		lastErr = n.send(ctx, to, subject, body)
		if lastErr == nil {
			if attempt > 1 {
				n.logger.Info("send succeeded after retry",
					zap.String("subject", subject), zap.Int("attempt", attempt))
			}
			return nil
		}
		n.logger.Warn("send attempt failed",
			zap.String("subject", subject),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", n.cfg.MaxAttempts),
			zap.Error(lastErr),
		)
		if attempt < n.cfg.MaxAttempts {
			if err := n.cfg.Sleep(ctx, n.cfg.Backoff(attempt)); err != nil {
				return &announce.DeliveryError{Subject: subject, Attempts: attempt, Err: err}
			}
		}
	}
	return &announce.DeliveryError{Subject: subject, Attempts: n.cfg.MaxAttempts, Err: lastErr}
}

// send appends the fixed footer and delivers the message with an HTML body
// plus a plain-text alternative derived by stripping markup.
func (n *Notifier) send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		n.logger.Debug("no recipients, skipping send", zap.String("subject", subject))
		return nil
	}
	htmlBody := body + footer
	err := n.sender.Send(ctx, to, subject, n.plainText(htmlBody), htmlBody)
	if err != nil {
		metrics.ObserveEmail("failed")
		return err
	}
	metrics.ObserveEmail("sent")
	n.logger.Info("email sent", zap.Int("recipients", len(to)), zap.String("subject", subject))
	return nil
}

// plainText strips markup so transports that cannot render HTML still
// receive readable text.
func (n *Notifier) plainText(htmlBody string) string {
	// Keep line structure before stripping tags.
	s := strings.ReplaceAll(htmlBody, "<br>", "\n")
	s = strings.ReplaceAll(s, "</p>", "\n")
	s = strings.ReplaceAll(s, "</h2>", "\n")
	s = n.strip.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(s))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
