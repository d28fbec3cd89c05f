package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opennotify/autonotifier/internal/announce"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sentMail struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// fakeSender fails the first failures deliveries, then succeeds.
type fakeSender struct {
	mu       sync.Mutex
	failures int
	calls    int
	sent     []sentMail
}

func (f *fakeSender) Send(_ context.Context, to []string, subject, text, html string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Text: text, HTML: html})
	return nil
}

// instantSleep records requested backoff waits without sleeping.
func instantSleep(waits *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return nil
	}
}

func testRecord() announce.Record {
	return announce.Record{
		Title:       "Datesheet Released",
		Description: "- Notification: June TEE datesheet\nCheck the portal",
		Time:        "18 August, 2026",
		Source:      announce.SourceIGNOU,
	}
}

func TestDispatchRetryingSucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failures: 2}
	var waits []time.Duration
	n := New(sender, fixedClock{t: time.Now()}, Config{
		Sleep: instantSleep(&waits),
	}, nil)

	err := n.DispatchRetrying(context.Background(), testRecord(), []string{"a@example.org", "b@example.org"})
	require.NoError(t, err)
	require.Equal(t, 3, sender.calls)
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, waits)

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	require.Equal(t, []string{"a@example.org", "b@example.org"}, mail.To)
	require.Equal(t, "📢 IGNOU: Datesheet Released", mail.Subject)
	require.Contains(t, mail.HTML, "Datesheet Released")
	require.Contains(t, mail.HTML, "June TEE datesheet<br>Check the portal")
	require.Contains(t, mail.HTML, `reply with "UNSUBSCRIBE"`)
}

func TestDispatchRetryingExhaustsAttempts(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failures: 99}
	var waits []time.Duration
	n := New(sender, fixedClock{t: time.Now()}, Config{
		Sleep: instantSleep(&waits),
	}, nil)

	err := n.DispatchRetrying(context.Background(), testRecord(), []string{"a@example.org"})
	require.Error(t, err)

	var dErr *announce.DeliveryError
	require.ErrorAs(t, err, &dErr)
	require.Equal(t, 3, dErr.Attempts)
	require.Equal(t, 3, sender.calls)
	require.Len(t, waits, 2)
}

func TestDispatchRetryingStopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{failures: 99}
	n := New(sender, fixedClock{t: time.Now()}, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.DispatchRetrying(ctx, testRecord(), []string{"a@example.org"})
	var dErr *announce.DeliveryError
	require.ErrorAs(t, err, &dErr)
	require.Equal(t, 1, dErr.Attempts)
	require.ErrorIs(t, dErr.Err, context.Canceled)
	require.Equal(t, 1, sender.calls)
}

func TestDispatchSkipsEmptyRecipientList(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := New(sender, fixedClock{t: time.Now()}, Config{}, nil)

	require.NoError(t, n.Dispatch(context.Background(), testRecord(), nil))
	require.Zero(t, sender.calls)
}

func TestPlainTextAlternative(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := New(sender, fixedClock{t: time.Now()}, Config{}, nil)

	require.NoError(t, n.Dispatch(context.Background(), testRecord(), []string{"a@example.org"}))
	require.Len(t, sender.sent, 1)

	text := sender.sent[0].Text
	require.NotContains(t, text, "<")
	require.Contains(t, text, "Datesheet Released")
	require.Contains(t, text, "June TEE datesheet\nCheck the portal")
	require.Contains(t, text, `reply with "UNSUBSCRIBE"`)
}

func TestNotifyRunFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 18, 9, 0, 0, 0, time.UTC)
	sender := &fakeSender{}
	n := New(sender, fixedClock{t: now}, Config{AdminEmail: "admin@example.org"}, nil)

	err := n.NotifyRunFailure(context.Background(), errors.New("scraping failed: timeout"))
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	mail := sender.sent[0]
	require.Equal(t, []string{"admin@example.org"}, mail.To)
	require.Equal(t, "⚠️ IGNOU: Scheduled Run Failed", mail.Subject)
	require.Contains(t, mail.HTML, "scraping failed: timeout")
	require.Contains(t, mail.HTML, now.Format(time.RFC3339))
}

func TestNotifyRunFailureWithoutAdmin(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := New(sender, fixedClock{t: time.Now()}, Config{}, nil)

	require.NoError(t, n.NotifyRunFailure(context.Background(), errors.New("boom")))
	require.Zero(t, sender.calls)
}

func TestNotifyDeliverySummaryAndFailures(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := New(sender, fixedClock{t: time.Now()}, Config{AdminEmail: "admin@example.org"}, nil)

	require.NoError(t, n.NotifyDeliverySummary(context.Background(), 5, 2))
	require.NoError(t, n.NotifyDeliveryFailures(context.Background(), []string{"Datesheet Released: smtp unavailable"}))
	require.NoError(t, n.NotifyDeliveryFailures(context.Background(), nil))

	require.Len(t, sender.sent, 2)
	require.Equal(t, "🎉 IGNOU: Notifications Successfully Sent", sender.sent[0].Subject)
	require.Contains(t, sender.sent[0].HTML, "<strong>2</strong> notifications to <strong>5</strong> recipients")
	require.Equal(t, "⚠️ IGNOU: Notification Delivery Failures", sender.sent[1].Subject)
	require.Contains(t, sender.sent[1].HTML, "Datesheet Released: smtp unavailable")
}

func TestDefaultBackoffIsExponential(t *testing.T) {
	t.Parallel()

	n := New(&fakeSender{}, fixedClock{t: time.Now()}, Config{}, nil)
	require.Equal(t, 2*time.Second, n.cfg.Backoff(1))
	require.Equal(t, 4*time.Second, n.cfg.Backoff(2))
	require.Equal(t, 8*time.Second, n.cfg.Backoff(3))
}
