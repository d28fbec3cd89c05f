package notify

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Fixed HTML bodies built by hand. The service deliberately has no template
// engine; these mirror the messages subscribers already receive.

// recordBody renders the notification body for one announcement.
func recordBody(title, description, timeLabel string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	fmt.Fprintf(&b, `<h2 style="color: #4CAF50;">🎉 %s 🎉</h2>`, html.EscapeString(title))
	b.WriteString(`<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin-bottom: 20px;">`)
	fmt.Fprintf(&b, `<p>%s</p>`, strings.ReplaceAll(html.EscapeString(description), "\n", "<br>"))
	fmt.Fprintf(&b, `<p><strong>Date:</strong> %s</p>`, html.EscapeString(timeLabel))
	b.WriteString(`</div>`)
	b.WriteString(`<p>Stay updated with us! We'll notify you of new updates.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// adminSummaryBody renders the delivery report sent to the admin address.
func adminSummaryBody(recipientCount, notificationCount int) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	b.WriteString(`<h2 style="color: #4CAF50;">🎉 Notification Delivery Report 🎉</h2>`)
	fmt.Fprintf(&b,
		`<p>We've successfully delivered <strong>%d</strong> notifications to <strong>%d</strong> recipients. 🌟</p>`,
		notificationCount, recipientCount)
	b.WriteString(`<p>Best Regards,<br>Notification Team 🚀</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// runErrorBody renders the failure escalation sent to the admin address.
func runErrorBody(when time.Time, errText string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	b.WriteString(`<h2 style="color: #f44336;">⚠️ Scheduled Notification Check Failed</h2>`)
	fmt.Fprintf(&b, `<p>The run at %s failed with the following error:</p>`, when.Format(time.RFC3339))
	b.WriteString(`<div style="background: #ffeeee; padding: 10px; border-radius: 5px; margin: 10px 0;">`)
	fmt.Fprintf(&b, `<p><strong>Error:</strong> %s</p>`, html.EscapeString(errText))
	b.WriteString(`</div>`)
	b.WriteString(`<p>Please check the server logs for more details.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// deliveryFailureBody renders the per-batch delivery failure report.
func deliveryFailureBody(failed []string) string {
	var b strings.Builder
	b.WriteString(`<div style="font-family: Arial, sans-serif; line-height: 1.6;">`)
	b.WriteString(`<h2 style="color: #f44336;">⚠️ Notification Delivery Failures</h2>`)
	b.WriteString(`<p>The following notifications could not be delivered after retries:</p><ul>`)
	for _, f := range failed {
		fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(f))
	}
	b.WriteString(`</ul><p>Please check the server logs for more details.</p>`)
	b.WriteString(`</div>`)
	return b.String()
}

// footer discloses the sending service and unsubscribe instructions. It is
// appended to every outgoing message.
const footer = `<hr><p style="font-size: 12px; color: gray;">` +
	`You are receiving this notification from IGNOU AutoNotifier. ` +
	`If you no longer wish to receive these emails, reply with "UNSUBSCRIBE".</p>`
