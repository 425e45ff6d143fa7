// Package notification describes the outbound messages the reconciliation
// handlers hand off to the background queue.
package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
)

// Kind identifies the message template.
type Kind string

const (
	KindWelcome              Kind = "welcome"
	KindPurchaseReceipt      Kind = "purchase_receipt"
	KindSubscriptionCanceled Kind = "subscription_canceled"
)

// Message is a notification intent. It carries only plain data so it can be
// serialized into a queued job.
type Message struct {
	Kind Kind              `json:"kind"`
	To   string            `json:"to"`
	Data map[string]string `json:"data,omitempty"`
}

// Notifier accepts notification intents. Implementations must return quickly
// and must not deliver inline.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Validate checks that a message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return errors.New("notification recipient is required")
	}
	switch m.Kind {
	case KindWelcome, KindPurchaseReceipt, KindSubscriptionCanceled:
		return nil
	default:
		return fmt.Errorf("unknown notification kind %q", m.Kind)
	}
}

// Render builds the subject and HTML body for a message.
func Render(m Message) (string, string, error) {
	if err := m.Validate(); err != nil {
		return "", "", err
	}
	raw := func(key, def string) string {
		if v := strings.TrimSpace(m.Data[key]); v != "" {
			return v
		}
		return def
	}
	// Subject values end up in a mail header and must stay on one line.
	line := func(key, def string) string {
		if v := strings.Join(strings.Fields(raw(key, "")), " "); v != "" {
			return v
		}
		return def
	}
	// Body values come from checkout forms and are escaped.
	d := func(key, def string) string {
		return html.EscapeString(raw(key, def))
	}

	switch m.Kind {
	case KindWelcome:
		subject := "Welcome to KinderCause"
		body := fmt.Sprintf("<p>Hi %s,</p><p>your organization <b>%s</b> is set up on the %s plan.</p>",
			d("name", "there"), d("organization", "your organization"), d("plan", "selected"))
		return subject, body, nil
	case KindPurchaseReceipt:
		subject := fmt.Sprintf("Your receipt for %s", line("fundraiser", "your purchase"))
		body := fmt.Sprintf("<p>Thank you %s!</p><p>We received %s for <b>%s</b>.</p>",
			d("name", "for your support"), d("amount", "your payment"), d("fundraiser", "the fundraiser"))
		if token := d("ticket_token", ""); token != "" {
			body += fmt.Sprintf("<p>Quantity: %s<br>Ticket code: <code>%s</code></p>", d("quantity", "1"), token)
		}
		return subject, body, nil
	case KindSubscriptionCanceled:
		subject := "Your KinderCause subscription was canceled"
		body := fmt.Sprintf("<p>The subscription for <b>%s</b> has been canceled. Your fundraisers stay visible, new checkouts may be limited.</p>",
			d("organization", "your organization"))
		return subject, body, nil
	}
	return "", "", fmt.Errorf("unknown notification kind %q", m.Kind)
}
