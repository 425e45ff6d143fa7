package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"
)

// Verifier authenticates provider webhook deliveries.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a verifier for the given signing secret. Signatures
// older than tolerance are rejected to limit replays.
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

// Verify checks the Stripe-Signature header (HMAC-SHA256 over
// "timestamp.payload") and only then parses the envelope.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (Event, error) {
	if v.secret == "" {
		return Event{}, fmt.Errorf("%w: signing secret not configured", ErrInvalidSignature)
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return Event{}, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	se, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	ev := Event{
		ID:      se.ID,
		Type:    string(se.Type),
		Created: time.Unix(se.Created, 0).UTC(),
	}
	if se.Data != nil {
		ev.Data = se.Data.Raw
	}
	return ev, nil
}
