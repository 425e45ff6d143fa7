package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Kind: KindWelcome}.Validate())
	assert.Error(t, Message{Kind: "sms", To: "a@example.com"}.Validate())
	assert.NoError(t, Message{Kind: KindPurchaseReceipt, To: "a@example.com"}.Validate())
}

func TestRender(t *testing.T) {
	subject, body, err := Render(Message{
		Kind: KindPurchaseReceipt,
		To:   "parent@example.com",
		Data: map[string]string{
			"name":         "Jo",
			"fundraiser":   "Spring Gala",
			"amount":       "$20.00",
			"quantity":     "2",
			"ticket_token": "tkt_abc",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your receipt for Spring Gala", subject)
	assert.Contains(t, body, "tkt_abc")
	assert.Contains(t, body, "$20.00")

	_, body, err = Render(Message{Kind: KindPurchaseReceipt, To: "parent@example.com"})
	require.NoError(t, err)
	assert.NotContains(t, body, "Ticket code")

	subject, _, err = Render(Message{Kind: KindWelcome, To: "owner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Welcome to KinderCause", subject)

	_, _, err = Render(Message{Kind: "unknown", To: "owner@example.com"})
	assert.Error(t, err)
}

func TestRender_EscapesBodyValues(t *testing.T) {
	subject, body, err := Render(Message{
		Kind: KindPurchaseReceipt,
		To:   "parent@example.com",
		Data: map[string]string{"name": "<script>x</script>", "fundraiser": "Pizza & Games"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your receipt for Pizza & Games", subject)
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "Pizza &amp; Games")
}

func TestRender_SubjectStaysOnOneLine(t *testing.T) {
	subject, _, err := Render(Message{
		Kind: KindPurchaseReceipt,
		To:   "parent@example.com",
		Data: map[string]string{"fundraiser": "Gala\r\nBcc: victim@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Your receipt for Gala Bcc: victim@example.com", subject)
	assert.NotContains(t, subject, "\n")
}
