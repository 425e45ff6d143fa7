package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("no-reply@kindercause.test", "parent@example.test", "Your receipt", "<p>Thanks</p>"))

	headers, body, found := strings.Cut(msg, "\r\n\r\n")
	assert.True(t, found)
	assert.Equal(t, "<p>Thanks</p>", body)
	assert.Contains(t, headers, "From: no-reply@kindercause.test\r\n")
	assert.Contains(t, headers, "To: parent@example.test\r\n")
	assert.Contains(t, headers, "Subject: Your receipt\r\n")
	assert.Contains(t, headers, "Content-Type: text/html; charset=UTF-8")
}

func TestNewSMTPMailerFromEnv_DefaultSender(t *testing.T) {
	t.Setenv("SMTP_SENDER", "")
	t.Setenv("SMTP_HOST", "mail.test")
	m := NewSMTPMailerFromEnv()
	assert.Equal(t, "no-reply@localhost", m.Sender)
	assert.Equal(t, "mail.test", m.Host)
}

func TestBuildMessage_SubjectCannotInjectHeaders(t *testing.T) {
	msg := string(BuildMessage("no-reply@kindercause.test", "parent@example.test",
		"Your receipt for Gala\r\nBcc: victim@example.test", "<p>Thanks</p>"))

	headers, _, found := strings.Cut(msg, "\r\n\r\n")
	assert.True(t, found)
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.NotContains(t, headers, "\nBcc:")
	assert.Contains(t, headers, "Subject: Your receipt for Gala Bcc: victim@example.test\r\n")
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	msg := string(BuildMessage("no-reply@kindercause.test", "parent@example.test", "Ticket für Sommerfest", "<p>Danke</p>"))

	headers, _, _ := strings.Cut(msg, "\r\n\r\n")
	assert.Contains(t, headers, "Subject: =?utf-8?q?")
	assert.NotContains(t, headers, "für")
}
