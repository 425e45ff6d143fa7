package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
)

type sentMail struct {
	to, subject, body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendMail(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) sentTo() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.to)
	}
	return out
}

func notificationJob(msg notification.Message) *Job {
	return &Job{
		ID:         "job-1",
		Type:       JobTypeSendNotification,
		Payload:    NewNotificationJobPayload(msg).ToMap(),
		MaxRetries: DefaultMaxRetries,
	}
}

func TestProcessNotificationJob_Sends(t *testing.T) {
	mailer := &fakeMailer{}
	q := &Queue{mailer: mailer}

	err := q.processNotificationJob(context.Background(), notificationJob(notification.Message{
		Kind: notification.KindWelcome,
		To:   "owner@example.com",
		Data: map[string]string{"organization": "Little Acorns"},
	}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "owner@example.com", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, "Little Acorns")
}

func TestProcessNotificationJob_MailerError(t *testing.T) {
	q := &Queue{mailer: &fakeMailer{err: errors.New("connection refused")}}
	job := notificationJob(notification.Message{Kind: notification.KindWelcome, To: "owner@example.com"})

	err := q.processNotificationJob(context.Background(), job)
	assert.Error(t, err)
	assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
}

func TestProcessNotificationJob_InvalidMessageIsNotRetried(t *testing.T) {
	q := &Queue{mailer: &fakeMailer{}}
	job := notificationJob(notification.Message{Kind: "postcard", To: "owner@example.com"})

	err := q.processNotificationJob(context.Background(), job)
	assert.Error(t, err)

	job.MarkAsFailed(err.Error())
	assert.False(t, job.IsRetryable())
}

func TestRunJob_UnknownType(t *testing.T) {
	q := &Queue{mailer: &fakeMailer{}}
	err := q.runJob(context.Background(), &Job{ID: "x", Type: "resize_image"})
	assert.Error(t, err)
}
