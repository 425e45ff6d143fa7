package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
)

// processNotificationJob renders and sends one queued notification
func (q *Queue) processNotificationJob(ctx context.Context, job *Job) error {
	_ = ctx
	if q.mailer == nil {
		return errors.New("no mailer configured")
	}

	payload, err := NotificationJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to parse notification payload: %w", err)
	}

	subject, body, err := notification.Render(payload.Message())
	if err != nil {
		// A malformed message will never render; stop retrying it.
		job.MaxRetries = 0
		return err
	}

	if err := q.mailer.SendMail(payload.To, subject, body); err != nil {
		return fmt.Errorf("failed to send %s notification: %w", payload.Kind, err)
	}

	log.Infof("[JobQueue] Sent %s notification for job %s", payload.Kind, job.ID)
	return nil
}
