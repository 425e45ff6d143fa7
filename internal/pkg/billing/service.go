package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/eagleone34/kindercause-sub000/app/models"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/config"
	"github.com/eagleone34/kindercause-sub000/internal/pkg/notification"
)

// Service turns verified provider events into durable records.
type Service struct {
	cfg      *config.Config
	repo     Repository
	identity IdentityStore
	notifier notification.Notifier
	verifier *Verifier

	now func() time.Time
}

// NewService wires the reconciliation core. cfg is read-only after this call.
func NewService(cfg *config.Config, repo Repository, identity IdentityStore, notifier notification.Notifier, verifier *Verifier) *Service {
	if verifier == nil {
		verifier = NewVerifier(cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		identity: identity,
		notifier: notifier,
		verifier: verifier,
		now:      time.Now,
	}
}

// NewServiceFromDB creates a service from a GORM handle and a notifier.
func NewServiceFromDB(cfg *config.Config, db *gorm.DB, notifier notification.Notifier) *Service {
	return NewService(cfg, NewRepository(db), NewIdentityStore(db), notifier, nil)
}

// HandleWebhook verifies a delivery, records it in the event log and runs the
// matching handler. A returned error other than ErrInvalidSignature means the
// provider should redeliver.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (WebhookResult, error) {
	ev, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		log.Warnw("[Billing] rejected webhook", "error", err)
		return WebhookResult{}, err
	}

	result := WebhookResult{EventID: ev.ID, EventType: ev.Type}
	if ev.Created.IsZero() {
		log.Infow("[Billing] webhook received", "event_id", ev.ID, "type", ev.Type)
	} else {
		log.Infow("[Billing] webhook received", "event_id", ev.ID, "type", ev.Type,
			"age", s.now().Sub(ev.Created).Round(time.Second).String())
	}

	stored := s.recordEvent(ctx, ev, payload)
	if stored != nil && !stored.created && stored.event.ProcessedOK() {
		log.Infow("[Billing] duplicate webhook ignored", "event_id", ev.ID, "type", ev.Type)
		result.Duplicate = true
		return result, nil
	}

	dispatchErr := s.Dispatch(ctx, ev)
	if dispatchErr != nil {
		log.Errorw("[Billing] webhook processing failed", "event_id", ev.ID, "type", ev.Type, "error", dispatchErr)
	}

	if stored != nil {
		msg := ""
		if dispatchErr != nil {
			msg = dispatchErr.Error()
		}
		if err := s.repo.MarkWebhookProcessed(ctx, stored.event.ID, msg); err != nil {
			log.Warnw("[Billing] failed to mark webhook processed", "event_id", ev.ID, "error", err)
		}
	}
	return result, dispatchErr
}

type recordedEvent struct {
	created bool
	event   *models.WebhookEvent
}

// recordEvent appends the event to the operational log. The log is not part
// of the processing path, so failures only produce a warning.
func (s *Service) recordEvent(ctx context.Context, ev Event, payload []byte) *recordedEvent {
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(ctx, &models.WebhookEvent{
		Provider:        models.WebhookProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  true,
		EventCreatedAt:  eventCreatedAt(ev),
	})
	if err != nil || stored == nil {
		log.Warnw("[Billing] failed to record webhook event", "event_id", ev.ID, "error", err)
		return nil
	}
	return &recordedEvent{created: created, event: stored}
}

func eventCreatedAt(ev Event) *time.Time {
	if ev.Created.IsZero() {
		return nil
	}
	t := ev.Created.UTC()
	return &t
}

// notify hands a message to the outbox. Delivery problems never fail the
// authoritative write that triggered them.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil || msg.To == "" {
		return
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		log.Warnw("[Billing] failed to enqueue notification", "kind", msg.Kind, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
