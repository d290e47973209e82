// Package delivery orchestrates the provider webhook ingestion pipeline of
// spec.md §4.4/§6: Svix-style signature verification, idempotent event
// storage, correlation by provider message id, and folding into the
// Delivery Log state machine.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	svix "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

// SignatureHeaders carries the three svix-style headers from the inbound
// request (spec.md §6).
type SignatureHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

// Verifier wraps the standard-webhooks verifier with the signing secret
// loaded from config.
type Verifier struct {
	wh *svix.Webhook
}

func NewVerifier(signingSecret string) (*Verifier, error) {
	wh, err := svix.NewWebhook(signingSecret)
	if err != nil {
		return nil, fmt.Errorf("construct webhook verifier: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Verify checks the signature and that the timestamp is within the
// replay-protection window (spec.md §6: |now-ts| <= 300s). It delegates
// the HMAC comparison itself to the standard-webhooks library, which
// already does it in constant time.
func (v *Verifier) Verify(payload []byte, h SignatureHeaders) error {
	headers := http.Header{}
	headers.Set("Webhook-Id", h.ID)
	headers.Set("Webhook-Timestamp", h.Timestamp)
	headers.Set("Webhook-Signature", h.Signature)
	if err := v.wh.Verify(payload, headers); err != nil {
		return fmt.Errorf("webhook signature verification failed: %w", err)
	}
	return nil
}

// Payload is the provider's webhook event body. Exact field names follow
// a generic transactional-email-provider shape: an event type, the
// provider's message id, and (for click events) the destination URL.
type Payload struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	URL       string `json:"url,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func parseKind(eventType string) (domain.WebhookEventKind, bool) {
	switch eventType {
	case "email.delivered":
		return domain.WebhookEventDelivered, true
	case "email.opened":
		return domain.WebhookEventOpened, true
	case "email.clicked":
		return domain.WebhookEventClicked, true
	case "email.bounced":
		return domain.WebhookEventBounced, true
	case "email.failed", "email.delivery_failed":
		return domain.WebhookEventFailed, true
	default:
		return "", false
	}
}

// Processor correlates and applies inbound webhook events.
type Processor struct {
	events        domain.WebhookEventRepository
	deliveryLogs  domain.DeliveryLogRepository
	logger        logger.Logger
}

func NewProcessor(events domain.WebhookEventRepository, deliveryLogs domain.DeliveryLogRepository, log logger.Logger) *Processor {
	return &Processor{events: events, deliveryLogs: deliveryLogs, logger: log}
}

// Handle stores the raw event (idempotent on the provider's event id via
// the svix id header), correlates it to a delivery log by provider
// message id, and folds it into the state machine. A correlation miss —
// the webhook arrived before the sent-log was written — is logged as a
// warning and the event is dropped; this is an explicitly open question
// in spec.md §8, resolved here by dropping rather than retrying, since a
// retry queue is out of scope.
func (p *Processor) Handle(ctx context.Context, eventID string, payload []byte, now time.Time) error {
	var body Payload
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("decode webhook payload: %w", err)
	}

	kind, ok := parseKind(body.Type)
	if !ok {
		return fmt.Errorf("unrecognized webhook event type %q", body.Type)
	}

	rowID := uuid.New().String()
	inserted, err := p.events.Create(ctx, &domain.WebhookEvent{
		ID:         rowID,
		EventID:    eventID,
		Kind:       kind,
		RawPayload: payload,
		ReceivedAt: now,
	})
	if err != nil {
		return fmt.Errorf("store webhook event: %w", err)
	}
	if !inserted {
		return nil
	}

	log, err := p.deliveryLogs.GetByProviderMessageID(ctx, body.MessageID)
	if err != nil {
		p.markProcessed(ctx, rowID, err)
		return fmt.Errorf("correlate webhook event to delivery log: %w", err)
	}
	if log == nil {
		p.logger.WithField("provider_message_id", body.MessageID).Warn("delivery: webhook arrived before its delivery log exists, dropping event")
		p.markProcessed(ctx, rowID, nil)
		return nil
	}

	if kind == domain.WebhookEventClicked && body.URL != "" {
		if _, err := p.deliveryLogs.RecordClick(ctx, &domain.ClickEvent{
			DeliveryLogID: log.ID,
			SubscriberID:  log.SubscriberID,
			ClickedURL:    body.URL,
			ClickedAt:     now,
		}); err != nil {
			p.logger.WithField("error", err.Error()).WithField("delivery_log_id", log.ID).Warn("delivery: record click failed")
		}
	}

	if _, err := p.deliveryLogs.ApplyEvent(ctx, log.ID, kind, now, body.Reason); err != nil {
		p.markProcessed(ctx, rowID, err)
		return fmt.Errorf("apply webhook event: %w", err)
	}

	p.markProcessed(ctx, rowID, nil)
	return nil
}

func (p *Processor) markProcessed(ctx context.Context, rowID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if merr := p.events.MarkProcessed(ctx, rowID, msg); merr != nil {
		p.logger.WithField("error", merr.Error()).Error("delivery: mark webhook event processed failed")
	}
}
