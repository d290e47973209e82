package domain

import (
	"context"
	"time"
)

// WebhookEvent is a durable record of every inbound provider webhook
// delivery, stored before it is folded into a DeliveryLog (SPEC_FULL.md
// expansion, grounded on the signature-verification + audit pattern of
// the webhook receiver this design is modeled on). Keeping the raw
// payload lets a replay or a bug in ApplyEvent be corrected without
// losing history.
type WebhookEvent struct {
	ID            string
	EventID       string // provider's own message/event id, for idempotency
	Kind          WebhookEventKind
	DeliveryLogID string
	RawPayload    []byte
	ReceivedAt    time.Time
	ProcessedAt   *time.Time
	ProcessError  string
}

// WebhookEventRepository is the Store's inbound-webhook audit surface.
type WebhookEventRepository interface {
	// Create is a no-op success if EventID already exists: providers
	// retry webhook delivery, and the receiver must be idempotent
	// (spec.md §4.11).
	Create(ctx context.Context, e *WebhookEvent) (inserted bool, err error)
	MarkProcessed(ctx context.Context, id string, processErr string) error
}
