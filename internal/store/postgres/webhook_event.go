package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/driftloop/mailcore/internal/domain"
)

type webhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) domain.WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Create is idempotent on EventID: a provider is free to retry a webhook
// delivery, and the unique index on event_id turns a replay into a no-op
// instead of a duplicate audit row (spec.md §4.11).
func (r *webhookEventRepository) Create(ctx context.Context, e *domain.WebhookEvent) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_events (id, event_id, kind, delivery_log_id, raw_payload, received_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (event_id) DO NOTHING
	`, e.ID, e.EventID, e.Kind, nullString(e.DeliveryLogID), e.RawPayload, e.ReceivedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("create webhook event: %w", err)
	}

	var inserted bool
	err = r.db.QueryRowContext(ctx, `SELECT id = $1 FROM webhook_events WHERE event_id = $2`, e.ID, e.EventID).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("check webhook event insert: %w", err)
	}
	return inserted, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string, processErr string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_events SET processed_at = $1, process_error = $2 WHERE id = $3
	`, time.Now().UTC(), nullString(processErr), id)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}
