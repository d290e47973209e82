package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
)

type deliveryLogRepository struct {
	db *sql.DB
}

func NewDeliveryLogRepository(db *sql.DB) domain.DeliveryLogRepository {
	return &deliveryLogRepository{db: db}
}

const deliveryLogColumns = `
	id, COALESCE(campaign_id, ''), COALESCE(sequence_id, ''), COALESCE(sequence_step_id, ''),
	subscriber_id, email, COALESCE(email_subject, ''), ab_variant, status, COALESCE(provider_message_id, ''),
	sent_at, delivered_at, opened_at, clicked_at, COALESCE(error_message, ''), created_at
`

func scanDeliveryLog(row interface{ Scan(dest ...interface{}) error }) (*domain.DeliveryLog, error) {
	var l domain.DeliveryLog
	var abVariant sql.NullString
	err := row.Scan(
		&l.ID, &l.CampaignID, &l.SequenceID, &l.SequenceStepID,
		&l.SubscriberID, &l.Email, &l.EmailSubject, &abVariant, &l.Status, &l.ProviderMessageID,
		&l.SentAt, &l.DeliveredAt, &l.OpenedAt, &l.ClickedAt, &l.ErrorMessage, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if abVariant.Valid && abVariant.String != "" {
		v := domain.ABVariant(abVariant.String)
		l.ABVariant = &v
	}
	return &l, nil
}

func (r *deliveryLogRepository) Create(ctx context.Context, l *domain.DeliveryLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_logs (
			id, campaign_id, sequence_id, sequence_step_id, subscriber_id, email, email_subject, ab_variant,
			status, provider_message_id, sent_at, delivered_at, opened_at, clicked_at, error_message, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		l.ID, nullString(l.CampaignID), nullString(l.SequenceID), nullString(l.SequenceStepID),
		l.SubscriberID, l.Email, nullString(l.EmailSubject), abVariantValue(l.ABVariant),
		l.Status, nullString(l.ProviderMessageID), l.SentAt, l.DeliveredAt, l.OpenedAt, l.ClickedAt,
		nullString(l.ErrorMessage), l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create delivery log: %w", err)
	}
	return nil
}

func (r *deliveryLogRepository) GetByID(ctx context.Context, id string) (*domain.DeliveryLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deliveryLogColumns+` FROM delivery_logs WHERE id = $1`, id)
	l, err := scanDeliveryLog(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "delivery_log", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery log: %w", err)
	}
	return l, nil
}

func (r *deliveryLogRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.DeliveryLog, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deliveryLogColumns+` FROM delivery_logs WHERE provider_message_id = $1`, providerMessageID)
	l, err := scanDeliveryLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery log by provider message id: %w", err)
	}
	return l, nil
}

// ApplyEvent folds a webhook event into the row inside one transaction:
// read the current status, compute whether the incoming event advances
// the chain (or is a terminal failure), and only then write. The
// SELECT ... FOR UPDATE serializes concurrent webhook deliveries for the
// same row so the non-regress check in-process matches what lands in the
// database (spec.md §4.4).
func (r *deliveryLogRepository) ApplyEvent(ctx context.Context, id string, event domain.WebhookEventKind, at time.Time, errorMessage string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin apply event tx: %w", err)
	}
	defer tx.Rollback()

	var current domain.DeliveryStatus
	if err := tx.QueryRowContext(ctx, `SELECT status FROM delivery_logs WHERE id = $1 FOR UPDATE`, id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return false, &domain.ErrNotFound{Entity: "delivery_log", ID: id}
		}
		return false, fmt.Errorf("lock delivery log: %w", err)
	}

	newStatus, column := eventToStatus(event)

	if newStatus.IsFailure() {
		if current.IsFailure() {
			return false, tx.Commit()
		}
		if _, err := tx.ExecContext(ctx, `UPDATE delivery_logs SET status = $1, error_message = $2 WHERE id = $3`, newStatus, nullString(errorMessage), id); err != nil {
			return false, fmt.Errorf("apply failure event: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("commit apply event: %w", err)
		}
		return true, nil
	}

	if newStatus.Rank() <= current.Rank() {
		return false, tx.Commit()
	}

	// Back-fill any not-yet-set earlier timestamp on the chain so it
	// still holds that delivered_at <= opened_at <= clicked_at
	// (spec.md §4.4).
	backfill := ""
	switch newStatus {
	case domain.DeliveryStatusOpened:
		backfill = `, delivered_at = COALESCE(delivered_at, $2)`
	case domain.DeliveryStatusClicked:
		backfill = `, delivered_at = COALESCE(delivered_at, $2), opened_at = COALESCE(opened_at, $2)`
	}

	// error_message only moves forward when the incoming event actually
	// supplies one (spec.md §4.4) — COALESCE keeps a prior failure's
	// message intact against a later advancing event with none.
	query := fmt.Sprintf(`UPDATE delivery_logs SET status = $1, %s = $2, error_message = COALESCE($3, error_message)%s WHERE id = $4`, column, backfill)
	if _, err := tx.ExecContext(ctx, query, newStatus, at, nullString(errorMessage), id); err != nil {
		return false, fmt.Errorf("apply event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit apply event: %w", err)
	}
	return true, nil
}

func eventToStatus(event domain.WebhookEventKind) (domain.DeliveryStatus, string) {
	switch event {
	case domain.WebhookEventDelivered:
		return domain.DeliveryStatusDelivered, "delivered_at"
	case domain.WebhookEventOpened:
		return domain.DeliveryStatusOpened, "opened_at"
	case domain.WebhookEventClicked:
		return domain.DeliveryStatusClicked, "clicked_at"
	case domain.WebhookEventBounced:
		return domain.DeliveryStatusBounced, ""
	default:
		return domain.DeliveryStatusFailed, ""
	}
}

func (r *deliveryLogRepository) CountForCampaignSentSince(ctx context.Context, campaignID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM delivery_logs WHERE campaign_id = $1 AND sent_at >= $2
	`, campaignID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count for campaign sent since: %w", err)
	}
	return n, nil
}

func (r *deliveryLogRepository) StatsForCampaign(ctx context.Context, campaignID string) (*domain.CampaignStats, error) {
	return r.statsWhere(ctx, `campaign_id = $1`, campaignID)
}

func (r *deliveryLogRepository) StatsForCampaignVariant(ctx context.Context, campaignID string, variant domain.ABVariant) (*domain.CampaignStats, error) {
	return r.statsWhere(ctx, `campaign_id = $1 AND ab_variant = $2`, campaignID, string(variant))
}

func (r *deliveryLogRepository) GlobalStats(ctx context.Context, since time.Time) (*domain.CampaignStats, error) {
	return r.statsWhere(ctx, `created_at >= $1`, since)
}

// statsWhere implements Store query 4.1-(c): counts are taken per
// timestamp column rather than the terminal status column, because a
// "clicked" row has also been delivered and opened (spec.md §4.4).
func (r *deliveryLogRepository) statsWhere(ctx context.Context, where string, args ...interface{}) (*domain.CampaignStats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE sent_at IS NOT NULL),
			COUNT(*) FILTER (WHERE delivered_at IS NOT NULL),
			COUNT(*) FILTER (WHERE opened_at IS NOT NULL),
			COUNT(*) FILTER (WHERE clicked_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status = 'bounced'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM delivery_logs WHERE %s
	`, where)

	var s domain.CampaignStats
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.Sent, &s.Delivered, &s.Opened, &s.Clicked, &s.Bounced, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("aggregate delivery stats: %w", err)
	}
	return &s, nil
}

// RecordClick inserts a ClickEvent unless one already exists for the
// same (delivery log, url) within the 60s dedup window (spec.md §3, §8).
func (r *deliveryLogRepository) RecordClick(ctx context.Context, e *domain.ClickEvent) (bool, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.ClickedAt.IsZero() {
		e.ClickedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin record click tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM click_events
			WHERE delivery_log_id = $1 AND clicked_url = $2 AND clicked_at > $3
		)
	`, e.DeliveryLogID, e.ClickedURL, e.ClickedAt.Add(-60*time.Second)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check click dedup window: %w", err)
	}
	if exists {
		return false, tx.Commit()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO click_events (id, delivery_log_id, subscriber_id, clicked_url, clicked_at)
		VALUES ($1,$2,$3,$4,$5)
	`, e.ID, e.DeliveryLogID, e.SubscriberID, e.ClickedURL, e.ClickedAt)
	if err != nil {
		return false, fmt.Errorf("insert click event: %w", err)
	}

	return true, tx.Commit()
}
