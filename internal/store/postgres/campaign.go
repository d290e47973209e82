package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
)

type campaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) domain.CampaignRepository {
	return &campaignRepository{db: db}
}

const campaignColumns = `
	id, subject, content, status, scheduled_at, schedule_type, schedule_config,
	last_sent_at, sent_at, recipient_count, COALESCE(contact_list_id, ''), COALESCE(template_id, ''),
	COALESCE(reply_to, ''), COALESCE(slug, ''), is_published, COALESCE(excerpt, ''),
	ab_test_enabled, COALESCE(ab_subject_b, ''), COALESCE(ab_from_name_b, ''), COALESCE(ab_wait_hours, 0),
	ab_test_sent_at, ab_winner, created_at, updated_at
`

func scanCampaign(row interface{ Scan(dest ...interface{}) error }) (*domain.Campaign, error) {
	var c domain.Campaign
	var scheduleConfig []byte
	var abWinner sql.NullString

	err := row.Scan(
		&c.ID, &c.Subject, &c.Content, &c.Status, &c.ScheduledAt, &c.ScheduleType, &scheduleConfig,
		&c.LastSentAt, &c.SentAt, &c.RecipientCount, &c.ContactListID, &c.TemplateID,
		&c.ReplyTo, &c.Slug, &c.IsPublished, &c.Excerpt,
		&c.ABTestEnabled, &c.ABSubjectB, &c.ABFromNameB, &c.ABWaitHours,
		&c.ABTestSentAt, &abWinner, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(scheduleConfig) > 0 {
		var cfg domain.ScheduleConfig
		if err := json.Unmarshal(scheduleConfig, &cfg); err != nil {
			return nil, fmt.Errorf("decode schedule_config: %w", err)
		}
		c.ScheduleConfig = &cfg
	}
	if abWinner.Valid && abWinner.String != "" {
		v := domain.ABVariant(abWinner.String)
		c.ABWinner = &v
	}
	return &c, nil
}

func (r *campaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	var scheduleConfig interface{}
	if c.ScheduleConfig != nil {
		b, err := json.Marshal(c.ScheduleConfig)
		if err != nil {
			return fmt.Errorf("encode schedule_config: %w", err)
		}
		scheduleConfig = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (
			id, subject, content, status, scheduled_at, schedule_type, schedule_config,
			last_sent_at, sent_at, recipient_count, contact_list_id, template_id,
			reply_to, slug, is_published, excerpt,
			ab_test_enabled, ab_subject_b, ab_from_name_b, ab_wait_hours, ab_test_sent_at, ab_winner,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
	`,
		c.ID, c.Subject, c.Content, c.Status, c.ScheduledAt, c.ScheduleType, scheduleConfig,
		c.LastSentAt, c.SentAt, c.RecipientCount, nullString(c.ContactListID), nullString(c.TemplateID),
		nullString(c.ReplyTo), nullString(c.Slug), c.IsPublished, nullString(c.Excerpt),
		c.ABTestEnabled, nullString(c.ABSubjectB), nullString(c.ABFromNameB), c.ABWaitHours, c.ABTestSentAt, abVariantValue(c.ABWinner),
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	c.UpdatedAt = time.Now().UTC()

	var scheduleConfig interface{}
	if c.ScheduleConfig != nil {
		b, err := json.Marshal(c.ScheduleConfig)
		if err != nil {
			return fmt.Errorf("encode schedule_config: %w", err)
		}
		scheduleConfig = b
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET
			subject = $1, content = $2, status = $3, scheduled_at = $4, schedule_type = $5, schedule_config = $6,
			last_sent_at = $7, sent_at = $8, recipient_count = $9, contact_list_id = $10, template_id = $11,
			reply_to = $12, slug = $13, is_published = $14, excerpt = $15,
			ab_test_enabled = $16, ab_subject_b = $17, ab_from_name_b = $18, ab_wait_hours = $19,
			ab_test_sent_at = $20, ab_winner = $21, updated_at = $22
		WHERE id = $23
	`,
		c.Subject, c.Content, c.Status, c.ScheduledAt, c.ScheduleType, scheduleConfig,
		c.LastSentAt, c.SentAt, c.RecipientCount, nullString(c.ContactListID), nullString(c.TemplateID),
		nullString(c.ReplyTo), nullString(c.Slug), c.IsPublished, nullString(c.Excerpt),
		c.ABTestEnabled, nullString(c.ABSubjectB), nullString(c.ABFromNameB), c.ABWaitHours,
		c.ABTestSentAt, abVariantValue(c.ABWinner), c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return nil
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "campaign", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return c, nil
}

func (r *campaignRepository) GetBySlug(ctx context.Context, slug string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE slug = $1`, slug)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "campaign", ID: slug}
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign by slug: %w", err)
	}
	return c, nil
}

func (r *campaignRepository) List(ctx context.Context, limit, offset int) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()
	return scanCampaignRows(rows)
}

func scanCampaignRows(rows *sql.Rows) ([]*domain.Campaign, error) {
	var out []*domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DueNonABScheduled implements the non-A/B branch of Store query 4.1's
// recurring dispatch switch (spec.md §4.9).
func (r *campaignRepository) DueNonABScheduled(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE ab_test_enabled = FALSE AND status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at ASC
	`, domain.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("query due non-ab campaigns: %w", err)
	}
	defer rows.Close()
	return scanCampaignRows(rows)
}

// DueABTestPhase implements the A/B test-phase branch (spec.md §4.10): the
// test phase fires ab_wait_hours before the nominal send time, not at it, so
// the winner phase has room to observe opens/clicks before scheduled_at.
func (r *campaignRepository) DueABTestPhase(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE ab_test_enabled = TRUE AND status = $1 AND scheduled_at IS NOT NULL
		AND scheduled_at - (ab_wait_hours * INTERVAL '1 hour') <= $2
		AND ab_test_sent_at IS NULL
		ORDER BY scheduled_at ASC
	`, domain.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("query due ab test phase campaigns: %w", err)
	}
	defer rows.Close()
	return scanCampaignRows(rows)
}

// DueABWinnerPhase implements the A/B winner-phase branch (spec.md §4.10):
// test phase already sent, wait window elapsed, winner not yet sent.
func (r *campaignRepository) DueABWinnerPhase(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE ab_test_enabled = TRUE AND status = $1 AND ab_test_sent_at IS NOT NULL
		AND ab_test_sent_at + (ab_wait_hours * INTERVAL '1 hour') <= $2
		AND sent_at IS NULL
		ORDER BY ab_test_sent_at ASC
	`, domain.CampaignStatusScheduled, now)
	if err != nil {
		return nil, fmt.Errorf("query due ab winner phase campaigns: %w", err)
	}
	defer rows.Close()
	return scanCampaignRows(rows)
}

func (r *campaignRepository) SaveABRemainder(ctx context.Context, campaignID string, subscriberIDs []string) error {
	b, err := json.Marshal(subscriberIDs)
	if err != nil {
		return fmt.Errorf("encode ab remainder: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO campaign_ab_remainders (campaign_id, subscriber_ids) VALUES ($1, $2)
		ON CONFLICT (campaign_id) DO UPDATE SET subscriber_ids = EXCLUDED.subscriber_ids
	`, campaignID, b)
	if err != nil {
		return fmt.Errorf("save ab remainder: %w", err)
	}
	return nil
}

func (r *campaignRepository) LoadABRemainder(ctx context.Context, campaignID string) ([]string, error) {
	var b []byte
	err := r.db.QueryRowContext(ctx, `SELECT subscriber_ids FROM campaign_ab_remainders WHERE campaign_id = $1`, campaignID).Scan(&b)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ab remainder: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode ab remainder: %w", err)
	}
	return ids, nil
}

func (r *campaignRepository) DeleteABRemainder(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM campaign_ab_remainders WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return fmt.Errorf("delete ab remainder: %w", err)
	}
	return nil
}

func abVariantValue(v *domain.ABVariant) interface{} {
	if v == nil {
		return nil
	}
	return string(*v)
}
