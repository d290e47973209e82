package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/crypto"
)

type shortUrlRepository struct {
	db *sql.DB
}

func NewShortUrlRepository(db *sql.DB) domain.ShortUrlRepository {
	return &shortUrlRepository{db: db}
}

const shortUrlColumns = `id, short_code, original_url, position, COALESCE(campaign_id, ''), COALESCE(sequence_step_id, ''), created_at`

func scanShortUrl(row interface{ Scan(dest ...interface{}) error }) (*domain.ShortUrl, error) {
	var s domain.ShortUrl
	if err := row.Scan(&s.ID, &s.ShortCode, &s.OriginalURL, &s.Position, &s.CampaignID, &s.SequenceStepID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Create mints a fresh short code and retries on a unique-index collision
// up to 3 attempts (spec.md §8). Every call allocates a new row, even for
// a URL/position pair seen before: occurrences are not deduplicated.
func (r *shortUrlRepository) Create(ctx context.Context, s *domain.ShortUrl) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := crypto.ShortCode()
		if err != nil {
			return fmt.Errorf("generate short code: %w", err)
		}
		s.ShortCode = code

		_, err = r.db.ExecContext(ctx, `
			INSERT INTO short_urls (id, short_code, original_url, position, campaign_id, sequence_step_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, s.ID, s.ShortCode, s.OriginalURL, s.Position, nullString(s.CampaignID), nullString(s.SequenceStepID), s.CreatedAt)
		if err == nil {
			return nil
		}
		lastErr = err
		if pqErr, ok := err.(*pq.Error); !ok || pqErr.Code != "23505" {
			return fmt.Errorf("create short url: %w", err)
		}
	}
	return fmt.Errorf("mint short url after %d attempts: %w", maxAttempts, lastErr)
}

func (r *shortUrlRepository) GetByCode(ctx context.Context, code string) (*domain.ShortUrl, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shortUrlColumns+` FROM short_urls WHERE short_code = $1`, code)
	s, err := scanShortUrl(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "short_url", ID: code}
	}
	if err != nil {
		return nil, fmt.Errorf("get short url by code: %w", err)
	}
	return s, nil
}
