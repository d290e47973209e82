package domain

import (
	"context"
	"time"
)

// BrandSettings is the single admin-editable record governing outgoing
// sender identity and footer content (spec.md §3). The Store always
// addresses it by a fixed singleton ID; there is exactly one row.
type BrandSettings struct {
	ID             string
	SenderName     string
	SenderEmail    string
	ReplyTo        string
	LogoURL        string
	FooterText     string
	PrimaryColor   string
	CompanyAddress string
	// DefaultTemplateID is the fallback preset used when a campaign or
	// sequence step doesn't name its own (spec.md §4.6 template
	// resolution: step's -> brand default -> hard-coded "simple").
	DefaultTemplateID string
	UpdatedAt         time.Time
}

func (b *BrandSettings) Validate() error {
	if b.SenderName == "" {
		return NewValidationError("sender_name is required")
	}
	if b.SenderEmail == "" {
		return NewValidationError("sender_email is required")
	}
	return nil
}

// BrandSettingsRepository manages the singleton row. Get must never
// return domain.ErrNotFound: the Store seeds a default row on first
// migration, per spec.md §4.2.
type BrandSettingsRepository interface {
	Get(ctx context.Context) (*BrandSettings, error)
	Update(ctx context.Context, b *BrandSettings) error
}
