package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
)

const brandSettingsSingletonID = "00000000-0000-0000-0000-000000000001"

type brandSettingsRepository struct {
	db *sql.DB
}

func NewBrandSettingsRepository(db *sql.DB) domain.BrandSettingsRepository {
	return &brandSettingsRepository{db: db}
}

func (r *brandSettingsRepository) Get(ctx context.Context) (*domain.BrandSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, sender_name, sender_email, COALESCE(reply_to, ''), COALESCE(logo_url, ''),
			COALESCE(footer_text, ''), COALESCE(primary_color, ''), COALESCE(company_address, ''),
			COALESCE(default_template_id, ''), updated_at
		FROM brand_settings WHERE id = $1
	`, brandSettingsSingletonID)

	var b domain.BrandSettings
	err := row.Scan(&b.ID, &b.SenderName, &b.SenderEmail, &b.ReplyTo, &b.LogoURL, &b.FooterText, &b.PrimaryColor, &b.CompanyAddress, &b.DefaultTemplateID, &b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get brand settings: %w", err)
	}
	return &b, nil
}

func (r *brandSettingsRepository) Update(ctx context.Context, b *domain.BrandSettings) error {
	b.ID = brandSettingsSingletonID
	b.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		UPDATE brand_settings SET
			sender_name = $1, sender_email = $2, reply_to = $3, logo_url = $4,
			footer_text = $5, primary_color = $6, company_address = $7, default_template_id = $8, updated_at = $9
		WHERE id = $10
	`, b.SenderName, b.SenderEmail, nullString(b.ReplyTo), nullString(b.LogoURL),
		nullString(b.FooterText), nullString(b.PrimaryColor), nullString(b.CompanyAddress), nullString(b.DefaultTemplateID), b.UpdatedAt, b.ID)
	if err != nil {
		return fmt.Errorf("update brand settings: %w", err)
	}
	return nil
}
