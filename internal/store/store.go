// Package store wires the Postgres-backed repository implementations into
// a single Store the rest of the engine depends on through domain
// interfaces (teacher pattern: one interface per aggregate).
package store

import (
	"database/sql"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/store/postgres"
)

// Store bundles every aggregate repository behind its domain interface.
// Services depend on the individual domain.*Repository interfaces, not on
// Store itself, so tests can substitute fakes per-aggregate; Store exists
// only to make wiring in cmd/server/main.go a one-liner.
type Store struct {
	Subscribers   domain.SubscriberRepository
	ContactLists  domain.ContactListRepository
	Campaigns     domain.CampaignRepository
	Sequences     domain.SequenceRepository
	DeliveryLogs  domain.DeliveryLogRepository
	ShortUrls     domain.ShortUrlRepository
	BrandSettings domain.BrandSettingsRepository
	Admin         domain.AdminRepository
	WebhookEvents domain.WebhookEventRepository
}

func New(db *sql.DB) *Store {
	return &Store{
		Subscribers:   postgres.NewSubscriberRepository(db),
		ContactLists:  postgres.NewContactListRepository(db),
		Campaigns:     postgres.NewCampaignRepository(db),
		Sequences:     postgres.NewSequenceRepository(db),
		DeliveryLogs:  postgres.NewDeliveryLogRepository(db),
		ShortUrls:     postgres.NewShortUrlRepository(db),
		BrandSettings: postgres.NewBrandSettingsRepository(db),
		Admin:         postgres.NewAdminRepository(db),
		WebhookEvents: postgres.NewWebhookEventRepository(db),
	}
}
