package domain

import (
	"context"
	"time"
)

// DeliveryStatus is a DeliveryLog's position on the success chain, plus the
// two terminal failure states that live outside it (spec.md §4.4).
type DeliveryStatus string

const (
	DeliveryStatusSent      DeliveryStatus = "sent"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusOpened    DeliveryStatus = "opened"
	DeliveryStatusClicked   DeliveryStatus = "clicked"
	DeliveryStatusBounced   DeliveryStatus = "bounced"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// chainRank orders the success chain for the non-regress rule of §4.4.
// Failure states are not part of the chain and rank below it.
var chainRank = map[DeliveryStatus]int{
	DeliveryStatusSent:      0,
	DeliveryStatusDelivered: 1,
	DeliveryStatusOpened:    2,
	DeliveryStatusClicked:   3,
	DeliveryStatusBounced:   -1,
	DeliveryStatusFailed:    -1,
}

// Rank returns the status's position on the success chain, or -1 for the
// terminal failure states (spec.md §4.4).
func (s DeliveryStatus) Rank() int {
	return chainRank[s]
}

// IsFailure reports whether s is one of the two terminal failure states.
func (s DeliveryStatus) IsFailure() bool {
	return s == DeliveryStatusBounced || s == DeliveryStatusFailed
}

// IsChainStatus reports whether s participates in the success chain.
func (s DeliveryStatus) IsChainStatus() bool {
	_, ok := chainRank[s]
	return ok && s.Rank() >= 0
}

// DeliveryLog records one dispatch attempt and its folded webhook history
// (spec.md §3, §4.4).
type DeliveryLog struct {
	ID                string
	CampaignID        string // exactly one of CampaignID/SequenceID is set
	SequenceID        string
	SequenceStepID    string
	SubscriberID      string
	Email             string
	EmailSubject      string
	ABVariant         *ABVariant
	Status            DeliveryStatus
	ProviderMessageID string
	SentAt            *time.Time
	DeliveredAt       *time.Time
	OpenedAt          *time.Time
	ClickedAt         *time.Time
	ErrorMessage      string
	CreatedAt         time.Time
}

// WebhookEventKind is the event a provider webhook reports (spec.md §4.4).
type WebhookEventKind string

const (
	WebhookEventDelivered WebhookEventKind = "delivered"
	WebhookEventOpened    WebhookEventKind = "opened"
	WebhookEventClicked   WebhookEventKind = "clicked"
	WebhookEventBounced   WebhookEventKind = "bounced"
	WebhookEventFailed    WebhookEventKind = "failed"
)

// CampaignStats is the per-campaign delivery-statistics aggregation of
// Store query 4.1-(c), counted by timestamp column rather than terminal
// status, because status is a cursor (spec.md §4.4).
type CampaignStats struct {
	Sent      int
	Delivered int
	Opened    int
	Clicked   int
	Bounced   int
	Failed    int
}

// OpenRate and ClickRate use integer-division-safe ratios, guarded against
// a zero denominator (spec.md §4.4).
func (s CampaignStats) OpenRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Opened) / float64(s.Sent)
}

func (s CampaignStats) ClickRate() float64 {
	if s.Sent == 0 {
		return 0
	}
	return float64(s.Clicked) / float64(s.Sent)
}

// ClickEvent records a deduplicated click for per-link analytics
// (spec.md §3).
type ClickEvent struct {
	ID            string
	DeliveryLogID string
	SubscriberID  string
	ClickedURL    string
	ClickedAt     time.Time
}

// DeliveryLogRepository is the Store's delivery-log CRUD and query surface.
type DeliveryLogRepository interface {
	Create(ctx context.Context, l *DeliveryLog) error
	GetByID(ctx context.Context, id string) (*DeliveryLog, error)
	// GetByProviderMessageID correlates an inbound webhook to the delivery
	// log it reports on; returns nil, nil if no row matches (spec.md §9).
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*DeliveryLog, error)

	// ApplyEvent folds a webhook event into the row's state, applying the
	// monotonic non-regress rule of spec.md §4.4. It returns false if the
	// event was skipped as a downgrade.
	ApplyEvent(ctx context.Context, id string, event WebhookEventKind, at time.Time, errorMessage string) (applied bool, err error)

	CountForCampaignSentSince(ctx context.Context, campaignID string, since time.Time) (int, error)
	StatsForCampaign(ctx context.Context, campaignID string) (*CampaignStats, error)
	StatsForCampaignVariant(ctx context.Context, campaignID string, variant ABVariant) (*CampaignStats, error)
	GlobalStats(ctx context.Context, since time.Time) (*CampaignStats, error)

	// RecordClick inserts a ClickEvent unless one already exists in the
	// 60s dedup window for (deliveryLogID, url) (spec.md §3, §8).
	RecordClick(ctx context.Context, e *ClickEvent) (inserted bool, err error)
}
