package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CampaignStatus is the lifecycle state of a Campaign (spec.md §3).
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusScheduled CampaignStatus = "scheduled"
	CampaignStatusSent      CampaignStatus = "sent"
	CampaignStatusFailed    CampaignStatus = "failed"
)

// CampaignScheduleType selects the recurring-schedule computation of §4.9/4.10.
type CampaignScheduleType string

const (
	ScheduleTypeNone    CampaignScheduleType = "none"
	ScheduleTypeDaily   CampaignScheduleType = "daily"
	ScheduleTypeWeekly  CampaignScheduleType = "weekly"
	ScheduleTypeMonthly CampaignScheduleType = "monthly"
)

// ABVariant identifies one of the two A/B test arms.
type ABVariant string

const (
	ABVariantA ABVariant = "A"
	ABVariantB ABVariant = "B"
)

// ScheduleConfig parameterises a recurring campaign's next-run computation
// (spec.md §4.9): hour/minute of day, plus day-of-week for weekly or
// day-of-month for monthly.
type ScheduleConfig struct {
	Hour       int  `json:"hour"`
	Minute     int  `json:"minute"`
	DayOfWeek  *int `json:"dayOfWeek,omitempty"`
	DayOfMonth *int `json:"dayOfMonth,omitempty"`
}

func (c ScheduleConfig) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ScheduleConfig) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("ScheduleConfig.Scan: expected []byte, got %T", value)
	}
	return json.Unmarshal(b, c)
}

// Campaign is a one-shot or recurring newsletter send (spec.md §3).
type Campaign struct {
	ID             string
	Subject        string
	Content        string
	Status         CampaignStatus
	ScheduledAt    *time.Time
	ScheduleType   CampaignScheduleType
	ScheduleConfig *ScheduleConfig
	LastSentAt     *time.Time
	SentAt         *time.Time
	RecipientCount int
	ContactListID  string
	TemplateID     string
	ReplyTo        string
	Slug           string
	IsPublished    bool
	Excerpt        string

	ABTestEnabled bool
	ABSubjectB    string
	ABFromNameB   string
	ABWaitHours   int
	ABTestSentAt  *time.Time
	ABWinner      *ABVariant

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the structural invariants of spec.md §3: a recurring
// schedule requires scheduled_at, and A/B requires a positive wait.
func (c *Campaign) Validate() error {
	if c.Subject == "" {
		return NewValidationError("subject is required")
	}
	if c.Content == "" {
		return NewValidationError("content is required")
	}
	if c.ScheduleType != ScheduleTypeNone && c.ScheduledAt == nil {
		return NewValidationError("scheduled_at is required for schedule_type %q", c.ScheduleType)
	}
	if c.ABTestEnabled && c.ABWaitHours <= 0 {
		return NewValidationError("ab_wait_hours must be > 0 when ab_test_enabled")
	}
	return nil
}

// IsRecurring reports whether this campaign reschedules itself on send.
func (c *Campaign) IsRecurring() bool {
	return c.ScheduleType != ScheduleTypeNone
}

// CampaignRepository is the Store's campaign-scoped CRUD and query surface.
type CampaignRepository interface {
	Create(ctx context.Context, c *Campaign) error
	Update(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*Campaign, error)
	List(ctx context.Context, limit, offset int) ([]*Campaign, error)

	// DueNonABScheduled returns non-A/B campaigns with scheduled_at <= now,
	// in ascending scheduled_at order (spec.md §4.9).
	DueNonABScheduled(ctx context.Context, now time.Time) ([]*Campaign, error)
	// DueABTestPhase returns A/B campaigns whose test phase is due
	// (spec.md §4.10).
	DueABTestPhase(ctx context.Context, now time.Time) ([]*Campaign, error)
	// DueABWinnerPhase returns A/B campaigns whose winner phase is due
	// (spec.md §4.10).
	DueABWinnerPhase(ctx context.Context, now time.Time) ([]*Campaign, error)

	// SaveABRemainder persists the remainder subscriber-id list for the
	// winner phase to read later (spec.md §4.10).
	SaveABRemainder(ctx context.Context, campaignID string, subscriberIDs []string) error
	LoadABRemainder(ctx context.Context, campaignID string) ([]string, error)
	DeleteABRemainder(ctx context.Context, campaignID string) error
}
