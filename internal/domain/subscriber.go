package domain

import (
	"context"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// SubscriberStatus is the lifecycle state of a Subscriber (spec.md §3).
type SubscriberStatus string

const (
	SubscriberStatusPending      SubscriberStatus = "pending"
	SubscriberStatusActive       SubscriberStatus = "active"
	SubscriberStatusUnsubscribed SubscriberStatus = "unsubscribed"
)

// Subscriber is the canonical record of an email recipient.
type Subscriber struct {
	ID               string
	Email            string
	Name             string
	Status           SubscriberStatus
	UnsubscribeToken string
	SubscribedAt     *time.Time
	UnsubscribedAt   *time.Time
	CreatedAt        time.Time
}

// NormalizeEmail lowercases and trims an email address so that the unique
// constraint on Subscriber.email is genuinely case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate enforces the invariants spec.md §3 places on a Subscriber at
// creation time.
func (s *Subscriber) Validate() error {
	if s.Email == "" {
		return NewValidationError("email is required")
	}
	if !govalidator.IsEmail(s.Email) {
		return NewValidationError("invalid email format: %s", s.Email)
	}
	return nil
}

// IsActive reports whether the subscriber may receive a send. A subscriber
// in the unsubscribed state must never receive a send (spec.md §3, §8).
func (s *Subscriber) IsActive() bool {
	return s.Status == SubscriberStatusActive
}

// SubscriberRepository is the Store's subscriber-scoped CRUD surface
// (spec.md §4.1).
type SubscriberRepository interface {
	Create(ctx context.Context, s *Subscriber) error
	Update(ctx context.Context, s *Subscriber) error
	GetByID(ctx context.Context, id string) (*Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*Subscriber, error)
	GetByUnsubscribeToken(ctx context.Context, token string) (*Subscriber, error)
	List(ctx context.Context, filter SubscriberFilter) ([]*Subscriber, int, error)
	// ListActiveForCampaign returns the targeting set for a campaign
	// dispatch: all active subscribers, or the active members of a named
	// list when listID is non-empty (spec.md §4.1-(b), §4.9).
	ListActiveForCampaign(ctx context.Context, listID string) ([]*Subscriber, error)
}

// SubscriberFilter supports the admin list/export endpoints (spec.md §6).
type SubscriberFilter struct {
	Status      SubscriberStatus
	ContactList string
	Limit       int
	Offset      int
}
