package domain

import (
	"context"
	"time"
)

// ContactList is a named, admin-managed grouping of subscribers that a
// campaign can target (spec.md §3).
type ContactList struct {
	ID                string
	Name              string
	Description       string
	ProviderSegmentID string
	CreatedAt         time.Time
}

func (l *ContactList) Validate() error {
	if l.Name == "" {
		return NewValidationError("list name is required")
	}
	return nil
}

// ListMembership joins a ContactList to a Subscriber.
type ListMembership struct {
	ListID       string
	SubscriberID string
	AddedAt      time.Time
}

// ContactListRepository is the Store's list-scoped CRUD surface.
type ContactListRepository interface {
	Create(ctx context.Context, l *ContactList) error
	Update(ctx context.Context, l *ContactList) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*ContactList, error)
	GetByName(ctx context.Context, name string) (*ContactList, error)
	List(ctx context.Context) ([]*ContactList, error)

	AddMember(ctx context.Context, listID, subscriberID string) error
	RemoveMember(ctx context.Context, listID, subscriberID string) error
	Members(ctx context.Context, listID string) ([]*Subscriber, error)
}
