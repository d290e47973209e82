package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
)

type contactListRepository struct {
	db *sql.DB
}

func NewContactListRepository(db *sql.DB) domain.ContactListRepository {
	return &contactListRepository{db: db}
}

func (r *contactListRepository) Create(ctx context.Context, l *domain.ContactList) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_lists (id, name, description, provider_segment_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, l.ID, l.Name, l.Description, nullString(l.ProviderSegmentID), l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create contact list: %w", err)
	}
	return nil
}

func (r *contactListRepository) Update(ctx context.Context, l *domain.ContactList) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE contact_lists SET name = $1, description = $2, provider_segment_id = $3 WHERE id = $4
	`, l.Name, l.Description, nullString(l.ProviderSegmentID), l.ID)
	if err != nil {
		return fmt.Errorf("update contact list: %w", err)
	}
	return nil
}

func (r *contactListRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM contact_lists WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete contact list: %w", err)
	}
	return nil
}

const contactListColumns = `id, name, COALESCE(description, ''), COALESCE(provider_segment_id, ''), created_at`

func scanContactList(row interface{ Scan(dest ...interface{}) error }) (*domain.ContactList, error) {
	var l domain.ContactList
	if err := row.Scan(&l.ID, &l.Name, &l.Description, &l.ProviderSegmentID, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *contactListRepository) GetByID(ctx context.Context, id string) (*domain.ContactList, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactListColumns+` FROM contact_lists WHERE id = $1`, id)
	l, err := scanContactList(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "contact_list", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get contact list by id: %w", err)
	}
	return l, nil
}

func (r *contactListRepository) GetByName(ctx context.Context, name string) (*domain.ContactList, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactListColumns+` FROM contact_lists WHERE name = $1`, name)
	l, err := scanContactList(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "contact_list", ID: name}
	}
	if err != nil {
		return nil, fmt.Errorf("get contact list by name: %w", err)
	}
	return l, nil
}

func (r *contactListRepository) List(ctx context.Context) ([]*domain.ContactList, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+contactListColumns+` FROM contact_lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list contact lists: %w", err)
	}
	defer rows.Close()

	var out []*domain.ContactList
	for rows.Next() {
		l, err := scanContactList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact list row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *contactListRepository) AddMember(ctx context.Context, listID, subscriberID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO list_memberships (list_id, subscriber_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (list_id, subscriber_id) DO NOTHING
	`, listID, subscriberID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add list member: %w", err)
	}
	return nil
}

func (r *contactListRepository) RemoveMember(ctx context.Context, listID, subscriberID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM list_memberships WHERE list_id = $1 AND subscriber_id = $2`, listID, subscriberID)
	if err != nil {
		return fmt.Errorf("remove list member: %w", err)
	}
	return nil
}

func (r *contactListRepository) Members(ctx context.Context, listID string) ([]*domain.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriberColumns+`
		FROM subscribers
		JOIN list_memberships lm ON lm.subscriber_id = subscribers.id
		WHERE lm.list_id = $1
		ORDER BY subscribers.created_at DESC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
