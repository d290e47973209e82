package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/crypto"
)

type subscriberRepository struct {
	db *sql.DB
}

// NewSubscriberRepository returns a Postgres-backed domain.SubscriberRepository.
func NewSubscriberRepository(db *sql.DB) domain.SubscriberRepository {
	return &subscriberRepository{db: db}
}

func (r *subscriberRepository) Create(ctx context.Context, s *domain.Subscriber) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.UnsubscribeToken == "" {
		token, err := crypto.RandomToken(24)
		if err != nil {
			return fmt.Errorf("generate unsubscribe token: %w", err)
		}
		s.UnsubscribeToken = token
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, name, status, unsubscribe_token, subscribed_at, unsubscribed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, domain.NormalizeEmail(s.Email), s.Name, s.Status, s.UnsubscribeToken, s.SubscribedAt, s.UnsubscribedAt, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func (r *subscriberRepository) Update(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET email = $1, name = $2, status = $3, subscribed_at = $4, unsubscribed_at = $5
		WHERE id = $6
	`, domain.NormalizeEmail(s.Email), s.Name, s.Status, s.SubscribedAt, s.UnsubscribedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update subscriber: %w", err)
	}
	return nil
}

func scanSubscriber(row interface{ Scan(dest ...interface{}) error }) (*domain.Subscriber, error) {
	var s domain.Subscriber
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Status, &s.UnsubscribeToken, &s.SubscribedAt, &s.UnsubscribedAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const subscriberColumns = `id, email, COALESCE(name, ''), status, unsubscribe_token, subscribed_at, unsubscribed_at, created_at`

func (r *subscriberRepository) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE id = $1`, id)
	s, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "subscriber", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber by id: %w", err)
	}
	return s, nil
}

func (r *subscriberRepository) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE email = $1`, domain.NormalizeEmail(email))
	s, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "subscriber", ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber by email: %w", err)
	}
	return s, nil
}

func (r *subscriberRepository) GetByUnsubscribeToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+subscriberColumns+` FROM subscribers WHERE unsubscribe_token = $1`, token)
	s, err := scanSubscriber(row)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Entity: "subscriber", ID: token}
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber by unsubscribe token: %w", err)
	}
	return s, nil
}

func (r *subscriberRepository) List(ctx context.Context, filter domain.SubscriberFilter) ([]*domain.Subscriber, int, error) {
	base := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(subscriberColumns).From("subscribers")
	countBase := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("COUNT(*)").From("subscribers")

	if filter.ContactList != "" {
		base = base.Join("list_memberships lm ON lm.subscriber_id = subscribers.id").
			Where(sq.Eq{"lm.list_id": filter.ContactList})
		countBase = countBase.Join("list_memberships lm ON lm.subscriber_id = subscribers.id").
			Where(sq.Eq{"lm.list_id": filter.ContactList})
	}
	if filter.Status != "" {
		base = base.Where(sq.Eq{"status": filter.Status})
		countBase = countBase.Where(sq.Eq{"status": filter.Status})
	}

	var total int
	countQuery, countArgs, err := countBase.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count subscribers: %w", err)
	}

	base = base.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		base = base.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		base = base.Offset(uint64(filter.Offset))
	}

	query, args, err := base.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []*domain.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan subscriber row: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// ListActiveForCampaign implements Store query 4.1-(b): the campaign
// targeting switch between "all active subscribers" and "active members
// of one list".
func (r *subscriberRepository) ListActiveForCampaign(ctx context.Context, listID string) ([]*domain.Subscriber, error) {
	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("subscribers." + subscriberColumns).
		From("subscribers").
		Where(sq.Eq{"subscribers.status": domain.SubscriberStatusActive})

	if listID != "" {
		q = q.Join("list_memberships lm ON lm.subscriber_id = subscribers.id").
			Where(sq.Eq{"lm.list_id": listID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build targeting query: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers for campaign: %w", err)
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
