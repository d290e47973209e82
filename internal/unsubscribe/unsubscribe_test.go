package unsubscribe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

type fakeSubscriberRepo struct {
	byToken map[string]*domain.Subscriber
	updated *domain.Subscriber
}

func (f *fakeSubscriberRepo) Create(ctx context.Context, s *domain.Subscriber) error { return nil }
func (f *fakeSubscriberRepo) Update(ctx context.Context, s *domain.Subscriber) error {
	f.updated = s
	return nil
}
func (f *fakeSubscriberRepo) GetByID(ctx context.Context, id string) (*domain.Subscriber, error) {
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: id}
}
func (f *fakeSubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: email}
}
func (f *fakeSubscriberRepo) GetByUnsubscribeToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	if s, ok := f.byToken[token]; ok {
		return s, nil
	}
	return nil, &domain.ErrNotFound{Entity: "subscriber", ID: token}
}
func (f *fakeSubscriberRepo) List(ctx context.Context, filter domain.SubscriberFilter) ([]*domain.Subscriber, int, error) {
	return nil, 0, nil
}
func (f *fakeSubscriberRepo) ListActiveForCampaign(ctx context.Context, listID string) ([]*domain.Subscriber, error) {
	return nil, nil
}

func TestUnsubscribeEmptyTokenIsError(t *testing.T) {
	p := New(&fakeSubscriberRepo{byToken: map[string]*domain.Subscriber{}}, nil, logger.NewTestLogger())
	assert.Equal(t, OutcomeError, p.Unsubscribe(context.Background(), ""))
}

func TestUnsubscribeUnknownTokenIsError(t *testing.T) {
	p := New(&fakeSubscriberRepo{byToken: map[string]*domain.Subscriber{}}, nil, logger.NewTestLogger())
	assert.Equal(t, OutcomeError, p.Unsubscribe(context.Background(), "unknown"))
}

func TestUnsubscribeAlreadyUnsubscribedIsInfo(t *testing.T) {
	repo := &fakeSubscriberRepo{byToken: map[string]*domain.Subscriber{
		"tok": {ID: "1", UnsubscribeToken: "tok", Status: domain.SubscriberStatusUnsubscribed},
	}}
	p := New(repo, nil, logger.NewTestLogger())
	assert.Equal(t, OutcomeInfo, p.Unsubscribe(context.Background(), "tok"))
	assert.Nil(t, repo.updated)
}

func TestUnsubscribeActiveSubscriberSucceeds(t *testing.T) {
	repo := &fakeSubscriberRepo{byToken: map[string]*domain.Subscriber{
		"tok": {ID: "1", UnsubscribeToken: "tok", Status: domain.SubscriberStatusActive},
	}}
	p := New(repo, nil, logger.NewTestLogger())
	outcome := p.Unsubscribe(context.Background(), "tok")
	require.Equal(t, OutcomeSuccess, outcome)
	require.NotNil(t, repo.updated)
	assert.Equal(t, domain.SubscriberStatusUnsubscribed, repo.updated.Status)
	assert.NotNil(t, repo.updated.UnsubscribedAt)
}
