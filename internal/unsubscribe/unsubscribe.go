// Package unsubscribe implements the token-authenticated unsubscribe
// pipeline of spec.md §4.5: an unauthenticated, enumeration-resistant path
// from a mailed link to a Store write and a best-effort provider sync.
package unsubscribe

import (
	"context"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/pkg/logger"
)

// Outcome is the redirect status the HTTP handler renders back to the
// browser, kept separate from any error so a lookup miss and an
// already-unsubscribed subscriber both produce a clean redirect rather
// than a 4xx/5xx (spec.md §4.5, §7).
type Outcome string

const (
	// OutcomeError covers an empty or unmatched token. The handler must
	// not distinguish this from any other failure in its response, so a
	// prober cannot use response shape to enumerate valid tokens.
	OutcomeError Outcome = "error"
	// OutcomeInfo means the subscriber was already unsubscribed.
	OutcomeInfo Outcome = "info"
	// OutcomeSuccess means this call performed the unsubscribe.
	OutcomeSuccess Outcome = "success"
)

type Pipeline struct {
	subscribers domain.SubscriberRepository
	provider    *provider.Client
	logger      logger.Logger
}

func New(subscribers domain.SubscriberRepository, providerClient *provider.Client, log logger.Logger) *Pipeline {
	return &Pipeline{subscribers: subscribers, provider: providerClient, logger: log}
}

// Unsubscribe resolves the token, performs the authoritative Store write
// if needed, and best-effort syncs the provider's own contact record. A
// provider sync failure never changes the Outcome — it's logged and
// swallowed (spec.md §4.5, §7).
func (p *Pipeline) Unsubscribe(ctx context.Context, token string) Outcome {
	if token == "" {
		return OutcomeError
	}

	sub, err := p.subscribers.GetByUnsubscribeToken(ctx, token)
	if err != nil {
		if _, ok := err.(*domain.ErrNotFound); ok {
			return OutcomeError
		}
		p.logger.WithField("error", err.Error()).Error("unsubscribe: token lookup failed")
		return OutcomeError
	}

	if sub.Status == domain.SubscriberStatusUnsubscribed {
		return OutcomeInfo
	}

	now := time.Now().UTC()
	sub.Status = domain.SubscriberStatusUnsubscribed
	sub.UnsubscribedAt = &now
	if err := p.subscribers.Update(ctx, sub); err != nil {
		p.logger.WithField("error", err.Error()).WithField("subscriber_id", sub.ID).Error("unsubscribe: store write failed")
		return OutcomeError
	}

	if p.provider != nil {
		if err := p.provider.MarkUnsubscribed(ctx, sub.Email); err != nil {
			p.logger.WithField("error", err.Error()).WithField("subscriber_id", sub.ID).Warn("unsubscribe: provider sync failed, store write stands")
		}
	}

	return OutcomeSuccess
}
