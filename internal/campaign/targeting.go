package campaign

import (
	"context"

	"github.com/driftloop/mailcore/internal/domain"
)

// targetSubscribers implements the targeting switch of spec.md §4.1-(b),
// §4.9: a named list narrows to its active members, otherwise every
// active subscriber is in scope.
func targetSubscribers(ctx context.Context, subscribers domain.SubscriberRepository, listID string) ([]*domain.Subscriber, error) {
	return subscribers.ListActiveForCampaign(ctx, listID)
}
