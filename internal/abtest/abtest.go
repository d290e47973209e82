// Package abtest implements the two-phase A/B Orchestrator of spec.md
// §4.10: a test-phase send to a size-derived sample, and a winner-phase
// send of the higher-performing variant to the remainder.
package abtest

import (
	"context"
	"fmt"
	"time"

	"github.com/driftloop/mailcore/internal/campaign"
	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/pkg/logger"
)

type Orchestrator struct {
	campaigns    domain.CampaignRepository
	subscribers  domain.SubscriberRepository
	deliveryLogs domain.DeliveryLogRepository
	dispatcher   *campaign.Dispatcher
	logger       logger.Logger
}

func New(
	campaigns domain.CampaignRepository,
	subscribers domain.SubscriberRepository,
	deliveryLogs domain.DeliveryLogRepository,
	dispatcher *campaign.Dispatcher,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		campaigns:    campaigns,
		subscribers:  subscribers,
		deliveryLogs: deliveryLogs,
		dispatcher:   dispatcher,
		logger:       log,
	}
}

// testRatio derives the test-group fraction from population size: smaller
// populations need a larger fraction to get a statistically meaningful
// sample, clipped so the remainder is never empty (spec.md §4.10).
func testRatio(populationSize int) float64 {
	switch {
	case populationSize <= 20:
		return 0.5
	case populationSize <= 200:
		return 0.3
	case populationSize <= 2000:
		return 0.2
	default:
		return 0.1
	}
}

// partition splits subscribers into groupA, groupB, and the remainder by
// ratio, in list order. groupA and groupB are disjoint halves of the test
// sample; every other subscriber lands in the remainder.
func partition(subs []*domain.Subscriber, ratio float64) (groupA, groupB, remainder []*domain.Subscriber) {
	testSize := int(float64(len(subs)) * ratio)
	if testSize < 2 && len(subs) >= 2 {
		testSize = 2
	}
	if testSize >= len(subs) {
		testSize = len(subs) - 1
	}
	if testSize < 0 {
		testSize = 0
	}

	half := testSize / 2
	groupA = subs[:half]
	groupB = subs[half:testSize]
	remainder = subs[testSize:]
	return
}

// RunTestPhase sends the A and B variants to the test sample for every
// campaign whose test phase is due (spec.md §4.10).
func (o *Orchestrator) RunTestPhase(ctx context.Context, now time.Time) error {
	due, err := o.campaigns.DueABTestPhase(ctx, now)
	if err != nil {
		return fmt.Errorf("load due ab test phase campaigns: %w", err)
	}

	for _, c := range due {
		if err := o.runTestPhaseFor(ctx, c, now); err != nil {
			o.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("abtest: test phase failed")
		}
	}
	return nil
}

func (o *Orchestrator) runTestPhaseFor(ctx context.Context, c *domain.Campaign, now time.Time) error {
	subs, err := o.subscribers.ListActiveForCampaign(ctx, c.ContactListID)
	if err != nil {
		return fmt.Errorf("load targeting set: %w", err)
	}

	groupA, groupB, remainder := partition(subs, testRatio(len(subs)))

	remainderIDs := make([]string, len(remainder))
	for i, s := range remainder {
		remainderIDs[i] = s.ID
	}
	if err := o.campaigns.SaveABRemainder(ctx, c.ID, remainderIDs); err != nil {
		return fmt.Errorf("save ab remainder: %w", err)
	}

	variantA, variantB := domain.ABVariantA, domain.ABVariantB
	if _, err := o.dispatcher.SendVariant(ctx, c, c.Subject, "", now, &variantA, groupA); err != nil {
		o.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("abtest: variant A send failed")
	}
	if _, err := o.dispatcher.SendVariant(ctx, c, nonEmpty(c.ABSubjectB, c.Subject), c.ABFromNameB, now, &variantB, groupB); err != nil {
		o.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("abtest: variant B send failed")
	}

	c.ABTestSentAt = &now
	if err := o.campaigns.Update(ctx, c); err != nil {
		return fmt.Errorf("mark ab test phase sent: %w", err)
	}
	return nil
}

// RunWinnerPhase computes the winning variant and sends it to the stored
// remainder for every campaign whose winner phase is due (spec.md §4.10).
// A failure here marks the whole campaign failed; the test-phase logs
// remain as the historical record.
func (o *Orchestrator) RunWinnerPhase(ctx context.Context, now time.Time) error {
	due, err := o.campaigns.DueABWinnerPhase(ctx, now)
	if err != nil {
		return fmt.Errorf("load due ab winner phase campaigns: %w", err)
	}

	for _, c := range due {
		if err := o.runWinnerPhaseFor(ctx, c, now); err != nil {
			o.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("abtest: winner phase failed")
			c.Status = domain.CampaignStatusFailed
			if uerr := o.campaigns.Update(ctx, c); uerr != nil {
				o.logger.WithField("error", uerr.Error()).Error("abtest: mark failed campaign failed")
			}
		}
	}
	return nil
}

func (o *Orchestrator) runWinnerPhaseFor(ctx context.Context, c *domain.Campaign, now time.Time) error {
	statsA, err := o.deliveryLogs.StatsForCampaignVariant(ctx, c.ID, domain.ABVariantA)
	if err != nil {
		return fmt.Errorf("load variant A stats: %w", err)
	}
	statsB, err := o.deliveryLogs.StatsForCampaignVariant(ctx, c.ID, domain.ABVariantB)
	if err != nil {
		return fmt.Errorf("load variant B stats: %w", err)
	}

	winner := pickWinner(statsA, statsB)

	remainderIDs, err := o.campaigns.LoadABRemainder(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load ab remainder: %w", err)
	}
	remainder := make([]*domain.Subscriber, 0, len(remainderIDs))
	for _, id := range remainderIDs {
		sub, err := o.subscribers.GetByID(ctx, id)
		if err != nil {
			o.logger.WithField("error", err.Error()).WithField("subscriber_id", id).Warn("abtest: remainder subscriber lookup failed, skipping")
			continue
		}
		if sub.IsActive() {
			remainder = append(remainder, sub)
		}
	}

	subject, fromName := c.Subject, ""
	if winner == domain.ABVariantB {
		subject, fromName = nonEmpty(c.ABSubjectB, c.Subject), c.ABFromNameB
	}

	count, err := o.dispatcher.SendVariant(ctx, c, subject, fromName, now, &winner, remainder)
	if err != nil {
		return fmt.Errorf("send winner variant: %w", err)
	}

	c.ABWinner = &winner
	c.Status = domain.CampaignStatusSent
	c.SentAt = &now
	c.RecipientCount = count
	if err := o.campaigns.Update(ctx, c); err != nil {
		return fmt.Errorf("mark campaign sent: %w", err)
	}
	return o.campaigns.DeleteABRemainder(ctx, c.ID)
}

// pickWinner combines open rate and click rate into one score per variant;
// ties break to A (spec.md §4.10, §8).
func pickWinner(a, b *domain.CampaignStats) domain.ABVariant {
	scoreA := a.OpenRate() + 2*a.ClickRate()
	scoreB := b.OpenRate() + 2*b.ClickRate()
	if scoreB > scoreA {
		return domain.ABVariantB
	}
	return domain.ABVariantA
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
