// Package campaign implements the Campaign Dispatcher of spec.md §4.8:
// the transactional and broadcast send paths, targeting, and the recurring
// reschedule that follows a successful send.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/internal/render"
	"github.com/driftloop/mailcore/pkg/logger"
)

const defaultTemplateID = "simple"
const segmentAddInterval = 550 * time.Millisecond

type Dispatcher struct {
	campaigns     domain.CampaignRepository
	subscribers   domain.SubscriberRepository
	contactLists  domain.ContactListRepository
	deliveryLogs  domain.DeliveryLogRepository
	brandSettings domain.BrandSettingsRepository
	provider      *provider.Client
	renderer      *render.Renderer
	siteURL       string
	useBroadcast  bool
	logger        logger.Logger
}

func New(
	campaigns domain.CampaignRepository,
	subscribers domain.SubscriberRepository,
	contactLists domain.ContactListRepository,
	deliveryLogs domain.DeliveryLogRepository,
	brandSettings domain.BrandSettingsRepository,
	providerClient *provider.Client,
	renderer *render.Renderer,
	siteURL string,
	useBroadcast bool,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		campaigns:     campaigns,
		subscribers:   subscribers,
		contactLists:  contactLists,
		deliveryLogs:  deliveryLogs,
		brandSettings: brandSettings,
		provider:      providerClient,
		renderer:      renderer,
		siteURL:       siteURL,
		useBroadcast:  useBroadcast,
		logger:        log,
	}
}

// DispatchScheduled sends every due non-A/B scheduled campaign, in
// ascending scheduled_at order (spec.md §4.9). A/B campaigns are handled
// separately by the abtest package.
func (d *Dispatcher) DispatchScheduled(ctx context.Context, now time.Time) error {
	due, err := d.campaigns.DueNonABScheduled(ctx, now)
	if err != nil {
		return fmt.Errorf("load due scheduled campaigns: %w", err)
	}
	for _, c := range due {
		count, err := d.sendVariant(ctx, c, c.Subject, "", now, nil, nil)
		if err != nil {
			d.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("campaign: send failed")
			c.Status = domain.CampaignStatusFailed
			if uerr := d.campaigns.Update(ctx, c); uerr != nil {
				d.logger.WithField("error", uerr.Error()).Error("campaign: mark failed campaign failed")
			}
			continue
		}
		d.afterSend(ctx, c, count, now)
	}
	return nil
}

// afterSend applies the post-send bookkeeping of spec.md §4.8/§4.9: a
// one-shot campaign is marked sent; a recurring one reschedules itself and
// stays in the scheduled state.
func (d *Dispatcher) afterSend(ctx context.Context, c *domain.Campaign, count int, now time.Time) {
	c.RecipientCount = count
	if c.IsRecurring() {
		c.LastSentAt = &now
		next := nextOccurrence(c, now)
		c.ScheduledAt = &next
	} else {
		c.Status = domain.CampaignStatusSent
		c.SentAt = &now
	}
	if err := d.campaigns.Update(ctx, c); err != nil {
		d.logger.WithField("error", err.Error()).WithField("campaign_id", c.ID).Error("campaign: post-send update failed")
	}
}

// SendVariant sends c with the given subject and from-name, tagging every
// delivery log with variant; a nil recipients slice means the campaign's own
// targeting set. The abtest package uses it for both the test and winner
// phases.
func (d *Dispatcher) SendVariant(ctx context.Context, c *domain.Campaign, subject, fromName string, now time.Time, variant *domain.ABVariant, recipients []*domain.Subscriber) (int, error) {
	return d.sendVariant(ctx, c, subject, fromName, now, variant, recipients)
}

func (d *Dispatcher) sendVariant(ctx context.Context, c *domain.Campaign, subject, fromName string, now time.Time, variant *domain.ABVariant, recipients []*domain.Subscriber) (int, error) {
	brand, err := d.brandSettings.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("load brand settings: %w", err)
	}

	if recipients == nil {
		recipients, err = targetSubscribers(ctx, d.subscribers, c.ContactListID)
		if err != nil {
			return 0, fmt.Errorf("load campaign targeting set: %w", err)
		}
	}

	useBroadcast := d.useBroadcast && d.resolveSegmentID(ctx, c) != ""
	var count int
	if useBroadcast {
		count, err = d.sendBroadcast(ctx, c, subject, fromName, brand, recipients, variant, now)
	} else {
		count, err = d.sendTransactional(ctx, c, subject, fromName, brand, recipients, variant, now)
	}
	if err != nil {
		return count, err
	}
	return count, nil
}

// resolveSegmentID implements the segment choice of spec.md §4.8.B: the
// campaign's own list segment if one is configured, else the deployment
// default. An empty result means broadcast mode can't be used for this
// campaign even if USE_BROADCAST_API is set.
func (d *Dispatcher) resolveSegmentID(ctx context.Context, c *domain.Campaign) string {
	if c.ContactListID != "" {
		if list, err := d.contactLists.GetByID(ctx, c.ContactListID); err == nil && list.ProviderSegmentID != "" {
			return list.ProviderSegmentID
		}
	}
	return d.provider.DefaultSegmentID()
}

func nonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
