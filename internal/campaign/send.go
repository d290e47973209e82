package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/internal/render"
)

// sendTransactional implements spec.md §4.8.A: one personalized email per
// recipient, batched through the provider client in chunks, one delivery
// log per recipient carrying that recipient's own provider message id.
func (d *Dispatcher) sendTransactional(ctx context.Context, c *domain.Campaign, subject, fromName string, brand *domain.BrandSettings, recipients []*domain.Subscriber, variant *domain.ABVariant, now time.Time) (int, error) {
	messages := make([]provider.SendMessage, 0, len(recipients))
	rendered := make(map[string]string, len(recipients))

	for _, sub := range recipients {
		unsubscribeURL := fmt.Sprintf("%s/api/newsletter/unsubscribe/%s", d.siteURL, sub.UnsubscribeToken)
		html, err := d.renderer.Render(ctx, render.Input{
			Subject:         subject,
			Content:         c.Content,
			TemplateID:      resolveTemplateID(c.TemplateID, brand),
			Brand:           brand,
			SubscriberName:  sub.Name,
			SubscriberEmail: sub.Email,
			UnsubscribeURL:  unsubscribeURL,
			SiteURL:         d.siteURL,
			CampaignID:      c.ID,
		})
		if err != nil {
			return 0, fmt.Errorf("render campaign content for %s: %w", sub.Email, err)
		}
		rendered[sub.Email] = html
		messages = append(messages, provider.SendMessage{
			ToEmail:  sub.Email,
			ToName:   sub.Name,
			FromName: nonEmpty(fromName, brand.SenderName),
			Subject:  subject,
			HTMLBody: html,
			ReplyTo:  nonEmpty(c.ReplyTo, brand.ReplyTo),
		})
	}

	results := d.provider.SendBatch(ctx, messages)

	count := 0
	for _, res := range results {
		log := &domain.DeliveryLog{
			CampaignID:   c.ID,
			Email:        res.Email,
			EmailSubject: subject,
			ABVariant:    variant,
		}
		if sub := findSubscriber(recipients, res.Email); sub != nil {
			log.SubscriberID = sub.ID
		}
		if !res.Success() {
			log.Status = domain.DeliveryStatusFailed
			log.ErrorMessage = res.Err.Error()
		} else {
			log.Status = domain.DeliveryStatusSent
			log.ProviderMessageID = res.ProviderMessageID
			log.SentAt = &now
			count++
		}
		if err := d.deliveryLogs.Create(ctx, log); err != nil {
			d.logger.WithField("error", err.Error()).WithField("email", res.Email).Error("campaign: write delivery log failed")
		}
	}
	return count, nil
}

// sendBroadcast implements spec.md §4.8.B: ensure each targeted subscriber
// exists as a provider contact, add newly-created contacts to the segment
// honoring the provider's rate limit, render once, and issue a single
// broadcast whose id becomes every recipient's provider_message_id.
func (d *Dispatcher) sendBroadcast(ctx context.Context, c *domain.Campaign, subject, fromName string, brand *domain.BrandSettings, recipients []*domain.Subscriber, variant *domain.ABVariant, now time.Time) (int, error) {
	segmentID := d.resolveSegmentID(ctx, c)
	if segmentID == "" {
		return 0, fmt.Errorf("broadcast mode requires a list or deployment-default provider segment")
	}

	for i, sub := range recipients {
		existed, err := d.ensureContact(ctx, sub)
		if err != nil {
			d.logger.WithField("error", err.Error()).WithField("email", sub.Email).Warn("campaign: ensure contact failed, skipping from segment add")
			continue
		}
		if !existed {
			if err := d.provider.AddToSegment(ctx, segmentID, sub.Email); err != nil {
				d.logger.WithField("error", err.Error()).WithField("email", sub.Email).Warn("campaign: add to segment failed")
			}
			if i < len(recipients)-1 {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-time.After(segmentAddInterval):
				}
			}
		}
	}

	html, err := d.renderer.Render(ctx, render.Input{
		Subject:        subject,
		Content:        c.Content,
		TemplateID:     resolveTemplateID(c.TemplateID, brand),
		Brand:          brand,
		// The provider expands this placeholder per recipient at send time
		// (spec.md §4.3); a literal per-subscriber URL can't exist yet since
		// the broadcast hasn't been split into individual deliveries.
		UnsubscribeURL: "{{{RESEND_UNSUBSCRIBE_URL}}}",
		SiteURL:        d.siteURL,
		CampaignID:     c.ID,
	})
	if err != nil {
		return 0, fmt.Errorf("render broadcast content: %w", err)
	}

	broadcast, err := d.provider.CreateAndSendBroadcast(ctx, segmentID, subject, nonEmpty(fromName, brand.SenderName), html, nonEmpty(c.ReplyTo, brand.ReplyTo))
	if err != nil {
		return 0, &domain.ErrBroadcastDelivery{CampaignID: c.ID, Reason: "create and send broadcast", Err: err}
	}

	count := 0
	for _, sub := range recipients {
		log := &domain.DeliveryLog{
			CampaignID:        c.ID,
			SubscriberID:      sub.ID,
			Email:             sub.Email,
			EmailSubject:      subject,
			ABVariant:         variant,
			Status:            domain.DeliveryStatusSent,
			ProviderMessageID: broadcast.ID,
			SentAt:            &now,
		}
		if err := d.deliveryLogs.Create(ctx, log); err != nil {
			d.logger.WithField("error", err.Error()).WithField("email", sub.Email).Error("campaign: write broadcast delivery log failed")
			continue
		}
		count++
	}
	return count, nil
}

func (d *Dispatcher) ensureContact(ctx context.Context, sub *domain.Subscriber) (existed bool, err error) {
	// The provider's contacts API doesn't surface an existed/created
	// distinction in this client's minimal response shape, so a second
	// lookup-free EnsureContact call is treated as idempotent and always
	// "not existed" — conservative in that it may re-add an existing
	// contact to the segment, which the provider treats as a no-op.
	if err := d.provider.EnsureContact(ctx, sub.Email, sub.Name); err != nil {
		return false, err
	}
	return false, nil
}

func resolveTemplateID(campaignTemplateID string, brand *domain.BrandSettings) string {
	if campaignTemplateID != "" {
		return campaignTemplateID
	}
	if brand.DefaultTemplateID != "" {
		return brand.DefaultTemplateID
	}
	return defaultTemplateID
}

func findSubscriber(subs []*domain.Subscriber, email string) *domain.Subscriber {
	for _, s := range subs {
		if s.Email == email {
			return s
		}
	}
	return nil
}
