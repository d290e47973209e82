// Package sequence implements the drip-sequence enrollment and dispatch
// logic of spec.md §4.6: due-step computation in both scheduling modes,
// per-step rendering and sending, and enrollment-cursor advancement.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/driftloop/mailcore/internal/domain"
	"github.com/driftloop/mailcore/internal/provider"
	"github.com/driftloop/mailcore/internal/render"
	"github.com/driftloop/mailcore/pkg/logger"
)

const defaultTemplateID = "simple"

// Processor dispatches due sequence steps. It depends on domain
// repositories directly rather than the concrete *store.Store so it can be
// exercised with fakes in tests.
type Processor struct {
	sequences     domain.SequenceRepository
	subscribers   domain.SubscriberRepository
	deliveryLogs  domain.DeliveryLogRepository
	brandSettings domain.BrandSettingsRepository
	provider      *provider.Client
	renderer      *render.Renderer
	regionalOffset time.Duration
	siteURL       string
	useBroadcast  bool
	logger        logger.Logger
}

func New(
	sequences domain.SequenceRepository,
	subscribers domain.SubscriberRepository,
	deliveryLogs domain.DeliveryLogRepository,
	brandSettings domain.BrandSettingsRepository,
	providerClient *provider.Client,
	renderer *render.Renderer,
	regionalOffset time.Duration,
	siteURL string,
	useBroadcast bool,
	log logger.Logger,
) *Processor {
	return &Processor{
		sequences:      sequences,
		subscribers:    subscribers,
		deliveryLogs:   deliveryLogs,
		brandSettings:  brandSettings,
		provider:       providerClient,
		renderer:       renderer,
		regionalOffset: regionalOffset,
		siteURL:        siteURL,
		useBroadcast:   useBroadcast,
		logger:         log,
	}
}

// Tick processes every due (enrollment, step) candidate exactly once
// (spec.md §4.6, §5). A failure dispatching one candidate is logged and
// does not stop the tick from reaching the rest.
func (p *Processor) Tick(ctx context.Context, now time.Time) error {
	candidates, err := p.sequences.DueStepCandidates(ctx)
	if err != nil {
		return fmt.Errorf("load due step candidates: %w", err)
	}

	for _, c := range candidates {
		due, err := p.scheduledTime(ctx, c)
		if err != nil {
			p.logger.WithField("error", err.Error()).WithField("enrollment_id", c.Enrollment.ID).Warn("sequence: skip candidate, could not compute scheduled time")
			continue
		}
		if due == nil || due.After(now) {
			continue
		}
		p.dispatch(ctx, c, now)
	}
	return nil
}

// scheduledTime computes when a candidate step becomes due, per the two
// modes of spec.md §4.6. A nil result (with no error) means "not yet
// computable" (minutes-from-base mode whose base delivery log has no
// sent_at yet) and the candidate is skipped this tick, not failed.
func (p *Processor) scheduledTime(ctx context.Context, c *domain.DueStepCandidate) (*time.Time, error) {
	step := c.Step
	if step.DayAnchored() {
		hhmm := step.DelayTime
		if hhmm == "" {
			hhmm = c.Sequence.DefaultSendTime
		}
		hour, minute, err := parseHHMM(hhmm)
		if err != nil {
			return nil, err
		}

		anchorDay := c.Enrollment.StartedAt.Add(p.regionalOffset).AddDate(0, 0, step.DelayDays)
		regionalMidnight := time.Date(anchorDay.Year(), anchorDay.Month(), anchorDay.Day(), 0, 0, 0, 0, time.UTC)
		due := regionalMidnight.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute).Add(-p.regionalOffset)
		return &due, nil
	}

	var base time.Time
	if step.StepNumber == 1 {
		base = c.Enrollment.StartedAt
	} else {
		sentAt, err := p.sequences.LatestSentAtForStep(ctx, c.Enrollment.ID, step.StepNumber-1)
		if err != nil {
			return nil, fmt.Errorf("load previous step sent_at: %w", err)
		}
		if sentAt == nil {
			return nil, nil
		}
		base = *sentAt
	}
	due := base.Add(time.Duration(*step.DelayMinutes) * time.Minute)
	return &due, nil
}

func parseHHMM(v string) (int, int, error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, 0, fmt.Errorf("malformed HH:MM value %q", v)
	}
	hour, err := strconv.Atoi(v[0:2])
	if err != nil {
		return 0, 0, err
	}
	minute, err := strconv.Atoi(v[3:5])
	if err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

// dispatch renders and sends one due step, then writes the delivery log
// and advances (or doesn't) the enrollment cursor per spec.md §4.6.
func (p *Processor) dispatch(ctx context.Context, c *domain.DueStepCandidate, now time.Time) {
	if !c.Subscriber.IsActive() {
		return
	}

	brand, err := p.brandSettings.Get(ctx)
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("sequence: load brand settings failed")
		return
	}

	templateID := c.Step.TemplateID
	if templateID == "" {
		templateID = brand.DefaultTemplateID
	}
	if templateID == "" {
		templateID = defaultTemplateID
	}

	unsubscribeURL := fmt.Sprintf("%s/api/newsletter/unsubscribe/%s", p.siteURL, c.Subscriber.UnsubscribeToken)

	html, err := p.renderer.Render(ctx, render.Input{
		Subject:         c.Step.Subject,
		Content:         c.Step.Content,
		TemplateID:      templateID,
		Brand:           brand,
		SubscriberName:  c.Subscriber.Name,
		SubscriberEmail: c.Subscriber.Email,
		UnsubscribeURL:  unsubscribeURL,
		SiteURL:         p.siteURL,
		SequenceStepID:  c.Step.ID,
	})
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("sequence: render step content failed")
		return
	}

	result := p.provider.Send(ctx, provider.SendMessage{
		ToEmail:  c.Subscriber.Email,
		ToName:   c.Subscriber.Name,
		FromName: brand.SenderName,
		Subject:  c.Step.Subject,
		HTMLBody: html,
		ReplyTo:  nonEmpty(c.Sequence.ReplyTo, brand.ReplyTo),
	})

	log := &domain.DeliveryLog{
		SequenceID:     c.Sequence.ID,
		SequenceStepID: c.Step.ID,
		SubscriberID:   c.Subscriber.ID,
		Email:          c.Subscriber.Email,
		EmailSubject:   c.Step.Subject,
	}

	if !result.Success() {
		log.Status = domain.DeliveryStatusFailed
		log.ErrorMessage = result.Err.Error()
		if err := p.deliveryLogs.Create(ctx, log); err != nil {
			p.logger.WithField("error", err.Error()).Error("sequence: write failed delivery log failed")
		}
		return
	}

	log.Status = domain.DeliveryStatusSent
	log.ProviderMessageID = result.ProviderMessageID
	log.SentAt = &now
	if err := p.deliveryLogs.Create(ctx, log); err != nil {
		p.logger.WithField("error", err.Error()).WithField("provider_message_id", result.ProviderMessageID).Warn("sequence: write sent delivery log failed after successful send")
		return
	}

	enabledSteps, err := p.sequences.EnabledSteps(ctx, c.Sequence.ID)
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("sequence: load enabled steps for advance failed")
		return
	}

	var completedAt *time.Time
	if c.Step.StepNumber == len(enabledSteps) {
		completedAt = &now
	}
	if err := p.sequences.AdvanceEnrollment(ctx, c.Enrollment.ID, c.Step.StepNumber, completedAt); err != nil {
		p.logger.WithField("error", err.Error()).Error("sequence: advance enrollment failed")
	}
}

// Enroll creates one enrollment per active sequence on subscriber-confirm.
// A uniqueness conflict means the subscriber is already enrolled, which is
// not an error at this call site (spec.md §4.6).
func Enroll(ctx context.Context, sequences domain.SequenceRepository, subscriberID string) error {
	active, err := sequences.ListSequences(ctx)
	if err != nil {
		return fmt.Errorf("list sequences for auto-enroll: %w", err)
	}
	for _, seq := range active {
		if !seq.IsActive {
			continue
		}
		err := sequences.CreateEnrollment(ctx, &domain.SubscriberSequenceEnrollment{
			SubscriberID: subscriberID,
			SequenceID:   seq.ID,
			StartedAt:    time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("auto-enroll subscriber %s in sequence %s: %w", subscriberID, seq.ID, err)
		}
	}
	return nil
}

// EnrollExplicit implements the stricter per-API enrollment path of
// spec.md §4.6: missing/inactive subscriber or sequence, or an existing
// enrollment, are all errors rather than no-ops.
func EnrollExplicit(ctx context.Context, sequences domain.SequenceRepository, subscribers domain.SubscriberRepository, subscriberID, sequenceID string) error {
	sub, err := subscribers.GetByID(ctx, subscriberID)
	if err != nil {
		return err
	}
	if !sub.IsActive() {
		return domain.NewValidationError("subscriber %s is not active", subscriberID)
	}

	seq, err := sequences.GetSequence(ctx, sequenceID)
	if err != nil {
		return err
	}
	if !seq.IsActive {
		return domain.NewValidationError("sequence %s is not active", sequenceID)
	}

	if existing, err := sequences.GetEnrollment(ctx, subscriberID, sequenceID); err != nil {
		if _, ok := err.(*domain.ErrNotFound); !ok {
			return err
		}
	} else if existing != nil {
		return domain.NewValidationError("subscriber %s is already enrolled in sequence %s", subscriberID, sequenceID)
	}

	return sequences.CreateEnrollment(ctx, &domain.SubscriberSequenceEnrollment{
		SubscriberID: subscriberID,
		SequenceID:   sequenceID,
		StartedAt:    time.Now().UTC(),
	})
}

func nonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
