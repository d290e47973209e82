package domain

import (
	"context"
	"time"
)

// Sequence is an ordered drip campaign (spec.md §3).
type Sequence struct {
	ID              string
	Name            string
	Description     string
	IsActive        bool
	DefaultSendTime string // "HH:MM" in the configured regional offset
	ReplyTo         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s *Sequence) Validate() error {
	if s.Name == "" {
		return NewValidationError("sequence name is required")
	}
	if !isValidHHMM(s.DefaultSendTime) {
		return NewValidationError("default_send_time must be HH:MM, got %q", s.DefaultSendTime)
	}
	return nil
}

// SequenceStep is one dispatch in a Sequence, governed by exactly one of
// two scheduling modes (spec.md §4.6).
type SequenceStep struct {
	ID           string
	SequenceID   string
	StepNumber   int
	DelayDays    int
	DelayTime    string // "HH:MM"; empty means fall back to Sequence.DefaultSendTime
	DelayMinutes *int   // non-nil (including 0) selects minutes-from-base mode
	Subject      string
	Content      string
	TemplateID   string
	IsEnabled    bool
}

// DayAnchored reports whether this step uses the day-anchored-to-wall-clock
// scheduling mode (spec.md §4.6).
func (s *SequenceStep) DayAnchored() bool {
	return s.DelayMinutes == nil
}

func (s *SequenceStep) Validate() error {
	if s.StepNumber < 1 {
		return NewValidationError("step_number must be >= 1")
	}
	if s.Subject == "" {
		return NewValidationError("step subject is required")
	}
	if s.DelayTime != "" && !isValidHHMM(s.DelayTime) {
		return NewValidationError("delay_time must be HH:MM, got %q", s.DelayTime)
	}
	if s.DelayMinutes != nil && *s.DelayMinutes < 0 {
		return NewValidationError("delay_minutes must be >= 0")
	}
	if s.DelayMinutes == nil && s.DelayDays < 0 {
		return NewValidationError("delay_days must be >= 0")
	}
	return nil
}

func isValidHHMM(v string) bool {
	if len(v) != 5 || v[2] != ':' {
		return false
	}
	h, m := v[0:2], v[3:5]
	for _, d := range h + m {
		if d < '0' || d > '9' {
			return false
		}
	}
	hh := int(h[0]-'0')*10 + int(h[1]-'0')
	mm := int(m[0]-'0')*10 + int(m[1]-'0')
	return hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59
}

// SubscriberSequenceEnrollment tracks one subscriber's progress through one
// Sequence (spec.md §3).
type SubscriberSequenceEnrollment struct {
	ID           string
	SubscriberID string
	SequenceID   string
	CurrentStep  int
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// DueStepCandidate is the result row of Store query 4.1-(a): an enrollment
// joined to the subscriber, sequence, and the next enabled step.
type DueStepCandidate struct {
	Enrollment *SubscriberSequenceEnrollment
	Subscriber *Subscriber
	Sequence   *Sequence
	Step       *SequenceStep
}

// SequenceRepository is the Store's sequence/step/enrollment CRUD and query
// surface.
type SequenceRepository interface {
	CreateSequence(ctx context.Context, s *Sequence) error
	UpdateSequence(ctx context.Context, s *Sequence) error
	DeleteSequence(ctx context.Context, id string) error
	GetSequence(ctx context.Context, id string) (*Sequence, error)
	ListSequences(ctx context.Context) ([]*Sequence, error)

	// ReplaceSteps atomically performs the insert-disabled-then-flip
	// sequence of spec.md §4.7.
	ReplaceSteps(ctx context.Context, sequenceID string, newSteps []*SequenceStep) error
	EnabledSteps(ctx context.Context, sequenceID string) ([]*SequenceStep, error)

	CreateEnrollment(ctx context.Context, e *SubscriberSequenceEnrollment) error
	GetEnrollment(ctx context.Context, subscriberID, sequenceID string) (*SubscriberSequenceEnrollment, error)
	AdvanceEnrollment(ctx context.Context, enrollmentID string, newCurrentStep int, completedAt *time.Time) error
	ListEnrollmentsBySequence(ctx context.Context, sequenceID string) ([]*SubscriberSequenceEnrollment, error)
	ListEnrollmentsBySubscriber(ctx context.Context, subscriberID string) ([]*SubscriberSequenceEnrollment, error)

	// DueStepCandidates implements Store query 4.1-(a): the join across
	// active enrollments, active subscribers, active sequences, and their
	// next enabled step.
	DueStepCandidates(ctx context.Context) ([]*DueStepCandidate, error)

	// LatestSentAtForStep returns sent_at of the most recent delivery log
	// for (enrollmentID, stepNumber), used by minutes-from-base scheduling
	// (spec.md §4.6).
	LatestSentAtForStep(ctx context.Context, enrollmentID string, stepNumber int) (*time.Time, error)
}
