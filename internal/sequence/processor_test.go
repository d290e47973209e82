package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftloop/mailcore/internal/domain"
)

type fakeSequenceRepo struct {
	domain.SequenceRepository
	latestSentAt *time.Time
}

func (f *fakeSequenceRepo) LatestSentAtForStep(ctx context.Context, enrollmentID string, stepNumber int) (*time.Time, error) {
	return f.latestSentAt, nil
}

func TestScheduledTimeDayAnchored(t *testing.T) {
	p := &Processor{regionalOffset: 9 * time.Hour}
	started := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) // midnight UTC = 09:00 JST Jan 1
	candidate := &domain.DueStepCandidate{
		Enrollment: &domain.SubscriberSequenceEnrollment{StartedAt: started},
		Sequence:   &domain.Sequence{DefaultSendTime: "08:00"},
		Step:       &domain.SequenceStep{DelayDays: 2},
	}

	due, err := p.scheduledTime(context.Background(), candidate)
	require.NoError(t, err)
	require.NotNil(t, due)
	// Jan 3 08:00 JST == Jan 2 23:00 UTC
	assert.Equal(t, time.Date(2026, 1, 2, 23, 0, 0, 0, time.UTC), *due)
}

func TestScheduledTimeMinutesFromBaseStepOne(t *testing.T) {
	p := &Processor{}
	started := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	delay := 90
	candidate := &domain.DueStepCandidate{
		Enrollment: &domain.SubscriberSequenceEnrollment{StartedAt: started},
		Sequence:   &domain.Sequence{},
		Step:       &domain.SequenceStep{StepNumber: 1, DelayMinutes: &delay},
	}

	due, err := p.scheduledTime(context.Background(), candidate)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, started.Add(90*time.Minute), *due)
}

func TestScheduledTimeMinutesFromBaseWaitsForPreviousStep(t *testing.T) {
	delay := 30
	p := &Processor{sequences: &fakeSequenceRepo{latestSentAt: nil}}
	candidate := &domain.DueStepCandidate{
		Enrollment: &domain.SubscriberSequenceEnrollment{ID: "enr-1"},
		Sequence:   &domain.Sequence{},
		Step:       &domain.SequenceStep{StepNumber: 2, DelayMinutes: &delay},
	}

	due, err := p.scheduledTime(context.Background(), candidate)
	require.NoError(t, err)
	assert.Nil(t, due)
}

func TestScheduledTimeMinutesFromBaseUsesPreviousStepSentAt(t *testing.T) {
	sentAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	delay := 30
	p := &Processor{sequences: &fakeSequenceRepo{latestSentAt: &sentAt}}
	candidate := &domain.DueStepCandidate{
		Enrollment: &domain.SubscriberSequenceEnrollment{ID: "enr-1"},
		Sequence:   &domain.Sequence{},
		Step:       &domain.SequenceStep{StepNumber: 2, DelayMinutes: &delay},
	}

	due, err := p.scheduledTime(context.Background(), candidate)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, sentAt.Add(30*time.Minute), *due)
}

func TestParseHHMM(t *testing.T) {
	hour, minute, err := parseHHMM("08:30")
	require.NoError(t, err)
	assert.Equal(t, 8, hour)
	assert.Equal(t, 30, minute)

	_, _, err = parseHHMM("bad")
	assert.Error(t, err)
}
