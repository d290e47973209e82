package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/driftloop/mailcore/internal/domain"
)

func intPtr(v int) *int { return &v }

func TestNextOccurrenceDaily(t *testing.T) {
	c := &domain.Campaign{
		ScheduleType:   domain.ScheduleTypeDaily,
		ScheduleConfig: &domain.ScheduleConfig{Hour: 9, Minute: 30},
	}
	from := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	next := nextOccurrence(c, from)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), next)
}

func TestNextOccurrenceWeekly(t *testing.T) {
	c := &domain.Campaign{
		ScheduleType:   domain.ScheduleTypeWeekly,
		ScheduleConfig: &domain.ScheduleConfig{Hour: 8, Minute: 0, DayOfWeek: intPtr(int(time.Friday))},
	}
	// a Sunday
	from := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	next := nextOccurrence(c, from)
	assert.Equal(t, time.Friday, next.Weekday())
	assert.True(t, next.After(from))
}

func TestNextOccurrenceMonthlyClampsToMonthEnd(t *testing.T) {
	c := &domain.Campaign{
		ScheduleType:   domain.ScheduleTypeMonthly,
		ScheduleConfig: &domain.ScheduleConfig{Hour: 0, Minute: 0, DayOfMonth: intPtr(31)},
	}
	from := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	next := nextOccurrence(c, from)
	assert.Equal(t, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), next)
}

func TestNextOccurrenceMonthlyDefaultDayOfWeekAndMonth(t *testing.T) {
	c := &domain.Campaign{
		ScheduleType:   domain.ScheduleTypeMonthly,
		ScheduleConfig: &domain.ScheduleConfig{Hour: 12, Minute: 0},
	}
	from := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	next := nextOccurrence(c, from)
	assert.Equal(t, time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC), next)
}
