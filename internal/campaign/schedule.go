package campaign

import (
	"time"

	"github.com/driftloop/mailcore/internal/domain"
)

// nextOccurrence computes the campaign's next scheduled_at after a
// successful recurring send, per spec.md §4.9. daily advances to the next
// calendar day at hour:minute; weekly advances to the next occurrence of
// dayOfWeek strictly after today; monthly advances to the same day next
// month at hour:minute, falling back to the last day of the target month
// when that day doesn't exist (e.g. Feb 30).
func nextOccurrence(c *domain.Campaign, from time.Time) time.Time {
	cfg := c.ScheduleConfig
	hour, minute := 0, 0
	if cfg != nil {
		hour, minute = cfg.Hour, cfg.Minute
	}

	switch c.ScheduleType {
	case domain.ScheduleTypeDaily:
		next := from.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, next.Location())

	case domain.ScheduleTypeWeekly:
		dayOfWeek := time.Monday
		if cfg != nil && cfg.DayOfWeek != nil {
			dayOfWeek = time.Weekday(*cfg.DayOfWeek)
		}
		next := from.AddDate(0, 0, 1)
		for next.Weekday() != dayOfWeek {
			next = next.AddDate(0, 0, 1)
		}
		return time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, next.Location())

	case domain.ScheduleTypeMonthly:
		dayOfMonth := from.Day()
		if cfg != nil && cfg.DayOfMonth != nil {
			dayOfMonth = *cfg.DayOfMonth
		}
		// time.Date normalizes a day-1 date with month.Month()+1 correctly
		// even across a year boundary; AddDate(0, 1, 0) on `from` directly
		// would instead carry `from`'s day-of-month into the overflow and
		// land in the wrong month entirely (e.g. Jan 31 + 1 month = Mar 3).
		firstOfTarget := time.Date(from.Year(), from.Month()+1, 1, hour, minute, 0, 0, from.Location())
		lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
		if dayOfMonth > lastDay {
			dayOfMonth = lastDay
		}
		return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), dayOfMonth, hour, minute, 0, 0, from.Location())

	default:
		return from
	}
}
