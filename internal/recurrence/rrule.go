package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"daily-schedule/internal/model"
)

// ErrNoOccurrences is returned for templates that can never be due.
var ErrNoOccurrences = errors.New("template has no occurrences")

var weekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// firstDueHorizon bounds the search for the first occurrence; every pattern
// repeats within a year of its creation date.
const firstDueHorizon = 366

// RRule expresses t as an RFC 5545 rule starting at its first due date on or
// after creation (UTC midnight). Skipped dates are not part of the rule;
// callers export them as EXDATE.
func RRule(t model.RecurringTemplate) (*rrule.ROption, error) {
	created := t.CreatedDate
	opt := &rrule.ROption{Interval: 1}
	cfg := t.RepeatConfig

	switch t.Repeat {
	case model.RepeatDaily:
		opt.Freq = rrule.DAILY
	case model.RepeatEveryOtherDay:
		opt.Freq = rrule.DAILY
		opt.Interval = 2
	case model.RepeatIntervalDays:
		opt.Freq = rrule.DAILY
		opt.Interval = cfg.EffectiveInterval()
	case model.RepeatWeekday:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case model.RepeatWeekly:
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = []rrule.Weekday{weekdays[created.Weekday()]}
	case model.RepeatWeeklyDays:
		if !cfg.HasWeekdays() {
			return nil, ErrNoOccurrences
		}
		opt.Freq = rrule.WEEKLY
		opt.Byweekday = toRRuleWeekdays(cfg.Weekdays)
	case model.RepeatIntervalWeeks:
		opt.Freq = rrule.WEEKLY
		opt.Interval = cfg.EffectiveInterval()
		// Weeks are counted in 7-day blocks from the creation date.
		opt.Wkst = weekdays[created.Weekday()]
		if cfg.HasWeekdays() {
			opt.Byweekday = toRRuleWeekdays(cfg.Weekdays)
		} else {
			opt.Byweekday = []rrule.Weekday{weekdays[created.Weekday()]}
		}
	case model.RepeatMonthly:
		opt.Freq = rrule.MONTHLY
		day := created.DayOfMonth()
		if day <= 28 {
			opt.Bymonthday = []int{day}
			break
		}
		// Last existing day among 28..day clamps short months.
		for d := 28; d <= day; d++ {
			opt.Bymonthday = append(opt.Bymonthday, d)
		}
		opt.Bysetpos = []int{-1}
	default:
		return nil, fmt.Errorf("repeat %q has no rule", t.Repeat)
	}

	// DTSTART must be an occurrence itself. Skips are exported separately.
	pattern := t
	pattern.SkippedDates = nil
	first, ok := NextDue(created, pattern, firstDueHorizon)
	if !ok {
		return nil, ErrNoOccurrences
	}
	opt.Dtstart = first.Midnight(time.UTC)

	return opt, nil
}

func toRRuleWeekdays(days []int) []rrule.Weekday {
	seen := make(map[int]bool, len(days))
	out := make([]rrule.Weekday, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, weekdays[d])
	}
	return out
}
