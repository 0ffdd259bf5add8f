// Package recurrence decides on which dates a recurring template is due.
package recurrence

import (
	"time"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

// IsDue reports whether t produces an instance on date.
// A skipped date is never due, whatever the pattern.
func IsDue(date dates.Date, t model.RecurringTemplate) bool {
	if t.IsSkipped(date) {
		return false
	}

	created := t.CreatedDate
	cfg := t.RepeatConfig

	switch t.Repeat {
	case model.RepeatDaily:
		return true
	case model.RepeatWeekday:
		wd := date.Weekday()
		return wd >= time.Monday && wd <= time.Friday
	case model.RepeatEveryOtherDay:
		days := dates.DaysBetween(created, date)
		return days >= 0 && days%2 == 0
	case model.RepeatWeekly:
		return date.Weekday() == created.Weekday()
	case model.RepeatWeeklyDays:
		return cfg.HasWeekday(date.Weekday())
	case model.RepeatIntervalDays:
		days := dates.DaysBetween(created, date)
		return days >= 0 && days%cfg.EffectiveInterval() == 0
	case model.RepeatIntervalWeeks:
		days := dates.DaysBetween(created, date)
		if days < 0 || (days/7)%cfg.EffectiveInterval() != 0 {
			return false
		}
		if cfg.HasWeekdays() {
			return cfg.HasWeekday(date.Weekday())
		}
		return date.Weekday() == created.Weekday()
	case model.RepeatMonthly:
		year, month := date.YearMonth()
		target := created.DayOfMonth()
		if last := dates.LastDayOfMonth(year, month); target > last {
			target = last
		}
		return date.DayOfMonth() == target
	default:
		return false
	}
}

// DueOn filters templates down to those due on date and not before their creation date.
func DueOn(date dates.Date, templates []model.RecurringTemplate) []model.RecurringTemplate {
	var due []model.RecurringTemplate
	for _, t := range templates {
		if date.Before(t.CreatedDate) {
			continue
		}
		if IsDue(date, t) {
			due = append(due, t)
		}
	}
	return due
}

// NextDue returns the first due date in [from, from+horizon) or false.
func NextDue(from dates.Date, t model.RecurringTemplate, horizon int) (dates.Date, bool) {
	if from.Before(t.CreatedDate) {
		from = t.CreatedDate
	}
	for i := 0; i < horizon; i++ {
		d := from.AddDays(i)
		if IsDue(d, t) {
			return d, true
		}
	}
	return dates.Date{}, false
}
