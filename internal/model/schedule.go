package model

import (
	"fmt"
	"sort"
	"time"

	"daily-schedule/internal/dates"
)

const (
	MaxTodoItems  = 20
	MaxItemLength = 100
)

// Repeat is the recurrence pattern of a template.
type Repeat string

const (
	RepeatNone          Repeat = "none"
	RepeatDaily         Repeat = "daily"
	RepeatEveryOtherDay Repeat = "every_other_day"
	RepeatWeekday       Repeat = "weekday"
	RepeatWeekly        Repeat = "weekly"
	RepeatMonthly       Repeat = "monthly"
	RepeatWeeklyDays    Repeat = "weekly_days"
	RepeatIntervalDays  Repeat = "interval_days"
	RepeatIntervalWeeks Repeat = "interval_weeks"
)

// RecurringPatterns lists every pattern a template may carry, in menu order.
var RecurringPatterns = []Repeat{
	RepeatDaily,
	RepeatEveryOtherDay,
	RepeatWeekday,
	RepeatWeekly,
	RepeatWeeklyDays,
	RepeatIntervalDays,
	RepeatIntervalWeeks,
	RepeatMonthly,
}

// ParseRepeat accepts a known pattern name, including "none".
func ParseRepeat(s string) (Repeat, error) {
	r := Repeat(s)
	if r == RepeatNone || r.Recurring() {
		return r, nil
	}
	return "", fmt.Errorf("unknown repeat pattern %q", s)
}

// Recurring reports whether r is one of the recurring patterns.
func (r Repeat) Recurring() bool {
	for _, p := range RecurringPatterns {
		if p == r {
			return true
		}
	}
	return false
}

func (r *Repeat) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = ""
		return nil
	}
	parsed, err := ParseRepeat(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RepeatConfig holds the pattern parameters; which fields matter depends on the pattern.
type RepeatConfig struct {
	Interval int   `json:"interval,omitempty"`
	Weekdays []int `json:"weekdays,omitempty"`
}

// EffectiveInterval clamps a missing or non-positive interval to 1.
func (c *RepeatConfig) EffectiveInterval() int {
	if c == nil || c.Interval < 1 {
		return 1
	}
	return c.Interval
}

// HasWeekday reports whether wd is configured. A nil config has no weekdays.
func (c *RepeatConfig) HasWeekday(wd time.Weekday) bool {
	if c == nil {
		return false
	}
	for _, d := range c.Weekdays {
		if d == int(wd) {
			return true
		}
	}
	return false
}

func (c *RepeatConfig) HasWeekdays() bool {
	return c != nil && len(c.Weekdays) > 0
}

func (c *RepeatConfig) Validate() error {
	if c == nil {
		return nil
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	for _, d := range c.Weekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range 0-6", d)
		}
	}
	return nil
}

// Clone returns a deep copy so snapshots never alias the template.
func (c *RepeatConfig) Clone() *RepeatConfig {
	if c == nil {
		return nil
	}
	out := &RepeatConfig{Interval: c.Interval}
	if len(c.Weekdays) > 0 {
		out.Weekdays = append([]int(nil), c.Weekdays...)
	}
	return out
}

// RecurringTemplate owns a recurrence rule; daily instances are derived from it.
type RecurringTemplate struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Repeat       Repeat        `json:"repeat"`
	RepeatConfig *RepeatConfig `json:"repeat_config,omitempty"`
	CreatedDate  dates.Date    `json:"created_date"`
	CreatedAt    time.Time     `json:"created_at"`
	SkippedDates []dates.Date  `json:"skipped_dates,omitempty"`
}

func (t RecurringTemplate) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("template without id")
	}
	if !t.Repeat.Recurring() {
		return fmt.Errorf("template %s: repeat %q is not recurring", t.ID, t.Repeat)
	}
	if t.CreatedDate.IsZero() {
		return fmt.Errorf("template %s: missing created_date", t.ID)
	}
	if err := t.RepeatConfig.Validate(); err != nil {
		return fmt.Errorf("template %s: %w", t.ID, err)
	}
	return nil
}

func (t RecurringTemplate) IsSkipped(d dates.Date) bool {
	for _, s := range t.SkippedDates {
		if s.Equal(d) {
			return true
		}
	}
	return false
}

// Skip adds d to the skipped set. Returns false when it was already there.
func (t *RecurringTemplate) Skip(d dates.Date) bool {
	if t.IsSkipped(d) {
		return false
	}
	t.SkippedDates = append(t.SkippedDates, d)
	sort.Slice(t.SkippedDates, func(i, j int) bool {
		return t.SkippedDates[i].Before(t.SkippedDates[j])
	})
	return true
}

// DailyTaskInstance is one row of a day's list, manual or derived from a template.
type DailyTaskInstance struct {
	ID           string        `json:"id"`
	Text         string        `json:"text"`
	Completed    bool          `json:"completed"`
	Timestamp    time.Time     `json:"timestamp"`
	RecurringID  string        `json:"recurring_id,omitempty"`
	Repeat       Repeat        `json:"repeat,omitempty"`
	RepeatConfig *RepeatConfig `json:"repeat_config,omitempty"`
}

func (i DailyTaskInstance) IsRecurring() bool {
	return i.RecurringID != ""
}

// InstanceID is the deterministic id of a template's instance on a date.
func InstanceID(templateID string, d dates.Date) string {
	return templateID + ":" + d.String()
}

// DailySchedule is the persisted list for one date, in display order.
type DailySchedule struct {
	Date  dates.Date          `json:"date"`
	Items []DailyTaskInstance `json:"items"`
}

func (s *DailySchedule) Find(id string) (int, bool) {
	for i, item := range s.Items {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}
