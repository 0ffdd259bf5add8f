package service

import (
	"time"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/recurrence"
)

const (
	maxItems      = model.MaxTodoItems
	maxItemLength = model.MaxItemLength
)

// Materialize merges the persisted rows of date with instances of the templates due that day.
// Persisted order is kept and new instances are appended; a template that already has a row
// for the day is not repeated. The result is capped at MaxTodoItems and is never persisted here.
// at stamps the synthesized instances.
func Materialize(date dates.Date, persisted []model.DailyTaskInstance, templates []model.RecurringTemplate, at time.Time) []model.DailyTaskInstance {
	existing := make(map[string]bool, len(persisted))
	for _, item := range persisted {
		if item.IsRecurring() {
			existing[item.RecurringID] = true
		}
	}

	items := make([]model.DailyTaskInstance, 0, len(persisted))
	items = append(items, persisted...)
	for _, t := range recurrence.DueOn(date, templates) {
		if existing[t.ID] {
			continue
		}
		existing[t.ID] = true
		items = append(items, model.DailyTaskInstance{
			ID:           model.InstanceID(t.ID, date),
			Text:         t.Text,
			Completed:    false,
			Timestamp:    at,
			RecurringID:  t.ID,
			Repeat:       t.Repeat,
			RepeatConfig: t.RepeatConfig.Clone(),
		})
	}

	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}
