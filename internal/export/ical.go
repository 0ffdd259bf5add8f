package export

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"daily-schedule/internal/model"
	"daily-schedule/internal/recurrence"
)

const (
	productID = "-//daily-schedule//Daily Schedule//EN"
	uidDomain = "@daily-schedule"
)

// Calendar builds a VCALENDAR with one VTODO per template and one per
// one-off task of day. day may be nil. stamp is written as DTSTAMP.
func Calendar(templates []model.RecurringTemplate, day *model.DailySchedule, stamp time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, t := range templates {
		todo, err := templateTodo(t, stamp)
		if errors.Is(err, recurrence.ErrNoOccurrences) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cal.Children = append(cal.Children, todo)
	}

	if day != nil {
		for _, item := range day.Items {
			// Recurring rows are covered by their template.
			if item.IsRecurring() {
				continue
			}
			cal.Children = append(cal.Children, itemTodo(item, day, stamp))
		}
	}
	return cal, nil
}

// Write encodes cal as text/calendar.
func Write(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

func templateTodo(t model.RecurringTemplate, stamp time.Time) (*ical.Component, error) {
	rule, err := recurrence.RRule(t)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}

	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, t.ID+uidDomain)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	todo.Props.SetText(ical.PropSummary, t.Text)
	todo.Props.SetDate(ical.PropDateTimeStart, rule.Dtstart)
	todo.Props.SetRecurrenceRule(rule)
	for _, skipped := range t.SkippedDates {
		prop := ical.NewProp(ical.PropExceptionDates)
		prop.SetDate(skipped.Midnight(time.UTC))
		todo.Props.Add(prop)
	}
	if !t.CreatedAt.IsZero() {
		todo.Props.SetDateTime(ical.PropCreated, t.CreatedAt.UTC())
	}
	return todo, nil
}

func itemTodo(item model.DailyTaskInstance, day *model.DailySchedule, stamp time.Time) *ical.Component {
	todo := ical.NewComponent(ical.CompToDo)
	todo.Props.SetText(ical.PropUID, item.ID+uidDomain)
	todo.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	todo.Props.SetText(ical.PropSummary, item.Text)
	todo.Props.SetDate(ical.PropDateTimeStart, day.Date.Midnight(time.UTC))
	if item.Completed {
		todo.Props.SetText(ical.PropStatus, "COMPLETED")
	} else {
		todo.Props.SetText(ical.PropStatus, "NEEDS-ACTION")
	}
	return todo
}
