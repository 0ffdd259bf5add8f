package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

func tpl(repeat model.Repeat, created string, cfg *model.RepeatConfig) model.RecurringTemplate {
	return model.RecurringTemplate{
		ID:           "t1",
		Text:         "task",
		Repeat:       repeat,
		RepeatConfig: cfg,
		CreatedDate:  dates.MustParse(created),
	}
}

func TestIsDue(t *testing.T) {
	tests := []struct {
		name     string
		template model.RecurringTemplate
		due      []string
		notDue   []string
	}{
		{
			name:     "daily",
			template: tpl(model.RepeatDaily, "2026-01-01", nil),
			due:      []string{"2026-01-01", "2026-01-02", "2026-06-30"},
		},
		{
			name:     "weekday",
			template: tpl(model.RepeatWeekday, "2026-01-01", nil),
			due:      []string{"2026-01-19", "2026-01-23"},
			notDue:   []string{"2026-01-17", "2026-01-18"},
		},
		{
			name:     "every other day",
			template: tpl(model.RepeatEveryOtherDay, "2026-01-01", nil),
			due:      []string{"2026-01-01", "2026-01-03", "2026-03-02"},
			notDue:   []string{"2025-12-30", "2026-01-02", "2026-03-01"},
		},
		{
			name:     "weekly follows creation weekday",
			template: tpl(model.RepeatWeekly, "2026-01-19", nil),
			due:      []string{"2026-01-19", "2026-01-26"},
			notDue:   []string{"2026-01-20", "2026-01-25"},
		},
		{
			name:     "weekly days",
			template: tpl(model.RepeatWeeklyDays, "2026-01-19", &model.RepeatConfig{Weekdays: []int{1, 3, 5}}),
			due:      []string{"2026-01-19", "2026-01-21", "2026-01-23"},
			notDue:   []string{"2026-01-20", "2026-01-22", "2026-01-24"},
		},
		{
			name:     "weekly days without days",
			template: tpl(model.RepeatWeeklyDays, "2026-01-19", &model.RepeatConfig{}),
			notDue:   []string{"2026-01-19", "2026-01-20", "2026-01-25"},
		},
		{
			name:     "interval days",
			template: tpl(model.RepeatIntervalDays, "2026-01-01", &model.RepeatConfig{Interval: 3}),
			due:      []string{"2026-01-01", "2026-01-04", "2026-01-07"},
			notDue:   []string{"2026-01-02", "2026-01-03", "2025-12-29"},
		},
		{
			name:     "interval days defaults to one",
			template: tpl(model.RepeatIntervalDays, "2026-01-01", nil),
			due:      []string{"2026-01-01", "2026-01-02"},
			notDue:   []string{"2025-12-31"},
		},
		{
			name:     "interval weeks with weekdays",
			template: tpl(model.RepeatIntervalWeeks, "2026-01-19", &model.RepeatConfig{Interval: 2, Weekdays: []int{2, 4}}),
			due:      []string{"2026-01-20", "2026-01-22", "2026-02-03"},
			notDue:   []string{"2026-01-19", "2026-01-27", "2026-01-29"},
		},
		{
			name:     "interval weeks falls back to creation weekday",
			template: tpl(model.RepeatIntervalWeeks, "2026-01-19", &model.RepeatConfig{Interval: 2}),
			due:      []string{"2026-01-19", "2026-02-02"},
			notDue:   []string{"2026-01-26", "2026-01-20", "2026-01-12"},
		},
		{
			name:     "monthly",
			template: tpl(model.RepeatMonthly, "2026-01-15", nil),
			due:      []string{"2026-01-15", "2026-02-15", "2027-01-15"},
			notDue:   []string{"2026-02-14", "2026-02-16"},
		},
		{
			name:     "monthly clamps to short months",
			template: tpl(model.RepeatMonthly, "2026-01-31", nil),
			due:      []string{"2026-02-28", "2026-03-31", "2026-04-30", "2028-02-29"},
			notDue:   []string{"2026-03-28", "2026-03-30", "2028-02-28"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			for _, d := range tt.due {
				assert.True(t, IsDue(dates.MustParse(d), tt.template), "expected due on %s", d)
			}
			for _, d := range tt.notDue {
				assert.False(t, IsDue(dates.MustParse(d), tt.template), "expected not due on %s", d)
			}
		})
	}
}

func TestIsDueSkipOverridesPattern(t *testing.T) {
	template := tpl(model.RepeatDaily, "2026-01-01", nil)
	template.Skip(dates.MustParse("2026-01-05"))

	assert.False(t, IsDue(dates.MustParse("2026-01-05"), template))
	assert.True(t, IsDue(dates.MustParse("2026-01-06"), template))
}

func TestIsDueZeroRepeat(t *testing.T) {
	assert.False(t, IsDue(dates.MustParse("2026-01-05"), tpl("", "2026-01-01", nil)))
}

func TestDueOnIgnoresDatesBeforeCreation(t *testing.T) {
	weekly := tpl(model.RepeatWeekly, "2026-01-19", nil)
	daily := tpl(model.RepeatDaily, "2026-01-10", nil)
	daily.ID = "t2"

	due := DueOn(dates.MustParse("2026-01-12"), []model.RecurringTemplate{weekly, daily})
	require.Len(t, due, 1)
	assert.Equal(t, "t2", due[0].ID)
}

func TestNextDue(t *testing.T) {
	monthly := tpl(model.RepeatMonthly, "2026-01-31", nil)
	next, ok := NextDue(dates.MustParse("2026-02-01"), monthly, 60)
	require.True(t, ok)
	assert.Equal(t, "2026-02-28", next.String())

	never := tpl(model.RepeatWeeklyDays, "2026-01-01", nil)
	_, ok = NextDue(dates.MustParse("2026-01-01"), never, 30)
	assert.False(t, ok)
}

// Every rule must agree with an independent RFC 5545 expansion.
func TestRRuleMatchesIsDue(t *testing.T) {
	templates := []model.RecurringTemplate{
		tpl(model.RepeatDaily, "2026-01-07", nil),
		tpl(model.RepeatEveryOtherDay, "2026-01-07", nil),
		tpl(model.RepeatWeekday, "2026-01-07", nil),
		tpl(model.RepeatWeekly, "2026-01-07", nil),
		tpl(model.RepeatWeeklyDays, "2026-01-07", &model.RepeatConfig{Weekdays: []int{0, 2, 6}}),
		tpl(model.RepeatIntervalDays, "2026-01-07", &model.RepeatConfig{Interval: 5}),
		tpl(model.RepeatIntervalWeeks, "2026-01-07", &model.RepeatConfig{Interval: 3}),
		tpl(model.RepeatIntervalWeeks, "2026-01-07", &model.RepeatConfig{Interval: 2, Weekdays: []int{1, 3}}),
		tpl(model.RepeatMonthly, "2026-01-07", nil),
		tpl(model.RepeatMonthly, "2026-01-30", nil),
		tpl(model.RepeatMonthly, "2026-01-31", nil),
	}

	for _, template := range templates {
		template := template
		t.Run(string(template.Repeat), func(t *testing.T) {
			opt, err := RRule(template)
			require.NoError(t, err)
			first := dates.FromTime(opt.Dtstart)
			assert.True(t, IsDue(first, template), "dtstart %s", first)
			for d := template.CreatedDate; d.Before(first); d = d.AddDays(1) {
				assert.False(t, IsDue(d, template), "before dtstart %s", d)
			}

			rule, err := rrule.NewRRule(*opt)
			require.NoError(t, err)

			start := template.CreatedDate
			end := start.AddDays(730)
			expected := map[dates.Date]bool{}
			for _, occ := range rule.Between(start.Midnight(time.UTC), end.Midnight(time.UTC), true) {
				expected[dates.FromTime(occ.UTC())] = true
			}

			for d := start; d.Before(end); d = d.AddDays(1) {
				assert.Equal(t, expected[d], IsDue(d, template), "date %s", d)
			}
		})
	}
}

func TestRRuleStartsOnFirstDueDate(t *testing.T) {
	tests := []struct {
		name     string
		template model.RecurringTemplate
		want     string
	}{
		{
			name:     "weekly days after creation weekday",
			template: tpl(model.RepeatWeeklyDays, "2026-01-20", &model.RepeatConfig{Weekdays: []int{1, 3}}),
			want:     "2026-01-21",
		},
		{
			name:     "weekday created on saturday",
			template: tpl(model.RepeatWeekday, "2026-01-24", nil),
			want:     "2026-01-26",
		},
		{
			name:     "interval weeks with earlier weekday",
			template: tpl(model.RepeatIntervalWeeks, "2026-01-21", &model.RepeatConfig{Interval: 2, Weekdays: []int{1}}),
			want:     "2026-01-26",
		},
		{
			name:     "created on a due day",
			template: tpl(model.RepeatDaily, "2026-01-20", nil),
			want:     "2026-01-20",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			// A skipped first date still anchors the rule; it is exported as EXDATE.
			tt.template.SkippedDates = []dates.Date{dates.MustParse(tt.want)}

			opt, err := RRule(tt.template)
			require.NoError(t, err)
			assert.Equal(t, dates.MustParse(tt.want).Midnight(time.UTC), opt.Dtstart)
		})
	}
}

func TestRRuleWithoutOccurrences(t *testing.T) {
	_, err := RRule(tpl(model.RepeatWeeklyDays, "2026-01-07", nil))
	assert.ErrorIs(t, err, ErrNoOccurrences)

	_, err = RRule(tpl(model.RepeatNone, "2026-01-07", nil))
	assert.Error(t, err)
}
