package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-schedule/internal/dates"
)

func TestParseRepeat(t *testing.T) {
	for _, p := range RecurringPatterns {
		got, err := ParseRepeat(string(p))
		require.NoError(t, err)
		assert.True(t, got.Recurring())
	}

	none, err := ParseRepeat("none")
	require.NoError(t, err)
	assert.False(t, none.Recurring())

	_, err = ParseRepeat("yearly")
	assert.Error(t, err)
}

func TestRepeatJSONRejectsUnknown(t *testing.T) {
	var tpl RecurringTemplate
	err := json.Unmarshal([]byte(`{"id":"a","repeat":"fortnightly","created_date":"2026-01-01"}`), &tpl)
	assert.Error(t, err)
}

func TestRepeatConfig(t *testing.T) {
	var nilCfg *RepeatConfig
	assert.Equal(t, 1, nilCfg.EffectiveInterval())
	assert.False(t, nilCfg.HasWeekdays())
	assert.NoError(t, nilCfg.Validate())

	cfg := &RepeatConfig{Interval: 0, Weekdays: []int{1, 3}}
	assert.Equal(t, 1, cfg.EffectiveInterval())
	assert.True(t, cfg.HasWeekday(time.Wednesday))
	assert.False(t, cfg.HasWeekday(time.Tuesday))

	assert.Error(t, (&RepeatConfig{Weekdays: []int{7}}).Validate())
	assert.Error(t, (&RepeatConfig{Interval: -2}).Validate())

	clone := cfg.Clone()
	clone.Weekdays[0] = 5
	assert.Equal(t, 1, cfg.Weekdays[0])
}

func TestTemplateSkip(t *testing.T) {
	tpl := RecurringTemplate{ID: "t1", Repeat: RepeatDaily, CreatedDate: dates.MustParse("2026-01-01")}
	require.NoError(t, tpl.Validate())

	assert.True(t, tpl.Skip(dates.MustParse("2026-01-05")))
	assert.True(t, tpl.Skip(dates.MustParse("2026-01-03")))
	assert.False(t, tpl.Skip(dates.MustParse("2026-01-05")))
	assert.Equal(t, []dates.Date{dates.MustParse("2026-01-03"), dates.MustParse("2026-01-05")}, tpl.SkippedDates)
	assert.True(t, tpl.IsSkipped(dates.MustParse("2026-01-03")))
	assert.False(t, tpl.IsSkipped(dates.MustParse("2026-01-04")))
}

func TestTemplateValidate(t *testing.T) {
	base := RecurringTemplate{ID: "t1", Repeat: RepeatWeekly, CreatedDate: dates.MustParse("2026-01-01")}

	noID := base
	noID.ID = ""
	assert.Error(t, noID.Validate())

	none := base
	none.Repeat = RepeatNone
	assert.Error(t, none.Validate())

	noDate := base
	noDate.CreatedDate = dates.Date{}
	assert.Error(t, noDate.Validate())
}

func TestScheduleFind(t *testing.T) {
	s := DailySchedule{Items: []DailyTaskInstance{{ID: "a"}, {ID: InstanceID("t1", dates.MustParse("2026-01-02"))}}}
	idx, ok := s.Find("t1:2026-01-02")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
	_, ok = s.Find("missing")
	assert.False(t, ok)
}
