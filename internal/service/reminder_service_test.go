package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
)

func TestDailySummary(t *testing.T) {
	ctx := context.Background()
	manager := NewScheduleManager(repository.NewMemoryStore(), nil, fixedNow)
	user := model.User{TelegramID: 42}
	day := dates.MustParse("2026-01-19")

	err := manager.Do(user.Owner(), func(svc *ScheduleService) error {
		if _, err := svc.AddOneOff(ctx, day, "buy <milk>"); err != nil {
			return err
		}
		done, err := svc.AddOneOff(ctx, day, "email Bob")
		if err != nil {
			return err
		}
		if _, err := svc.Toggle(ctx, day, done.ID); err != nil {
			return err
		}
		if _, err := svc.AddRecurring(ctx, day, "stretch", model.RepeatDaily, nil); err != nil {
			return err
		}
		_, err = svc.AddRecurring(ctx, day, "pay rent", model.RepeatMonthly, nil)
		return err
	})
	require.NoError(t, err)

	summary, err := NewReminderService(manager).DailySummary(ctx, user, day.AddDays(1))
	require.NoError(t, err)

	assert.Contains(t, summary, "20.01.2026, вторник")
	assert.Contains(t, summary, "🟢 stretch <i>(♻️ каждый день)</i>")
	assert.NotContains(t, summary, "milk")
	assert.Contains(t, summary, "♻️ pay rent\n   📆 19.02.2026")

	summary, err = NewReminderService(manager).DailySummary(ctx, user, day)
	require.NoError(t, err)
	assert.Contains(t, summary, "🟢 buy &lt;milk&gt;")
	assert.Contains(t, summary, "✔️ email Bob")
}

func TestDescribeRepeat(t *testing.T) {
	tests := []struct {
		repeat model.Repeat
		cfg    *model.RepeatConfig
		want   string
	}{
		{model.RepeatWeekday, nil, "по будням"},
		{model.RepeatWeeklyDays, &model.RepeatConfig{Weekdays: []int{0, 1, 3}}, "по дням: Пн, Ср, Вс"},
		{model.RepeatIntervalDays, &model.RepeatConfig{Interval: 3}, "каждые 3 дн."},
		{model.RepeatIntervalWeeks, &model.RepeatConfig{Interval: 2, Weekdays: []int{5}}, "каждые 2 нед., Пт"},
		{model.RepeatIntervalWeeks, nil, "каждые 1 нед."},
		{model.RepeatNone, nil, "без повтора"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.repeat), func(t *testing.T) {
			assert.Equal(t, tt.want, DescribeRepeat(tt.repeat, tt.cfg))
		})
	}
}

func TestBuildDailySpec(t *testing.T) {
	spec, err := BuildDailySpec("08:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 8 * * *", spec)

	for _, bad := range []string{"8", "24:00", "08:60", "aa:bb"} {
		_, err := BuildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestSchedulerRegistersDailyJob(t *testing.T) {
	scheduler := NewSchedulerService(time.UTC, nil)
	_, err := scheduler.ScheduleDaily("07:30", "noop", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = scheduler.ScheduleDaily("7", "noop", func(context.Context) error { return nil })
	assert.Error(t, err)

	scheduler.Start()
	scheduler.Stop()
}
