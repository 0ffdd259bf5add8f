package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

const scheduleKeyPrefix = "schedule:"

func scheduleKey(date dates.Date) string {
	return scheduleKeyPrefix + date.String()
}

// ScheduleRepository persists one DailySchedule per date.
type ScheduleRepository struct {
	store  Store
	logger *zap.Logger
}

func NewScheduleRepository(store Store, logger *zap.Logger) *ScheduleRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRepository{store: store, logger: logger}
}

// Load returns the stored schedule, or an empty one when nothing usable is stored.
func (r *ScheduleRepository) Load(ctx context.Context, date dates.Date) (*model.DailySchedule, error) {
	empty := &model.DailySchedule{Date: date, Items: []model.DailyTaskInstance{}}

	raw, err := r.store.Get(ctx, scheduleKey(date))
	if err != nil {
		return nil, fmt.Errorf("load schedule %s: %w", date, err)
	}
	if len(raw) == 0 {
		return empty, nil
	}

	var schedule model.DailySchedule
	if err := json.Unmarshal(raw, &schedule); err != nil {
		r.logger.Warn("discarding unreadable schedule", zap.Stringer("date", date), zap.Error(err))
		return empty, nil
	}
	if !schedule.Date.Equal(date) {
		r.logger.Warn("discarding schedule stored under another date",
			zap.Stringer("date", date), zap.Stringer("stored", schedule.Date))
		return empty, nil
	}
	for _, item := range schedule.Items {
		if item.ID == "" {
			r.logger.Warn("discarding schedule with anonymous item", zap.Stringer("date", date))
			return empty, nil
		}
	}
	if schedule.Items == nil {
		schedule.Items = []model.DailyTaskInstance{}
	}
	return &schedule, nil
}

func (r *ScheduleRepository) Save(ctx context.Context, schedule *model.DailySchedule) error {
	if schedule.Items == nil {
		schedule.Items = []model.DailyTaskInstance{}
	}
	payload, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	if err := r.store.Set(ctx, scheduleKey(schedule.Date), payload); err != nil {
		return fmt.Errorf("save schedule %s: %w", schedule.Date, err)
	}
	return nil
}
