package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
)

// DeleteOptions controls how a recurring instance is removed.
type DeleteOptions struct {
	// StopRecurring deletes the template instead of skipping only this date.
	StopRecurring bool
}

// ScheduleService manages one owner's daily lists and recurring templates.
// Mutations write back the stored rows of a day plus the row they touch;
// instances synthesized from templates are merged on read only.
type ScheduleService struct {
	schedules *repository.ScheduleRepository
	templates *repository.TemplateRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewScheduleService(store repository.Store, logger *zap.Logger, now func() time.Time) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		schedules: repository.NewScheduleRepository(store, logger),
		templates: repository.NewTemplateRepository(store, logger, now),
		logger:    logger,
		now:       now,
	}
}

// Load returns the materialized list of date without persisting it.
func (s *ScheduleService) Load(ctx context.Context, date dates.Date) (*model.DailySchedule, error) {
	stored, view, err := s.snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	return &model.DailySchedule{Date: stored.Date, Items: view}, nil
}

// AddOneOff appends a plain task to the day.
func (s *ScheduleService) AddOneOff(ctx context.Context, date dates.Date, text string) (*model.DailyTaskInstance, error) {
	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	stored, view, err := s.snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(view) >= maxItems {
		return nil, ErrListFull
	}

	item := model.DailyTaskInstance{
		ID:        uuid.NewString(),
		Text:      text,
		Timestamp: s.now(),
	}
	stored.Items = append(stored.Items, item)
	if err := s.schedules.Save(ctx, stored); err != nil {
		return nil, err
	}
	s.logger.Info("task added", zap.Stringer("date", date), zap.String("id", item.ID))
	return &item, nil
}

// AddRecurring creates a template anchored at date and stores its instance for
// date so it shows up immediately when the template is due that day.
// A non-recurring repeat adds a one-off task instead and returns a nil template.
func (s *ScheduleService) AddRecurring(ctx context.Context, date dates.Date, text string, repeat model.Repeat, cfg *model.RepeatConfig) (*model.RecurringTemplate, error) {
	if !repeat.Recurring() {
		_, err := s.AddOneOff(ctx, date, text)
		return nil, err
	}

	text, err := normalizeText(text)
	if err != nil {
		return nil, err
	}
	stored, view, err := s.snapshot(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(view) >= maxItems {
		return nil, ErrListFull
	}

	template, err := s.templates.Create(ctx, text, repeat, cfg, date)
	if err != nil {
		return nil, classify(err)
	}

	stored.Items = Materialize(date, stored.Items, []model.RecurringTemplate{*template}, s.now())
	if err := s.schedules.Save(ctx, stored); err != nil {
		return nil, err
	}
	s.logger.Info("recurring task added",
		zap.Stringer("date", date),
		zap.String("template", template.ID),
		zap.String("repeat", string(repeat)))
	return template, nil
}

// Toggle flips the completion of one instance. The template is not touched.
// An instance that only exists in the materialized view is stored from now on.
func (s *ScheduleService) Toggle(ctx context.Context, date dates.Date, id string) (*model.DailyTaskInstance, error) {
	stored, view, err := s.snapshot(ctx, date)
	if err != nil {
		return nil, err
	}

	idx, ok := stored.Find(id)
	if !ok {
		vidx, found := indexByID(view, id)
		if !found {
			return nil, ErrTaskNotFound
		}
		stored.Items = append(stored.Items, view[vidx])
		idx = len(stored.Items) - 1
	}

	stored.Items[idx].Completed = !stored.Items[idx].Completed
	if err := s.schedules.Save(ctx, stored); err != nil {
		return nil, err
	}
	item := stored.Items[idx]
	return &item, nil
}

// Delete removes an instance. For a recurring instance it either skips the date
// on the template or, with StopRecurring, deletes the template and all of its
// instances from the day.
func (s *ScheduleService) Delete(ctx context.Context, date dates.Date, id string, opts DeleteOptions) error {
	stored, view, err := s.snapshot(ctx, date)
	if err != nil {
		return err
	}
	idx, ok := indexByID(view, id)
	if !ok {
		return ErrTaskNotFound
	}
	item := view[idx]

	switch {
	case !item.IsRecurring():
		stored.Items = withoutID(stored.Items, id)
	case opts.StopRecurring:
		if err := s.templates.Delete(ctx, item.RecurringID); err != nil && !errors.Is(err, repository.ErrTemplateNotFound) {
			return err
		}
		stored.Items = withoutTemplate(stored.Items, item.RecurringID)
		s.logger.Info("recurring task stopped", zap.String("template", item.RecurringID))
	default:
		if err := s.templates.AddSkipDate(ctx, item.RecurringID, date); err != nil && !errors.Is(err, repository.ErrTemplateNotFound) {
			return err
		}
		stored.Items = withoutID(stored.Items, id)
		s.logger.Info("recurring task skipped",
			zap.String("template", item.RecurringID),
			zap.Stringer("date", date))
	}

	return s.schedules.Save(ctx, stored)
}

// ClearCompleted drops completed instances and returns how many were removed.
// Instances that were never stored cannot be completed, so only stored rows are scanned.
func (s *ScheduleService) ClearCompleted(ctx context.Context, date dates.Date) (int, error) {
	stored, err := s.schedules.Load(ctx, date)
	if err != nil {
		return 0, err
	}

	kept := make([]model.DailyTaskInstance, 0, len(stored.Items))
	for _, item := range stored.Items {
		if !item.Completed {
			kept = append(kept, item)
		}
	}
	removed := len(stored.Items) - len(kept)
	stored.Items = kept
	if err := s.schedules.Save(ctx, stored); err != nil {
		return 0, err
	}
	return removed, nil
}

// ClearAll empties the stored list of date. Templates stay, so due instances
// come back on the next load.
func (s *ScheduleService) ClearAll(ctx context.Context, date dates.Date) error {
	return s.schedules.Save(ctx, &model.DailySchedule{Date: date})
}

func (s *ScheduleService) Templates(ctx context.Context) ([]model.RecurringTemplate, error) {
	return s.templates.List(ctx)
}

func (s *ScheduleService) Template(ctx context.Context, id string) (*model.RecurringTemplate, error) {
	t, err := s.templates.Get(ctx, id)
	return t, classify(err)
}

// UpdateTemplate changes the rule of future instances; stored rows keep their snapshot.
func (s *ScheduleService) UpdateTemplate(ctx context.Context, id string, patch repository.TemplatePatch) (*model.RecurringTemplate, error) {
	if text, ok := patch.Text.Get(); ok {
		normalized, err := normalizeText(text)
		if err != nil {
			return nil, err
		}
		patch.Text = mo.Some(normalized)
	}
	t, err := s.templates.Update(ctx, id, patch)
	return t, classify(err)
}

// StopTemplate deletes a template without touching any stored day.
func (s *ScheduleService) StopTemplate(ctx context.Context, id string) error {
	return classify(s.templates.Delete(ctx, id))
}

// Context renders the day as plain text for the chat model.
func (s *ScheduleService) Context(ctx context.Context, date dates.Date) (string, error) {
	_, view, err := s.snapshot(ctx, date)
	if err != nil {
		return "", err
	}
	return FormatContext(date, view), nil
}

// snapshot returns the stored rows of date and the materialized view built from them.
// Writers save the stored rows only; synthesized instances are merged on read.
func (s *ScheduleService) snapshot(ctx context.Context, date dates.Date) (*model.DailySchedule, []model.DailyTaskInstance, error) {
	stored, err := s.schedules.Load(ctx, date)
	if err != nil {
		return nil, nil, err
	}
	templates, err := s.templates.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return stored, Materialize(date, stored.Items, templates, s.now()), nil
}

func normalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > maxItemLength {
		text = strings.TrimSpace(string([]rune(text)[:maxItemLength]))
	}
	return text, nil
}

func indexByID(items []model.DailyTaskInstance, id string) (int, bool) {
	for i, item := range items {
		if item.ID == id {
			return i, true
		}
	}
	return -1, false
}

func withoutID(items []model.DailyTaskInstance, id string) []model.DailyTaskInstance {
	out := make([]model.DailyTaskInstance, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

func withoutTemplate(items []model.DailyTaskInstance, templateID string) []model.DailyTaskInstance {
	out := make([]model.DailyTaskInstance, 0, len(items))
	for _, item := range items {
		if item.RecurringID != templateID {
			out = append(out, item)
		}
	}
	return out
}

// ScheduleManager hands out per-owner services and serialises calls of the same owner.
type ScheduleManager struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[string]*ownerLock
}

// ownerLock is dropped from the map once no call holds or waits for it.
type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func NewScheduleManager(store repository.Store, logger *zap.Logger, now func() time.Time) *ScheduleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleManager{
		store:  store,
		logger: logger,
		now:    now,
		locks:  make(map[string]*ownerLock),
	}
}

// Do runs fn with the owner's service while holding the owner's lock.
func (m *ScheduleManager) Do(owner string, fn func(svc *ScheduleService) error) error {
	release := m.acquire(owner)
	defer release()

	svc := NewScheduleService(repository.Scoped(m.store, owner), m.logger.With(zap.String("owner", owner)), m.now)
	return fn(svc)
}

// Diary runs fn with the owner's diary under the same lock as Do.
func (m *ScheduleManager) Diary(owner string, fn func(svc *DiaryService) error) error {
	release := m.acquire(owner)
	defer release()

	svc := NewDiaryService(repository.Scoped(m.store, owner), m.logger.With(zap.String("owner", owner)), m.now)
	return fn(svc)
}

func (m *ScheduleManager) acquire(owner string) func() {
	m.mu.Lock()
	lock, ok := m.locks[owner]
	if !ok {
		lock = &ownerLock{}
		m.locks[owner] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()

		m.mu.Lock()
		defer m.mu.Unlock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, owner)
		}
	}
}
