package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

const templatesKey = "recurring-templates"

var (
	ErrTemplateNotFound = errors.New("recurring template not found")
	ErrInvalidTemplate  = errors.New("invalid recurring template")
)

// TemplatePatch carries the fields an update replaces; absent options keep prior values.
type TemplatePatch struct {
	Text         mo.Option[string]
	Repeat       mo.Option[model.Repeat]
	RepeatConfig mo.Option[*model.RepeatConfig]
}

// TemplateRepository keeps the whole template collection under one key.
// Every call reads the collection, mutates it in memory and writes it back.
type TemplateRepository struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewTemplateRepository(store Store, logger *zap.Logger, now func() time.Time) *TemplateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &TemplateRepository{store: store, logger: logger, now: now}
}

func (r *TemplateRepository) List(ctx context.Context) ([]model.RecurringTemplate, error) {
	return r.load(ctx)
}

func (r *TemplateRepository) Get(ctx context.Context, id string) (*model.RecurringTemplate, error) {
	templates, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(templates, id)
	if idx < 0 {
		return nil, ErrTemplateNotFound
	}
	return &templates[idx], nil
}

func (r *TemplateRepository) Create(ctx context.Context, text string, repeat model.Repeat, cfg *model.RepeatConfig, created dates.Date) (*model.RecurringTemplate, error) {
	template := model.RecurringTemplate{
		ID:           uuid.NewString(),
		Text:         text,
		Repeat:       repeat,
		RepeatConfig: cfg.Clone(),
		CreatedDate:  created,
		CreatedAt:    r.now(),
	}
	if err := template.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	templates, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	templates = append(templates, template)
	if err := r.save(ctx, templates); err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *TemplateRepository) Update(ctx context.Context, id string, patch TemplatePatch) (*model.RecurringTemplate, error) {
	templates, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(templates, id)
	if idx < 0 {
		return nil, ErrTemplateNotFound
	}

	updated := templates[idx]
	if text, ok := patch.Text.Get(); ok {
		updated.Text = text
	}
	if repeat, ok := patch.Repeat.Get(); ok {
		updated.Repeat = repeat
	}
	if cfg, ok := patch.RepeatConfig.Get(); ok {
		updated.RepeatConfig = cfg.Clone()
	}
	if err := updated.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}

	templates[idx] = updated
	if err := r.save(ctx, templates); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	templates, err := r.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(templates, id)
	if idx < 0 {
		return ErrTemplateNotFound
	}
	templates = append(templates[:idx], templates[idx+1:]...)
	return r.save(ctx, templates)
}

// AddSkipDate suppresses the template's occurrence on date. Adding a date twice is a no-op.
func (r *TemplateRepository) AddSkipDate(ctx context.Context, id string, date dates.Date) error {
	templates, err := r.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(templates, id)
	if idx < 0 {
		return ErrTemplateNotFound
	}
	if !templates[idx].Skip(date) {
		return nil
	}
	return r.save(ctx, templates)
}

func (r *TemplateRepository) load(ctx context.Context) ([]model.RecurringTemplate, error) {
	raw, err := r.store.Get(ctx, templatesKey)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var templates []model.RecurringTemplate
	if err := json.Unmarshal(raw, &templates); err != nil {
		r.logger.Warn("discarding unreadable templates", zap.Error(err))
		return nil, nil
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			r.logger.Warn("discarding invalid templates", zap.Error(err))
			return nil, nil
		}
	}
	return templates, nil
}

func (r *TemplateRepository) save(ctx context.Context, templates []model.RecurringTemplate) error {
	if templates == nil {
		templates = []model.RecurringTemplate{}
	}
	payload, err := json.Marshal(templates)
	if err != nil {
		return fmt.Errorf("encode templates: %w", err)
	}
	if err := r.store.Set(ctx, templatesKey, payload); err != nil {
		return fmt.Errorf("save templates: %w", err)
	}
	return nil
}

func indexOf(templates []model.RecurringTemplate, id string) int {
	for i, t := range templates {
		if t.ID == id {
			return i
		}
	}
	return -1
}
