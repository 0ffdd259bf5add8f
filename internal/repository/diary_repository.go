package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

const diaryKey = "diary"

var ErrDiaryNotFound = errors.New("diary entry not found")

// DiaryRepository keeps all diary entries of an owner under one key,
// like TemplateRepository does for templates.
type DiaryRepository struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewDiaryRepository(store Store, logger *zap.Logger, now func() time.Time) *DiaryRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &DiaryRepository{store: store, logger: logger, now: now}
}

// List returns the entries newest first.
func (r *DiaryRepository) List(ctx context.Context) ([]model.DiaryEntry, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (r *DiaryRepository) Get(ctx context.Context, id string) (*model.DiaryEntry, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := diaryIndexOf(entries, id)
	if idx < 0 {
		return nil, ErrDiaryNotFound
	}
	return &entries[idx], nil
}

func (r *DiaryRepository) Create(ctx context.Context, date dates.Date, content string, sources []string) (*model.DiaryEntry, error) {
	now := r.now()
	entry := model.DiaryEntry{
		ID:               diaryID(now),
		Date:             date,
		Content:          content,
		SourceHistoryIDs: append([]string(nil), sources...),
		CreatedAt:        now,
	}

	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)
	if err := r.save(ctx, entries); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update replaces the content and stamps UpdatedAt.
func (r *DiaryRepository) Update(ctx context.Context, id, content string) (*model.DiaryEntry, error) {
	entries, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := diaryIndexOf(entries, id)
	if idx < 0 {
		return nil, ErrDiaryNotFound
	}

	now := r.now()
	entries[idx].Content = content
	entries[idx].UpdatedAt = &now
	if err := r.save(ctx, entries); err != nil {
		return nil, err
	}
	updated := entries[idx]
	return &updated, nil
}

func (r *DiaryRepository) Delete(ctx context.Context, id string) error {
	entries, err := r.load(ctx)
	if err != nil {
		return err
	}
	idx := diaryIndexOf(entries, id)
	if idx < 0 {
		return ErrDiaryNotFound
	}
	entries = append(entries[:idx], entries[idx+1:]...)
	return r.save(ctx, entries)
}

func (r *DiaryRepository) load(ctx context.Context) ([]model.DiaryEntry, error) {
	raw, err := r.store.Get(ctx, diaryKey)
	if err != nil {
		return nil, fmt.Errorf("load diary: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []model.DiaryEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		r.logger.Warn("discarding unreadable diary", zap.Error(err))
		return nil, nil
	}
	return entries, nil
}

func (r *DiaryRepository) save(ctx context.Context, entries []model.DiaryEntry) error {
	if entries == nil {
		entries = []model.DiaryEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode diary: %w", err)
	}
	if err := r.store.Set(ctx, diaryKey, payload); err != nil {
		return fmt.Errorf("save diary: %w", err)
	}
	return nil
}

// diaryID prefixes a random suffix with the creation time so ids sort by age.
func diaryID(at time.Time) string {
	return at.UTC().Format("2006-01-02_15-04-05") + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func diaryIndexOf(entries []model.DiaryEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
