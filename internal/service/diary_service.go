package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
)

const maxDiaryLength = model.MaxDiaryLength

// DiaryService manages one owner's diary entries.
type DiaryService struct {
	entries *repository.DiaryRepository
	logger  *zap.Logger
}

func NewDiaryService(store repository.Store, logger *zap.Logger, now func() time.Time) *DiaryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiaryService{
		entries: repository.NewDiaryRepository(store, logger, now),
		logger:  logger,
	}
}

// List returns entries newest first. A non-nil date keeps only that day.
func (s *DiaryService) List(ctx context.Context, date *dates.Date) ([]model.DiaryEntry, error) {
	entries, err := s.entries.List(ctx)
	if err != nil || date == nil {
		return entries, err
	}
	filtered := entries[:0]
	for _, e := range entries {
		if e.Date == *date {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

func (s *DiaryService) Get(ctx context.Context, id string) (*model.DiaryEntry, error) {
	entry, err := s.entries.Get(ctx, id)
	return entry, classify(err)
}

func (s *DiaryService) Create(ctx context.Context, date dates.Date, content string, sources []string) (*model.DiaryEntry, error) {
	content, err := normalizeDiary(content)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.Create(ctx, date, content, sources)
	if err != nil {
		return nil, err
	}
	s.logger.Info("diary entry added", zap.Stringer("date", date), zap.String("id", entry.ID))
	return entry, nil
}

func (s *DiaryService) Update(ctx context.Context, id, content string) (*model.DiaryEntry, error) {
	content, err := normalizeDiary(content)
	if err != nil {
		return nil, err
	}
	entry, err := s.entries.Update(ctx, id, content)
	return entry, classify(err)
}

func (s *DiaryService) Delete(ctx context.Context, id string) error {
	if err := s.entries.Delete(ctx, id); err != nil {
		return classify(err)
	}
	s.logger.Info("diary entry deleted", zap.String("id", id))
	return nil
}

// normalizeDiary trims content; unlike task text it is rejected, not cut, when too long.
func normalizeDiary(content string) (string, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", ErrEmptyDiary
	case utf8.RuneCountInString(content) > maxDiaryLength:
		return "", ErrDiaryTooLong
	}
	return content, nil
}
