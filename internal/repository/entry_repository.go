package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-schedule/internal/model"
)

// EntryRepository is the SQL-backed Store: one row per key.
type EntryRepository struct {
	db *gorm.DB
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var entry model.Entry
	err := r.db.WithContext(ctx).Where(&model.Entry{Key: key}).First(&entry).Error
	switch {
	case err == nil:
		return entry.Value, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("find entry: %w", err)
	}
}

func (r *EntryRepository) Set(ctx context.Context, key string, value []byte) error {
	entry := model.Entry{Key: key, Value: value}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

