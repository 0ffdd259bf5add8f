package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/repository"
)

func TestDiaryCreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		err     error
	}{
		{name: "trimmed", content: "  a calm day \n", want: "a calm day"},
		{name: "empty", content: " \t ", err: ErrEmptyDiary},
		{name: "at limit", content: strings.Repeat("д", maxDiaryLength), want: strings.Repeat("д", maxDiaryLength)},
		{name: "too long", content: strings.Repeat("д", maxDiaryLength+1), err: ErrDiaryTooLong},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDiaryService(repository.NewMemoryStore(), nil, fixedNow)
			entry, err := svc.Create(context.Background(), dates.MustParse("2026-01-19"), tt.content, nil)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.True(t, IsCode(err, CodeInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, entry.Content)
		})
	}
}

func TestDiaryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewDiaryService(repository.NewMemoryStore(), nil, fixedNow)
	day := dates.MustParse("2026-01-19")
	next := day.AddDays(1)

	first, err := svc.Create(ctx, day, "gym", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, next, "rest", nil)
	require.NoError(t, err)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onDay, err := svc.List(ctx, &day)
	require.NoError(t, err)
	require.Len(t, onDay, 1)
	assert.Equal(t, "gym", onDay[0].Content)

	_, err = svc.Update(ctx, first.ID, "  ")
	assert.ErrorIs(t, err, ErrEmptyDiary)
	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "gym", got.Content)

	updated, err := svc.Update(ctx, first.ID, "gym and sauna")
	require.NoError(t, err)
	assert.Equal(t, "gym and sauna", updated.Content)
	assert.NotNil(t, updated.UpdatedAt)

	require.NoError(t, svc.Delete(ctx, first.ID))

	err = svc.Delete(ctx, first.ID)
	assert.ErrorIs(t, err, ErrDiaryNotFound)
	assert.True(t, IsCode(err, CodeNotFound))
	_, err = svc.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrDiaryNotFound)
	_, err = svc.Update(ctx, "missing", "x")
	assert.ErrorIs(t, err, ErrDiaryNotFound)
}

func TestScheduleManagerDiaryIsPerOwner(t *testing.T) {
	ctx := context.Background()
	manager := NewScheduleManager(repository.NewMemoryStore(), nil, fixedNow)
	day := dates.MustParse("2026-01-19")

	require.NoError(t, manager.Diary("alice", func(svc *DiaryService) error {
		_, err := svc.Create(ctx, day, "alice's note", nil)
		return err
	}))

	require.NoError(t, manager.Diary("bob", func(svc *DiaryService) error {
		entries, err := svc.List(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, entries)
		return nil
	}))

	// Diary entries live beside the schedule and do not show up as tasks.
	require.NoError(t, manager.Do("alice", func(svc *ScheduleService) error {
		loaded, err := svc.Load(ctx, day)
		require.NoError(t, err)
		assert.Empty(t, loaded.Items)
		return nil
	}))
}
