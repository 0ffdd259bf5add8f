package model

import (
	"time"

	"daily-schedule/internal/dates"
)

const MaxDiaryLength = 4000

// DiaryEntry is a free-text note an owner keeps about a day.
type DiaryEntry struct {
	ID               string     `json:"id"`
	Date             dates.Date `json:"date"`
	Content          string     `json:"content"`
	SourceHistoryIDs []string   `json:"source_history_ids,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}
