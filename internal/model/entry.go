package model

import "time"

// Entry is one key/value row of the SQL-backed store.
type Entry struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}
