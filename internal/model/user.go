package model

import (
	"strconv"
	"time"
)

// User is a Telegram account that owns a schedule.
type User struct {
	ID         uint  `gorm:"primaryKey"`
	TelegramID int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	// ReportsOff disables the morning summary for this user.
	ReportsOff bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Owner is the key the user's schedule is stored under.
func (u User) Owner() string {
	return strconv.FormatInt(u.TelegramID, 10)
}
