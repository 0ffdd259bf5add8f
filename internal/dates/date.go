// Package dates implements calendar-date arithmetic on plain year/month/day
// values. Day differences are computed on civil day numbers, so neither the
// process timezone nor DST transitions can move a date.
package dates

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

const layout = "2006-01-02"

// Date is a calendar date without a time of day or a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// New normalises overflowing components the way time.Date does.
func New(year int, month time.Month, day int) Date {
	return FromTime(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime takes the calendar date of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current date in loc.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

// Parse reads a YYYY-MM-DD string.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Date {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// Midnight returns the start of the date in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

func (d Date) DayOfMonth() int {
	return d.Day
}

func (d Date) YearMonth() (int, time.Month) {
	return d.Year, d.Month
}

func (d Date) AddDays(n int) Date {
	return FromTime(d.utc().AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool { return d.number() < other.number() }
func (d Date) After(other Date) bool  { return d.number() > other.number() }
func (d Date) Equal(other Date) bool  { return d.number() == other.number() }

// DaysBetween returns b-a in whole days; negative when b precedes a.
func DaysBetween(a, b Date) int {
	return int(b.number() - a.number())
}

// LastDayOfMonth returns 28, 29, 30 or 31.
func LastDayOfMonth(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return now.With(first).EndOfMonth().Day()
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// number is the civil day number counted from 1970-01-01.
func (d Date) number() int64 {
	return d.utc().Unix() / 86400
}
