package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

const (
	maxContextLength = 500
	recurringSuffix  = " (recurring)"
)

// FormatContext renders the day's list as plain text to attach to a chat message.
// An empty list yields an empty string so that no context is sent at all.
func FormatContext(date dates.Date, items []model.DailyTaskInstance) string {
	if len(items) == 0 {
		return ""
	}
	if len(items) > maxItems {
		items = items[:maxItems]
	}

	var pending, done []string
	for _, item := range items {
		// The recurring marker counts towards the item limit.
		limit, suffix := maxItemLength, ""
		if item.IsRecurring() {
			suffix = recurringSuffix
			limit -= utf8.RuneCountInString(suffix)
		}
		line := "- " + truncateRunes(item.Text, limit) + suffix
		if item.Completed {
			done = append(done, line)
		} else {
			pending = append(pending, line)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Daily schedule for %s (%s):", date, date.Weekday())
	if len(pending) > 0 {
		b.WriteString("\nPending:\n")
		b.WriteString(strings.Join(pending, "\n"))
	}
	if len(done) > 0 {
		b.WriteString("\nDone:\n")
		b.WriteString(strings.Join(done, "\n"))
	}

	return truncateRunes(b.String(), maxContextLength)
}

// truncateRunes cuts s to at most limit runes, marking the cut with an ellipsis.
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
