package service

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

func TestFormatContext(t *testing.T) {
	day := dates.MustParse("2026-01-19")

	tests := []struct {
		name  string
		items []model.DailyTaskInstance
		want  string
	}{
		{
			name: "empty",
			want: "",
		},
		{
			name:  "pending only",
			items: []model.DailyTaskInstance{{ID: "a", Text: "buy milk"}},
			want:  "Daily schedule for 2026-01-19 (Monday):\nPending:\n- buy milk",
		},
		{
			name:  "done only",
			items: []model.DailyTaskInstance{{ID: "a", Text: "run", Completed: true, RecurringID: "t"}},
			want:  "Daily schedule for 2026-01-19 (Monday):\nDone:\n- run (recurring)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatContext(day, tt.items))
		})
	}
}

func TestFormatContextBounds(t *testing.T) {
	day := dates.MustParse("2026-01-19")

	long := []model.DailyTaskInstance{{ID: "a", Text: strings.Repeat("x", 300)}}
	text := FormatContext(day, long)
	assert.Contains(t, text, "- "+strings.Repeat("x", maxItemLength-1)+"…")
	assert.NotContains(t, text, strings.Repeat("x", maxItemLength))

	var many []model.DailyTaskInstance
	for i := 0; i < 40; i++ {
		many = append(many, model.DailyTaskInstance{ID: fmt.Sprint(i), Text: fmt.Sprintf("task number %d %s", i, strings.Repeat("y", 20))})
	}
	text = FormatContext(day, many)
	assert.Equal(t, maxContextLength, utf8.RuneCountInString(text))
	assert.True(t, strings.HasSuffix(text, "…"))
	assert.NotContains(t, text, "task number 19 ")
}

func TestFormatContextRecurringLineFitsItemLimit(t *testing.T) {
	day := dates.MustParse("2026-01-19")

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "long",
			text: strings.Repeat("z", 150),
			want: strings.Repeat("z", maxItemLength-len(recurringSuffix)-1) + "…" + recurringSuffix,
		},
		{
			name: "exact fit",
			text: strings.Repeat("z", maxItemLength-len(recurringSuffix)),
			want: strings.Repeat("z", maxItemLength-len(recurringSuffix)) + recurringSuffix,
		},
		{
			name: "short",
			text: "stretch",
			want: "stretch" + recurringSuffix,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			items := []model.DailyTaskInstance{{ID: "t:2026-01-19", Text: tt.text, RecurringID: "t"}}
			text := FormatContext(day, items)

			line := strings.TrimPrefix(text[strings.LastIndex(text, "\n")+1:], "- ")
			assert.Equal(t, tt.want, line)
			assert.LessOrEqual(t, utf8.RuneCountInString(line), maxItemLength)
		})
	}
}
