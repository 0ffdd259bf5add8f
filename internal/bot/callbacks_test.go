package bot

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
)

func TestCallbackRoundTrip(t *testing.T) {
	date := dates.MustParse("2026-01-19")
	instanceID := model.InstanceID(uuid.NewString(), date)

	for _, action := range []string{cbToggle, cbSkip, cbStop} {
		data := itemCallback(action, date, instanceID)
		assert.LessOrEqual(t, len(data), 64, "telegram limits callback data to 64 bytes")

		parsed, err := parseCallback(data)
		require.NoError(t, err)
		assert.Equal(t, action, parsed.action)
		assert.Equal(t, date, parsed.date)
		assert.Equal(t, instanceID, parsed.id)
	}

	templateID := uuid.NewString()
	parsed, err := parseCallback(templateCallback(templateID))
	require.NoError(t, err)
	assert.Equal(t, cbStopTemplate, parsed.action)
	assert.Equal(t, templateID, parsed.id)
	assert.True(t, parsed.date.IsZero())

	diaryID := "2026-01-19_09-00-00_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	data := diaryCallback(diaryID)
	assert.LessOrEqual(t, len(data), 64)
	parsed, err = parseCallback(data)
	require.NoError(t, err)
	assert.Equal(t, cbDeleteDiary, parsed.action)
	assert.Equal(t, diaryID, parsed.id)
}

func TestParseCallbackRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "no payload", data: "t:"},
		{name: "unknown action", data: "z:2026-01-19:abc"},
		{name: "missing id", data: "t:2026-01-19"},
		{name: "bad date", data: "d:2026-13-40:abc"},
		{name: "legacy prefix", data: "complete:12"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCallback(tt.data)
			assert.Error(t, err)
		})
	}
}
