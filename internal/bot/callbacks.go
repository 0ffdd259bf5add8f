package bot

import (
	"fmt"
	"strings"

	"daily-schedule/internal/dates"
)

// Callback data stays under Telegram's 64 byte limit: one letter, the date and the instance id.
const (
	cbToggle       = "t"
	cbSkip         = "d"
	cbStop         = "s"
	cbStopTemplate = "x"
	cbDeleteDiary  = "y"
)

type callbackData struct {
	action string
	date   dates.Date
	id     string
}

func itemCallback(action string, date dates.Date, id string) string {
	return fmt.Sprintf("%s:%s:%s", action, date, id)
}

func templateCallback(id string) string {
	return cbStopTemplate + ":" + id
}

// diaryCallback fits the limit: diary ids are 52 bytes.
func diaryCallback(id string) string {
	return cbDeleteDiary + ":" + id
}

func parseCallback(data string) (callbackData, error) {
	action, rest, ok := strings.Cut(data, ":")
	if !ok || rest == "" {
		return callbackData{}, fmt.Errorf("malformed callback %q", data)
	}

	switch action {
	case cbStopTemplate, cbDeleteDiary:
		return callbackData{action: action, id: rest}, nil
	case cbToggle, cbSkip, cbStop:
		rawDate, id, ok := strings.Cut(rest, ":")
		if !ok || id == "" {
			return callbackData{}, fmt.Errorf("malformed callback %q", data)
		}
		date, err := dates.Parse(rawDate)
		if err != nil {
			return callbackData{}, fmt.Errorf("malformed callback %q: %w", data, err)
		}
		return callbackData{action: action, date: date, id: id}, nil
	default:
		return callbackData{}, fmt.Errorf("unknown callback action %q", action)
	}
}
