package api

import (
	"encoding/json"
	"fmt"

	"github.com/samber/mo"

	"daily-schedule/internal/model"
	"daily-schedule/internal/repository"
)

// AddItemRequest adds a one-off task or, with a recurring repeat, a template.
type AddItemRequest struct {
	Text         string              `json:"text"`
	Repeat       model.Repeat        `json:"repeat"`
	RepeatConfig *model.RepeatConfig `json:"repeat_config"`
}

type AddItemResponse struct {
	// Item is nil when the new template is not due on the requested date.
	Item     *model.DailyTaskInstance `json:"item,omitempty"`
	Template *model.RecurringTemplate `json:"template,omitempty"`
}

// TemplatePatchRequest replaces only the fields present in the body.
// "repeat_config": null clears the configuration.
type TemplatePatchRequest struct {
	Text         *string         `json:"text"`
	Repeat       *model.Repeat   `json:"repeat"`
	RepeatConfig json.RawMessage `json:"repeat_config"`
}

func (r TemplatePatchRequest) patch() (repository.TemplatePatch, error) {
	patch := repository.TemplatePatch{
		Text:   mo.PointerToOption(r.Text),
		Repeat: mo.PointerToOption(r.Repeat),
	}
	if len(r.RepeatConfig) > 0 {
		var cfg *model.RepeatConfig
		if err := json.Unmarshal(r.RepeatConfig, &cfg); err != nil {
			return patch, fmt.Errorf("invalid repeat_config: %w", err)
		}
		patch.RepeatConfig = mo.Some(cfg)
	}
	return patch, nil
}

type ClearCompletedResponse struct {
	Removed int `json:"removed"`
}

// DiaryCreateRequest adds an entry. An empty date means today.
type DiaryCreateRequest struct {
	Date             string   `json:"date"`
	Content          string   `json:"content"`
	SourceHistoryIDs []string `json:"source_history_ids"`
}

type DiaryUpdateRequest struct {
	Content string `json:"content"`
}
