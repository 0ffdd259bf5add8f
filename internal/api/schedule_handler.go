package api

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"daily-schedule/internal/model"
	"daily-schedule/internal/service"
)

type ScheduleHandler struct {
	baseHandler
	schedules *service.ScheduleManager
}

func NewScheduleHandler(schedules *service.ScheduleManager, opts Options) *ScheduleHandler {
	return &ScheduleHandler{
		baseHandler: newBaseHandler(opts),
		schedules:   schedules,
	}
}

// Get returns the materialized list of a day.
func (h *ScheduleHandler) Get(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var day *model.DailySchedule
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		day, err = svc.Load(stdCtx, date)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, day)
}

// Context returns the plain-text schedule attached to chat messages.
func (h *ScheduleHandler) Context(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var text string
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		text, err = svc.Context(stdCtx, date)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	ctx.Response.Header.SetContentType("text/plain; charset=utf-8")
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBodyString(text)
}

func (h *ScheduleHandler) AddItem(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var resp AddItemResponse
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		if !req.Repeat.Recurring() {
			item, err := svc.AddOneOff(stdCtx, date, req.Text)
			resp.Item = item
			return err
		}

		template, err := svc.AddRecurring(stdCtx, date, req.Text, req.Repeat, req.RepeatConfig)
		if err != nil {
			return err
		}
		resp.Template = template

		day, err := svc.Load(stdCtx, date)
		if err != nil {
			return err
		}
		if idx, ok := day.Find(model.InstanceID(template.ID, date)); ok {
			resp.Item = &day.Items[idx]
		}
		return nil
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	log.Debug("item added", zap.String("owner", owner), zap.Stringer("date", date))
	h.respondSuccess(ctx, http.StatusCreated, resp)
}

func (h *ScheduleHandler) Toggle(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var item *model.DailyTaskInstance
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		item, err = svc.Toggle(stdCtx, date, id)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, item)
}

// DeleteItem removes an item; ?stop=true also ends its recurrence.
func (h *ScheduleHandler) DeleteItem(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}
	id, _ := ctx.UserValue("id").(string)
	opts := service.DeleteOptions{StopRecurring: ctx.QueryArgs().GetBool("stop")}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		return svc.Delete(stdCtx, date, id, opts)
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"deleted": id})
}

func (h *ScheduleHandler) ClearCompleted(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var removed int
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		removed, err = svc.ClearCompleted(stdCtx, date)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, ClearCompletedResponse{Removed: removed})
}

func (h *ScheduleHandler) ClearAll(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	date, ok := h.date(ctx)
	if !ok {
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		return svc.ClearAll(stdCtx, date)
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"cleared": date.String()})
}
