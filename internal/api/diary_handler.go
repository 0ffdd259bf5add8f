package api

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/model"
	"daily-schedule/internal/service"
)

type DiaryHandler struct {
	baseHandler
	schedules *service.ScheduleManager
}

func NewDiaryHandler(schedules *service.ScheduleManager, opts Options) *DiaryHandler {
	return &DiaryHandler{
		baseHandler: newBaseHandler(opts),
		schedules:   schedules,
	}
}

// List returns entries newest first. ?date=YYYY-MM-DD keeps one day.
func (h *DiaryHandler) List(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}

	var day *dates.Date
	if raw := string(ctx.QueryArgs().Peek("date")); raw != "" {
		d, err := dates.Parse(raw)
		if err != nil {
			h.respondInvalid(ctx, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = &d
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var entries []model.DiaryEntry
	err := h.schedules.Diary(owner, func(svc *service.DiaryService) error {
		var err error
		entries, err = svc.List(stdCtx, day)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	if entries == nil {
		entries = []model.DiaryEntry{}
	}
	h.respondSuccess(ctx, http.StatusOK, entries)
}

func (h *DiaryHandler) Get(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var entry *model.DiaryEntry
	err := h.schedules.Diary(owner, func(svc *service.DiaryService) error {
		var err error
		entry, err = svc.Get(stdCtx, id)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entry)
}

func (h *DiaryHandler) Create(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}

	var req DiaryCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	day := dates.FromTime(h.now().In(h.location))
	if req.Date != "" {
		d, err := dates.Parse(req.Date)
		if err != nil {
			h.respondInvalid(ctx, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = d
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var entry *model.DiaryEntry
	err := h.schedules.Diary(owner, func(svc *service.DiaryService) error {
		var err error
		entry, err = svc.Create(stdCtx, day, req.Content, req.SourceHistoryIDs)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, entry)
}

func (h *DiaryHandler) Update(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	var req DiaryUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var entry *model.DiaryEntry
	err := h.schedules.Diary(owner, func(svc *service.DiaryService) error {
		var err error
		entry, err = svc.Update(stdCtx, id, req.Content)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, entry)
}

func (h *DiaryHandler) Delete(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	err := h.schedules.Diary(owner, func(svc *service.DiaryService) error {
		return svc.Delete(stdCtx, id)
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"deleted": id})
}
