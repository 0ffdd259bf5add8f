package api

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/export"
	"daily-schedule/internal/model"
	"daily-schedule/internal/service"
)

type TemplateHandler struct {
	baseHandler
	schedules *service.ScheduleManager
}

func NewTemplateHandler(schedules *service.ScheduleManager, opts Options) *TemplateHandler {
	return &TemplateHandler{
		baseHandler: newBaseHandler(opts),
		schedules:   schedules,
	}
}

func (h *TemplateHandler) List(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var templates []model.RecurringTemplate
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		templates, err = svc.Templates(stdCtx)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	if templates == nil {
		templates = []model.RecurringTemplate{}
	}
	h.respondSuccess(ctx, http.StatusOK, templates)
}

func (h *TemplateHandler) Update(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	var req TemplatePatchRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	patch, err := req.patch()
	if err != nil {
		h.respondInvalid(ctx, err.Error())
		return
	}

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	var updated *model.RecurringTemplate
	err = h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		var err error
		updated, err = svc.UpdateTemplate(stdCtx, id, patch)
		return err
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, updated)
}

// Delete stops a template. Stored days keep their instances.
func (h *TemplateHandler) Delete(ctx *fasthttp.RequestCtx) {
	owner := h.owner(ctx)
	if owner == "" {
		return
	}
	id, _ := ctx.UserValue("id").(string)

	stdCtx, cancel, log := h.requestContext(ctx)
	defer cancel()

	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		return svc.StopTemplate(stdCtx, id)
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]string{"deleted": id})
}

// Calendar exports templates as iCalendar. ?date=YYYY-MM-DD adds that day's one-off tasks.
func (h *TemplateHandler) Calendar(ctx *fasthttp.RequestCtx) {
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

	var buf bytes.Buffer
	err := h.schedules.Do(owner, func(svc *service.ScheduleService) error {
		templates, err := svc.Templates(stdCtx)
		if err != nil {
			return err
		}
		var schedule *model.DailySchedule
		if day != nil {
			if schedule, err = svc.Load(stdCtx, *day); err != nil {
				return err
			}
		}
		cal, err := export.Calendar(templates, schedule, h.now())
		if err != nil {
			return err
		}
		return export.Write(&buf, cal)
	})
	if err != nil {
		h.respondError(ctx, log, err)
		return
	}
	ctx.Response.Header.SetContentType("text/calendar; charset=utf-8")
	ctx.Response.Header.Set("Content-Disposition", `attachment; filename="schedule.ics"`)
	ctx.SetStatusCode(http.StatusOK)
	ctx.SetBody(buf.Bytes())
}
