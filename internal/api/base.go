package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"daily-schedule/internal/dates"
	"daily-schedule/internal/service"
)

const (
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"

	codeUnauthorized = "UNAUTHORIZED"
)

// Options carry what every handler needs besides its service.
type Options struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
	// Location resolves the "today" date alias.
	Location *time.Location
	Now      func() time.Time
}

type baseHandler struct {
	logger   *zap.Logger
	timeout  time.Duration
	location *time.Location
	now      func() time.Time
}

func newBaseHandler(opts Options) baseHandler {
	h := baseHandler{
		logger:   opts.Logger,
		timeout:  opts.RequestTimeout,
		location: opts.Location,
		now:      opts.Now,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.timeout <= 0 {
		h.timeout = 5 * time.Second
	}
	if h.location == nil {
		h.location = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// requestContext derives a deadline-bound context and tags the response with a request id.
func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc, *zap.Logger) {
	reqID := strings.TrimSpace(string(ctx.Request.Header.Peek(headerRequestID)))
	if reqID == "" {
		reqID = uuid.NewString()
	}
	ctx.Response.Header.Set(headerRequestID, reqID)

	stdCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
	return stdCtx, cancel, h.logger.With(zap.String("request_id", reqID))
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload Envelope) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

func (h baseHandler) respondSuccess(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	h.respondJSON(ctx, status, NewSuccess(data))
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, log *zap.Logger, err error) {
	status, code := mapError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
		message = "internal error"
	}
	h.respondJSON(ctx, status, NewError(code, message))
}

func (h baseHandler) respondInvalid(ctx *fasthttp.RequestCtx, message string) {
	h.respondJSON(ctx, http.StatusBadRequest, NewError(string(service.CodeInvalid), message))
}

// owner reads the caller id and answers 401 when it is missing.
func (h baseHandler) owner(ctx *fasthttp.RequestCtx) string {
	owner := strings.TrimSpace(string(ctx.Request.Header.Peek(headerUserID)))
	if owner == "" {
		h.respondJSON(ctx, http.StatusUnauthorized, NewError(codeUnauthorized, "missing user id"))
	}
	return owner
}

// date parses the {date} path parameter. "today" resolves in the configured location.
func (h baseHandler) date(ctx *fasthttp.RequestCtx) (dates.Date, bool) {
	raw, _ := ctx.UserValue("date").(string)
	if raw == "today" {
		return dates.FromTime(h.now().In(h.location)), true
	}
	d, err := dates.Parse(raw)
	if err != nil {
		h.respondInvalid(ctx, "invalid date, expected YYYY-MM-DD")
		return dates.Date{}, false
	}
	return d, true
}

func mapError(err error) (int, string) {
	switch {
	case service.IsCode(err, service.CodeInvalid):
		return http.StatusBadRequest, string(service.CodeInvalid)
	case service.IsCode(err, service.CodeNotFound):
		return http.StatusNotFound, string(service.CodeNotFound)
	default:
		return http.StatusInternalServerError, string(service.CodeInternal)
	}
}
