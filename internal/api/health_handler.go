package api

import (
	"context"
	"net/http"

	"github.com/valyala/fasthttp"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	baseHandler
	checks map[string]HealthCheck
}

func NewHealthHandler(checks map[string]HealthCheck, opts Options) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(opts),
		checks:      checks,
	}
}

func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel, _ := h.requestContext(ctx)
	defer cancel()

	healthy := true
	services := make(map[string]bool, len(h.checks))
	for name, check := range h.checks {
		ok := check(stdCtx) == nil
		services[name] = ok
		healthy = healthy && ok
	}

	payload := map[string]interface{}{
		"timestamp": h.now().UTC(),
		"services":  services,
	}
	if healthy {
		h.respondSuccess(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, NewError("DEGRADED", payload))
}
