package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

const healthProbeTimeout = 2 * time.Second

// Pinger is satisfied by the database and the redis adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		deps: deps,
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// GetHealth answers 503 as soon as one dependency fails its ping.
func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	resp := healthResponse{Status: "healthy"}
	status := xhttp.StatusOK

	if len(h.deps) > 0 {
		resp.Checks = make(map[string]string, len(h.deps))
		pctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
		defer cancel()
		for name, dep := range h.deps {
			if err := dep.Ping(pctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unhealthy"
				status = xhttp.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
	}
	writeJSON(ctx, status, resp)
}
