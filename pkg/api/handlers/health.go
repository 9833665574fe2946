package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/host"
)

// Host is the view of the running host the API reads from. host.Service
// implements it; every method is safe to call from HTTP goroutines.
type Host interface {
	Ready() bool
	Status() *host.Status
	Catalog() catalog.Store
	Scan(ctx context.Context, root string) (*catalog.ScanResult, error)
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	host Host
}

// NewHealthHandler creates a health handler. h may be nil, in which case
// readiness always fails.
func NewHealthHandler(h Host) *HealthHandler {
	return &HealthHandler{host: h}
}

// Liveness handles GET /health. It succeeds as long as the HTTP server
// answers.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "animbridge",
	}))
}

// Readiness handles GET /health/ready: 200 once the command socket is bound
// and the catalog, when configured, answers its health check.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.host == nil {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("host not initialized"))
		return
	}
	if !h.host.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("command socket not bound"))
		return
	}

	data := map[string]any{}
	if st := h.host.Status(); st != nil {
		data["port"] = st.BoundPort
	}

	if store := h.host.Catalog(); store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		start := time.Now()
		if err := store.Healthcheck(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, unhealthyResponse("catalog: "+err.Error()))
			return
		}
		data["catalog_latency"] = time.Since(start).String()
	}

	writeJSON(w, http.StatusOK, healthyResponse(data))
}
