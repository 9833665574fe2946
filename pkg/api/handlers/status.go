package handlers

import "net/http"

// StatusHandler serves the host status snapshot.
type StatusHandler struct {
	host Host
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(h Host) *StatusHandler {
	return &StatusHandler{host: h}
}

// Get handles GET /api/v1/status. The snapshot is published by the host
// thread after every tick, so reading it never touches host state.
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := h.host.Status()
	if st == nil {
		ServiceUnavailable(w, "Host status not yet available")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(st))
}
