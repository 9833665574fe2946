package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/host"
)

// CatalogHandler serves the asset catalog.
type CatalogHandler struct {
	host Host
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(h Host) *CatalogHandler {
	return &CatalogHandler{host: h}
}

// ScanRequest is the optional body of POST /api/v1/catalog/scan.
type ScanRequest struct {
	Root string `json:"root,omitempty"`
}

// List handles GET /api/v1/catalog?kind=animation|pose.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != catalog.KindAnimation && kind != catalog.KindPose {
		BadRequest(w, "kind must be 'animation' or 'pose'")
		return
	}

	entries, err := store.List(r.Context(), kind)
	if err != nil {
		logger.Error("Catalog list failed", logger.KeyError, err)
		InternalServerError(w, "Failed to list catalog")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(entries))
}

// Get handles GET /api/v1/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	entry, err := store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			NotFound(w, "Catalog entry not found: "+id)
			return
		}
		InternalServerError(w, "Failed to get catalog entry")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(entry))
}

// Scan handles POST /api/v1/catalog/scan. The body is optional; without a
// root the configured library is scanned.
func (h *CatalogHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			BadRequest(w, "Invalid request body")
			return
		}
	}

	res, err := h.host.Scan(r.Context(), req.Root)
	if err != nil {
		if errors.Is(err, host.ErrScanUnavailable) {
			ServiceUnavailable(w, err.Error())
			return
		}
		logger.Error("Catalog scan failed", logger.KeyError, err)
		InternalServerError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse(res))
}

func (h *CatalogHandler) store(w http.ResponseWriter) (catalog.Store, bool) {
	store := h.host.Catalog()
	if store == nil {
		ServiceUnavailable(w, "Catalog is not configured")
		return nil, false
	}
	return store, true
}
