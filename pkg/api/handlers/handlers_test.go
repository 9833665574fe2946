package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/marmos91/animbridge/pkg/catalog"
	"github.com/marmos91/animbridge/pkg/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	ready   bool
	status  *host.Status
	store   catalog.Store
	scanned []string
	scanErr error
}

func (f *fakeHost) Ready() bool            { return f.ready }
func (f *fakeHost) Status() *host.Status   { return f.status }
func (f *fakeHost) Catalog() catalog.Store { return f.store }

func (f *fakeHost) Scan(_ context.Context, root string) (*catalog.ScanResult, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	f.scanned = append(f.scanned, root)
	return &catalog.ScanResult{Root: root, Indexed: 2}, nil
}

func newStore(t *testing.T) catalog.Store {
	t.Helper()
	s := catalog.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &catalog.Entry{ID: "walk", Name: "Walk", Kind: catalog.KindAnimation, Path: "walk.json"}))
	require.NoError(t, s.Put(ctx, &catalog.Entry{ID: "tpose", Name: "T-Pose", Kind: catalog.KindPose, Path: "tpose.json"}))
	return s
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestLiveness(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(nil).Liveness(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, map[string]any{"service": "animbridge"}, resp.Data)
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name     string
		host     Host
		wantCode int
		wantErr  string
	}{
		{"NoHost", nil, http.StatusServiceUnavailable, "host not initialized"},
		{"NotBound", &fakeHost{}, http.StatusServiceUnavailable, "command socket not bound"},
		{"BoundNoCatalog", &fakeHost{ready: true, status: &host.Status{BoundPort: 9876}}, http.StatusOK, ""},
		{"BoundWithCatalog", &fakeHost{ready: true, store: catalog.NewMemoryStore()}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHealthHandler(tt.host).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			resp := decode(t, w)
			assert.Equal(t, tt.wantErr, resp.Error)
		})
	}
}

type downStore struct {
	*catalog.MemoryStore
}

func (downStore) Healthcheck(context.Context) error { return errors.New("connection refused") }

func TestReadinessCatalogDown(t *testing.T) {
	w := httptest.NewRecorder()
	NewHealthHandler(&fakeHost{ready: true, store: downStore{catalog.NewMemoryStore()}}).Readiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decode(t, w).Error, "catalog")
}

func TestStatus(t *testing.T) {
	t.Run("NotPublished", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewStatusHandler(&fakeHost{}).Get(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	})

	t.Run("Snapshot", func(t *testing.T) {
		h := &fakeHost{status: &host.Status{BoundPort: 9876, QueueDepth: 3, Blend: host.BlendStatus{State: "active"}}}
		w := httptest.NewRecorder()
		NewStatusHandler(h).Get(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Data host.Status `json:"data"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, 9876, body.Data.BoundPort)
		assert.Equal(t, 3, body.Data.QueueDepth)
		assert.Equal(t, "active", body.Data.Blend.State)
	})
}

func TestCatalogList(t *testing.T) {
	h := NewCatalogHandler(&fakeHost{store: newStore(t)})

	tests := []struct {
		query    string
		wantCode int
		wantIDs  []string
	}{
		{"", http.StatusOK, []string{"tpose", "walk"}},
		{"?kind=pose", http.StatusOK, []string{"tpose"}},
		{"?kind=animation", http.StatusOK, []string{"walk"}},
		{"?kind=mesh", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.List(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog"+tt.query, nil))
			require.Equal(t, tt.wantCode, w.Code)
			if tt.wantIDs == nil {
				return
			}

			var body struct {
				Data []catalog.Entry `json:"data"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			ids := make([]string, 0, len(body.Data))
			for _, e := range body.Data {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCatalogNotConfigured(t *testing.T) {
	w := httptest.NewRecorder()
	NewCatalogHandler(&fakeHost{}).List(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCatalogGet(t *testing.T) {
	h := NewCatalogHandler(&fakeHost{store: newStore(t)})
	r := chi.NewRouter()
	r.Get("/api/v1/catalog/{id}", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/walk", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	var p Problem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&p))
	assert.Equal(t, "Catalog entry not found: missing", p.Detail)
}

func TestCatalogScan(t *testing.T) {
	t.Run("DefaultRoot", func(t *testing.T) {
		fh := &fakeHost{}
		w := httptest.NewRecorder()
		NewCatalogHandler(fh).Scan(w, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/scan", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{""}, fh.scanned)
	})

	t.Run("ExplicitRoot", func(t *testing.T) {
		fh := &fakeHost{}
		w := httptest.NewRecorder()
		NewCatalogHandler(fh).Scan(w, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/scan",
			strings.NewReader(`{"root": "s3://bucket/anims"}`)))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"s3://bucket/anims"}, fh.scanned)
	})

	t.Run("BadBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewCatalogHandler(&fakeHost{}).Scan(w, httptest.NewRequest(http.MethodPost, "/api/v1/catalog/scan",
			strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unavailable", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewCatalogHandler(&fakeHost{scanErr: host.ErrScanUnavailable}).Scan(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/catalog/scan", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("Failure", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewCatalogHandler(&fakeHost{scanErr: errors.New("disk on fire")}).Scan(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/catalog/scan", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
