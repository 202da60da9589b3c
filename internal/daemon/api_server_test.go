package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"mycinema/internal/logging"
	"mycinema/internal/runner"
	"mycinema/internal/services"
	"mycinema/internal/titlesource"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/sync", "/api/sync"},
		{"/api/catalog", "/api/catalog"},
		{"/api/update-metadata", "/api/update-metadata"},
		{"/api/find-links", "/api/find-links"},
		{"/api/catalog/12", "/api/catalog/{id}"},
		{"/api/catalog/12/links", "/api/catalog/{id}/links"},
		{"/api/catalog/12/links/", "/api/catalog/{id}/links"},
		{"/favicon.ico", "/other"},
	}
	for _, tt := range tests {
		if got := normalizeRoute(tt.path); got != tt.want {
			t.Fatalf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusTeapot},
		{"missing header", "abc", "", http.StatusUnauthorized},
		{"wrong scheme", "abc", "Basic abc", http.StatusUnauthorized},
		{"wrong token", "abc", "Bearer abd", http.StatusUnauthorized},
		{"valid", "abc", "Bearer abc", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			authMiddleware(tt.token, next)(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestWriteFailureMapsErrorClasses(t *testing.T) {
	srv := &apiServer{logger: logging.NewNop()}
	tests := []struct {
		err  error
		want int
	}{
		{runner.ErrRunInProgress, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", runner.ErrRunInProgress), http.StatusConflict},
		{services.Wrap(services.ErrValidation, "catalog", "import", "backup is empty", nil), http.StatusBadRequest},
		{fmt.Errorf("%w %q", titlesource.ErrUnknownList, "nope"), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "catalog", "get item", "item 4", nil), http.StatusNotFound},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.writeFailure(w, tt.err)
		if w.Code != tt.want {
			t.Fatalf("writeFailure(%v) = %d, want %d", tt.err, w.Code, tt.want)
		}
		var payload map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
			t.Fatalf("expected error payload, got %q", w.Body.String())
		}
	}
}
