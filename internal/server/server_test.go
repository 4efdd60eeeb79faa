package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	mid "github.com/printqa/backend/internal/server/middleware"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/loader"
	"github.com/printqa/backend/pkg/mesh/meshtest"
)

func testApp() *mid.App {
	return &mid.App{
		Store:         store.NewMemoryStore(),
		Analyzer:      analysis.NewAnalyzer(loader.DefaultOptions()),
		MaxUploadSize: 1 << 20,
	}
}

func uploadRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", "cube.stl")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/analyses", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	New(testApp()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("got %d %q, want 200 OK", rec.Code, rec.Body.String())
	}
}

func TestRoutes_OpenAPI(t *testing.T) {
	e := New(testApp())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, meshtest.BinarySTL(meshtest.Cube())))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analyses/statistics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRoutes_RequireMasterKey(t *testing.T) {
	app := testApp()
	app.MasterAPIKey = "secret"
	e := New(app)

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		want   int
	}{
		{"health_is_public", http.MethodGet, "/health", "", http.StatusOK},
		{"list_needs_auth", http.MethodGet, "/api/analyses", "", http.StatusUnauthorized},
		{"list_with_key", http.MethodGet, "/api/analyses", "Bearer secret", http.StatusOK},
		{"delete_with_key", http.MethodDelete, "/api/analyses/1", "Bearer secret", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.auth != "" {
				req.Header.Set("Authorization", tc.auth)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("got %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
