package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/printqa/backend/internal/queue"
	"github.com/printqa/backend/internal/server/middleware"
	"github.com/printqa/backend/internal/storage"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/loader"
	"github.com/printqa/backend/pkg/mesh/meshtest"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i any) error {
	return tv.v.Struct(i)
}

type recordingQueue struct {
	jobs [][]byte
}

func (q *recordingQueue) PublishFIFO(ctx context.Context, queueName string, data []byte) error {
	q.jobs = append(q.jobs, data)
	return nil
}

func (q *recordingQueue) PublishTopic(ctx context.Context, topic string, data []byte) error {
	return nil
}

func newTestEcho(app *middleware.App) *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	e.Use(middleware.AppContextMiddleware(app))

	api := e.Group("/api")
	api.POST("/analyses", CreateAnalysisHandler)
	api.POST("/analyses/async", CreateAsyncAnalysisHandler)
	api.GET("/analyses", GetAnalysesHandler)
	api.GET("/analyses/statistics", GetAnalysisStatisticsHandler)
	api.GET("/analyses/by-name/:file_name", GetAnalysisByFileNameHandler)
	api.GET("/analyses/:id", GetAnalysisHandler)
	api.PATCH("/analyses/:id", EditAnalysisHandler)
	api.DELETE("/analyses/:id", DeleteAnalysisHandler)
	return e
}

func newTestApp() *middleware.App {
	return &middleware.App{
		Store:         store.NewMemoryStore(),
		Analyzer:      analysis.NewAnalyzer(loader.DefaultOptions()),
		MaxUploadSize: 1 << 20,
	}
}

func multipartRequest(t *testing.T, path, fileName string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	part.Write(data)
	w.Close()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type analysisBody struct {
	Message     string                `json:"message"`
	Result      *store.Record         `json:"result"`
	Diagnostics *analysis.Diagnostics `json:"diagnostics"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("expected json body, got %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestCreateAnalysisHandler(t *testing.T) {
	tests := []struct {
		name       string
		fileName   string
		data       []byte
		wantCode   int
		watertight bool
		inverted   bool
	}{
		{"clean_binary_cube", "cube_perfect.stl", meshtest.BinarySTL(meshtest.Cube()), http.StatusOK, true, false},
		{"open_ascii_cube", "cube_open.stl", meshtest.ASCIISTL(meshtest.OpenCube()), http.StatusOK, false, false},
		{"inverted_obj_cube", "cube_inverted.obj", meshtest.OBJ(meshtest.InvertedCube()), http.StatusOK, true, true},
		{"empty_file", "empty_file.txt", nil, http.StatusBadRequest, false, false},
		{"garbage", "invalid.stl", []byte("definitely not a mesh"), http.StatusBadRequest, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp()
			e := newTestEcho(app)

			rec := do(e, multipartRequest(t, "/api/analyses", tc.fileName, tc.data, nil))
			if rec.Code != tc.wantCode {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
			body := decode[analysisBody](t, rec)
			if tc.wantCode != http.StatusOK {
				if body.Result != nil || body.Message == "" {
					t.Fatalf("expected error message without result, got %+v", body)
				}
				stats, _ := app.Store.Statistics(context.Background())
				if stats.Total != 0 {
					t.Fatalf("expected nothing stored, got %d", stats.Total)
				}
				return
			}

			r := body.Result
			if r == nil || r.ID == 0 {
				t.Fatalf("expected stored result, got %+v", body)
			}
			if r.IsWatertight != tc.watertight || r.HasInvertedFaces != tc.inverted {
				t.Fatalf("got watertight=%v inverted=%v, want %v %v", r.IsWatertight, r.HasInvertedFaces, tc.watertight, tc.inverted)
			}
			if r.FileName != tc.fileName || r.FileSizeBytes != int64(len(tc.data)) {
				t.Fatalf("unexpected metadata %+v", r)
			}
			if body.Diagnostics == nil {
				t.Fatal("expected diagnostics")
			}
		})
	}
}

type stalledReporter struct {
	release chan struct{}
	cases   chan int64
}

func (s *stalledReporter) SendResult(ctx context.Context, caseID int64, report analysis.Report) error {
	<-s.release
	s.cases <- caseID
	return nil
}

func TestCreateAnalysisHandler_DoesNotWaitForTestRail(t *testing.T) {
	reporter := &stalledReporter{release: make(chan struct{}), cases: make(chan int64, 1)}
	app := newTestApp()
	app.Reporter = reporter
	e := newTestEcho(app)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- do(e, multipartRequest(t, "/api/analyses", "cube.stl", meshtest.BinarySTL(meshtest.Cube()), map[string]string{
			"testrail_case_id": "C7",
		}))
	}()

	select {
	case rec := <-done:
		if rec.Code != http.StatusOK {
			t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected response before TestRail finished")
	}

	close(reporter.release)
	select {
	case id := <-reporter.cases:
		if id != 7 {
			t.Fatalf("got case %d, want 7", id)
		}
	case <-time.After(time.Second):
		t.Fatal("expected result to be reported in the background")
	}
}

func TestCreateAnalysisHandler_TooLarge(t *testing.T) {
	app := newTestApp()
	app.MaxUploadSize = 10
	rec := do(newTestEcho(app), multipartRequest(t, "/api/analyses", "cube.stl", meshtest.BinarySTL(meshtest.Cube()), nil))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestCreateAnalysisHandler_MissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/analyses", strings.NewReader("{}"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(newTestEcho(newTestApp()), req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateAsyncAnalysisHandler(t *testing.T) {
	t.Run("not_configured", func(t *testing.T) {
		rec := do(newTestEcho(newTestApp()), multipartRequest(t, "/api/analyses/async", "cube.stl", []byte("solid"), nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("got %d, want %d", rec.Code, http.StatusServiceUnavailable)
		}
	})

	t.Run("queued", func(t *testing.T) {
		app := newTestApp()
		q := &recordingQueue{}
		objects := storage.NewMemoryObjects()
		app.Queue = q
		app.Objects = objects

		data := meshtest.BinarySTL(meshtest.Cube())
		rec := do(newTestEcho(app), multipartRequest(t, "/api/analyses/async", "cube.stl", data, map[string]string{
			"testrail_case_id": "C42",
		}))
		if rec.Code != http.StatusAccepted {
			t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
		}
		if len(q.jobs) != 1 || objects.Len() != 1 {
			t.Fatalf("expected one job and one object, got %d and %d", len(q.jobs), objects.Len())
		}

		var job queue.AnalysisJob
		if err := json.Unmarshal(q.jobs[0], &job); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if job.FileName != "cube.stl" || job.FileSize != int64(len(data)) {
			t.Fatalf("unexpected job %+v", job)
		}
		if job.TestRailCaseID == nil || *job.TestRailCaseID != 42 {
			t.Fatalf("expected case id 42, got %v", job.TestRailCaseID)
		}
		if !strings.HasPrefix(job.FileKey, "uploads/") || !strings.HasSuffix(job.FileKey, ".stl") {
			t.Fatalf("unexpected key %q", job.FileKey)
		}
	})

	t.Run("invalid_case_id", func(t *testing.T) {
		app := newTestApp()
		app.Queue = &recordingQueue{}
		app.Objects = storage.NewMemoryObjects()
		rec := do(newTestEcho(app), multipartRequest(t, "/api/analyses/async", "cube.stl", []byte("solid"), map[string]string{
			"testrail_case_id": "abc",
		}))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("got %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

// seed stores records with explicit, increasing timestamps and returns their ids.
func seed(t *testing.T, s store.ResultStore, reports ...analysis.Report) []int64 {
	t.Helper()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ids := make([]int64, 0, len(reports))
	for i, r := range reports {
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		rec, err := s.Create(context.Background(), r)
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		ids = append(ids, rec.ID)
	}
	return ids
}

func TestGetAnalysesHandler(t *testing.T) {
	app := newTestApp()
	ids := seed(t, app.Store,
		analysis.Report{FileName: "a.stl", IsWatertight: true},
		analysis.Report{FileName: "b.stl", IsWatertight: false},
		analysis.Report{FileName: "c.stl", IsWatertight: true, HasInvertedFaces: true},
	)
	e := newTestEcho(app)

	type listBody struct {
		Results []store.Record `json:"results"`
	}

	tests := []struct {
		name     string
		query    string
		wantCode int
		want     []int64
	}{
		{"all", "", http.StatusOK, []int64{ids[2], ids[1], ids[0]}},
		{"paged", "?skip=1&limit=1", http.StatusOK, []int64{ids[1]}},
		{"watertight", "?watertight=true", http.StatusOK, []int64{ids[2], ids[0]}},
		{"not_inverted", "?inverted=false", http.StatusOK, []int64{ids[1], ids[0]}},
		{"bad_bool", "?watertight=maybe", http.StatusBadRequest, nil},
		{"bad_limit", "?limit=5000", http.StatusBadRequest, nil},
		{"negative_skip", "?skip=-1", http.StatusBadRequest, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, httptest.NewRequest(http.MethodGet, "/api/analyses"+tc.query, nil))
			if rec.Code != tc.wantCode {
				t.Fatalf("got %d, want %d", rec.Code, tc.wantCode)
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			body := decode[listBody](t, rec)
			if len(body.Results) != len(tc.want) {
				t.Fatalf("expected %d results, got %d", len(tc.want), len(body.Results))
			}
			for i, r := range body.Results {
				if r.ID != tc.want[i] {
					t.Fatalf("position %d: got id %d, want %d", i, r.ID, tc.want[i])
				}
			}
		})
	}
}

func TestGetAnalysisHandlers(t *testing.T) {
	app := newTestApp()
	ids := seed(t, app.Store,
		analysis.Report{FileName: "my part.stl", IsWatertight: true},
		analysis.Report{FileName: "my part.stl", IsWatertight: false},
	)
	e := newTestEcho(app)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantID   int64
	}{
		{"by_id", "/api/analyses/1", http.StatusOK, ids[0]},
		{"missing_id", "/api/analyses/99", http.StatusNotFound, 0},
		{"invalid_id", "/api/analyses/abc", http.StatusBadRequest, 0},
		{"by_name_latest", "/api/analyses/by-name/my%20part.stl", http.StatusOK, ids[1]},
		{"by_name_missing", "/api/analyses/by-name/nope.stl", http.StatusNotFound, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if rec.Code != tc.wantCode {
				t.Fatalf("got %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.wantCode != http.StatusOK {
				return
			}
			body := decode[recordResponse](t, rec)
			if body.Result == nil || body.Result.ID != tc.wantID {
				t.Fatalf("expected id %d, got %+v", tc.wantID, body.Result)
			}
		})
	}
}

func TestGetAnalysisStatisticsHandler(t *testing.T) {
	app := newTestApp()
	seed(t, app.Store,
		analysis.Report{FileName: "a.stl", IsWatertight: true},
		analysis.Report{FileName: "b.stl", IsWatertight: true, HasInvertedFaces: true},
		analysis.Report{FileName: "c.stl"},
		analysis.Report{FileName: "d.stl"},
	)

	rec := do(newTestEcho(app), httptest.NewRequest(http.MethodGet, "/api/analyses/statistics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Statistics store.Statistics `json:"statistics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	want := store.Statistics{Total: 4, WatertightCount: 2, InvertedCount: 1, CleanCount: 1, WatertightPercentage: 50}
	if body.Statistics != want {
		t.Fatalf("got %+v, want %+v", body.Statistics, want)
	}
}

func TestEditAnalysisHandler(t *testing.T) {
	app := newTestApp()
	seed(t, app.Store, analysis.Report{FileName: "a.stl", IsWatertight: false})
	e := newTestEcho(app)

	patch := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return do(e, req)
	}

	rec := patch("/api/analyses/1", `{"is_watertight":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	body := decode[recordResponse](t, rec)
	if body.Result == nil || !body.Result.IsWatertight || body.Result.FileName != "a.stl" {
		t.Fatalf("unexpected result %+v", body.Result)
	}

	if rec := patch("/api/analyses/1", `{"file_name":""}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty file name: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if rec := patch("/api/analyses/7", `{"is_watertight":true}`); rec.Code != http.StatusNotFound {
		t.Fatalf("missing record: got %d, want %d", rec.Code, http.StatusNotFound)
	}
	if rec := patch("/api/analyses/1", `{}`); rec.Code != http.StatusOK {
		t.Fatalf("empty patch: got %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDeleteAnalysisHandler(t *testing.T) {
	app := newTestApp()
	seed(t, app.Store, analysis.Report{FileName: "a.stl"})
	e := newTestEcho(app)

	if rec := do(e, httptest.NewRequest(http.MethodDelete, "/api/analyses/1", nil)); rec.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusOK)
	}
	if rec := do(e, httptest.NewRequest(http.MethodDelete, "/api/analyses/1", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("got %d, want %d", rec.Code, http.StatusNotFound)
	}
}
