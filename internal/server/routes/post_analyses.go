package routes

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/printqa/backend/internal/queue"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/internal/util"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"
	"github.com/printqa/backend/pkg/mesh"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

type upload struct {
	name           string
	data           []byte
	testRailCaseID *int64
}

// readUpload reads the multipart field "file" fully into memory and closes it.
func readUpload(c echo.Context, maxSize int64) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, err
	}
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := readAll(src, maxSize)
	if err != nil {
		return nil, err
	}

	u := &upload{
		name: util.SanitizeFileName(fh.Filename),
		data: data,
	}
	if raw := strings.TrimSpace(c.FormValue("testrail_case_id")); raw != "" {
		id, err := strconv.ParseInt(strings.TrimPrefix(strings.ToUpper(raw), "C"), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid testrail_case_id %q", raw)
		}
		u.testRailCaseID = &id
	}
	return u, nil
}

func readAll(src multipart.File, maxSize int64) ([]byte, error) {
	var r io.Reader = src
	if maxSize > 0 {
		r = io.LimitReader(src, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, errUploadTooLarge
	}
	return data, nil
}

type analysisResponse struct {
	Message     string                `json:"message"`
	Result      *store.Record         `json:"result,omitempty"`
	Diagnostics *analysis.Diagnostics `json:"diagnostics,omitempty"`
}

func uploadError(c echo.Context, err error) error {
	if errors.Is(err, errUploadTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, analysisResponse{
			Message: "File too large",
		})
	}
	return c.JSON(http.StatusBadRequest, analysisResponse{
		Message: "Invalid request body",
	})
}

// CreateAnalysisHandler analyzes an uploaded mesh, stores the report and
// returns it together with its diagnostics.
func CreateAnalysisHandler(c echo.Context) error {
	app := appFrom(c)

	u, err := readUpload(c, app.MaxUploadSize)
	if err != nil {
		return uploadError(c, err)
	}
	if len(u.data) == 0 {
		return c.JSON(http.StatusBadRequest, analysisResponse{
			Message: "Empty file",
		})
	}

	res, err := app.Analyzer.Analyze(u.data, u.name)
	if err != nil {
		if mesh.IsInputError(err) {
			return c.JSON(http.StatusBadRequest, analysisResponse{
				Message: err.Error(),
			})
		}
		logger.Error("Failed to analyze mesh", "file", u.name, "err", err)
		return c.JSON(http.StatusInternalServerError, analysisResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	record, err := app.Store.Create(ctx, res.Report)
	if err != nil {
		logger.Error("Failed to store analysis result", "file", u.name, "err", err)
		return c.JSON(http.StatusInternalServerError, analysisResponse{
			Message: "Internal server error",
		})
	}

	testrail.ReportDetached(ctx, app.Reporter, u.testRailCaseID, record.Report)

	return c.JSON(http.StatusOK, analysisResponse{
		Message:     "Analysis completed",
		Result:      &record,
		Diagnostics: &res.Diagnostics,
	})
}

// CreateAsyncAnalysisHandler stores the upload and queues it for the worker.
func CreateAsyncAnalysisHandler(c echo.Context) error {
	type asyncAnalysisResponse struct {
		Message string             `json:"message"`
		Job     *queue.AnalysisJob `json:"job,omitempty"`
	}

	app := appFrom(c)
	if !app.AsyncEnabled() {
		return c.JSON(http.StatusServiceUnavailable, asyncAnalysisResponse{
			Message: "Asynchronous analysis is not configured",
		})
	}

	u, err := readUpload(c, app.MaxUploadSize)
	if err != nil {
		return uploadError(c, err)
	}
	if len(u.data) == 0 {
		return c.JSON(http.StatusBadRequest, asyncAnalysisResponse{
			Message: "Empty file",
		})
	}

	jobID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, asyncAnalysisResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	key, err := app.Objects.PutFile(ctx, "uploads", u.name, jobID, bytes.NewReader(u.data))
	if err != nil {
		logger.Error("Failed to store upload", "file", u.name, "err", err)
		return c.JSON(http.StatusInternalServerError, asyncAnalysisResponse{
			Message: "Internal server error",
		})
	}

	job := queue.AnalysisJob{
		JobID:          jobID,
		FileKey:        key,
		FileName:       u.name,
		FileSize:       int64(len(u.data)),
		TestRailCaseID: u.testRailCaseID,
	}
	if err := queue.EnqueueAnalysis(ctx, app.Queue, job); err != nil {
		logger.Error("Failed to enqueue analysis", "job_id", jobID, "err", err)
		if delErr := app.Objects.DeleteFile(ctx, key); delErr != nil {
			logger.Warn("Failed to delete orphaned upload", "key", key, "err", delErr)
		}
		return c.JSON(http.StatusInternalServerError, asyncAnalysisResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, asyncAnalysisResponse{
		Message: "Analysis queued",
		Job:     &job,
	})
}
