package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/printqa/backend/internal/config"
	"github.com/printqa/backend/internal/queue"
	mid "github.com/printqa/backend/internal/server/middleware"
	"github.com/printqa/backend/internal/storage"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/pkg/analysis"
	"github.com/printqa/backend/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// multipart framing on top of the file itself
const bodyOverhead = 1 << 20

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the HTTP handler for app.
func New(app *mid.App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	if app.MaxUploadSize > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dB", app.MaxUploadSize+bodyOverhead)))
	}

	RegisterRoutes(e)
	return e
}

// Init wires the optional integrations described by cfg around resultStore
// and serves until ctx is cancelled.
func Init(ctx context.Context, cfg config.Config, resultStore store.ResultStore) error {
	app := &mid.App{
		Store:         resultStore,
		Analyzer:      analysis.NewAnalyzer(cfg.LoaderOptions()),
		Reporter:      testrail.NewReporter(cfg.TestRail),
		MasterAPIKey:  cfg.MasterAPIKey,
		MaxUploadSize: cfg.MaxUploadSize,
	}

	if cfg.AuthURL != "" {
		k, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.AuthURL + "/jwks"})
		if err != nil {
			return fmt.Errorf("failed to load jwks keys: %w", err)
		}
		app.Key = k
	}
	if !app.AuthEnabled() {
		logger.Warn("Neither AUTH_URL nor MASTER_API_KEY is set, the API is open")
	}

	if queue.Configured() && cfg.Bucket != "" {
		conn, err := queue.Init()
		if err != nil {
			return err
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("failed to open channel: %w", err)
		}
		defer ch.Close()
		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			return err
		}

		s3, err := storage.NewS3Client(ctx)
		if err != nil {
			return err
		}

		app.Queue = queue.NewChannelPublisher(ch)
		app.Objects = storage.NewBucket(s3, cfg.Bucket)
		logger.Info("Asynchronous analysis enabled", "bucket", cfg.Bucket)
	}

	e := New(app)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
	return nil
}
