package middleware

import (
	"github.com/printqa/backend/internal/queue"
	"github.com/printqa/backend/internal/storage"
	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/internal/testrail"
	"github.com/printqa/backend/pkg/analysis"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/labstack/echo/v4"
)

type AppUser struct {
	UserID      int64
	Role        string
	Permissions []string
}

type App struct {
	Store    store.ResultStore
	Analyzer *analysis.Analyzer
	// Queue and Objects are nil when asynchronous analysis is not configured.
	Queue   queue.Publisher
	Objects storage.ObjectStore
	// Reporter is nil when TestRail reporting is disabled.
	Reporter testrail.Reporter
	// Key is nil when no AUTH_URL is configured.
	Key           keyfunc.Keyfunc
	MasterAPIKey  string
	MaxUploadSize int64
}

// AsyncEnabled reports whether uploads can be handed to the worker.
func (a *App) AsyncEnabled() bool {
	return a.Queue != nil && a.Objects != nil
}

// AuthEnabled reports whether requests must carry credentials.
func (a *App) AuthEnabled() bool {
	return a.Key != nil || a.MasterAPIKey != ""
}

type AppContext struct {
	echo.Context
	App  *App
	User *AppUser
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app, nil}
			return next(cc)
		}
	}
}
