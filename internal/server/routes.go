package server

import (
	"github.com/printqa/backend/internal/server/middleware"
	"github.com/printqa/backend/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Analysis routes
	apiRoutes.GET("/analyses", routes.GetAnalysesHandler)
	apiRoutes.POST("/analyses", routes.CreateAnalysisHandler, middleware.RequirePermission(middleware.PermissionAnalysisCreate))
	apiRoutes.POST("/analyses/async", routes.CreateAsyncAnalysisHandler, middleware.RequirePermission(middleware.PermissionAnalysisCreate))
	apiRoutes.GET("/analyses/statistics", routes.GetAnalysisStatisticsHandler)
	apiRoutes.GET("/analyses/by-name/:file_name", routes.GetAnalysisByFileNameHandler)
	apiRoutes.GET("/analyses/:id", routes.GetAnalysisHandler)
	apiRoutes.PATCH("/analyses/:id", routes.EditAnalysisHandler, middleware.RequirePermission(middleware.PermissionAnalysisUpdate))
	apiRoutes.DELETE("/analyses/:id", routes.DeleteAnalysisHandler, middleware.RequirePermission(middleware.PermissionAnalysisDelete))
}
