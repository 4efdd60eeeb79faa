package routes

import (
	"net/url"

	"github.com/printqa/backend/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

func appFrom(c echo.Context) *middleware.App {
	return c.(*middleware.AppContext).App
}

// pathParam returns the unescaped path parameter name.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
