package routes

import (
	"net/http"

	"github.com/printqa/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

func DeleteAnalysisHandler(c echo.Context) error {
	type deleteAnalysisData struct {
		ID int64 `param:"id" validate:"required,min=1"`
	}

	type deleteAnalysisResponse struct {
		Message string `json:"message"`
	}

	data := new(deleteAnalysisData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, deleteAnalysisResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, deleteAnalysisResponse{
			Message: "Invalid request params",
		})
	}

	deleted, err := appFrom(c).Store.Delete(c.Request().Context(), data.ID)
	if err != nil {
		logger.Error("Failed to delete analysis result", "id", data.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteAnalysisResponse{
			Message: "Internal server error",
		})
	}
	if !deleted {
		return c.JSON(http.StatusNotFound, deleteAnalysisResponse{
			Message: "Analysis result not found",
		})
	}

	return c.JSON(http.StatusOK, deleteAnalysisResponse{
		Message: "Analysis result deleted successfully",
	})
}
