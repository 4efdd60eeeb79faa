package routes

import (
	"net/http"

	"github.com/printqa/backend/internal/store"

	"github.com/labstack/echo/v4"
)

// EditAnalysisHandler updates the editable fields of a stored report.
func EditAnalysisHandler(c echo.Context) error {
	type editAnalysisData struct {
		ID               int64   `param:"id" validate:"required,min=1"`
		FileName         *string `json:"file_name" validate:"omitempty,min=1,max=255"`
		IsWatertight     *bool   `json:"is_watertight"`
		HasInvertedFaces *bool   `json:"has_inverted_faces"`
	}

	data := new(editAnalysisData)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, recordResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, recordResponse{
			Message: "Invalid request params",
		})
	}

	params := store.UpdateParams{
		FileName:         data.FileName,
		IsWatertight:     data.IsWatertight,
		HasInvertedFaces: data.HasInvertedFaces,
	}

	ctx := c.Request().Context()
	s := appFrom(c).Store

	var (
		record store.Record
		err    error
	)
	if params.IsEmpty() {
		record, err = s.Get(ctx, data.ID)
	} else {
		record, err = s.Update(ctx, data.ID, params)
	}
	if err != nil {
		return recordError(c, err)
	}

	return c.JSON(http.StatusOK, recordResponse{
		Message: "Analysis result updated successfully",
		Result:  &record,
	})
}
