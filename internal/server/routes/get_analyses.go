package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/printqa/backend/internal/store"
	"github.com/printqa/backend/pkg/logger"

	"github.com/labstack/echo/v4"
)

type recordResponse struct {
	Message string        `json:"message"`
	Result  *store.Record `json:"result,omitempty"`
}

func recordError(c echo.Context, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, recordResponse{
			Message: "Analysis result not found",
		})
	}
	logger.Error("Failed to load analysis result", "err", err)
	return c.JSON(http.StatusInternalServerError, recordResponse{
		Message: "Internal server error",
	})
}

func optionalBoolQuery(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func GetAnalysesHandler(c echo.Context) error {
	type listAnalysesQuery struct {
		Skip  int `validate:"min=0"`
		Limit int `validate:"min=0,max=1000"`
	}

	type listAnalysesResponse struct {
		Message string         `json:"message"`
		Results []store.Record `json:"results"`
	}

	data := new(listAnalysesQuery)
	err := echo.QueryParamsBinder(c).
		Int("skip", &data.Skip).
		Int("limit", &data.Limit).
		BindError()
	if err != nil {
		return c.JSON(http.StatusBadRequest, listAnalysesResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, listAnalysesResponse{
			Message: "Invalid request params",
		})
	}

	watertight, err := optionalBoolQuery(c, "watertight")
	if err != nil {
		return c.JSON(http.StatusBadRequest, listAnalysesResponse{
			Message: "Invalid request params",
		})
	}
	inverted, err := optionalBoolQuery(c, "inverted")
	if err != nil {
		return c.JSON(http.StatusBadRequest, listAnalysesResponse{
			Message: "Invalid request params",
		})
	}

	records, err := appFrom(c).Store.List(c.Request().Context(), store.ListParams{
		Skip:       data.Skip,
		Limit:      data.Limit,
		Watertight: watertight,
		Inverted:   inverted,
	})
	if err != nil {
		logger.Error("Failed to list analysis results", "err", err)
		return c.JSON(http.StatusInternalServerError, listAnalysesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, listAnalysesResponse{
		Message: "OK",
		Results: records,
	})
}

func GetAnalysisHandler(c echo.Context) error {
	type getAnalysisData struct {
		ID int64 `param:"id" validate:"required,min=1"`
	}

	data := new(getAnalysisData)
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

	record, err := appFrom(c).Store.Get(c.Request().Context(), data.ID)
	if err != nil {
		return recordError(c, err)
	}
	return c.JSON(http.StatusOK, recordResponse{
		Message: "OK",
		Result:  &record,
	})
}

func GetAnalysisByFileNameHandler(c echo.Context) error {
	name := pathParam(c, "file_name")
	if name == "" {
		return c.JSON(http.StatusBadRequest, recordResponse{
			Message: "Invalid request params",
		})
	}

	record, err := appFrom(c).Store.GetByFileName(c.Request().Context(), name)
	if err != nil {
		return recordError(c, err)
	}
	return c.JSON(http.StatusOK, recordResponse{
		Message: "OK",
		Result:  &record,
	})
}

func GetAnalysisStatisticsHandler(c echo.Context) error {
	type statisticsResponse struct {
		Message    string            `json:"message"`
		Statistics *store.Statistics `json:"statistics,omitempty"`
	}

	stats, err := appFrom(c).Store.Statistics(c.Request().Context())
	if err != nil {
		logger.Error("Failed to compute statistics", "err", err)
		return c.JSON(http.StatusInternalServerError, statisticsResponse{
			Message: "Internal server error",
		})
	}
	return c.JSON(http.StatusOK, statisticsResponse{
		Message:    "OK",
		Statistics: &stats,
	})
}
