package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/internship-market/internal/pagination"
	"github.com/shinyyama/internship-market/internal/reqctx"
	"github.com/shinyyama/internship-market/internal/repository"
	"github.com/shinyyama/internship-market/internal/service"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// PageResponse is the wire form of a pagination.Page.
type PageResponse[T any] struct {
	Items    []T   `json:"items"`
	Count    int64 `json:"count"`
	Pages    int   `json:"pages"`
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
}

func toPageResponse[T, U any](p *pagination.Page[T], fn func(T) U) PageResponse[U] {
	out := PageResponse[U]{
		Items:    make([]U, 0, len(p.Items)),
		Count:    p.Count,
		Pages:    p.Pages,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for _, it := range p.Items {
		out.Items = append(out.Items, fn(it))
	}
	return out
}

// writeServiceError maps service error kinds to HTTP statuses. Unknown errors are logged and hidden.
func writeServiceError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", err.Error()))
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, NewErrorResponse("conflict", err.Error()))
	case errors.Is(err, repository.ErrDBNotReady):
		return c.JSON(http.StatusServiceUnavailable, NewErrorResponse("unavailable", "database is not ready"))
	}
	if log != nil {
		log.Error("request failed",
			zap.String("rid", reqctx.RequestID(c.Request().Context())),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal server error"))
}

func parseID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads a positive integer query parameter, falling back to def when absent.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

// bindAndValidate decodes the body and runs its validate tags. The error is safe to show.
func bindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return errors.New("invalid json")
	}
	return c.Validate(dst)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", msg))
}
