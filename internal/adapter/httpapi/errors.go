package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eslsoft/mistbook/internal/entity"
)

// mapError converts domain sentinels to HTTP status codes. Commit failures
// surface as 503 so clients know the whole request is safe to retry.
func mapError(err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case errors.Is(err, entity.ErrCardNotFound), errors.Is(err, entity.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrInvalidUserID),
		errors.Is(err, entity.ErrInvalidCardID),
		errors.Is(err, entity.ErrInvalidMistakeEntry),
		errors.Is(err, entity.ErrInvalidReviewRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrCardArchived),
		errors.Is(err, entity.ErrCardNotArchived),
		errors.Is(err, entity.ErrDuplicateCard):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entity.ErrCommitFailed):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "storage commit failed, retry the request")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
