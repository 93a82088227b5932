// Package httpapi exposes the scheduling engine over a JSON REST surface.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/usecase"
)

// APIV1Service wires the usecases to the /api/v1 route group.
type APIV1Service struct {
	lifecycle usecase.CardLifecycleUsecase
	dueSet    usecase.DueSetUsecase
	archiver  usecase.ArchiverUsecase
	sessions  usecase.ReviewSessionUsecase

	validate *validator.Validate
	logger   *logrus.Logger
}

// NewAPIV1Service creates the HTTP service.
func NewAPIV1Service(
	lifecycle usecase.CardLifecycleUsecase,
	dueSet usecase.DueSetUsecase,
	archiver usecase.ArchiverUsecase,
	sessions usecase.ReviewSessionUsecase,
	logger *logrus.Logger,
) *APIV1Service {
	return &APIV1Service{
		lifecycle: lifecycle,
		dueSet:    dueSet,
		archiver:  archiver,
		sessions:  sessions,
		validate:  validator.New(),
		logger:    logger,
	}
}

// RegisterRoutes mounts all v1 endpoints on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")

	v1.POST("/users/:userID/mistakes", s.reportMistakes)
	v1.GET("/users/:userID/cards", s.listCards)
	v1.GET("/users/:userID/cards/due", s.getDueCards)
	v1.GET("/users/:userID/cards/due-on", s.getCardsDueOn)
	v1.GET("/users/:userID/cards/overdue-count", s.getOverdueCount)
	v1.GET("/users/:userID/stats", s.getReviewStats)
	v1.POST("/users/:userID/review-sessions", s.submitReviewSession)
	v1.POST("/users/:userID/archive-sweep", s.archiveOverdue)

	v1.POST("/cards/:cardID/review", s.submitReview)
	v1.POST("/cards/:cardID/restore", s.restoreCard)

	v1.POST("/admin/archive-sweep", s.archiveAllOverdue)

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func pathUserID(c echo.Context) (int64, error) {
	userID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	return userID, nil
}

func queryInt32(c echo.Context, name string, fallback int32) (int32, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return int32(parsed), nil
}
