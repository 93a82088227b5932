package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/usecase"
)

func (s *APIV1Service) submitReviewSession(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	var req submitSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	reviews := make([]usecase.ReviewSubmission, 0, len(req.Reviews))
	for _, item := range req.Reviews {
		reviews = append(reviews, usecase.ReviewSubmission{
			CardID:        item.CardID,
			WasCorrect:    *item.WasCorrect,
			UserAnswer:    item.UserAnswer,
			CorrectAnswer: item.CorrectAnswer,
			TimeSpentMs:   item.TimeSpentMs,
		})
	}

	result, err := s.sessions.SubmitReviewSession(c.Request().Context(), userID, reviews, entity.SessionType(req.SessionType))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(result))
}

func (s *APIV1Service) archiveOverdue(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	archived, err := s.archiver.ArchiveOverdueCards(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sweepResponse{Archived: archived})
}

func (s *APIV1Service) archiveAllOverdue(c echo.Context) error {
	archived, err := s.archiver.ArchiveAllOverdue(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, sweepResponse{Archived: archived})
}
