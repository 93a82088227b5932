package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/internal/usecase"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

func (s *APIV1Service) reportMistakes(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	var req reportMistakesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	missed := make([]entity.MissedQuestion, 0, len(req.Mistakes))
	for _, m := range req.Mistakes {
		missed = append(missed, entity.MissedQuestion{
			QuestionID: m.QuestionID,
			Topic:      m.Topic,
			Subtopic:   m.Subtopic,
		})
	}

	result, err := s.lifecycle.CreateOrReuseCards(c.Request().Context(), userID, missed, req.SessionID, req.AttemptID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toMistakeResponse(result))
}

func (s *APIV1Service) listCards(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	pageNo, err := queryInt32(c, "page_no", 1)
	if err != nil {
		return err
	}
	pageSize, err := queryInt32(c, "page_size", 0)
	if err != nil {
		return err
	}

	query := &repository.ListCardQuery{UserID: userID}
	query.PageNo = pageNo
	query.PageSize = pageSize
	query.Filter = c.QueryParam("filter")
	query.OrderBy = c.QueryParam("order_by")

	cards, total, err := s.dueSet.ListCards(c.Request().Context(), query)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cardListResponse{Cards: toCardResponses(cards), Total: total})
}

func (s *APIV1Service) getDueCards(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	asOf, err := queryDay(c, "as_of")
	if err != nil {
		return err
	}
	limit, err := queryInt32(c, "limit", 0)
	if err != nil {
		return err
	}

	cards, err := s.dueSet.GetDueCards(c.Request().Context(), userID, asOf, limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cardListResponse{Cards: toCardResponses(cards), Total: int64(len(cards))})
}

func (s *APIV1Service) getCardsDueOn(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	day, err := queryDay(c, "date")
	if err != nil {
		return err
	}
	limit, err := queryInt32(c, "limit", 0)
	if err != nil {
		return err
	}

	cards, err := s.dueSet.GetCardsDueOn(c.Request().Context(), userID, day, limit)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, cardListResponse{Cards: toCardResponses(cards), Total: int64(len(cards))})
}

func (s *APIV1Service) getOverdueCount(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}
	asOf, err := queryDay(c, "as_of")
	if err != nil {
		return err
	}

	count, err := s.dueSet.GetOverdueCount(c.Request().Context(), userID, asOf)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, overdueCountResponse{Count: count})
}

func (s *APIV1Service) getReviewStats(c echo.Context) error {
	userID, err := pathUserID(c)
	if err != nil {
		return err
	}

	stats, err := s.dueSet.GetReviewStats(c.Request().Context(), userID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toStatsResponse(stats))
}

func (s *APIV1Service) submitReview(c echo.Context) error {
	cardID := c.Param("cardID")

	var req submitReviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := s.validate.Struct(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := s.lifecycle.SubmitReview(c.Request().Context(), cardID, *req.WasCorrect, usecase.ReviewMetadata{
		UserAnswer:    req.UserAnswer,
		CorrectAnswer: req.CorrectAnswer,
		TimeSpentMs:   req.TimeSpentMs,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, reviewResponse{
		Card:    toCardResponse(result.Card),
		Attempt: toAttemptResponse(result.Attempt),
	})
}

func (s *APIV1Service) restoreCard(c echo.Context) error {
	card, err := s.archiver.RestoreArchivedCard(c.Request().Context(), c.Param("cardID"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, toCardResponse(card))
}

func queryDay(c echo.Context, name string) (dayclock.DayKey, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return "", nil
	}
	day, err := dayclock.Parse(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+", expected YYYY-MM-DD")
	}
	return day, nil
}
