package httpapi

import (
	"time"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/usecase"
)

// mistakeEntry deliberately has no per-field validation: a malformed entry is
// skipped by the lifecycle manager and reported back, not rejected wholesale.
type mistakeEntry struct {
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic"`
	Subtopic   string `json:"subtopic"`
}

type reportMistakesRequest struct {
	SessionID string         `json:"session_id"`
	AttemptID string         `json:"attempt_id"`
	Mistakes  []mistakeEntry `json:"mistakes" validate:"min=1"`
}

type submitReviewRequest struct {
	WasCorrect    *bool  `json:"was_correct" validate:"required"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	TimeSpentMs   int64  `json:"time_spent_ms" validate:"gte=0"`
}

type sessionReviewItem struct {
	CardID        string `json:"card_id" validate:"required"`
	WasCorrect    *bool  `json:"was_correct" validate:"required"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	TimeSpentMs   int64  `json:"time_spent_ms" validate:"gte=0"`
}

type submitSessionRequest struct {
	SessionType string              `json:"session_type" validate:"omitempty,oneof=review quiz"`
	Reviews     []sessionReviewItem `json:"reviews" validate:"min=1,dive"`
}

type cardResponse struct {
	ID                 string     `json:"id"`
	UserID             int64      `json:"user_id"`
	QuestionID         string     `json:"question_id"`
	Topic              string     `json:"topic,omitempty"`
	Subtopic           string     `json:"subtopic,omitempty"`
	Status             string     `json:"status"`
	IntervalDays       int32      `json:"interval_days"`
	EaseFactor         float64    `json:"ease_factor"`
	RepetitionCount    int32      `json:"repetition_count"`
	NextReviewDate     string     `json:"next_review_date"`
	LastReviewedAt     *time.Time `json:"last_reviewed_at,omitempty"`
	IsDue              bool       `json:"is_due"`
	TotalAttempts      int32      `json:"total_attempts"`
	SuccessfulAttempts int32      `json:"successful_attempts"`
	FailedAttempts     int32      `json:"failed_attempts"`
	IsActive           bool       `json:"is_active"`
	ArchivedAt         *time.Time `json:"archived_at,omitempty"`
	ArchiveReason      string     `json:"archive_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type attemptResponse struct {
	ID            string    `json:"id"`
	CardID        string    `json:"card_id"`
	AttemptNumber int32     `json:"attempt_number"`
	WasCorrect    bool      `json:"was_correct"`
	AttemptedAt   time.Time `json:"attempted_at"`
	SessionID     string    `json:"session_id,omitempty"`
}

type reviewResponse struct {
	Card    cardResponse    `json:"card"`
	Attempt attemptResponse `json:"attempt"`
}

type cardListResponse struct {
	Cards []cardResponse `json:"cards"`
	Total int64          `json:"total"`
}

type skippedMistakeResponse struct {
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic,omitempty"`
	Subtopic   string `json:"subtopic,omitempty"`
	Reason     string `json:"reason"`
}

type reportMistakesResponse struct {
	Cards   []cardResponse           `json:"cards"`
	Total   int64                    `json:"total"`
	Skipped []skippedMistakeResponse `json:"skipped,omitempty"`
}

type overdueCountResponse struct {
	Count int64 `json:"count"`
}

type sweepResponse struct {
	Archived int64 `json:"archived"`
}

type sessionItemResponse struct {
	CardID  string           `json:"card_id"`
	Card    *cardResponse    `json:"card,omitempty"`
	Attempt *attemptResponse `json:"attempt,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type sessionResponse struct {
	ID               string                `json:"id"`
	UserID           int64                 `json:"user_id"`
	SessionType      string                `json:"session_type"`
	CardsReviewed    int32                 `json:"cards_reviewed"`
	CardsCorrect     int32                 `json:"cards_correct"`
	CardsFailed      int32                 `json:"cards_failed"`
	TotalTimeSpentMs int64                 `json:"total_time_spent_ms"`
	StartedAt        time.Time             `json:"started_at"`
	CompletedAt      time.Time             `json:"completed_at"`
	Results          []sessionItemResponse `json:"results"`
}

type statsResponse struct {
	Total       int64            `json:"total"`
	Active      int64            `json:"active"`
	Archived    int64            `json:"archived"`
	ByStatus    map[string]int64 `json:"by_status"`
	DueToday    int64            `json:"due_today"`
	SuccessRate float64          `json:"success_rate"`
}

func toCardResponse(card *entity.Card) cardResponse {
	return cardResponse{
		ID:                 card.ID,
		UserID:             card.UserID,
		QuestionID:         card.QuestionID,
		Topic:              card.Topic,
		Subtopic:           card.Subtopic,
		Status:             string(card.Status),
		IntervalDays:       card.IntervalDays,
		EaseFactor:         card.EaseFactor,
		RepetitionCount:    card.RepetitionCount,
		NextReviewDate:     string(card.NextReviewDate),
		LastReviewedAt:     card.LastReviewedAt,
		IsDue:              card.IsDue,
		TotalAttempts:      card.TotalAttempts,
		SuccessfulAttempts: card.SuccessfulAttempts,
		FailedAttempts:     card.FailedAttempts,
		IsActive:           card.IsActive,
		ArchivedAt:         card.ArchivedAt,
		ArchiveReason:      string(card.ArchiveReason),
		CreatedAt:          card.CreatedAt,
		UpdatedAt:          card.UpdatedAt,
	}
}

func toCardResponses(cards []*entity.Card) []cardResponse {
	out := make([]cardResponse, 0, len(cards))
	for _, card := range cards {
		out = append(out, toCardResponse(card))
	}
	return out
}

func toMistakeResponse(result *usecase.MistakeResult) reportMistakesResponse {
	resp := reportMistakesResponse{
		Cards: toCardResponses(result.Cards),
		Total: int64(len(result.Cards)),
	}
	for _, skip := range result.Skipped {
		out := skippedMistakeResponse{
			QuestionID: skip.Entry.QuestionID,
			Topic:      skip.Entry.Topic,
			Subtopic:   skip.Entry.Subtopic,
		}
		if skip.Reason != nil {
			out.Reason = skip.Reason.Error()
		}
		resp.Skipped = append(resp.Skipped, out)
	}
	return resp
}

func toAttemptResponse(attempt *entity.ReviewAttempt) attemptResponse {
	return attemptResponse{
		ID:            attempt.ID,
		CardID:        attempt.CardID,
		AttemptNumber: attempt.AttemptNumber,
		WasCorrect:    attempt.WasCorrect,
		AttemptedAt:   attempt.AttemptedAt,
		SessionID:     attempt.ReviewSessionID,
	}
}

func toSessionResponse(result *usecase.SessionResult) sessionResponse {
	session := result.Session
	resp := sessionResponse{
		ID:               session.ID,
		UserID:           session.UserID,
		SessionType:      string(session.SessionType),
		CardsReviewed:    session.CardsReviewed,
		CardsCorrect:     session.CardsCorrect,
		CardsFailed:      session.CardsFailed,
		TotalTimeSpentMs: session.TotalTimeSpentMs,
		StartedAt:        session.StartedAt,
		CompletedAt:      session.CompletedAt,
		Results:          make([]sessionItemResponse, 0, len(result.Results)),
	}
	for _, item := range result.Results {
		out := sessionItemResponse{CardID: item.CardID}
		if item.Err != nil {
			out.Error = item.Err.Error()
		}
		if item.Card != nil {
			card := toCardResponse(item.Card)
			out.Card = &card
		}
		if item.Attempt != nil {
			attempt := toAttemptResponse(item.Attempt)
			out.Attempt = &attempt
		}
		resp.Results = append(resp.Results, out)
	}
	return resp
}

func toStatsResponse(stats *entity.ReviewStats) statsResponse {
	byStatus := make(map[string]int64, len(stats.ByStatus))
	for status, count := range stats.ByStatus {
		byStatus[string(status)] = count
	}
	return statsResponse{
		Total:       stats.Total,
		Active:      stats.Active,
		Archived:    stats.Archived,
		ByStatus:    byStatus,
		DueToday:    stats.DueToday,
		SuccessRate: stats.SuccessRate,
	}
}
