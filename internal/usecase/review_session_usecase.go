package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// ReviewSubmission is one card outcome inside a batch.
type ReviewSubmission struct {
	CardID        string
	WasCorrect    bool
	UserAnswer    string
	CorrectAnswer string
	TimeSpentMs   int64
}

// ReviewItemResult reports the outcome of one submission. Err is set when the
// review did not commit; the card was left untouched in that case.
type ReviewItemResult struct {
	CardID  string
	Card    *entity.Card
	Attempt *entity.ReviewAttempt
	Err     error
}

// SessionResult bundles the persisted summary with per-item outcomes.
type SessionResult struct {
	Session *entity.ReviewSession
	Results []ReviewItemResult
}

// ReviewSessionUsecase applies a batch of independent reviews as one logical
// unit. Items are processed sequentially and a failure on one never aborts
// the rest; the summary counts only reviews whose card commit succeeded, so
// CardsCorrect + CardsFailed == CardsReviewed always holds.
type ReviewSessionUsecase interface {
	SubmitReviewSession(ctx context.Context, userID int64, reviews []ReviewSubmission, sessionType entity.SessionType) (*SessionResult, error)
}

// NewReviewSessionUsecase wires the batch processor on top of the lifecycle
// manager.
func NewReviewSessionUsecase(
	lifecycle CardLifecycleUsecase,
	sessions repository.SessionRepository,
	clock dayclock.Clock,
	logger *logrus.Logger,
) ReviewSessionUsecase {
	return &reviewSessionUsecase{
		lifecycle: lifecycle,
		sessions:  sessions,
		clock:     clock,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

type reviewSessionUsecase struct {
	lifecycle CardLifecycleUsecase
	sessions  repository.SessionRepository
	clock     dayclock.Clock
	logger    *logrus.Logger
	newID     func() string
}

func (u *reviewSessionUsecase) SubmitReviewSession(ctx context.Context, userID int64, reviews []ReviewSubmission, sessionType entity.SessionType) (*SessionResult, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	switch sessionType {
	case "":
		sessionType = entity.SessionTypeReview
	case entity.SessionTypeReview, entity.SessionTypeQuiz:
	default:
		return nil, entity.ErrInvalidReviewRequest
	}

	sessionID := u.newID()
	startedAt := u.clock.Now()

	session := &entity.ReviewSession{
		ID:          sessionID,
		UserID:      userID,
		SessionType: sessionType,
		StartedAt:   startedAt,
	}

	results := make([]ReviewItemResult, 0, len(reviews))
	for _, review := range reviews {
		res, err := u.lifecycle.SubmitReview(ctx, review.CardID, review.WasCorrect, ReviewMetadata{
			UserAnswer:      review.UserAnswer,
			CorrectAnswer:   review.CorrectAnswer,
			TimeSpentMs:     review.TimeSpentMs,
			ReviewSessionID: sessionID,
		})
		if err != nil {
			u.logger.WithError(err).WithFields(logrus.Fields{
				"card_id":    review.CardID,
				"session_id": sessionID,
			}).Warn("review failed inside session, continuing")
			results = append(results, ReviewItemResult{CardID: review.CardID, Err: err})
			continue
		}

		results = append(results, ReviewItemResult{CardID: review.CardID, Card: res.Card, Attempt: res.Attempt})
		session.CardsReviewed++
		if review.WasCorrect {
			session.CardsCorrect++
		} else {
			session.CardsFailed++
		}
		session.TotalTimeSpentMs += review.TimeSpentMs
	}

	now := u.clock.Now()
	session.CompletedAt = now
	session.CreatedAt = now

	saved, err := u.sessions.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: saved, Results: results}, nil
}
