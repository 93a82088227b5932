package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/internal/scheduler"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// ReviewMetadata carries the non-scheduling details of one review submission.
type ReviewMetadata struct {
	UserAnswer      string
	CorrectAnswer   string
	TimeSpentMs     int64
	ReviewSessionID string
}

// ReviewResult pairs the updated card with its audit record.
type ReviewResult struct {
	Card    *entity.Card
	Attempt *entity.ReviewAttempt
}

// SkippedMistake records a batch entry that was not turned into a card,
// with the reason it was rejected.
type SkippedMistake struct {
	Entry  entity.MissedQuestion
	Reason error
}

// MistakeResult reports which entries became cards and which were skipped.
type MistakeResult struct {
	Cards   []*entity.Card
	Skipped []SkippedMistake
}

// CardLifecycleUsecase owns card creation, reuse/reactivation and review
// submission. It is the only component that invokes the scheduling algorithm
// and the only writer of card + attempt state.
type CardLifecycleUsecase interface {
	CreateOrReuseCards(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*MistakeResult, error)
	SubmitReview(ctx context.Context, cardID string, wasCorrect bool, meta ReviewMetadata) (*ReviewResult, error)
}

// NewCardLifecycleUsecase wires the lifecycle manager.
func NewCardLifecycleUsecase(
	tx repository.TxManager,
	params scheduler.Params,
	projector Projector,
	clock dayclock.Clock,
	logger *logrus.Logger,
) CardLifecycleUsecase {
	params.Normalize()
	return &cardLifecycleUsecase{
		tx:        tx,
		params:    params,
		projector: projector,
		clock:     clock,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

type cardLifecycleUsecase struct {
	tx        repository.TxManager
	params    scheduler.Params
	projector Projector
	clock     dayclock.Clock
	logger    *logrus.Logger
	newID     func() string
}

func (u *cardLifecycleUsecase) CreateOrReuseCards(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*MistakeResult, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}

	// Malformed entries are skipped, not fatal: one bad mistake record must
	// not lose the rest of the batch, but the skip is reported back to the
	// caller. Duplicate questions within one batch collapse to a single card.
	valid := make([]entity.MissedQuestion, 0, len(missed))
	var skipped []SkippedMistake
	for _, q := range missed {
		q.QuestionID = strings.TrimSpace(q.QuestionID)
		if q.QuestionID == "" {
			u.logger.WithField("user_id", userID).Warn("skipping mistake entry without question id")
			skipped = append(skipped, SkippedMistake{Entry: q, Reason: entity.ErrInvalidMistakeEntry})
			continue
		}
		valid = append(valid, q)
	}
	valid = lo.UniqBy(valid, func(q entity.MissedQuestion) string { return q.QuestionID })
	if len(valid) == 0 {
		return &MistakeResult{Cards: []*entity.Card{}, Skipped: skipped}, nil
	}

	now := u.clock.Now()
	today := u.clock.Today()

	cards := make([]*entity.Card, 0, len(valid))
	err := u.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		for _, q := range valid {
			existing, err := stores.Cards.FindByUserQuestion(ctx, userID, q.QuestionID)
			if err != nil {
				return err
			}

			var card *entity.Card
			switch {
			case existing == nil:
				card = newCard(userID, q, sessionID, attemptID, u.params.InitialEase, today)
			case existing.IsActive:
				// A second mistake before review only refreshes labels; the
				// scheduling clock is untouched.
				card = existing
				card.Topic = q.Topic
				card.Subtopic = q.Subtopic
			default:
				card = reactivate(existing, q, sessionID, attemptID, u.params.InitialEase, today)
			}
			card.Normalize(now)
			card.RecomputeDue(today)

			saved, err := stores.Cards.Upsert(ctx, card)
			if err != nil {
				return err
			}
			cards = append(cards, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	projectAll(ctx, u.projector, u.logger, cards...)
	return &MistakeResult{Cards: cards, Skipped: skipped}, nil
}

func newCard(userID int64, q entity.MissedQuestion, sessionID, attemptID string, initialEase float64, today dayclock.DayKey) *entity.Card {
	return &entity.Card{
		ID:                   entity.CardID(userID, q.QuestionID),
		UserID:               userID,
		QuestionID:           q.QuestionID,
		Topic:                q.Topic,
		Subtopic:             q.Subtopic,
		Status:               entity.StatusNew,
		IntervalDays:         1,
		EaseFactor:           initialEase,
		NextReviewDate:       today.AddDays(1),
		IsActive:             true,
		CreatedFromAttemptID: attemptID,
		SessionID:            sessionID,
	}
}

// reactivate resets an archived or graduated card back to a fresh scheduling
// state while keeping its identity, so historical attempts stay linked.
func reactivate(card *entity.Card, q entity.MissedQuestion, sessionID, attemptID string, initialEase float64, today dayclock.DayKey) *entity.Card {
	card.Topic = q.Topic
	card.Subtopic = q.Subtopic
	card.Status = entity.StatusNew
	card.IntervalDays = 1
	card.EaseFactor = initialEase
	card.RepetitionCount = 0
	card.NextReviewDate = today.AddDays(1)
	card.LastReviewedAt = nil
	card.TotalAttempts = 0
	card.SuccessfulAttempts = 0
	card.FailedAttempts = 0
	card.CurrentAttemptNumber = 0
	card.IsActive = true
	card.ArchivedAt = nil
	card.ArchiveReason = entity.ArchiveReasonNone
	card.CreatedFromAttemptID = attemptID
	card.SessionID = sessionID
	return card
}

func (u *cardLifecycleUsecase) SubmitReview(ctx context.Context, cardID string, wasCorrect bool, meta ReviewMetadata) (*ReviewResult, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, entity.ErrInvalidCardID
	}

	now := u.clock.Now()
	today := u.clock.Today()

	var result ReviewResult
	err := u.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
		card, err := stores.Cards.Get(ctx, cardID)
		if err != nil {
			return err
		}
		if !card.IsActive {
			return entity.ErrCardArchived
		}

		before := entity.SnapshotOf(card)
		after, nextReview := u.params.Next(before, wasCorrect, today)

		card.Status = after.Status
		card.IntervalDays = after.IntervalDays
		card.EaseFactor = after.EaseFactor
		card.RepetitionCount = after.RepetitionCount
		card.NextReviewDate = nextReview
		card.LastReviewedAt = &now
		card.TotalAttempts++
		card.CurrentAttemptNumber++
		if wasCorrect {
			card.SuccessfulAttempts++
		} else {
			card.FailedAttempts++
		}
		if after.Status == entity.StatusGraduated {
			card.IsActive = false
			card.ArchivedAt = &now
			card.ArchiveReason = entity.ArchiveReasonGraduated
		}
		card.Normalize(now)
		card.RecomputeDue(today)

		attempt := &entity.ReviewAttempt{
			ID:              u.newID(),
			CardID:          card.ID,
			UserID:          card.UserID,
			QuestionID:      card.QuestionID,
			AttemptNumber:   card.CurrentAttemptNumber,
			WasCorrect:      wasCorrect,
			UserAnswer:      meta.UserAnswer,
			CorrectAnswer:   meta.CorrectAnswer,
			TimeSpentMs:     meta.TimeSpentMs,
			AttemptedAt:     now,
			StateBefore:     before,
			StateAfter:      after,
			ReviewSessionID: meta.ReviewSessionID,
			CreatedAt:       now,
		}

		saved, err := stores.Cards.Upsert(ctx, card)
		if err != nil {
			return err
		}
		logged, err := stores.Attempts.Append(ctx, attempt)
		if err != nil {
			return err
		}
		result = ReviewResult{Card: saved, Attempt: logged}
		return nil
	})
	if err != nil {
		return nil, err
	}

	projectAll(ctx, u.projector, u.logger, result.Card)
	return &result, nil
}
