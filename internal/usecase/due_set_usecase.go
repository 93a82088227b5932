package usecase

import (
	"context"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// DueSetUsecase answers read-only scheduling queries. Both the due-set and
// overdue-count queries are bounded by the retention window so a long-absent
// user never receives an unbounded backlog in one response.
type DueSetUsecase interface {
	GetDueCards(ctx context.Context, userID int64, asOf dayclock.DayKey, limit int32) ([]*entity.Card, error)
	GetCardsDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error)
	GetOverdueCount(ctx context.Context, userID int64, asOf dayclock.DayKey) (int64, error)
	GetReviewStats(ctx context.Context, userID int64) (*entity.ReviewStats, error)
	ListCards(ctx context.Context, query *repository.ListCardQuery) ([]*entity.Card, int64, error)
}

// NewDueSetUsecase wires the resolver. retentionDays bounds how far back the
// due-set and overdue queries look; it matches the archiver's window.
func NewDueSetUsecase(cards repository.CardRepository, clock dayclock.Clock, retentionDays int) DueSetUsecase {
	if retentionDays < 1 {
		retentionDays = 14
	}
	return &dueSetUsecase{cards: cards, clock: clock, retentionDays: retentionDays}
}

type dueSetUsecase struct {
	cards         repository.CardRepository
	clock         dayclock.Clock
	retentionDays int
}

func (u *dueSetUsecase) GetDueCards(ctx context.Context, userID int64, asOf dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if asOf == "" {
		asOf = u.clock.Today()
	}
	from := asOf.AddDays(-u.retentionDays)
	cards, err := u.cards.ListDueBetween(ctx, userID, from, asOf, limit)
	if err != nil {
		return nil, err
	}
	refreshDue(cards, asOf)
	return cards, nil
}

func (u *dueSetUsecase) GetCardsDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	if day == "" {
		day = u.clock.Today()
	}
	cards, err := u.cards.ListDueOn(ctx, userID, day, limit)
	if err != nil {
		return nil, err
	}
	refreshDue(cards, u.clock.Today())
	return cards, nil
}

func (u *dueSetUsecase) GetOverdueCount(ctx context.Context, userID int64, asOf dayclock.DayKey) (int64, error) {
	if userID <= 0 {
		return 0, entity.ErrInvalidUserID
	}
	if asOf == "" {
		asOf = u.clock.Today()
	}
	// Overdue means strictly before asOf, within the retention window.
	return u.cards.CountDueBetween(ctx, userID, asOf.AddDays(-u.retentionDays), asOf)
}

func (u *dueSetUsecase) GetReviewStats(ctx context.Context, userID int64) (*entity.ReviewStats, error) {
	if userID <= 0 {
		return nil, entity.ErrInvalidUserID
	}
	active, archived, err := u.cards.StatusCounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	totalAttempts, successful, err := u.cards.AttemptTotals(ctx, userID)
	if err != nil {
		return nil, err
	}
	dueToday, err := u.cards.CountDueOn(ctx, userID, u.clock.Today())
	if err != nil {
		return nil, err
	}

	stats := &entity.ReviewStats{
		Archived: archived,
		ByStatus: active,
		DueToday: dueToday,
	}
	for _, count := range active {
		stats.Active += count
	}
	stats.Total = stats.Active + archived
	if totalAttempts > 0 {
		stats.SuccessRate = float64(successful) / float64(totalAttempts)
	}
	return stats, nil
}

func (u *dueSetUsecase) ListCards(ctx context.Context, query *repository.ListCardQuery) ([]*entity.Card, int64, error) {
	if query == nil || query.UserID <= 0 {
		return nil, 0, entity.ErrInvalidUserID
	}
	return u.cards.List(ctx, query)
}

// refreshDue recomputes the cached isDue hint on read, rather than trusting
// whatever was persisted.
func refreshDue(cards []*entity.Card, today dayclock.DayKey) {
	for _, card := range cards {
		card.RecomputeDue(today)
	}
}
