package repository

import (
	"context"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// ListCardQuery holds parameters for listing a user's cards.
type ListCardQuery struct {
	Pagination
	FilterOrder

	UserID int64
}

// CardRepository abstracts persistence for cards to keep usecases storage
// agnostic. Upsert fully replaces the record or fails; partial writes are
// never observable.
type CardRepository interface {
	Get(ctx context.Context, id string) (*entity.Card, error)
	// FindByUserQuestion looks a card up by its (user, question) identity
	// regardless of status. Returns (nil, nil) when no card exists.
	FindByUserQuestion(ctx context.Context, userID int64, questionID string) (*entity.Card, error)
	List(ctx context.Context, query *ListCardQuery) ([]*entity.Card, int64, error)
	Upsert(ctx context.Context, card *entity.Card) (*entity.Card, error)
	Delete(ctx context.Context, id string) error

	// ListDueBetween returns active cards with from <= nextReviewDate <= to,
	// ordered by nextReviewDate. A limit <= 0 means no limit.
	ListDueBetween(ctx context.Context, userID int64, from, to dayclock.DayKey, limit int32) ([]*entity.Card, error)
	// ListDueOn returns active cards due exactly on the given day.
	ListDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error)
	// ListDueBefore returns active cards with nextReviewDate < cutoff,
	// ordered by nextReviewDate, for paged archive sweeps.
	ListDueBefore(ctx context.Context, userID int64, cutoff dayclock.DayKey, limit int32) ([]*entity.Card, error)
	// CountDueBetween counts active cards with from <= nextReviewDate < toExclusive.
	CountDueBetween(ctx context.Context, userID int64, from, toExclusive dayclock.DayKey) (int64, error)
	// CountDueOn counts active cards due exactly on the given day.
	CountDueOn(ctx context.Context, userID int64, day dayclock.DayKey) (int64, error)

	// StatusCounts groups the user's cards by status, split by active flag.
	StatusCounts(ctx context.Context, userID int64) (active map[entity.CardStatus]int64, archived int64, err error)
	// AttemptTotals sums total and successful attempt counters across the
	// user's cards, for success-rate reporting.
	AttemptTotals(ctx context.Context, userID int64) (total, successful int64, err error)
	// ListUsersWithOverdue returns user ids owning at least one active card
	// with nextReviewDate < cutoff, for whole-instance sweeps.
	ListUsersWithOverdue(ctx context.Context, cutoff dayclock.DayKey) ([]int64, error)
}
