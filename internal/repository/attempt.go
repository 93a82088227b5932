package repository

import (
	"context"
	"time"

	"github.com/eslsoft/mistbook/internal/entity"
)

// AttemptRepository is the append-only audit store of review outcomes.
// Records are immutable once appended; there is no update or delete.
type AttemptRepository interface {
	Append(ctx context.Context, attempt *entity.ReviewAttempt) (*entity.ReviewAttempt, error)
	ListSince(ctx context.Context, userID int64, since time.Time) ([]*entity.ReviewAttempt, error)
}
