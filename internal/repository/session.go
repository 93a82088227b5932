package repository

import (
	"context"

	"github.com/eslsoft/mistbook/internal/entity"
)

// SessionRepository persists batch review summaries.
type SessionRepository interface {
	Create(ctx context.Context, session *entity.ReviewSession) (*entity.ReviewSession, error)
	Get(ctx context.Context, id string) (*entity.ReviewSession, error)
}
