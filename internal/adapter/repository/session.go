package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const sessionColumns = `id, user_id, cards_reviewed, cards_correct, cards_failed,
	total_time_spent_ms, session_type, started_at, completed_at, created_at`

type sessionRepository struct {
	db DB
}

// NewSessionRepository constructs the pgx-backed review session store.
func NewSessionRepository(db DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, session *entity.ReviewSession) (*entity.ReviewSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO review_sessions (`+sessionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		session.ID, session.UserID, session.CardsReviewed, session.CardsCorrect,
		session.CardsFailed, session.TotalTimeSpentMs, string(session.SessionType),
		toPgTimestamp(ptrTime(session.StartedAt)), toPgTimestamp(ptrTime(session.CompletedAt)),
		toPgTimestamp(ptrTime(session.CreatedAt)))
	if err != nil {
		return nil, translatePgError(err)
	}
	return session, nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*entity.ReviewSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		s           entity.ReviewSession
		sessionType string
		startedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
		createdAt   pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM review_sessions WHERE id = $1`, id).Scan(
		&s.ID, &s.UserID, &s.CardsReviewed, &s.CardsCorrect, &s.CardsFailed,
		&s.TotalTimeSpentMs, &sessionType, &startedAt, &completedAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.SessionType = entity.SessionType(sessionType)
	if startedAt.Valid {
		s.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		s.CompletedAt = completedAt.Time
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	return &s, nil
}
