package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
)

const attemptColumns = `id, card_id, user_id, question_id, attempt_number, was_correct,
	user_answer, correct_answer, time_spent_ms, attempted_at,
	before_status, before_interval_days, before_ease_factor, before_repetition_count,
	after_status, after_interval_days, after_ease_factor, after_repetition_count,
	review_session_id, created_at`

type attemptRepository struct {
	db DB
}

// NewAttemptRepository constructs the pgx-backed attempt log. Rows are only
// ever inserted; there is deliberately no update or delete statement here.
func NewAttemptRepository(db DB) repository.AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) Append(ctx context.Context, attempt *entity.ReviewAttempt) (*entity.ReviewAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO review_attempts (`+attemptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		attempt.ID, attempt.CardID, attempt.UserID, attempt.QuestionID,
		attempt.AttemptNumber, attempt.WasCorrect, attempt.UserAnswer,
		attempt.CorrectAnswer, attempt.TimeSpentMs, toPgTimestamp(ptrTime(attempt.AttemptedAt)),
		string(attempt.StateBefore.Status), attempt.StateBefore.IntervalDays,
		attempt.StateBefore.EaseFactor, attempt.StateBefore.RepetitionCount,
		string(attempt.StateAfter.Status), attempt.StateAfter.IntervalDays,
		attempt.StateAfter.EaseFactor, attempt.StateAfter.RepetitionCount,
		toPgText(attempt.ReviewSessionID), toPgTimestamp(ptrTime(attempt.CreatedAt)))
	if err != nil {
		return nil, translatePgError(err)
	}
	return attempt, nil
}

func (r *attemptRepository) ListSince(ctx context.Context, userID int64, since time.Time) ([]*entity.ReviewAttempt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The bound is always a concrete timestamp: a zero since means "from the
	// beginning", never >= NULL (which matches nothing).
	rows, err := r.db.Query(ctx, `SELECT `+attemptColumns+` FROM review_attempts
		WHERE user_id = $1 AND attempted_at >= $2 ORDER BY attempted_at, id`,
		userID, pgtype.Timestamptz{Time: since, Valid: true})
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*entity.ReviewAttempt, 0)
	for rows.Next() {
		var (
			a            entity.ReviewAttempt
			beforeStatus string
			afterStatus  string
			attemptedAt  pgtype.Timestamptz
			sessionID    pgtype.Text
			createdAt    pgtype.Timestamptz
		)
		err := rows.Scan(
			&a.ID, &a.CardID, &a.UserID, &a.QuestionID, &a.AttemptNumber, &a.WasCorrect,
			&a.UserAnswer, &a.CorrectAnswer, &a.TimeSpentMs, &attemptedAt,
			&beforeStatus, &a.StateBefore.IntervalDays, &a.StateBefore.EaseFactor, &a.StateBefore.RepetitionCount,
			&afterStatus, &a.StateAfter.IntervalDays, &a.StateAfter.EaseFactor, &a.StateAfter.RepetitionCount,
			&sessionID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		a.StateBefore.Status = entity.ParseCardStatus(beforeStatus)
		a.StateAfter.Status = entity.ParseCardStatus(afterStatus)
		a.ReviewSessionID = sessionID.String
		if attemptedAt.Valid {
			a.AttemptedAt = attemptedAt.Time
		}
		if createdAt.Valid {
			a.CreatedAt = createdAt.Time
		}
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}
