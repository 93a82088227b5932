package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
	"github.com/eslsoft/mistbook/pkg/filterexpr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const cardColumns = `id, user_id, question_id, topic, subtopic, status,
	interval_days, ease_factor, repetition_count, next_review_date,
	last_reviewed_at, is_due, total_attempts, successful_attempts,
	failed_attempts, current_attempt_number, is_active, archived_at,
	archive_reason, created_from_attempt_id, session_id, created_at, updated_at`

type cardRepository struct {
	db DB
}

// NewCardRepository constructs a pgx-backed card store.
func NewCardRepository(db DB) repository.CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Get(ctx context.Context, id string) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, id)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrCardNotFound
		}
		return nil, fmt.Errorf("get card: %w", err)
	}
	return card, nil
}

func (r *cardRepository) FindByUserQuestion(ctx context.Context, userID int64, questionID string) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if questionID == "" {
		return nil, nil
	}
	row := r.db.QueryRow(ctx,
		`SELECT `+cardColumns+` FROM cards WHERE user_id = $1 AND question_id = $2`,
		userID, questionID)
	card, err := scanCard(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find card: %w", err)
	}
	return card, nil
}

func (r *cardRepository) Upsert(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO cards (`+cardColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (id) DO UPDATE SET
			topic = EXCLUDED.topic,
			subtopic = EXCLUDED.subtopic,
			status = EXCLUDED.status,
			interval_days = EXCLUDED.interval_days,
			ease_factor = EXCLUDED.ease_factor,
			repetition_count = EXCLUDED.repetition_count,
			next_review_date = EXCLUDED.next_review_date,
			last_reviewed_at = EXCLUDED.last_reviewed_at,
			is_due = EXCLUDED.is_due,
			total_attempts = EXCLUDED.total_attempts,
			successful_attempts = EXCLUDED.successful_attempts,
			failed_attempts = EXCLUDED.failed_attempts,
			current_attempt_number = EXCLUDED.current_attempt_number,
			is_active = EXCLUDED.is_active,
			archived_at = EXCLUDED.archived_at,
			archive_reason = EXCLUDED.archive_reason,
			created_from_attempt_id = EXCLUDED.created_from_attempt_id,
			session_id = EXCLUDED.session_id,
			updated_at = EXCLUDED.updated_at
		RETURNING `+cardColumns,
		card.ID, card.UserID, card.QuestionID, card.Topic, toPgText(card.Subtopic),
		string(card.Status), card.IntervalDays, card.EaseFactor, card.RepetitionCount,
		toPgDate(card.NextReviewDate), toPgTimestamp(card.LastReviewedAt), card.IsDue,
		card.TotalAttempts, card.SuccessfulAttempts, card.FailedAttempts,
		card.CurrentAttemptNumber, card.IsActive, toPgTimestamp(card.ArchivedAt),
		toPgText(string(card.ArchiveReason)), toPgText(card.CreatedFromAttemptID),
		toPgText(card.SessionID), toPgTimestamp(ptrTime(card.CreatedAt)),
		toPgTimestamp(ptrTime(card.UpdatedAt)))

	saved, err := scanCard(row)
	if err != nil {
		return nil, translatePgError(err)
	}
	return saved, nil
}

func (r *cardRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return entity.ErrCardNotFound
	}
	return nil
}

type listCardsParams struct {
	Status    string
	Topic     string
	Topics    []string
	OrderKey  string
	OrderDesc bool
}

func (r *cardRepository) List(ctx context.Context, query *repository.ListCardQuery) ([]*entity.Card, int64, error) {
	var p listCardsParams
	if err := filterexpr.Bind(query, &p, listCardsSchema); err != nil {
		return nil, 0, err
	}

	where, args := buildCardConditions(query.UserID, p)
	countSQL := `SELECT COUNT(*) FROM cards WHERE ` + where

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cards: %w", err)
	}

	dir := "ASC"
	if p.OrderDesc {
		dir = "DESC"
	}
	listSQL := fmt.Sprintf(`SELECT %s FROM cards WHERE %s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d`,
		cardColumns, where, p.OrderKey, dir, len(args)+1, len(args)+2)
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	offset := query.Offset()
	if offset < 0 {
		offset = 0
	}
	args = append(args, pageSize, offset)

	cards, err := r.queryCards(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cards: %w", err)
	}
	return cards, total, nil
}

func buildCardConditions(userID int64, p listCardsParams) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if p.Status != "" {
		args = append(args, p.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Topic != "" {
		args = append(args, p.Topic)
		conds = append(conds, fmt.Sprintf("topic LIKE $%d || '%%'", len(args)))
	}
	if len(p.Topics) > 0 {
		args = append(args, p.Topics)
		conds = append(conds, fmt.Sprintf("topic = ANY($%d)", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *cardRepository) ListDueBetween(ctx context.Context, userID int64, from, to dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	sql := `SELECT ` + cardColumns + ` FROM cards
		WHERE user_id = $1 AND is_active AND next_review_date >= $2 AND next_review_date <= $3
		ORDER BY next_review_date, id`
	args := []any{userID, toPgDate(from), toPgDate(to)}
	if limit > 0 {
		sql += ` LIMIT $4`
		args = append(args, limit)
	}
	return r.queryCards(ctx, sql, args...)
}

func (r *cardRepository) ListDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	sql := `SELECT ` + cardColumns + ` FROM cards
		WHERE user_id = $1 AND is_active AND next_review_date = $2
		ORDER BY id`
	args := []any{userID, toPgDate(day)}
	if limit > 0 {
		sql += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.queryCards(ctx, sql, args...)
}

func (r *cardRepository) ListDueBefore(ctx context.Context, userID int64, cutoff dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	sql := `SELECT ` + cardColumns + ` FROM cards
		WHERE user_id = $1 AND is_active AND next_review_date < $2
		ORDER BY next_review_date, id`
	args := []any{userID, toPgDate(cutoff)}
	if limit > 0 {
		sql += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.queryCards(ctx, sql, args...)
}

func (r *cardRepository) CountDueBetween(ctx context.Context, userID int64, from, toExclusive dayclock.DayKey) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cards
		WHERE user_id = $1 AND is_active AND next_review_date >= $2 AND next_review_date < $3`,
		userID, toPgDate(from), toPgDate(toExclusive)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due cards: %w", err)
	}
	return count, nil
}

func (r *cardRepository) CountDueOn(ctx context.Context, userID int64, day dayclock.DayKey) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cards
		WHERE user_id = $1 AND is_active AND next_review_date = $2`,
		userID, toPgDate(day)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count due cards: %w", err)
	}
	return count, nil
}

func (r *cardRepository) StatusCounts(ctx context.Context, userID int64) (map[entity.CardStatus]int64, int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, is_active, COUNT(*) FROM cards
		WHERE user_id = $1 GROUP BY status, is_active`, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	active := make(map[entity.CardStatus]int64)
	var archived int64
	for rows.Next() {
		var status string
		var isActive bool
		var count int64
		if err := rows.Scan(&status, &isActive, &count); err != nil {
			return nil, 0, fmt.Errorf("status counts: %w", err)
		}
		if isActive {
			active[entity.ParseCardStatus(status)] += count
		} else {
			archived += count
		}
	}
	return active, archived, rows.Err()
}

func (r *cardRepository) AttemptTotals(ctx context.Context, userID int64) (int64, int64, error) {
	var total, successful int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total_attempts), 0), COALESCE(SUM(successful_attempts), 0)
		FROM cards WHERE user_id = $1`, userID).Scan(&total, &successful)
	if err != nil {
		return 0, 0, fmt.Errorf("attempt totals: %w", err)
	}
	return total, successful, nil
}

func (r *cardRepository) ListUsersWithOverdue(ctx context.Context, cutoff dayclock.DayKey) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM cards
		WHERE is_active AND next_review_date < $1 ORDER BY user_id`, toPgDate(cutoff))
	if err != nil {
		return nil, fmt.Errorf("list users with overdue: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list users with overdue: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *cardRepository) queryCards(ctx context.Context, sql string, args ...any) ([]*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := make([]*entity.Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

func scanCard(row pgx.Row) (*entity.Card, error) {
	var (
		card          entity.Card
		status        string
		subtopic      pgtype.Text
		nextReview    pgtype.Date
		lastReviewed  pgtype.Timestamptz
		archivedAt    pgtype.Timestamptz
		archiveReason pgtype.Text
		createdFrom   pgtype.Text
		sessionID     pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)
	err := row.Scan(
		&card.ID, &card.UserID, &card.QuestionID, &card.Topic, &subtopic, &status,
		&card.IntervalDays, &card.EaseFactor, &card.RepetitionCount, &nextReview,
		&lastReviewed, &card.IsDue, &card.TotalAttempts, &card.SuccessfulAttempts,
		&card.FailedAttempts, &card.CurrentAttemptNumber, &card.IsActive, &archivedAt,
		&archiveReason, &createdFrom, &sessionID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	card.Status = entity.ParseCardStatus(status)
	card.Subtopic = subtopic.String
	card.NextReviewDate = fromPgDate(nextReview)
	card.LastReviewedAt = fromPgTimestamp(lastReviewed)
	card.ArchivedAt = fromPgTimestamp(archivedAt)
	card.ArchiveReason = entity.ArchiveReason(archiveReason.String)
	card.CreatedFromAttemptID = createdFrom.String
	card.SessionID = sessionID.String
	if createdAt.Valid {
		card.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		card.UpdatedAt = updatedAt.Time
	}
	return &card, nil
}
