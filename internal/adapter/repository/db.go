package repository

import (
	"context"
	"errors"
	"time"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/pkg/dayclock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DB is the subset of pgx executors the repositories need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so the same repository code runs standalone or
// inside an atomic commit.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return entity.ErrDuplicateCard
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return entity.ErrCardNotFound
	}
	return err
}

func toPgTimestamp(t *time.Time) pgtype.Timestamptz {
	if t == nil || t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func fromPgTimestamp(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgDate(day dayclock.DayKey) pgtype.Date {
	t := day.Time(time.UTC)
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func fromPgDate(d pgtype.Date) dayclock.DayKey {
	if !d.Valid {
		return ""
	}
	return dayclock.FromTime(d.Time, time.UTC)
}

func ptrTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
