package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations are applied in order and must stay idempotent: db-init is safe
// to run against an already-initialized database. Optional text columns must
// stay nullable: the repositories encode empty strings as NULL.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cards (
		id                      TEXT PRIMARY KEY,
		user_id                 BIGINT NOT NULL,
		question_id             TEXT NOT NULL,
		topic                   TEXT NOT NULL DEFAULT '',
		subtopic                TEXT,
		status                  TEXT NOT NULL,
		interval_days           INTEGER NOT NULL,
		ease_factor             DOUBLE PRECISION NOT NULL,
		repetition_count        INTEGER NOT NULL DEFAULT 0,
		next_review_date        DATE NOT NULL,
		last_reviewed_at        TIMESTAMPTZ,
		is_due                  BOOLEAN NOT NULL DEFAULT FALSE,
		total_attempts          INTEGER NOT NULL DEFAULT 0,
		successful_attempts     INTEGER NOT NULL DEFAULT 0,
		failed_attempts         INTEGER NOT NULL DEFAULT 0,
		current_attempt_number  INTEGER NOT NULL DEFAULT 0,
		is_active               BOOLEAN NOT NULL DEFAULT TRUE,
		archived_at             TIMESTAMPTZ,
		archive_reason          TEXT,
		created_from_attempt_id TEXT,
		session_id              TEXT,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT cards_user_question_key UNIQUE (user_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS cards_due_idx
		ON cards (user_id, next_review_date) WHERE is_active`,
	`CREATE INDEX IF NOT EXISTS cards_user_status_idx
		ON cards (user_id, status)`,

	`CREATE TABLE IF NOT EXISTS review_attempts (
		id                      TEXT PRIMARY KEY,
		card_id                 TEXT NOT NULL,
		user_id                 BIGINT NOT NULL,
		question_id             TEXT NOT NULL,
		attempt_number          INTEGER NOT NULL,
		was_correct             BOOLEAN NOT NULL,
		user_answer             TEXT NOT NULL DEFAULT '',
		correct_answer          TEXT NOT NULL DEFAULT '',
		time_spent_ms           BIGINT NOT NULL DEFAULT 0,
		attempted_at            TIMESTAMPTZ NOT NULL,
		before_status           TEXT NOT NULL,
		before_interval_days    INTEGER NOT NULL,
		before_ease_factor      DOUBLE PRECISION NOT NULL,
		before_repetition_count INTEGER NOT NULL,
		after_status            TEXT NOT NULL,
		after_interval_days     INTEGER NOT NULL,
		after_ease_factor       DOUBLE PRECISION NOT NULL,
		after_repetition_count  INTEGER NOT NULL,
		review_session_id       TEXT,
		created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS review_attempts_card_idx
		ON review_attempts (card_id, attempted_at)`,
	`CREATE INDEX IF NOT EXISTS review_attempts_user_idx
		ON review_attempts (user_id, attempted_at)`,

	`CREATE TABLE IF NOT EXISTS review_sessions (
		id                  TEXT PRIMARY KEY,
		user_id             BIGINT NOT NULL,
		cards_reviewed      INTEGER NOT NULL DEFAULT 0,
		cards_correct       INTEGER NOT NULL DEFAULT 0,
		cards_failed        INTEGER NOT NULL DEFAULT 0,
		total_time_spent_ms BIGINT NOT NULL DEFAULT 0,
		session_type        TEXT NOT NULL,
		started_at          TIMESTAMPTZ NOT NULL,
		completed_at        TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS review_sessions_user_idx
		ON review_sessions (user_id, started_at)`,

	`CREATE TABLE IF NOT EXISTS mistake_index (
		user_id     BIGINT NOT NULL,
		question_id TEXT NOT NULL,
		card_id     TEXT NOT NULL DEFAULT '',
		has_card    BOOLEAN NOT NULL DEFAULT FALSE,
		is_active   BOOLEAN NOT NULL DEFAULT FALSE,
		status      TEXT NOT NULL DEFAULT '',
		bucket      TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_id, question_id)
	)`,
	`CREATE INDEX IF NOT EXISTS mistake_index_bucket_idx
		ON mistake_index (user_id, bucket)`,
}

// Migrate applies the schema to the target database.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
