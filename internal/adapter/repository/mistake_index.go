package repository

import (
	"context"
	"fmt"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
)

type mistakeIndexRepository struct {
	db DB
}

// NewMistakeIndexRepository constructs the pgx-backed mistake index writer.
func NewMistakeIndexRepository(db DB) repository.MistakeIndexRepository {
	return &mistakeIndexRepository{db: db}
}

func (r *mistakeIndexRepository) Put(ctx context.Context, entry entity.MistakeIndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO mistake_index (user_id, question_id, card_id, has_card, is_active, status, bucket, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (user_id, question_id) DO UPDATE SET
			card_id = EXCLUDED.card_id,
			has_card = EXCLUDED.has_card,
			is_active = EXCLUDED.is_active,
			status = EXCLUDED.status,
			bucket = EXCLUDED.bucket,
			updated_at = EXCLUDED.updated_at`,
		entry.UserID, entry.QuestionID, entry.CardID, entry.HasCard, entry.IsActive,
		string(entry.Status), string(entry.Bucket), toPgTimestamp(ptrTime(entry.UpdatedAt)))
	if err != nil {
		return fmt.Errorf("put mistake index entry: %w", err)
	}
	return nil
}
