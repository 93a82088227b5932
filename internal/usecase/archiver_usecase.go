package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// ArchiverUsecase retires cards whose review date is stale beyond the
// retention window. Sweeps are idempotent and paged: a cancelled run leaves
// committed pages durably archived and the rest untouched, safe to retry.
type ArchiverUsecase interface {
	ArchiveOverdueCards(ctx context.Context, userID int64) (int64, error)
	ArchiveAllOverdue(ctx context.Context) (int64, error)
	RestoreArchivedCard(ctx context.Context, cardID string) (*entity.Card, error)
}

// NewArchiverUsecase wires the overdue archiver.
func NewArchiverUsecase(
	tx repository.TxManager,
	cards repository.CardRepository,
	projector Projector,
	clock dayclock.Clock,
	logger *logrus.Logger,
	retentionDays int,
	batchSize int32,
) ArchiverUsecase {
	if retentionDays < 1 {
		retentionDays = 14
	}
	if batchSize < 1 {
		batchSize = 100
	}
	return &archiverUsecase{
		tx:            tx,
		cards:         cards,
		projector:     projector,
		clock:         clock,
		logger:        logger,
		retentionDays: retentionDays,
		batchSize:     batchSize,
	}
}

type archiverUsecase struct {
	tx            repository.TxManager
	cards         repository.CardRepository
	projector     Projector
	clock         dayclock.Clock
	logger        *logrus.Logger
	retentionDays int
	batchSize     int32
}

// overdueCutoff returns the strictly-before bound: a card is swept once its
// review date is retentionDays or more in the past.
func (u *archiverUsecase) overdueCutoff() dayclock.DayKey {
	return u.clock.Today().AddDays(1 - u.retentionDays)
}

func (u *archiverUsecase) ArchiveOverdueCards(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, entity.ErrInvalidUserID
	}
	cutoff := u.overdueCutoff()

	var archived int64
	for {
		// Archived cards drop out of the query, so each pass re-reads the
		// first page until nothing qualifies.
		page, err := u.cards.ListDueBefore(ctx, userID, cutoff, u.batchSize)
		if err != nil {
			return archived, err
		}
		if len(page) == 0 {
			return archived, nil
		}

		now := u.clock.Now()
		err = u.tx.WithinTx(ctx, func(ctx context.Context, stores repository.Stores) error {
			for _, card := range page {
				card.IsActive = false
				card.ArchivedAt = &now
				card.ArchiveReason = entity.ArchiveReasonOverdue
				card.IsDue = false
				card.UpdatedAt = now
				if _, err := stores.Cards.Upsert(ctx, card); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return archived, err
		}

		archived += int64(len(page))
		projectAll(ctx, u.projector, u.logger, page...)

		if int32(len(page)) < u.batchSize {
			return archived, nil
		}
	}
}

func (u *archiverUsecase) ArchiveAllOverdue(ctx context.Context) (int64, error) {
	users, err := u.cards.ListUsersWithOverdue(ctx, u.overdueCutoff())
	if err != nil {
		return 0, err
	}

	var total int64
	for _, userID := range users {
		count, err := u.ArchiveOverdueCards(ctx, userID)
		total += count
		if err != nil {
			// A failed user is retried on the next scheduled sweep.
			u.logger.WithError(err).WithField("user_id", userID).Warn("archive sweep failed for user")
		}
	}
	return total, nil
}

// RestoreArchivedCard clears the archive flags without resetting scheduling
// state. Mistake-driven reactivation (CreateOrReuseCards) is the path that
// resets; this one just undoes the retirement.
func (u *archiverUsecase) RestoreArchivedCard(ctx context.Context, cardID string) (*entity.Card, error) {
	card, err := u.cards.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.IsActive {
		return nil, entity.ErrCardNotArchived
	}

	now := u.clock.Now()
	card.IsActive = true
	card.ArchivedAt = nil
	card.ArchiveReason = entity.ArchiveReasonNone
	card.UpdatedAt = now
	card.RecomputeDue(u.clock.Today())

	saved, err := u.cards.Upsert(ctx, card)
	if err != nil {
		return nil, err
	}
	projectAll(ctx, u.projector, u.logger, saved)
	return saved, nil
}
