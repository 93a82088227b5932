package usecase

import (
	"context"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
	"github.com/sirupsen/logrus"
)

// Projector pushes the denormalized mistake-index record for a card.
// Projection runs after the transactional commit and is best-effort: the
// index is a derived, rebuildable artifact, so a failed write is logged and
// never rolls back card or attempt state.
type Projector interface {
	Project(ctx context.Context, card *entity.Card) error
}

type mistakeIndexProjector struct {
	repo  repository.MistakeIndexRepository
	clock dayclock.Clock
}

// NewProjector wires the mistake index repository as a Projector.
func NewProjector(repo repository.MistakeIndexRepository, clock dayclock.Clock) Projector {
	return &mistakeIndexProjector{repo: repo, clock: clock}
}

func (p *mistakeIndexProjector) Project(ctx context.Context, card *entity.Card) error {
	return p.repo.Put(ctx, entity.IndexEntryOf(card, p.clock.Now()))
}

// projectAll runs the projector over every card, logging failures instead of
// propagating them.
func projectAll(ctx context.Context, projector Projector, logger *logrus.Logger, cards ...*entity.Card) {
	if projector == nil {
		return
	}
	for _, card := range cards {
		if card == nil {
			continue
		}
		if err := projector.Project(ctx, card); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"card_id":     card.ID,
				"question_id": card.QuestionID,
			}).Warn("mistake index projection failed")
		}
	}
}
