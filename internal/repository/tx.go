package repository

import "context"

// Stores bundles the repositories that participate in one atomic commit.
type Stores struct {
	Cards    CardRepository
	Attempts AttemptRepository
	Sessions SessionRepository
}

// TxManager runs fn inside a single atomic commit: every write issued through
// the supplied Stores either fully applies or none of it does. Failures are
// reported wrapped in entity.ErrCommitFailed.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
