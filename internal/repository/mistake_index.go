package repository

import (
	"context"

	"github.com/eslsoft/mistbook/internal/entity"
)

// MistakeIndexRepository stores the denormalized per-question projection
// consumed by the mistake-notebook UI. Write-only from the engine's side.
type MistakeIndexRepository interface {
	Put(ctx context.Context, entry entity.MistakeIndexEntry) error
}
