package entity

import "errors"

// Domain errors for cards and related aggregates.
var (
	ErrCardNotFound         = errors.New("card not found")
	ErrSessionNotFound      = errors.New("review session not found")
	ErrCardArchived         = errors.New("card is archived and cannot be reviewed")
	ErrCardNotArchived      = errors.New("card is not archived")
	ErrDuplicateCard        = errors.New("card already exists")
	ErrInvalidUserID        = errors.New("invalid user ID")
	ErrInvalidCardID        = errors.New("invalid card ID")
	ErrInvalidMistakeEntry  = errors.New("invalid mistake entry")
	ErrInvalidReviewRequest = errors.New("invalid review request")

	// ErrCommitFailed marks an atomic multi-record write that did not apply.
	// The whole unit is treated as not-happened and is safe to retry.
	ErrCommitFailed = errors.New("atomic commit failed")
)
