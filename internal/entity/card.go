package entity

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// CardStatus tracks where a card sits in the scheduling state machine.
type CardStatus string

const (
	StatusNew       CardStatus = "new"
	StatusLearning  CardStatus = "learning"
	StatusReview    CardStatus = "review"
	StatusGraduated CardStatus = "graduated"
)

// ParseCardStatus converts an arbitrary string into a supported status value.
func ParseCardStatus(raw string) CardStatus {
	switch CardStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusNew:
		return StatusNew
	case StatusLearning:
		return StatusLearning
	case StatusReview:
		return StatusReview
	case StatusGraduated:
		return StatusGraduated
	default:
		return StatusNew
	}
}

// ArchiveReason records why a card was retired.
type ArchiveReason string

const (
	ArchiveReasonNone      ArchiveReason = ""
	ArchiveReasonGraduated ArchiveReason = "graduated"
	ArchiveReasonOverdue   ArchiveReason = "overdue_14_days"
)

// MissedQuestion is the quiz layer's view of a mistake: just enough to seed a card.
type MissedQuestion struct {
	QuestionID string
	Topic      string
	Subtopic   string
}

// Card is the per-(user, question) spaced-repetition record. At most one card
// exists per pair; retired cards keep their row so history and reactivation work.
type Card struct {
	ID         string
	UserID     int64
	QuestionID string
	Topic      string
	Subtopic   string

	Status          CardStatus
	IntervalDays    int32
	EaseFactor      float64
	RepetitionCount int32
	NextReviewDate  dayclock.DayKey
	LastReviewedAt  *time.Time
	IsDue           bool

	TotalAttempts        int32
	SuccessfulAttempts   int32
	FailedAttempts       int32
	CurrentAttemptNumber int32

	IsActive      bool
	ArchivedAt    *time.Time
	ArchiveReason ArchiveReason

	CreatedFromAttemptID string
	SessionID            string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CardID derives the deterministic card identity for a (user, question) pair.
// The hash keeps ids uniform and opaque while guaranteeing at most one active
// card per pair; reactivation reuses the same id so attempts stay linked.
func CardID(userID int64, questionID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", userID, strings.TrimSpace(questionID))))
	return fmt.Sprintf("%x", sum[:16])
}

// Normalize ensures defaults & constraints before persistence.
func (c *Card) Normalize(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = StatusNew
	}
	if c.IntervalDays < 1 {
		c.IntervalDays = 1
	}
}

// RecomputeDue refreshes the cached IsDue hint. The flag is a denormalized
// convenience for readers, never an input to scheduling decisions.
func (c *Card) RecomputeDue(today dayclock.DayKey) {
	c.IsDue = c.IsActive && !c.NextReviewDate.After(today)
}
