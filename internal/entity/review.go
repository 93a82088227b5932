package entity

import "time"

// StateSnapshot freezes the scheduling fields of a card at a point in time.
// Attempts carry a before/after pair so the audit trail reconstructs every
// transition without replaying the algorithm.
type StateSnapshot struct {
	Status          CardStatus
	IntervalDays    int32
	EaseFactor      float64
	RepetitionCount int32
}

// SnapshotOf captures the current scheduling state of a card.
func SnapshotOf(c *Card) StateSnapshot {
	return StateSnapshot{
		Status:          c.Status,
		IntervalDays:    c.IntervalDays,
		EaseFactor:      c.EaseFactor,
		RepetitionCount: c.RepetitionCount,
	}
}

// ReviewAttempt is one append-only audit record per review submission.
// Immutable once written.
type ReviewAttempt struct {
	ID              string
	CardID          string
	UserID          int64
	QuestionID      string
	AttemptNumber   int32
	WasCorrect      bool
	UserAnswer      string
	CorrectAnswer   string
	TimeSpentMs     int64
	AttemptedAt     time.Time
	StateBefore     StateSnapshot
	StateAfter      StateSnapshot
	ReviewSessionID string
	CreatedAt       time.Time
}

// SessionType distinguishes how a batch of reviews was initiated.
type SessionType string

const (
	SessionTypeReview SessionType = "review"
	SessionTypeQuiz   SessionType = "quiz"
)

// ReviewSession summarises one batch of reviews submitted together.
type ReviewSession struct {
	ID               string
	UserID           int64
	CardsReviewed    int32
	CardsCorrect     int32
	CardsFailed      int32
	TotalTimeSpentMs int64
	SessionType      SessionType
	StartedAt        time.Time
	CompletedAt      time.Time
	CreatedAt        time.Time
}

// ReviewStats is the aggregate view returned to dashboards.
type ReviewStats struct {
	Total       int64
	Active      int64
	Archived    int64
	ByStatus    map[CardStatus]int64
	DueToday    int64
	SuccessRate float64
}
