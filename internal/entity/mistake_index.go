package entity

import "time"

// Bucket is the coarse scheduling stage shown by the mistake-notebook UI.
type Bucket string

const (
	BucketNotInSRS    Bucket = "not_in_srs"
	BucketNew         Bucket = "new"
	BucketProgressing Bucket = "progressing"
	BucketNear        Bucket = "near"
	BucketArchived    Bucket = "archived"
)

// nearIntervalDays marks the interval at which a card is considered close to
// graduating for display purposes.
const nearIntervalDays = 7

// MistakeIndexEntry is the denormalized projection of one card, keyed by
// (user, question). It is written after card mutations and never read back
// by the scheduling engine.
type MistakeIndexEntry struct {
	UserID     int64
	QuestionID string
	CardID     string
	HasCard    bool
	IsActive   bool
	Status     CardStatus
	Bucket     Bucket
	UpdatedAt  time.Time
}

// BucketOf derives the display bucket from a card's scheduling state.
func BucketOf(c *Card) Bucket {
	switch {
	case c == nil:
		return BucketNotInSRS
	case !c.IsActive:
		return BucketArchived
	case c.Status == StatusNew:
		return BucketNew
	case c.IntervalDays >= nearIntervalDays:
		return BucketNear
	default:
		return BucketProgressing
	}
}

// IndexEntryOf builds the projection record for a card.
func IndexEntryOf(c *Card, now time.Time) MistakeIndexEntry {
	return MistakeIndexEntry{
		UserID:     c.UserID,
		QuestionID: c.QuestionID,
		CardID:     c.ID,
		HasCard:    true,
		IsActive:   c.IsActive,
		Status:     c.Status,
		Bucket:     BucketOf(c),
		UpdatedAt:  now,
	}
}
