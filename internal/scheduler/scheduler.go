// Package scheduler implements the interval/ease spaced-repetition algorithm.
// It is pure: no I/O, no clock access beyond the caller-supplied day.
package scheduler

import (
	"math"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// Params holds the numeric tuning of the algorithm. All values are
// configuration, not architecture; DefaultParams gives the shipped defaults.
type Params struct {
	// LearningSteps are the fixed early intervals (days) indexed by the
	// consecutive-correct counter while a card is new or learning.
	LearningSteps []int32
	InitialEase   float64
	MinEase       float64
	MaxEase       float64
	// EaseBonus is added after a correct review in the review phase,
	// EasePenalty subtracted after any incorrect review.
	EaseBonus   float64
	EasePenalty float64
	// GraduationThresholdDays graduates a card once its interval reaches it.
	GraduationThresholdDays int32
	MaxIntervalDays         int32
}

// DefaultParams returns the shipped tuning.
func DefaultParams() Params {
	return Params{
		LearningSteps:           []int32{1, 3},
		InitialEase:             2.5,
		MinEase:                 1.3,
		MaxEase:                 2.8,
		EaseBonus:               0.1,
		EasePenalty:             0.2,
		GraduationThresholdDays: 30,
		MaxIntervalDays:         365,
	}
}

// Normalize guards against unusable tuning coming from config.
func (p *Params) Normalize() {
	if len(p.LearningSteps) == 0 {
		p.LearningSteps = []int32{1, 3}
	}
	for i, step := range p.LearningSteps {
		if step < 1 {
			p.LearningSteps[i] = 1
		}
	}
	if p.MinEase <= 0 {
		p.MinEase = 1.3
	}
	if p.MaxEase < p.MinEase {
		p.MaxEase = p.MinEase
	}
	if p.InitialEase < p.MinEase {
		p.InitialEase = p.MinEase
	}
	if p.InitialEase > p.MaxEase {
		p.InitialEase = p.MaxEase
	}
	if p.GraduationThresholdDays < 1 {
		p.GraduationThresholdDays = 30
	}
	if p.MaxIntervalDays < p.GraduationThresholdDays {
		p.MaxIntervalDays = p.GraduationThresholdDays
	}
}

// Next maps (current state, outcome) to the next scheduling state and the
// next review day. Graduation is terminal: a graduated card is returned
// unchanged, callers reactivate instead of re-scheduling.
func (p Params) Next(cur entity.StateSnapshot, wasCorrect bool, today dayclock.DayKey) (entity.StateSnapshot, dayclock.DayKey) {
	if cur.Status == entity.StatusGraduated {
		return cur, today.AddDays(int(cur.IntervalDays))
	}

	next := cur
	if wasCorrect {
		next.RepetitionCount++
		switch cur.Status {
		case entity.StatusNew, entity.StatusLearning:
			idx := int(next.RepetitionCount) - 1
			if idx < len(p.LearningSteps) {
				next.Status = entity.StatusLearning
				next.IntervalDays = p.LearningSteps[idx]
			} else {
				// Past the learning steps: enter the review phase and
				// carry the last learning step forward.
				next.Status = entity.StatusReview
				next.IntervalDays = p.LearningSteps[len(p.LearningSteps)-1]
			}
		case entity.StatusReview:
			next.IntervalDays = int32(math.Round(float64(cur.IntervalDays) * cur.EaseFactor))
			next.EaseFactor = math.Min(cur.EaseFactor+p.EaseBonus, p.MaxEase)
		}
	} else {
		next.RepetitionCount = 0
		next.Status = entity.StatusLearning
		next.IntervalDays = 1
		next.EaseFactor = math.Max(cur.EaseFactor-p.EasePenalty, p.MinEase)
	}

	next.IntervalDays = clampInterval(next.IntervalDays, p.MaxIntervalDays)
	next.EaseFactor = clampEase(next.EaseFactor, p.MinEase, p.MaxEase)

	if next.Status == entity.StatusReview && next.IntervalDays >= p.GraduationThresholdDays {
		next.Status = entity.StatusGraduated
	}

	return next, today.AddDays(int(next.IntervalDays))
}

func clampInterval(days, max int32) int32 {
	if days < 1 {
		return 1
	}
	if max > 0 && days > max {
		return max
	}
	return days
}

func clampEase(ease, min, max float64) float64 {
	if ease < min {
		return min
	}
	if ease > max {
		return max
	}
	return ease
}
