package scheduler

import (
	"testing"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

const day0 = dayclock.DayKey("2024-01-01")

func newState() entity.StateSnapshot {
	return entity.StateSnapshot{
		Status:       entity.StatusNew,
		IntervalDays: 1,
		EaseFactor:   2.5,
	}
}

func TestNextCorrectWalksLearningSteps(t *testing.T) {
	p := DefaultParams()

	st, due := p.Next(newState(), true, day0)
	if st.Status != entity.StatusLearning || st.IntervalDays != 1 || st.RepetitionCount != 1 {
		t.Fatalf("first correct: got %+v", st)
	}
	if due != day0.AddDays(1) {
		t.Fatalf("first correct due = %s, want %s", due, day0.AddDays(1))
	}

	st, due = p.Next(st, true, day0.AddDays(1))
	if st.Status != entity.StatusLearning || st.IntervalDays != 3 || st.RepetitionCount != 2 {
		t.Fatalf("second correct: got %+v", st)
	}
	if due != dayclock.DayKey("2024-01-05") {
		t.Fatalf("second correct due = %s", due)
	}

	// Third correct exhausts the steps: review phase, interval carries the
	// last learning step.
	st, _ = p.Next(st, true, due)
	if st.Status != entity.StatusReview || st.IntervalDays != 3 || st.RepetitionCount != 3 {
		t.Fatalf("third correct: got %+v", st)
	}
	if st.EaseFactor != 2.5 {
		t.Fatalf("ease should be untouched entering review, got %v", st.EaseFactor)
	}
}

func TestNextCorrectInReviewGrowsIntervalAndGraduates(t *testing.T) {
	p := DefaultParams()
	st := entity.StateSnapshot{
		Status:          entity.StatusReview,
		IntervalDays:    3,
		EaseFactor:      2.5,
		RepetitionCount: 3,
	}

	type step struct {
		interval int32
		ease     float64
		status   entity.CardStatus
	}
	want := []step{
		{8, 2.6, entity.StatusReview},    // round(3*2.5)
		{21, 2.7, entity.StatusReview},   // round(8*2.6)
		{57, 2.8, entity.StatusGraduated}, // round(21*2.7) >= 30
	}
	for i, w := range want {
		st, _ = p.Next(st, true, day0)
		if st.IntervalDays != w.interval || st.Status != w.status {
			t.Fatalf("review step %d: got interval=%d status=%s, want interval=%d status=%s",
				i, st.IntervalDays, st.Status, w.interval, w.status)
		}
		if diff := st.EaseFactor - w.ease; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("review step %d: ease = %v, want %v", i, st.EaseFactor, w.ease)
		}
	}
}

func TestNextIncorrectResetsState(t *testing.T) {
	p := DefaultParams()
	st := entity.StateSnapshot{
		Status:          entity.StatusReview,
		IntervalDays:    21,
		EaseFactor:      2.7,
		RepetitionCount: 5,
	}

	st, due := p.Next(st, false, day0)
	if st.Status != entity.StatusLearning {
		t.Errorf("status = %s, want learning", st.Status)
	}
	if st.IntervalDays != 1 || st.RepetitionCount != 0 {
		t.Errorf("interval=%d reps=%d, want 1/0", st.IntervalDays, st.RepetitionCount)
	}
	if st.EaseFactor != 2.5 {
		t.Errorf("ease = %v, want 2.5", st.EaseFactor)
	}
	if due != day0.AddDays(1) {
		t.Errorf("due = %s, want %s", due, day0.AddDays(1))
	}
}

func TestNextEaseNeverDropsBelowFloor(t *testing.T) {
	p := DefaultParams()
	st := newState()
	for i := 0; i < 20; i++ {
		st, _ = p.Next(st, false, day0)
	}
	if st.EaseFactor != p.MinEase {
		t.Errorf("ease = %v, want floor %v", st.EaseFactor, p.MinEase)
	}
}

func TestNextGraduatedIsTerminal(t *testing.T) {
	p := DefaultParams()
	st := entity.StateSnapshot{
		Status:          entity.StatusGraduated,
		IntervalDays:    57,
		EaseFactor:      2.8,
		RepetitionCount: 6,
	}
	got, _ := p.Next(st, false, day0)
	if got != st {
		t.Errorf("graduated card was re-evaluated: %+v", got)
	}
}

func TestReviewPhaseIntervalIsMonotonic(t *testing.T) {
	p := DefaultParams()
	st := entity.StateSnapshot{
		Status:          entity.StatusReview,
		IntervalDays:    3,
		EaseFactor:      p.MinEase,
		RepetitionCount: 3,
	}
	prev := st.IntervalDays
	for i := 0; i < 50 && st.Status == entity.StatusReview; i++ {
		st, _ = p.Next(st, true, day0)
		if st.IntervalDays < prev {
			t.Fatalf("interval decreased from %d to %d on consecutive correct reviews", prev, st.IntervalDays)
		}
		prev = st.IntervalDays
	}
}

func TestNormalizeRepairsBadTuning(t *testing.T) {
	p := Params{LearningSteps: []int32{0, -2}, MinEase: -1, MaxEase: 0, GraduationThresholdDays: 0}
	p.Normalize()
	for _, step := range p.LearningSteps {
		if step < 1 {
			t.Errorf("learning step %d below 1", step)
		}
	}
	if p.MinEase <= 0 || p.MaxEase < p.MinEase {
		t.Errorf("ease bounds not repaired: %+v", p)
	}
	if p.GraduationThresholdDays < 1 || p.MaxIntervalDays < p.GraduationThresholdDays {
		t.Errorf("interval bounds not repaired: %+v", p)
	}
}
