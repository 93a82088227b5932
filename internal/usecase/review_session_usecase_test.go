package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/eslsoft/mistbook/internal/entity"
)

func newSessionProcessor(e *env) (ReviewSessionUsecase, CardLifecycleUsecase) {
	lifecycle := newLifecycle(e)
	uc := NewReviewSessionUsecase(lifecycle, e.sessions, e.clock, e.logger)
	uc.(*reviewSessionUsecase).newID = sequentialIDs("session")
	return uc, lifecycle
}

func TestSubmitReviewSessionAggregates(t *testing.T) {
	e := newEnv(day0)
	uc, lifecycle := newSessionProcessor(e)
	ctx := context.Background()

	created, err := lifecycle.CreateOrReuseCards(ctx, 7, []entity.MissedQuestion{
		{QuestionID: "q-1"}, {QuestionID: "q-2"}, {QuestionID: "q-3"},
	}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cards := created.Cards

	result, err := uc.SubmitReviewSession(ctx, 7, []ReviewSubmission{
		{CardID: cards[0].ID, WasCorrect: true, TimeSpentMs: 3000},
		{CardID: cards[1].ID, WasCorrect: false, TimeSpentMs: 9000},
		{CardID: cards[2].ID, WasCorrect: true, TimeSpentMs: 2000},
	}, entity.SessionTypeReview)
	if err != nil {
		t.Fatalf("SubmitReviewSession: %v", err)
	}

	session := result.Session
	if session.CardsReviewed != 3 || session.CardsCorrect != 2 || session.CardsFailed != 1 {
		t.Errorf("summary = (%d, %d, %d), want (3, 2, 1)", session.CardsReviewed, session.CardsCorrect, session.CardsFailed)
	}
	if session.TotalTimeSpentMs != 14000 {
		t.Errorf("time spent = %d, want 14000", session.TotalTimeSpentMs)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 item results, got %d", len(result.Results))
	}
	for _, item := range result.Results {
		if item.Err != nil {
			t.Errorf("item %s failed: %v", item.CardID, item.Err)
		}
		if item.Attempt.ReviewSessionID != session.ID {
			t.Errorf("attempt for %s not linked to session %s", item.CardID, session.ID)
		}
	}

	stored, err := e.sessions.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	if stored.SessionType != entity.SessionTypeReview || stored.UserID != 7 {
		t.Errorf("stored session = %+v", stored)
	}
}

func TestSubmitReviewSessionContinuesPastFailures(t *testing.T) {
	e := newEnv(day0)
	uc, lifecycle := newSessionProcessor(e)
	ctx := context.Background()

	created, err := lifecycle.CreateOrReuseCards(ctx, 7, []entity.MissedQuestion{
		{QuestionID: "q-1"}, {QuestionID: "q-2"},
	}, "", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cards := created.Cards

	result, err := uc.SubmitReviewSession(ctx, 7, []ReviewSubmission{
		{CardID: cards[0].ID, WasCorrect: true},
		{CardID: "missing", WasCorrect: true},
		{CardID: cards[1].ID, WasCorrect: false},
	}, entity.SessionTypeQuiz)
	if err != nil {
		t.Fatalf("SubmitReviewSession: %v", err)
	}

	session := result.Session
	// Only committed reviews count, and the invariant still holds.
	if session.CardsReviewed != 2 {
		t.Errorf("reviewed = %d, want 2", session.CardsReviewed)
	}
	if session.CardsCorrect+session.CardsFailed != session.CardsReviewed {
		t.Errorf("counter invariant broken: %d + %d != %d", session.CardsCorrect, session.CardsFailed, session.CardsReviewed)
	}

	if len(result.Results) != 3 {
		t.Fatalf("expected 3 item results, got %d", len(result.Results))
	}
	if !errors.Is(result.Results[1].Err, entity.ErrCardNotFound) {
		t.Errorf("item err = %v, want ErrCardNotFound", result.Results[1].Err)
	}
	if result.Results[0].Err != nil || result.Results[2].Err != nil {
		t.Error("healthy items must not be affected by a failing one")
	}
}

func TestSubmitReviewSessionEmptyBatch(t *testing.T) {
	e := newEnv(day0)
	uc, _ := newSessionProcessor(e)

	result, err := uc.SubmitReviewSession(context.Background(), 7, nil, "")
	if err != nil {
		t.Fatalf("SubmitReviewSession: %v", err)
	}
	if result.Session.CardsReviewed != 0 || len(result.Results) != 0 {
		t.Errorf("empty batch produced %+v", result.Session)
	}
	if result.Session.SessionType != entity.SessionTypeReview {
		t.Errorf("default session type = %s, want review", result.Session.SessionType)
	}
}

func TestSubmitReviewSessionRejectsUnknownType(t *testing.T) {
	e := newEnv(day0)
	uc, _ := newSessionProcessor(e)

	if _, err := uc.SubmitReviewSession(context.Background(), 7, nil, entity.SessionType("cram")); !errors.Is(err, entity.ErrInvalidReviewRequest) {
		t.Fatalf("err = %v, want ErrInvalidReviewRequest", err)
	}
}

func TestSubmitReviewSessionRejectsInvalidUser(t *testing.T) {
	e := newEnv(day0)
	uc, _ := newSessionProcessor(e)

	if _, err := uc.SubmitReviewSession(context.Background(), 0, nil, ""); !errors.Is(err, entity.ErrInvalidUserID) {
		t.Fatalf("err = %v, want ErrInvalidUserID", err)
	}
}
