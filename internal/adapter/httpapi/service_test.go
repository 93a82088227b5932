package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/internal/usecase"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

type stubLifecycle struct {
	createFn func(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*usecase.MistakeResult, error)
	reviewFn func(ctx context.Context, cardID string, wasCorrect bool, meta usecase.ReviewMetadata) (*usecase.ReviewResult, error)
}

func (s *stubLifecycle) CreateOrReuseCards(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*usecase.MistakeResult, error) {
	return s.createFn(ctx, userID, missed, sessionID, attemptID)
}

func (s *stubLifecycle) SubmitReview(ctx context.Context, cardID string, wasCorrect bool, meta usecase.ReviewMetadata) (*usecase.ReviewResult, error) {
	return s.reviewFn(ctx, cardID, wasCorrect, meta)
}

type stubDueSet struct {
	dueFn   func(ctx context.Context, userID int64, asOf dayclock.DayKey, limit int32) ([]*entity.Card, error)
	countFn func(ctx context.Context, userID int64, asOf dayclock.DayKey) (int64, error)
}

func (s *stubDueSet) GetDueCards(ctx context.Context, userID int64, asOf dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	return s.dueFn(ctx, userID, asOf, limit)
}

func (s *stubDueSet) GetCardsDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	return s.dueFn(ctx, userID, day, limit)
}

func (s *stubDueSet) GetOverdueCount(ctx context.Context, userID int64, asOf dayclock.DayKey) (int64, error) {
	return s.countFn(ctx, userID, asOf)
}

func (s *stubDueSet) GetReviewStats(ctx context.Context, userID int64) (*entity.ReviewStats, error) {
	return &entity.ReviewStats{}, nil
}

func (s *stubDueSet) ListCards(ctx context.Context, query *repository.ListCardQuery) ([]*entity.Card, int64, error) {
	return nil, 0, nil
}

type stubArchiver struct {
	restoreFn func(ctx context.Context, cardID string) (*entity.Card, error)
}

func (s *stubArchiver) ArchiveOverdueCards(ctx context.Context, userID int64) (int64, error) {
	return 3, nil
}
func (s *stubArchiver) ArchiveAllOverdue(ctx context.Context) (int64, error) { return 7, nil }
func (s *stubArchiver) RestoreArchivedCard(ctx context.Context, cardID string) (*entity.Card, error) {
	return s.restoreFn(ctx, cardID)
}

type stubSessions struct{}

func (stubSessions) SubmitReviewSession(ctx context.Context, userID int64, reviews []usecase.ReviewSubmission, sessionType entity.SessionType) (*usecase.SessionResult, error) {
	return &usecase.SessionResult{Session: &entity.ReviewSession{ID: "s-1", UserID: userID}}, nil
}

func sampleCard() *entity.Card {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return &entity.Card{
		ID:             "card-1",
		UserID:         7,
		QuestionID:     "q-1",
		Status:         entity.StatusNew,
		IntervalDays:   1,
		EaseFactor:     2.5,
		NextReviewDate: "2025-03-11",
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func newTestServer(lifecycle usecase.CardLifecycleUsecase, dueSet usecase.DueSetUsecase, archiver usecase.ArchiverUsecase) *echo.Echo {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := NewAPIV1Service(lifecycle, dueSet, archiver, stubSessions{}, logger)
	e := echo.New()
	svc.RegisterRoutes(e)
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReportMistakes(t *testing.T) {
	lifecycle := &stubLifecycle{
		createFn: func(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*usecase.MistakeResult, error) {
			if userID != 7 || len(missed) != 1 || missed[0].QuestionID != "q-1" {
				t.Errorf("unexpected args: user=%d missed=%v", userID, missed)
			}
			if sessionID != "sess-1" || attemptID != "att-1" {
				t.Errorf("provenance = (%q, %q)", sessionID, attemptID)
			}
			return &usecase.MistakeResult{Cards: []*entity.Card{sampleCard()}}, nil
		},
	}
	e := newTestServer(lifecycle, &stubDueSet{}, &stubArchiver{})

	rec := doRequest(e, http.MethodPost, "/api/v1/users/7/mistakes",
		`{"session_id":"sess-1","attempt_id":"att-1","mistakes":[{"question_id":"q-1","topic":"algebra"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportMistakesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Cards[0].ID != "card-1" {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Skipped) != 0 {
		t.Errorf("skipped = %+v, want none", resp.Skipped)
	}
}

// A malformed entry inside the batch is not a request error: the rest of the
// batch proceeds and the skip shows up in the response.
func TestReportMistakesReportsSkippedEntries(t *testing.T) {
	lifecycle := &stubLifecycle{
		createFn: func(ctx context.Context, userID int64, missed []entity.MissedQuestion, sessionID, attemptID string) (*usecase.MistakeResult, error) {
			if len(missed) != 2 {
				t.Errorf("expected the full batch to reach the usecase, got %v", missed)
			}
			return &usecase.MistakeResult{
				Cards: []*entity.Card{sampleCard()},
				Skipped: []usecase.SkippedMistake{
					{Entry: entity.MissedQuestion{Topic: "algebra"}, Reason: entity.ErrInvalidMistakeEntry},
				},
			}, nil
		},
	}
	e := newTestServer(lifecycle, &stubDueSet{}, &stubArchiver{})

	rec := doRequest(e, http.MethodPost, "/api/v1/users/7/mistakes",
		`{"mistakes":[{"question_id":"q-1"},{"topic":"algebra"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportMistakesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || len(resp.Skipped) != 1 {
		t.Fatalf("response = %+v, want 1 card and 1 skip", resp)
	}
	if resp.Skipped[0].Topic != "algebra" || resp.Skipped[0].Reason == "" {
		t.Errorf("skipped entry = %+v", resp.Skipped[0])
	}
}

func TestReportMistakesValidation(t *testing.T) {
	e := newTestServer(&stubLifecycle{}, &stubDueSet{}, &stubArchiver{})

	cases := map[string]string{
		"empty mistakes": `{"mistakes":[]}`,
		"not json":       `{{{`,
	}
	for name, body := range cases {
		rec := doRequest(e, http.MethodPost, "/api/v1/users/7/mistakes", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, rec.Code)
		}
	}

	rec := doRequest(e, http.MethodPost, "/api/v1/users/abc/mistakes", `{"mistakes":[{"question_id":"q"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad user id: status = %d, want 400", rec.Code)
	}
}

func TestSubmitReviewErrorMapping(t *testing.T) {
	lifecycle := &stubLifecycle{
		reviewFn: func(ctx context.Context, cardID string, wasCorrect bool, meta usecase.ReviewMetadata) (*usecase.ReviewResult, error) {
			switch cardID {
			case "missing":
				return nil, entity.ErrCardNotFound
			case "archived":
				return nil, entity.ErrCardArchived
			case "flaky":
				return nil, entity.ErrCommitFailed
			}
			return &usecase.ReviewResult{Card: sampleCard(), Attempt: &entity.ReviewAttempt{ID: "a-1", CardID: cardID}}, nil
		},
	}
	e := newTestServer(lifecycle, &stubDueSet{}, &stubArchiver{})

	body := `{"was_correct":true}`
	cases := []struct {
		cardID string
		status int
	}{
		{"card-1", http.StatusOK},
		{"missing", http.StatusNotFound},
		{"archived", http.StatusConflict},
		{"flaky", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		rec := doRequest(e, http.MethodPost, "/api/v1/cards/"+tc.cardID+"/review", body)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.cardID, rec.Code, tc.status)
		}
	}

	// was_correct is mandatory; silence must not be treated as incorrect.
	rec := doRequest(e, http.MethodPost, "/api/v1/cards/card-1/review", `{"user_answer":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing was_correct: status = %d, want 400", rec.Code)
	}
}

func TestGetDueCards(t *testing.T) {
	dueSet := &stubDueSet{
		dueFn: func(ctx context.Context, userID int64, asOf dayclock.DayKey, limit int32) ([]*entity.Card, error) {
			if asOf != dayclock.DayKey("2025-03-10") || limit != 5 {
				t.Errorf("args = (%s, %d)", asOf, limit)
			}
			return []*entity.Card{sampleCard()}, nil
		},
	}
	e := newTestServer(&stubLifecycle{}, dueSet, &stubArchiver{})

	rec := doRequest(e, http.MethodGet, "/api/v1/users/7/cards/due?as_of=2025-03-10&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(e, http.MethodGet, "/api/v1/users/7/cards/due?as_of=03/10/2025", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date: status = %d, want 400", rec.Code)
	}
}

func TestRestoreCardConflict(t *testing.T) {
	archiver := &stubArchiver{
		restoreFn: func(ctx context.Context, cardID string) (*entity.Card, error) {
			return nil, entity.ErrCardNotArchived
		},
	}
	e := newTestServer(&stubLifecycle{}, &stubDueSet{}, archiver)

	rec := doRequest(e, http.MethodPost, "/api/v1/cards/card-1/restore", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestArchiveSweepEndpoints(t *testing.T) {
	e := newTestServer(&stubLifecycle{}, &stubDueSet{}, &stubArchiver{})

	rec := doRequest(e, http.MethodPost, "/api/v1/users/7/archive-sweep", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("user sweep status = %d", rec.Code)
	}
	var resp sweepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Archived != 3 {
		t.Errorf("user sweep = %+v, %v", resp, err)
	}

	rec = doRequest(e, http.MethodPost, "/api/v1/admin/archive-sweep", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Archived != 7 {
		t.Errorf("admin sweep = %+v, %v", resp, err)
	}
}
