package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/eslsoft/mistbook/pkg/dayclock"
)

// fakeState is the shared in-memory database behind the fake repositories.
type fakeState struct {
	mu       sync.RWMutex
	cards    map[string]*entity.Card
	attempts []*entity.ReviewAttempt
	sessions map[string]*entity.ReviewSession
	index    map[string]entity.MistakeIndexEntry
}

func newFakeState() *fakeState {
	return &fakeState{
		cards:    make(map[string]*entity.Card),
		sessions: make(map[string]*entity.ReviewSession),
		index:    make(map[string]entity.MistakeIndexEntry),
	}
}

func (s *fakeState) clone() *fakeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := newFakeState()
	for id, card := range s.cards {
		copied.cards[id] = cloneCard(card)
	}
	copied.attempts = append([]*entity.ReviewAttempt(nil), s.attempts...)
	for id, session := range s.sessions {
		dup := *session
		copied.sessions[id] = &dup
	}
	for key, entry := range s.index {
		copied.index[key] = entry
	}
	return copied
}

func (s *fakeState) replaceWith(other *fakeState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards = other.cards
	s.attempts = other.attempts
	s.sessions = other.sessions
	s.index = other.index
}

func cloneCard(src *entity.Card) *entity.Card {
	if src == nil {
		return nil
	}
	dup := *src
	if src.LastReviewedAt != nil {
		t := *src.LastReviewedAt
		dup.LastReviewedAt = &t
	}
	if src.ArchivedAt != nil {
		t := *src.ArchivedAt
		dup.ArchivedAt = &t
	}
	return &dup
}

type fakeCardRepo struct {
	state *fakeState
	// upsertErr, when set, fails every Upsert to simulate a broken write
	// inside a transaction.
	upsertErr error
}

func (r *fakeCardRepo) Get(ctx context.Context, id string) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	card, ok := r.state.cards[id]
	if !ok {
		return nil, entity.ErrCardNotFound
	}
	return cloneCard(card), nil
}

func (r *fakeCardRepo) FindByUserQuestion(ctx context.Context, userID int64, questionID string) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	for _, card := range r.state.cards {
		if card.UserID == userID && card.QuestionID == questionID {
			return cloneCard(card), nil
		}
	}
	return nil, nil
}

func (r *fakeCardRepo) List(ctx context.Context, query *repository.ListCardQuery) ([]*entity.Card, int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	var out []*entity.Card
	for _, card := range r.state.cards {
		if card.UserID == query.UserID {
			out = append(out, cloneCard(card))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r *fakeCardRepo) Upsert(ctx context.Context, card *entity.Card) (*entity.Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, existing := range r.state.cards {
		if existing.UserID == card.UserID && existing.QuestionID == card.QuestionID && existing.ID != card.ID {
			return nil, entity.ErrDuplicateCard
		}
	}
	r.state.cards[card.ID] = cloneCard(card)
	return cloneCard(card), nil
}

func (r *fakeCardRepo) Delete(ctx context.Context, id string) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	if _, ok := r.state.cards[id]; !ok {
		return entity.ErrCardNotFound
	}
	delete(r.state.cards, id)
	return nil
}

func (r *fakeCardRepo) selectCards(pick func(*entity.Card) bool, limit int32) []*entity.Card {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	var out []*entity.Card
	for _, card := range r.state.cards {
		if pick(card) {
			out = append(out, cloneCard(card))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextReviewDate == out[j].NextReviewDate {
			return out[i].ID < out[j].ID
		}
		return out[i].NextReviewDate.Before(out[j].NextReviewDate)
	})
	if limit > 0 && int32(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeCardRepo) ListDueBetween(ctx context.Context, userID int64, from, to dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	return r.selectCards(func(c *entity.Card) bool {
		return c.UserID == userID && c.IsActive && !c.NextReviewDate.Before(from) && !c.NextReviewDate.After(to)
	}, limit), nil
}

func (r *fakeCardRepo) ListDueOn(ctx context.Context, userID int64, day dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	return r.selectCards(func(c *entity.Card) bool {
		return c.UserID == userID && c.IsActive && c.NextReviewDate == day
	}, limit), nil
}

func (r *fakeCardRepo) ListDueBefore(ctx context.Context, userID int64, cutoff dayclock.DayKey, limit int32) ([]*entity.Card, error) {
	return r.selectCards(func(c *entity.Card) bool {
		return c.UserID == userID && c.IsActive && c.NextReviewDate.Before(cutoff)
	}, limit), nil
}

func (r *fakeCardRepo) CountDueBetween(ctx context.Context, userID int64, from, toExclusive dayclock.DayKey) (int64, error) {
	cards := r.selectCards(func(c *entity.Card) bool {
		return c.UserID == userID && c.IsActive && !c.NextReviewDate.Before(from) && c.NextReviewDate.Before(toExclusive)
	}, 0)
	return int64(len(cards)), nil
}

func (r *fakeCardRepo) CountDueOn(ctx context.Context, userID int64, day dayclock.DayKey) (int64, error) {
	cards, _ := r.ListDueOn(ctx, userID, day, 0)
	return int64(len(cards)), nil
}

func (r *fakeCardRepo) StatusCounts(ctx context.Context, userID int64) (map[entity.CardStatus]int64, int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	active := make(map[entity.CardStatus]int64)
	var archived int64
	for _, card := range r.state.cards {
		if card.UserID != userID {
			continue
		}
		if card.IsActive {
			active[card.Status]++
		} else {
			archived++
		}
	}
	return active, archived, nil
}

func (r *fakeCardRepo) AttemptTotals(ctx context.Context, userID int64) (int64, int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	var total, successful int64
	for _, card := range r.state.cards {
		if card.UserID == userID {
			total += int64(card.TotalAttempts)
			successful += int64(card.SuccessfulAttempts)
		}
	}
	return total, successful, nil
}

func (r *fakeCardRepo) ListUsersWithOverdue(ctx context.Context, cutoff dayclock.DayKey) ([]int64, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	seen := map[int64]bool{}
	var users []int64
	for _, card := range r.state.cards {
		if card.IsActive && card.NextReviewDate.Before(cutoff) && !seen[card.UserID] {
			seen[card.UserID] = true
			users = append(users, card.UserID)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

type fakeAttemptRepo struct {
	state     *fakeState
	appendErr error
}

func (r *fakeAttemptRepo) Append(ctx context.Context, attempt *entity.ReviewAttempt) (*entity.ReviewAttempt, error) {
	if r.appendErr != nil {
		return nil, r.appendErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	dup := *attempt
	r.state.attempts = append(r.state.attempts, &dup)
	return attempt, nil
}

func (r *fakeAttemptRepo) ListSince(ctx context.Context, userID int64, since time.Time) ([]*entity.ReviewAttempt, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	var out []*entity.ReviewAttempt
	for _, a := range r.state.attempts {
		if a.UserID == userID && !a.AttemptedAt.Before(since) {
			dup := *a
			out = append(out, &dup)
		}
	}
	return out, nil
}

type fakeSessionRepo struct {
	state *fakeState
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ReviewSession) (*entity.ReviewSession, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	dup := *session
	r.state.sessions[session.ID] = &dup
	return session, nil
}

func (r *fakeSessionRepo) Get(ctx context.Context, id string) (*entity.ReviewSession, error) {
	r.state.mu.RLock()
	defer r.state.mu.RUnlock()
	session, ok := r.state.sessions[id]
	if !ok {
		return nil, entity.ErrSessionNotFound
	}
	dup := *session
	return &dup, nil
}

type fakeIndexRepo struct {
	state  *fakeState
	putErr error
}

func (r *fakeIndexRepo) Put(ctx context.Context, entry entity.MistakeIndexEntry) error {
	if r.putErr != nil {
		return r.putErr
	}
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	r.state.index[fmt.Sprintf("%d/%s", entry.UserID, entry.QuestionID)] = entry
	return nil
}

// fakeTxManager mimics the all-or-nothing behaviour of the pgx transaction:
// fn runs against a staged copy of the state which only replaces the real
// state when fn and the (optionally injected) commit both succeed.
type fakeTxManager struct {
	state     *fakeState
	commitErr error
	upsertErr error
	appendErr error
	txCount   int
}

func (m *fakeTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	m.txCount++
	staged := m.state.clone()
	stores := repository.Stores{
		Cards:    &fakeCardRepo{state: staged, upsertErr: m.upsertErr},
		Attempts: &fakeAttemptRepo{state: staged, appendErr: m.appendErr},
		Sessions: &fakeSessionRepo{state: staged},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if m.commitErr != nil {
		return fmt.Errorf("%w: %v", entity.ErrCommitFailed, m.commitErr)
	}
	m.state.replaceWith(staged)
	return nil
}

// env bundles everything a usecase test needs.
type env struct {
	state     *fakeState
	tx        *fakeTxManager
	cards     *fakeCardRepo
	attempts  *fakeAttemptRepo
	sessions  *fakeSessionRepo
	index     *fakeIndexRepo
	projector Projector
	clock     dayclock.Clock
	logger    *logrus.Logger
}

func newEnv(at time.Time) *env {
	state := newFakeState()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	clock := dayclock.NewFixed(at, time.UTC)
	index := &fakeIndexRepo{state: state}
	return &env{
		state:     state,
		tx:        &fakeTxManager{state: state},
		cards:     &fakeCardRepo{state: state},
		attempts:  &fakeAttemptRepo{state: state},
		sessions:  &fakeSessionRepo{state: state},
		index:     index,
		projector: NewProjector(index, clock),
		clock:     clock,
		logger:    logger,
	}
}

func (e *env) setClock(at time.Time) {
	e.clock = dayclock.NewFixed(at, time.UTC)
}

func (e *env) indexEntry(userID int64, questionID string) (entity.MistakeIndexEntry, bool) {
	e.state.mu.RLock()
	defer e.state.mu.RUnlock()
	entry, ok := e.state.index[fmt.Sprintf("%d/%s", userID, questionID)]
	return entry, ok
}

var errBoom = errors.New("boom")
