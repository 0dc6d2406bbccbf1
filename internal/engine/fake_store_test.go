package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/arvensis/trivia-arena/internal/db/repository"
	"github.com/arvensis/trivia-arena/internal/question"
)

// fakeStore is an in-memory repository.Store double for scenario tests,
// grounded on the teacher's stub-store test pattern.
type fakeStore struct {
	mu sync.Mutex

	matches       map[uuid.UUID]repository.Match
	participants  map[uuid.UUID][]repository.Participant
	questions     map[uuid.UUID][]repository.QuestionInstance
	answers       map[uuid.UUID]repository.Answer // keyed by questionInstanceID+userID via answerKey
	scores        map[string]repository.Score
	lifetimeStats map[uuid.UUID]repository.LifetimeStats

	// failWithinTxCount, when > 0, makes that many more WithinTx calls fail
	// before succeeding, for exercising spec §4.5/§4.1's settlement retry
	// and exponential-backoff-exhaustion-cancels-the-match paths.
	failWithinTxCount atomic.Int32
}

var errInjectedStoreFailure = errors.New("injected transient store failure")

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches:       make(map[uuid.UUID]repository.Match),
		participants:  make(map[uuid.UUID][]repository.Participant),
		questions:     make(map[uuid.UUID][]repository.QuestionInstance),
		answers:       make(map[uuid.UUID]repository.Answer),
		scores:        make(map[string]repository.Score),
		lifetimeStats: make(map[uuid.UUID]repository.LifetimeStats),
	}
}

func answerKey(questionInstanceID, userID uuid.UUID) uuid.UUID {
	var out uuid.UUID
	for i := range out {
		out[i] = questionInstanceID[i] ^ userID[i]
	}
	return out
}

func (s *fakeStore) CreateMatch(ctx context.Context, m repository.Match) (repository.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches[m.MatchID] = m
	return m, nil
}

func (s *fakeStore) GetMatch(ctx context.Context, matchID uuid.UUID) (repository.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return repository.Match{}, repository.ErrNotFound
	}
	return m, nil
}

func (s *fakeStore) SetMatchStarted(ctx context.Context, matchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = repository.StatusOngoing
	m.CurrentQuestionNumber = 1
	s.matches[matchID] = m
	return nil
}

func (s *fakeStore) SetMatchQuestionNumber(ctx context.Context, matchID uuid.UUID, questionNumber int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return repository.ErrNotFound
	}
	m.CurrentQuestionNumber = questionNumber
	s.matches[matchID] = m
	return nil
}

func (s *fakeStore) SetMatchStatus(ctx context.Context, matchID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = status
	s.matches[matchID] = m
	return nil
}

func (s *fakeStore) DeleteMatchCascade(ctx context.Context, matchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[matchID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.matches, matchID)
	delete(s.participants, matchID)
	delete(s.questions, matchID)
	return nil
}

func (s *fakeStore) InsertParticipant(ctx context.Context, matchID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[matchID] = append(s.participants[matchID], repository.Participant{MatchID: matchID, UserID: userID})
	return nil
}

func (s *fakeStore) GetParticipants(ctx context.Context, matchID uuid.UUID) ([]repository.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[matchID], nil
}

func (s *fakeStore) IncrementParticipantScore(ctx context.Context, matchID, userID uuid.UUID, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps := s.participants[matchID]
	for i := range ps {
		if ps[i].UserID == userID {
			ps[i].Score += delta
			s.participants[matchID] = ps
			return ps[i].Score, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (s *fakeStore) InsertQuestionInstance(ctx context.Context, qi repository.QuestionInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[qi.MatchID] = append(s.questions[qi.MatchID], qi)
	return nil
}

func (s *fakeStore) GetQuestionInstances(ctx context.Context, matchID uuid.UUID) ([]repository.QuestionInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questions[matchID], nil
}

func (s *fakeStore) GetAnswer(ctx context.Context, questionInstanceID, userID uuid.UUID) (*repository.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.answers[answerKey(questionInstanceID, userID)]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *fakeStore) InsertAnswer(ctx context.Context, a repository.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := answerKey(a.QuestionInstanceID, a.UserID)
	if _, exists := s.answers[key]; exists {
		return repository.ErrDuplicateAnswer
	}
	s.answers[key] = a
	return nil
}

func (s *fakeStore) GetAnswersForMatch(ctx context.Context, matchID uuid.UUID) ([]repository.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	qIDs := make(map[uuid.UUID]bool)
	for _, q := range s.questions[matchID] {
		qIDs[q.QuestionInstanceID] = true
	}
	var out []repository.Answer
	for _, a := range s.answers {
		if qIDs[a.QuestionInstanceID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertScore(ctx context.Context, sc repository.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[sc.MatchID.String()+":"+sc.UserID.String()] = sc
	return nil
}

func (s *fakeStore) GetLifetimeStatsForUpdate(ctx context.Context, userID uuid.UUID) (repository.LifetimeStats, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.lifetimeStats[userID]
	return st, ok, nil
}

func (s *fakeStore) UpsertLifetimeStats(ctx context.Context, st repository.LifetimeStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lifetimeStats[st.UserID] = st
	return nil
}

// WithinTx runs fn directly against s; the fake has no real transactional
// isolation or rollback: each store call is atomic under s.mu, but writes fn
// made before returning an error are kept.
func (s *fakeStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.failWithinTxCount.Load() > 0 {
		s.failWithinTxCount.Add(-1)
		return errInjectedStoreFailure
	}
	return fn(s)
}

// failNextWithinTx arranges for the next n WithinTx calls to fail, then
// succeed normally, simulating the transient storage failures of spec §4.1's
// settlement retry path.
func (s *fakeStore) failNextWithinTx(n int) {
	s.failWithinTxCount.Store(int32(n))
}

// fakeBroadcaster records every emitted event for assertions.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	kind    string // "broadcast", "broadcastExcept", "sendTo", "closeMatch"
	matchID uuid.UUID
	userID  uuid.UUID
	evt     Event
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{}
}

func (b *fakeBroadcaster) Broadcast(matchID uuid.UUID, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "broadcast", matchID: matchID, evt: evt})
}

func (b *fakeBroadcaster) BroadcastExcept(matchID, exceptUserID uuid.UUID, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "broadcastExcept", matchID: matchID, userID: exceptUserID, evt: evt})
}

func (b *fakeBroadcaster) SendTo(matchID, userID uuid.UUID, evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "sendTo", matchID: matchID, userID: userID, evt: evt})
}

func (b *fakeBroadcaster) CloseMatch(matchID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{kind: "closeMatch", matchID: matchID})
}

func (b *fakeBroadcaster) closedMatches() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []uuid.UUID
	for _, e := range b.events {
		if e.kind == "closeMatch" {
			out = append(out, e.matchID)
		}
	}
	return out
}

func (b *fakeBroadcaster) eventsOfType(t string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []recordedEvent
	for _, e := range b.events {
		if e.evt.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeQuestionSource returns a fixed, caller-supplied set of questions
// regardless of category/difficulty/n, for deterministic scenario tests.
type fakeQuestionSource struct {
	questions []question.RawQuestion
}

func (f *fakeQuestionSource) FetchRandomQuestions(ctx context.Context, category, difficulty string, n int) ([]question.RawQuestion, error) {
	if n > len(f.questions) {
		n = len(f.questions)
	}
	return f.questions[:n], nil
}
