package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/arvensis/trivia-arena/internal/db/repository"
	"github.com/arvensis/trivia-arena/internal/engine/scoring"
)

// Sub-states of an ONGOING match, per spec §4.1.
const (
	SubStateAsking   = "ASKING"
	SubStateResolved = "RESOLVED"
)

// runtime is the in-memory, non-durable half of a match's state: everything
// the Store does not need to know about between transitions. It is only ever
// touched from inside that match's executor goroutine.
type runtime struct {
	match        repository.Match
	participants map[uuid.UUID]*participantRuntime
	questions    []repository.QuestionInstance // 1-indexed via questionByNumber

	subState          string
	askStartMonotonic time.Time
	answeredThisQ     map[uuid.UUID]bool
	tracker           *scoring.Tracker

	timerCancel  func()
	advanceTimer func()
}

type participantRuntime struct {
	userID    uuid.UUID
	score     int
	connected bool
}

func newRuntime(match repository.Match, participants []repository.Participant, questions []repository.QuestionInstance) *runtime {
	pr := make(map[uuid.UUID]*participantRuntime, len(participants))
	for _, p := range participants {
		pr[p.UserID] = &participantRuntime{userID: p.UserID, score: p.Score}
	}
	return &runtime{
		match:        match,
		participants: pr,
		questions:    questions,
	}
}

func (rt *runtime) questionByNumber(n int) (repository.QuestionInstance, bool) {
	for _, q := range rt.questions {
		if q.QuestionNumber == n {
			return q, true
		}
	}
	return repository.QuestionInstance{}, false
}

func (rt *runtime) currentQuestion() (repository.QuestionInstance, bool) {
	return rt.questionByNumber(rt.match.CurrentQuestionNumber)
}

func (rt *runtime) resetForQuestion() {
	rt.subState = SubStateAsking
	rt.askStartMonotonic = time.Now()
	rt.answeredThisQ = make(map[uuid.UUID]bool)
	rt.tracker = scoring.NewTracker()
}

func (rt *runtime) allAnswered() bool {
	for id := range rt.participants {
		if !rt.answeredThisQ[id] {
			return false
		}
	}
	return true
}

func (rt *runtime) participantView() []ParticipantView {
	out := make([]ParticipantView, 0, len(rt.participants))
	for _, p := range rt.participants {
		out = append(out, ParticipantView{UserID: p.userID, Score: p.score})
	}
	return out
}
