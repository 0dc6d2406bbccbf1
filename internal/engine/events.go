package engine

import "github.com/google/uuid"

// Outbound event type tags — exactly the closed set of spec §4.4. No other
// event name may be emitted.
const (
	EventMatchState      = "match:state"
	EventMatchStarted    = "match:started"
	EventQuestionNew     = "question:new"
	EventTimerStart      = "timer:start"
	EventTimerTick       = "timer:tick"
	EventTimerExpired    = "timer:expired"
	EventAnswerConfirmed = "answer:confirmed"
	EventAnswerReceived  = "answer:received"
	EventQuestionEnded   = "question:ended"
	EventMatchFinished   = "match:finished"
	EventError           = "error"
)

// Event is an engine-emitted outbound event: a type tag plus a
// JSON-marshalable payload. The Broadcaster is responsible for wire framing.
type Event struct {
	Type    string
	Payload interface{}
}

// Broadcaster is how the engine emits events without knowing about
// transport. Implementations must never block the caller on network I/O —
// spec §4.1 requires broadcast fan-out to be dispatched asynchronously after
// the state commit.
type Broadcaster interface {
	Broadcast(matchID uuid.UUID, evt Event)
	BroadcastExcept(matchID, exceptUserID uuid.UUID, evt Event)
	SendTo(matchID, userID uuid.UUID, evt Event)
	// CloseMatch tears down whatever transport-level room backs matchID,
	// once the engine has no further events to emit for it (FINISHED,
	// CANCELED, or deleted). Connections are detached, not closed.
	CloseMatch(matchID uuid.UUID)
}

// ParticipantView is the public (non-secret) view of a participant.
type ParticipantView struct {
	UserID uuid.UUID `json:"userId"`
	Score  int       `json:"score"`
}

// QuestionView is the public view of the current question: no correct
// option, ever, before resolution.
type QuestionView struct {
	QuestionNumber int      `json:"questionNumber"`
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	TotalQuestions int      `json:"totalQuestions"`
}

// MatchStatePayload is the full public snapshot sent to a joiner or
// reattaching participant.
type MatchStatePayload struct {
	MatchID               uuid.UUID         `json:"matchId"`
	HostID                uuid.UUID         `json:"hostId"`
	Status                string            `json:"status"`
	Difficulty            string            `json:"difficulty"`
	TotalQuestions        int               `json:"totalQuestions"`
	CurrentQuestionNumber int               `json:"currentQuestionNumber"`
	Participants          []ParticipantView `json:"participants"`
	CurrentQuestion       *QuestionView     `json:"currentQuestion,omitempty"`
	TimeRemainingSec      *int              `json:"timeRemainingSec,omitempty"`
}

// MatchStartedPayload accompanies the SCHEDULED->ONGOING transition.
type MatchStartedPayload struct {
	StartedAt     int64        `json:"startedAt"`
	FirstQuestion QuestionView `json:"firstQuestion"`
}

// TimerPayload carries the remaining seconds for timer:start/:tick/:expired.
type TimerPayload struct {
	TimeRemainingSec int `json:"timeRemainingSec"`
}

// AnswerConfirmedPayload is delivered privately to the answering participant
// only — the first place they may legally observe correctOption.
type AnswerConfirmedPayload struct {
	IsCorrect     bool   `json:"isCorrect"`
	PointsAwarded int    `json:"pointsAwarded"`
	CorrectOption string `json:"correctOption"`
	NewScore      int    `json:"newScore"`
}

// AnswerReceivedPayload is broadcast to the room minus the sender: no
// correctness, no selected option.
type AnswerReceivedPayload struct {
	UserID uuid.UUID `json:"userId"`
}

// ScoreboardEntry is one ranked row of a scoreboard.
type ScoreboardEntry struct {
	UserID uuid.UUID `json:"userId"`
	Score  int       `json:"score"`
}

// QuestionEndedPayload reveals the correct option and a ranked scoreboard.
type QuestionEndedPayload struct {
	QuestionNumber int               `json:"questionNumber"`
	CorrectOption  string            `json:"correctOption"`
	Scoreboard     []ScoreboardEntry `json:"scoreboard"`
}

// FinalScoreEntry is one participant's settled result.
type FinalScoreEntry struct {
	UserID            uuid.UUID `json:"userId"`
	TotalScore        int       `json:"totalScore"`
	CorrectCount      int       `json:"correctCount"`
	AvgResponseTimeMs int       `json:"avgResponseTimeMs"`
}

// MatchFinishedPayload is the terminal broadcast, win or cancel.
type MatchFinishedPayload struct {
	Scoreboard []FinalScoreEntry `json:"scoreboard"`
	Winners    []uuid.UUID       `json:"winners"`
	Cancelled  bool              `json:"cancelled,omitempty"`
}

// ErrorPayload carries the machine code + human message of spec §7.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
