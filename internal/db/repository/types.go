// Package repository exposes the narrow Store contract of spec §6 to the
// Match Engine: a transactional key/row store for matches, participants,
// question instances, answers, scores, and lifetime stats. It hides
// pgx/pgtype from the engine behind plain domain structs and uuid.UUID ids.
package repository

import (
	"time"

	"github.com/google/uuid"
)

// Match statuses.
const (
	StatusScheduled = "SCHEDULED"
	StatusOngoing   = "ONGOING"
	StatusFinished  = "FINISHED"
	StatusCanceled  = "CANCELED"
)

// Match is the durable row backing spec §3's Match entity.
type Match struct {
	MatchID               uuid.UUID
	HostID                uuid.UUID
	Status                string
	Difficulty            string
	TotalQuestions        int
	CurrentQuestionNumber int
	CreatedAt             time.Time
	StartedAt             *time.Time
	EndedAt               *time.Time
}

// Participant is a match-scoped player row.
type Participant struct {
	MatchID  uuid.UUID
	UserID   uuid.UUID
	Score    int
	JoinedAt time.Time
}

// QuestionInstance is one question row used in a specific match.
type QuestionInstance struct {
	QuestionInstanceID uuid.UUID
	MatchID            uuid.UUID
	QuestionNumber     int
	QuestionText       string
	Options            [4]string
	CorrectOption      string
	ContentHash        string
}

// Answer is one participant's response to one Question-Instance.
type Answer struct {
	QuestionInstanceID uuid.UUID
	UserID             uuid.UUID
	SelectedOption     *string
	IsCorrect          bool
	ResponseTimeMs     int
	PointsAwarded      int
	AnsweredAt         time.Time
}

// Score is the final per-(match,user) row written at settlement.
type Score struct {
	MatchID           uuid.UUID
	UserID            uuid.UUID
	TotalScore        int
	CorrectCount      int
	TotalQuestions    int
	AvgResponseTimeMs int
}

// LifetimeStats is the per-user aggregate row.
type LifetimeStats struct {
	UserID            uuid.UUID
	GamesPlayed       int
	GamesWon          int
	TotalScore        int64
	HighestScore      int
	CorrectAnswers    int64
	TotalAnswers      int64
	AvgResponseTimeMs int
	AverageScore      float64
	LastPlayedAt      *time.Time
}

// SettlementDelta is the per-participant input to a Lifetime Stats update,
// computed by the engine from one match's Answers before the settlement
// transaction commits.
type SettlementDelta struct {
	UserID            uuid.UUID
	Score             int
	Won               bool
	CorrectCount      int
	TotalAnswered     int
	AvgResponseTimeMs int
}
