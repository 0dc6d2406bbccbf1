package sqlcgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Match mirrors the matches table.
type Match struct {
	MatchID               pgtype.UUID
	HostID                pgtype.UUID
	Status                string
	Difficulty            string
	TotalQuestions        int32
	CurrentQuestionNumber int32
	CreatedAt             pgtype.Timestamptz
	StartedAt             pgtype.Timestamptz
	EndedAt               pgtype.Timestamptz
}

// Participant mirrors the participants table.
type Participant struct {
	MatchID  pgtype.UUID
	UserID   pgtype.UUID
	Score    int32
	JoinedAt pgtype.Timestamptz
}

// QuestionInstance mirrors the question_instances table.
type QuestionInstance struct {
	QuestionInstanceID pgtype.UUID
	MatchID            pgtype.UUID
	QuestionNumber     int32
	QuestionText       string
	OptionA            string
	OptionB            string
	OptionC            string
	OptionD            string
	CorrectOption      string
	ContentHash        string
}

// Answer mirrors the answers table.
type Answer struct {
	QuestionInstanceID pgtype.UUID
	UserID             pgtype.UUID
	SelectedOption     pgtype.Text
	IsCorrect          bool
	ResponseTimeMs     int32
	PointsAwarded      int32
	AnsweredAt         pgtype.Timestamptz
}

// Score mirrors the scores table.
type Score struct {
	MatchID           pgtype.UUID
	UserID            pgtype.UUID
	TotalScore        int32
	CorrectCount      int32
	TotalQuestions    int32
	AvgResponseTimeMs int32
}

// LifetimeStats mirrors the lifetime_stats table.
type LifetimeStats struct {
	UserID            pgtype.UUID
	GamesPlayed       int32
	GamesWon          int32
	TotalScore        int64
	HighestScore      int32
	CorrectAnswers    int64
	TotalAnswers      int64
	AvgResponseTimeMs int32
	AverageScore      float64
	LastPlayedAt      pgtype.Timestamptz
}
