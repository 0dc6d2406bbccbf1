// Package question implements the Question Source: an external collaborator
// that supplies a finite pool of questions for the engine to draw from at
// match creation time.
package question

import "github.com/google/uuid"

// Difficulty levels recognized by the pool.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// RawQuestion is one pool entry, before per-match option shuffling.
type RawQuestion struct {
	ID            uuid.UUID
	Text          string
	CorrectOption string
	WrongOptions  [3]string
	Category      string
	Difficulty    string
}
