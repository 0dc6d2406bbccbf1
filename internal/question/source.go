package question

import "context"

// Source is the contract of spec §6: fetchRandomQuestions(category,
// difficulty, n). Called once at match creation; the engine owns all
// per-match shuffling and storage from here on.
type Source interface {
	FetchRandomQuestions(ctx context.Context, category, difficulty string, n int) ([]RawQuestion, error)
}
