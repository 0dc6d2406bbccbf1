package question

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	sqlcgen "github.com/arvensis/trivia-arena/internal/db/sqlc"
)

type poolStore interface {
	GetQuestionPool(ctx context.Context, arg sqlcgen.GetQuestionPoolParams) ([]sqlcgen.QuestionPoolRow, error)
}

// PoolSource draws random questions from the database-backed curated pool.
type PoolSource struct {
	store poolStore
}

// NewPoolSource builds a Source over a sqlc-style query store.
func NewPoolSource(store poolStore) *PoolSource {
	return &PoolSource{store: store}
}

// FetchRandomQuestions implements Source.
func (p *PoolSource) FetchRandomQuestions(ctx context.Context, category, difficulty string, n int) ([]RawQuestion, error) {
	rows, err := p.store.GetQuestionPool(ctx, sqlcgen.GetQuestionPoolParams{
		Category:   category,
		Difficulty: difficulty,
		Limit:      int32(n),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch question pool: %w", err)
	}
	if len(rows) < n {
		return nil, fmt.Errorf("question pool: requested %d questions for (%s,%s), found %d", n, category, difficulty, len(rows))
	}

	out := make([]RawQuestion, 0, len(rows))
	for _, r := range rows {
		out = append(out, RawQuestion{
			ID:            uuid.UUID(r.QuestionID.Bytes),
			Text:          r.Prompt,
			CorrectOption: r.CorrectOption,
			WrongOptions:  [3]string{r.WrongOption1, r.WrongOption2, r.WrongOption3},
			Category:      r.Category,
			Difficulty:    r.Difficulty,
		})
	}
	return out, nil
}
