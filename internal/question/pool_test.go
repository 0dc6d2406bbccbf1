package question

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqlcgen "github.com/arvensis/trivia-arena/internal/db/sqlc"
)

type stubPoolStore struct {
	rows []sqlcgen.QuestionPoolRow
	err  error
}

func (s *stubPoolStore) GetQuestionPool(ctx context.Context, arg sqlcgen.GetQuestionPoolParams) ([]sqlcgen.QuestionPoolRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	limit := int(arg.Limit)
	if limit > len(s.rows) {
		limit = len(s.rows)
	}
	return s.rows[:limit], nil
}

func poolRow(category, difficulty string) sqlcgen.QuestionPoolRow {
	id := uuid.New()
	return sqlcgen.QuestionPoolRow{
		QuestionID:    pgtype.UUID{Bytes: id, Valid: true},
		Category:      category,
		Difficulty:    difficulty,
		Prompt:        "What is the capital of France?",
		CorrectOption: "Paris",
		WrongOption1:  "Lyon",
		WrongOption2:  "Nice",
		WrongOption3:  "Marseille",
	}
}

func TestPoolSourceFetchRandomQuestions(t *testing.T) {
	store := &stubPoolStore{rows: []sqlcgen.QuestionPoolRow{
		poolRow("general", DifficultyEasy),
		poolRow("general", DifficultyEasy),
	}}
	src := NewPoolSource(store)

	qs, err := src.FetchRandomQuestions(context.Background(), "general", DifficultyEasy, 2)
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, "Paris", qs[0].CorrectOption)
	assert.Equal(t, [3]string{"Lyon", "Nice", "Marseille"}, qs[0].WrongOptions)
}

func TestPoolSourceFetchRandomQuestionsInsufficientPool(t *testing.T) {
	store := &stubPoolStore{rows: []sqlcgen.QuestionPoolRow{poolRow("general", DifficultyEasy)}}
	src := NewPoolSource(store)

	_, err := src.FetchRandomQuestions(context.Background(), "general", DifficultyEasy, 5)
	assert.Error(t, err)
}
