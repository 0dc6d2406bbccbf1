package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// QuestionPoolRow mirrors the question_pool table.
type QuestionPoolRow struct {
	QuestionID   pgtype.UUID
	Category     string
	Difficulty   string
	Prompt       string
	CorrectOption string
	WrongOption1 string
	WrongOption2 string
	WrongOption3 string
}

const getQuestionPool = `
SELECT question_id, category, difficulty, prompt, correct_option, wrong_option_1, wrong_option_2, wrong_option_3
FROM question_pool
WHERE category = $1 AND difficulty = $2
ORDER BY random()
LIMIT $3
`

type GetQuestionPoolParams struct {
	Category   string
	Difficulty string
	Limit      int32
}

// GetQuestionPool returns up to Limit random questions matching category+difficulty.
func (q *Queries) GetQuestionPool(ctx context.Context, arg GetQuestionPoolParams) ([]QuestionPoolRow, error) {
	rows, err := q.db.Query(ctx, getQuestionPool, arg.Category, arg.Difficulty, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuestionPoolRow
	for rows.Next() {
		var r QuestionPoolRow
		if err := rows.Scan(&r.QuestionID, &r.Category, &r.Difficulty, &r.Prompt, &r.CorrectOption, &r.WrongOption1, &r.WrongOption2, &r.WrongOption3); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertQuestionPoolRow = `
INSERT INTO question_pool (question_id, category, difficulty, prompt, correct_option, wrong_option_1, wrong_option_2, wrong_option_3)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

type InsertQuestionPoolRowParams struct {
	QuestionID    pgtype.UUID
	Category      string
	Difficulty    string
	Prompt        string
	CorrectOption string
	WrongOption1  string
	WrongOption2  string
	WrongOption3  string
}

// InsertQuestionPoolRow seeds a curated question into the pool.
func (q *Queries) InsertQuestionPoolRow(ctx context.Context, arg InsertQuestionPoolRowParams) error {
	_, err := q.db.Exec(ctx, insertQuestionPoolRow,
		arg.QuestionID, arg.Category, arg.Difficulty, arg.Prompt, arg.CorrectOption, arg.WrongOption1, arg.WrongOption2, arg.WrongOption3)
	return err
}
