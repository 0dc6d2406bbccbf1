package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertQuestionInstance = `
INSERT INTO question_instances
	(question_instance_id, match_id, question_number, question_text, option_a, option_b, option_c, option_d, correct_option, content_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

type InsertQuestionInstanceParams struct {
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

// InsertQuestionInstance persists one shuffled-per-match question row.
func (q *Queries) InsertQuestionInstance(ctx context.Context, arg InsertQuestionInstanceParams) error {
	_, err := q.db.Exec(ctx, insertQuestionInstance,
		arg.QuestionInstanceID, arg.MatchID, arg.QuestionNumber, arg.QuestionText,
		arg.OptionA, arg.OptionB, arg.OptionC, arg.OptionD, arg.CorrectOption, arg.ContentHash)
	return err
}

const getQuestionInstances = `
SELECT question_instance_id, match_id, question_number, question_text, option_a, option_b, option_c, option_d, correct_option, content_hash
FROM question_instances WHERE match_id = $1 ORDER BY question_number ASC
`

// GetQuestionInstances returns every question row for a match, in order.
func (q *Queries) GetQuestionInstances(ctx context.Context, matchID pgtype.UUID) ([]QuestionInstance, error) {
	rows, err := q.db.Query(ctx, getQuestionInstances, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QuestionInstance
	for rows.Next() {
		var qi QuestionInstance
		if err := rows.Scan(&qi.QuestionInstanceID, &qi.MatchID, &qi.QuestionNumber, &qi.QuestionText,
			&qi.OptionA, &qi.OptionB, &qi.OptionC, &qi.OptionD, &qi.CorrectOption, &qi.ContentHash); err != nil {
			return nil, err
		}
		out = append(out, qi)
	}
	return out, rows.Err()
}
