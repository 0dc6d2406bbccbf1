package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertAnswer = `
INSERT INTO answers (question_instance_id, user_id, selected_option, is_correct, response_time_ms, points_awarded, answered_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
`

type InsertAnswerParams struct {
	QuestionInstanceID pgtype.UUID
	UserID             pgtype.UUID
	SelectedOption     pgtype.Text
	IsCorrect          bool
	ResponseTimeMs     int32
	PointsAwarded      int32
}

// InsertAnswer writes an Answer row. The (question_instance_id, user_id)
// primary key rejects duplicates with a unique-violation error, which the
// repository layer maps to AlreadyAnswered.
func (q *Queries) InsertAnswer(ctx context.Context, arg InsertAnswerParams) error {
	_, err := q.db.Exec(ctx, insertAnswer,
		arg.QuestionInstanceID, arg.UserID, arg.SelectedOption, arg.IsCorrect, arg.ResponseTimeMs, arg.PointsAwarded)
	return err
}

const getAnswer = `
SELECT question_instance_id, user_id, selected_option, is_correct, response_time_ms, points_awarded, answered_at
FROM answers WHERE question_instance_id = $1 AND user_id = $2
`

// GetAnswer fetches the answer, if any, a user recorded for a question instance.
func (q *Queries) GetAnswer(ctx context.Context, questionInstanceID, userID pgtype.UUID) (Answer, error) {
	row := q.db.QueryRow(ctx, getAnswer, questionInstanceID, userID)
	var a Answer
	err := row.Scan(&a.QuestionInstanceID, &a.UserID, &a.SelectedOption, &a.IsCorrect, &a.ResponseTimeMs, &a.PointsAwarded, &a.AnsweredAt)
	return a, err
}

const getAnswersForMatch = `
SELECT a.question_instance_id, a.user_id, a.selected_option, a.is_correct, a.response_time_ms, a.points_awarded, a.answered_at
FROM answers a
JOIN question_instances qi ON qi.question_instance_id = a.question_instance_id
WHERE qi.match_id = $1
`

// GetAnswersForMatch returns every Answer row across all question instances
// of a match, used by settlement to compute per-participant aggregates.
func (q *Queries) GetAnswersForMatch(ctx context.Context, matchID pgtype.UUID) ([]Answer, error) {
	rows, err := q.db.Query(ctx, getAnswersForMatch, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Answer
	for rows.Next() {
		var a Answer
		if err := rows.Scan(&a.QuestionInstanceID, &a.UserID, &a.SelectedOption, &a.IsCorrect, &a.ResponseTimeMs, &a.PointsAwarded, &a.AnsweredAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
