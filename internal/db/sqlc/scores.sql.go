package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertScore = `
INSERT INTO scores (match_id, user_id, total_score, correct_count, total_questions, avg_response_time_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (match_id, user_id) DO UPDATE SET
	total_score = EXCLUDED.total_score,
	correct_count = EXCLUDED.correct_count,
	total_questions = EXCLUDED.total_questions,
	avg_response_time_ms = EXCLUDED.avg_response_time_ms
`

type UpsertScoreParams struct {
	MatchID           pgtype.UUID
	UserID            pgtype.UUID
	TotalScore        int32
	CorrectCount      int32
	TotalQuestions    int32
	AvgResponseTimeMs int32
}

// UpsertScore writes the final per-participant Score row at settlement.
func (q *Queries) UpsertScore(ctx context.Context, arg UpsertScoreParams) error {
	_, err := q.db.Exec(ctx, upsertScore,
		arg.MatchID, arg.UserID, arg.TotalScore, arg.CorrectCount, arg.TotalQuestions, arg.AvgResponseTimeMs)
	return err
}

const getScoresForMatch = `
SELECT match_id, user_id, total_score, correct_count, total_questions, avg_response_time_ms
FROM scores WHERE match_id = $1
`

// GetScoresForMatch returns the settled scores for a match.
func (q *Queries) GetScoresForMatch(ctx context.Context, matchID pgtype.UUID) ([]Score, error) {
	rows, err := q.db.Query(ctx, getScoresForMatch, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.MatchID, &s.UserID, &s.TotalScore, &s.CorrectCount, &s.TotalQuestions, &s.AvgResponseTimeMs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
