package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createMatch = `
INSERT INTO matches (match_id, host_id, status, difficulty, total_questions, current_question_number, created_at)
VALUES ($1, $2, 'SCHEDULED', $3, $4, 0, now())
RETURNING match_id, host_id, status, difficulty, total_questions, current_question_number, created_at, started_at, ended_at
`

type CreateMatchParams struct {
	MatchID        pgtype.UUID
	HostID         pgtype.UUID
	Difficulty     string
	TotalQuestions int32
}

// CreateMatch inserts a new SCHEDULED match row.
func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	row := q.db.QueryRow(ctx, createMatch, arg.MatchID, arg.HostID, arg.Difficulty, arg.TotalQuestions)
	var m Match
	err := row.Scan(&m.MatchID, &m.HostID, &m.Status, &m.Difficulty, &m.TotalQuestions, &m.CurrentQuestionNumber, &m.CreatedAt, &m.StartedAt, &m.EndedAt)
	return m, err
}

const getMatch = `
SELECT match_id, host_id, status, difficulty, total_questions, current_question_number, created_at, started_at, ended_at
FROM matches WHERE match_id = $1
`

// GetMatch fetches a match by id.
func (q *Queries) GetMatch(ctx context.Context, matchID pgtype.UUID) (Match, error) {
	row := q.db.QueryRow(ctx, getMatch, matchID)
	var m Match
	err := row.Scan(&m.MatchID, &m.HostID, &m.Status, &m.Difficulty, &m.TotalQuestions, &m.CurrentQuestionNumber, &m.CreatedAt, &m.StartedAt, &m.EndedAt)
	return m, err
}

const setMatchStarted = `
UPDATE matches SET status = 'ONGOING', current_question_number = 1, started_at = now()
WHERE match_id = $1 AND status = 'SCHEDULED'
`

// SetMatchStarted transitions SCHEDULED -> ONGOING, q=1.
func (q *Queries) SetMatchStarted(ctx context.Context, matchID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, setMatchStarted, matchID)
	return tag.RowsAffected(), err
}

const setMatchQuestionNumber = `
UPDATE matches SET current_question_number = $2 WHERE match_id = $1
`

// SetMatchQuestionNumber persists q after an advance.
func (q *Queries) SetMatchQuestionNumber(ctx context.Context, matchID pgtype.UUID, questionNumber int32) error {
	_, err := q.db.Exec(ctx, setMatchQuestionNumber, matchID, questionNumber)
	return err
}

const setMatchStatus = `
UPDATE matches SET status = $2, ended_at = CASE WHEN $2 IN ('FINISHED', 'CANCELED') THEN now() ELSE ended_at END
WHERE match_id = $1
`

// SetMatchStatus sets the terminal/administrative status of a match.
func (q *Queries) SetMatchStatus(ctx context.Context, matchID pgtype.UUID, status string) error {
	_, err := q.db.Exec(ctx, setMatchStatus, matchID, status)
	return err
}

const deleteScheduledMatch = `
DELETE FROM matches WHERE match_id = $1 AND status = 'SCHEDULED'
`

// DeleteScheduledMatch cascades the delete of a still-SCHEDULED match via FK
// ON DELETE CASCADE.
func (q *Queries) DeleteScheduledMatch(ctx context.Context, matchID pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteScheduledMatch, matchID)
	return tag.RowsAffected(), err
}
