package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertParticipant = `
INSERT INTO participants (match_id, user_id, score, joined_at)
VALUES ($1, $2, 0, now())
ON CONFLICT (match_id, user_id) DO NOTHING
`

type InsertParticipantParams struct {
	MatchID pgtype.UUID
	UserID  pgtype.UUID
}

// InsertParticipant adds a user to a match, idempotently.
func (q *Queries) InsertParticipant(ctx context.Context, arg InsertParticipantParams) error {
	_, err := q.db.Exec(ctx, insertParticipant, arg.MatchID, arg.UserID)
	return err
}

const getParticipants = `
SELECT match_id, user_id, score, joined_at FROM participants WHERE match_id = $1 ORDER BY joined_at ASC
`

// GetParticipants lists every participant of a match in join order.
func (q *Queries) GetParticipants(ctx context.Context, matchID pgtype.UUID) ([]Participant, error) {
	rows, err := q.db.Query(ctx, getParticipants, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.MatchID, &p.UserID, &p.Score, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const incrementParticipantScore = `
UPDATE participants SET score = score + $3 WHERE match_id = $1 AND user_id = $2
RETURNING score
`

// IncrementParticipantScore bumps a participant's running score by delta and
// returns the new total.
func (q *Queries) IncrementParticipantScore(ctx context.Context, matchID, userID pgtype.UUID, delta int32) (int32, error) {
	row := q.db.QueryRow(ctx, incrementParticipantScore, matchID, userID, delta)
	var score int32
	err := row.Scan(&score)
	return score, err
}
