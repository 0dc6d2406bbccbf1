package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const getLifetimeStatsForUpdate = `
SELECT user_id, games_played, games_won, total_score, highest_score, correct_answers, total_answers, avg_response_time_ms, average_score, last_played_at
FROM lifetime_stats WHERE user_id = $1 FOR UPDATE
`

// GetLifetimeStatsForUpdate reads a user's lifetime row, row-locked within the
// enclosing transaction so two concurrent settlements touching the same user
// serialize instead of lost-updating each other. Returns pgx.ErrNoRows if the
// user has no row yet.
func (q *Queries) GetLifetimeStatsForUpdate(ctx context.Context, userID pgtype.UUID) (LifetimeStats, error) {
	row := q.db.QueryRow(ctx, getLifetimeStatsForUpdate, userID)
	var s LifetimeStats
	err := row.Scan(&s.UserID, &s.GamesPlayed, &s.GamesWon, &s.TotalScore, &s.HighestScore,
		&s.CorrectAnswers, &s.TotalAnswers, &s.AvgResponseTimeMs, &s.AverageScore, &s.LastPlayedAt)
	return s, err
}

const upsertLifetimeStats = `
INSERT INTO lifetime_stats (user_id, games_played, games_won, total_score, highest_score, correct_answers, total_answers, avg_response_time_ms, average_score, last_played_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
	games_played = EXCLUDED.games_played,
	games_won = EXCLUDED.games_won,
	total_score = EXCLUDED.total_score,
	highest_score = EXCLUDED.highest_score,
	correct_answers = EXCLUDED.correct_answers,
	total_answers = EXCLUDED.total_answers,
	avg_response_time_ms = EXCLUDED.avg_response_time_ms,
	average_score = EXCLUDED.average_score,
	last_played_at = EXCLUDED.last_played_at
`

// UpsertLifetimeStats writes the full, recomputed lifetime row for a user.
func (q *Queries) UpsertLifetimeStats(ctx context.Context, s LifetimeStats) error {
	_, err := q.db.Exec(ctx, upsertLifetimeStats,
		s.UserID, s.GamesPlayed, s.GamesWon, s.TotalScore, s.HighestScore,
		s.CorrectAnswers, s.TotalAnswers, s.AvgResponseTimeMs, s.AverageScore, s.LastPlayedAt)
	return err
}

// ErrNoRows re-exports pgx.ErrNoRows so callers outside this package do not
// need to import pgx directly to check for a missing row.
var ErrNoRows = pgx.ErrNoRows
