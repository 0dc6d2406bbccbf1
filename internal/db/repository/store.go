package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlcgen "github.com/arvensis/trivia-arena/internal/db/sqlc"
)

// Store is the contract the Match Engine consumes, grounded in spec §6.
// Every grouped operation needed atomically (answer persist + score
// increment, settlement) is available as a single call into WithinTx.
type Store interface {
	CreateMatch(ctx context.Context, m Match) (Match, error)
	GetMatch(ctx context.Context, matchID uuid.UUID) (Match, error)
	SetMatchStarted(ctx context.Context, matchID uuid.UUID) error
	SetMatchQuestionNumber(ctx context.Context, matchID uuid.UUID, questionNumber int) error
	SetMatchStatus(ctx context.Context, matchID uuid.UUID, status string) error
	DeleteMatchCascade(ctx context.Context, matchID uuid.UUID) error

	InsertParticipant(ctx context.Context, matchID, userID uuid.UUID) error
	GetParticipants(ctx context.Context, matchID uuid.UUID) ([]Participant, error)
	IncrementParticipantScore(ctx context.Context, matchID, userID uuid.UUID, delta int) (int, error)

	InsertQuestionInstance(ctx context.Context, qi QuestionInstance) error
	GetQuestionInstances(ctx context.Context, matchID uuid.UUID) ([]QuestionInstance, error)

	GetAnswer(ctx context.Context, questionInstanceID, userID uuid.UUID) (*Answer, error)
	InsertAnswer(ctx context.Context, a Answer) error
	GetAnswersForMatch(ctx context.Context, matchID uuid.UUID) ([]Answer, error)

	UpsertScore(ctx context.Context, s Score) error

	GetLifetimeStatsForUpdate(ctx context.Context, userID uuid.UUID) (LifetimeStats, bool, error)
	UpsertLifetimeStats(ctx context.Context, s LifetimeStats) error

	// WithinTx runs fn against a Store bound to a single transaction; fn's
	// error aborts and rolls back the whole unit.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// PostgresStore implements Store over pgx/v5.
type PostgresStore struct {
	pool    *pgxpool.Pool
	queries *sqlcgen.Queries
}

// NewPostgresStore builds a Store bound to a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, queries: sqlcgen.New(pool)}
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) uuid.UUID {
	return uuid.UUID(id.Bytes)
}

func pgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}

func (s *PostgresStore) CreateMatch(ctx context.Context, m Match) (Match, error) {
	row, err := s.queries.CreateMatch(ctx, sqlcgen.CreateMatchParams{
		MatchID:        pgUUID(m.MatchID),
		HostID:         pgUUID(m.HostID),
		Difficulty:     m.Difficulty,
		TotalQuestions: int32(m.TotalQuestions),
	})
	if err != nil {
		return Match{}, err
	}
	return matchFromRow(row), nil
}

func (s *PostgresStore) GetMatch(ctx context.Context, matchID uuid.UUID) (Match, error) {
	row, err := s.queries.GetMatch(ctx, pgUUID(matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Match{}, ErrNotFound
		}
		return Match{}, err
	}
	return matchFromRow(row), nil
}

func (s *PostgresStore) SetMatchStarted(ctx context.Context, matchID uuid.UUID) error {
	n, err := s.queries.SetMatchStarted(ctx, pgUUID(matchID))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetMatchQuestionNumber(ctx context.Context, matchID uuid.UUID, questionNumber int) error {
	return s.queries.SetMatchQuestionNumber(ctx, pgUUID(matchID), int32(questionNumber))
}

func (s *PostgresStore) SetMatchStatus(ctx context.Context, matchID uuid.UUID, status string) error {
	return s.queries.SetMatchStatus(ctx, pgUUID(matchID), status)
}

func (s *PostgresStore) DeleteMatchCascade(ctx context.Context, matchID uuid.UUID) error {
	n, err := s.queries.DeleteScheduledMatch(ctx, pgUUID(matchID))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) InsertParticipant(ctx context.Context, matchID, userID uuid.UUID) error {
	return s.queries.InsertParticipant(ctx, sqlcgen.InsertParticipantParams{
		MatchID: pgUUID(matchID),
		UserID:  pgUUID(userID),
	})
}

func (s *PostgresStore) GetParticipants(ctx context.Context, matchID uuid.UUID) ([]Participant, error) {
	rows, err := s.queries.GetParticipants(ctx, pgUUID(matchID))
	if err != nil {
		return nil, err
	}
	out := make([]Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, Participant{
			MatchID:  fromPgUUID(r.MatchID),
			UserID:   fromPgUUID(r.UserID),
			Score:    int(r.Score),
			JoinedAt: r.JoinedAt.Time,
		})
	}
	return out, nil
}

func (s *PostgresStore) IncrementParticipantScore(ctx context.Context, matchID, userID uuid.UUID, delta int) (int, error) {
	newScore, err := s.queries.IncrementParticipantScore(ctx, pgUUID(matchID), pgUUID(userID), int32(delta))
	return int(newScore), err
}

func (s *PostgresStore) InsertQuestionInstance(ctx context.Context, qi QuestionInstance) error {
	return s.queries.InsertQuestionInstance(ctx, sqlcgen.InsertQuestionInstanceParams{
		QuestionInstanceID: pgUUID(qi.QuestionInstanceID),
		MatchID:            pgUUID(qi.MatchID),
		QuestionNumber:     int32(qi.QuestionNumber),
		QuestionText:       qi.QuestionText,
		OptionA:            qi.Options[0],
		OptionB:            qi.Options[1],
		OptionC:            qi.Options[2],
		OptionD:            qi.Options[3],
		CorrectOption:      qi.CorrectOption,
		ContentHash:        qi.ContentHash,
	})
}

func (s *PostgresStore) GetQuestionInstances(ctx context.Context, matchID uuid.UUID) ([]QuestionInstance, error) {
	rows, err := s.queries.GetQuestionInstances(ctx, pgUUID(matchID))
	if err != nil {
		return nil, err
	}
	out := make([]QuestionInstance, 0, len(rows))
	for _, r := range rows {
		out = append(out, QuestionInstance{
			QuestionInstanceID: fromPgUUID(r.QuestionInstanceID),
			MatchID:            fromPgUUID(r.MatchID),
			QuestionNumber:     int(r.QuestionNumber),
			QuestionText:       r.QuestionText,
			Options:            [4]string{r.OptionA, r.OptionB, r.OptionC, r.OptionD},
			CorrectOption:      r.CorrectOption,
			ContentHash:        r.ContentHash,
		})
	}
	return out, nil
}

func (s *PostgresStore) GetAnswer(ctx context.Context, questionInstanceID, userID uuid.UUID) (*Answer, error) {
	row, err := s.queries.GetAnswer(ctx, pgUUID(questionInstanceID), pgUUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a := answerFromRow(row)
	return &a, nil
}

func (s *PostgresStore) InsertAnswer(ctx context.Context, a Answer) error {
	err := s.queries.InsertAnswer(ctx, sqlcgen.InsertAnswerParams{
		QuestionInstanceID: pgUUID(a.QuestionInstanceID),
		UserID:             pgUUID(a.UserID),
		SelectedOption:     pgText(a.SelectedOption),
		IsCorrect:          a.IsCorrect,
		ResponseTimeMs:     int32(a.ResponseTimeMs),
		PointsAwarded:      int32(a.PointsAwarded),
	})
	if isUniqueViolation(err) {
		return ErrDuplicateAnswer
	}
	return err
}

func (s *PostgresStore) GetAnswersForMatch(ctx context.Context, matchID uuid.UUID) ([]Answer, error) {
	rows, err := s.queries.GetAnswersForMatch(ctx, pgUUID(matchID))
	if err != nil {
		return nil, err
	}
	out := make([]Answer, 0, len(rows))
	for _, r := range rows {
		out = append(out, answerFromRow(r))
	}
	return out, nil
}

func (s *PostgresStore) UpsertScore(ctx context.Context, sc Score) error {
	return s.queries.UpsertScore(ctx, sqlcgen.UpsertScoreParams{
		MatchID:           pgUUID(sc.MatchID),
		UserID:            pgUUID(sc.UserID),
		TotalScore:        int32(sc.TotalScore),
		CorrectCount:      int32(sc.CorrectCount),
		TotalQuestions:    int32(sc.TotalQuestions),
		AvgResponseTimeMs: int32(sc.AvgResponseTimeMs),
	})
}

func (s *PostgresStore) GetLifetimeStatsForUpdate(ctx context.Context, userID uuid.UUID) (LifetimeStats, bool, error) {
	row, err := s.queries.GetLifetimeStatsForUpdate(ctx, pgUUID(userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LifetimeStats{UserID: userID}, false, nil
		}
		return LifetimeStats{}, false, err
	}
	return statsFromRow(row), true, nil
}

func (s *PostgresStore) UpsertLifetimeStats(ctx context.Context, st LifetimeStats) error {
	var lastPlayed pgtype.Timestamptz
	if st.LastPlayedAt != nil {
		lastPlayed = pgtype.Timestamptz{Time: *st.LastPlayedAt, Valid: true}
	}
	return s.queries.UpsertLifetimeStats(ctx, sqlcgen.LifetimeStats{
		UserID:            pgUUID(st.UserID),
		GamesPlayed:       int32(st.GamesPlayed),
		GamesWon:          int32(st.GamesWon),
		TotalScore:        st.TotalScore,
		HighestScore:      int32(st.HighestScore),
		CorrectAnswers:    st.CorrectAnswers,
		TotalAnswers:      st.TotalAnswers,
		AvgResponseTimeMs: int32(st.AvgResponseTimeMs),
		AverageScore:      st.AverageScore,
		LastPlayedAt:      lastPlayed,
	})
}

// WithinTx runs fn against a Store bound to one pgx transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	txStore := &PostgresStore{pool: s.pool, queries: s.queries.WithTx(tx)}
	if err := fn(txStore); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func matchFromRow(r sqlcgen.Match) Match {
	m := Match{
		MatchID:               fromPgUUID(r.MatchID),
		HostID:                fromPgUUID(r.HostID),
		Status:                r.Status,
		Difficulty:            r.Difficulty,
		TotalQuestions:        int(r.TotalQuestions),
		CurrentQuestionNumber: int(r.CurrentQuestionNumber),
		CreatedAt:             r.CreatedAt.Time,
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time
		m.StartedAt = &t
	}
	if r.EndedAt.Valid {
		t := r.EndedAt.Time
		m.EndedAt = &t
	}
	return m
}

func answerFromRow(r sqlcgen.Answer) Answer {
	return Answer{
		QuestionInstanceID: fromPgUUID(r.QuestionInstanceID),
		UserID:             fromPgUUID(r.UserID),
		SelectedOption:     fromPgText(r.SelectedOption),
		IsCorrect:          r.IsCorrect,
		ResponseTimeMs:     int(r.ResponseTimeMs),
		PointsAwarded:      int(r.PointsAwarded),
		AnsweredAt:         r.AnsweredAt.Time,
	}
}

func statsFromRow(r sqlcgen.LifetimeStats) LifetimeStats {
	st := LifetimeStats{
		UserID:            fromPgUUID(r.UserID),
		GamesPlayed:       int(r.GamesPlayed),
		GamesWon:          int(r.GamesWon),
		TotalScore:        r.TotalScore,
		HighestScore:      int(r.HighestScore),
		CorrectAnswers:    r.CorrectAnswers,
		TotalAnswers:      r.TotalAnswers,
		AvgResponseTimeMs: int(r.AvgResponseTimeMs),
		AverageScore:      r.AverageScore,
	}
	if r.LastPlayedAt.Valid {
		t := r.LastPlayedAt.Time
		st.LastPlayedAt = &t
	}
	return st
}
