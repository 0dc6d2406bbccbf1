package engine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/arvensis/trivia-arena/internal/db/repository"
	"github.com/arvensis/trivia-arena/internal/metrics"
)

// settleLocked runs end-of-match settlement per spec §4.5: FINISHED status,
// per-participant Score rows, Lifetime Stats updates, and the winner
// determination tie-break, all inside one retried transaction. Must be
// called from inside the match's executor goroutine.
func (e *Engine) settleLocked(ctx context.Context, matchID uuid.UUID, a *matchActor) {
	rt := a.rt

	backoff, _ := retry.NewExponential(100 * time.Millisecond)
	backoff = retry.WithCappedDuration(1600*time.Millisecond, backoff)
	backoff = retry.WithJitterPercent(10, backoff)
	backoff = retry.WithMaxRetries(uint64(e.cfg.SettlementRetries), backoff)

	finalScores, winners, err := e.settleWithRetry(ctx, backoff, matchID, rt)
	if err != nil {
		e.logger.Error().Err(err).Str("match_id", matchID.String()).Msg("settlement exhausted retries, cancelling match")
		if cancelErr := e.store.SetMatchStatus(ctx, matchID, repository.StatusCanceled); cancelErr != nil {
			e.logger.Error().Err(cancelErr).Str("match_id", matchID.String()).Msg("failed to mark match cancelled after settlement failure")
		}
		rt.match.Status = repository.StatusCanceled
		e.broadcaster.Broadcast(matchID, Event{Type: EventMatchFinished, Payload: MatchFinishedPayload{Cancelled: true}})
		e.removeActor(matchID, a)
		return
	}

	rt.match.Status = repository.StatusFinished
	e.broadcaster.Broadcast(matchID, Event{Type: EventMatchFinished, Payload: MatchFinishedPayload{
		Scoreboard: finalScores,
		Winners:    winners,
	}})
	e.removeActor(matchID, a)
}

func (e *Engine) settleWithRetry(ctx context.Context, backoff retry.Backoff, matchID uuid.UUID, rt *runtime) ([]FinalScoreEntry, []uuid.UUID, error) {
	var finalScores []FinalScoreEntry
	var winners []uuid.UUID
	attempt := 0

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if attempt > 0 {
			metrics.SettlementRetriesTotal.Inc()
		}
		attempt++

		answers, err := e.store.GetAnswersForMatch(ctx, matchID)
		if err != nil {
			return retry.RetryableError(err)
		}

		deltas := computeSettlementDeltas(rt, answers)
		winnerIDs := determineWinners(deltas)
		for i := range deltas {
			deltas[i].Won = contains(winnerIDs, deltas[i].UserID)
		}

		txErr := e.store.WithinTx(ctx, func(tx repository.Store) error {
			for _, d := range deltas {
				if err := tx.UpsertScore(ctx, repository.Score{
					MatchID:           matchID,
					UserID:            d.UserID,
					TotalScore:        d.Score,
					CorrectCount:      d.CorrectCount,
					TotalQuestions:    rt.match.TotalQuestions,
					AvgResponseTimeMs: d.AvgResponseTimeMs,
				}); err != nil {
					return err
				}
				if err := e.applyLifetimeStats(ctx, tx, d); err != nil {
					return err
				}
			}
			return tx.SetMatchStatus(ctx, matchID, repository.StatusFinished)
		})
		if txErr != nil {
			return retry.RetryableError(txErr)
		}

		finalScores = make([]FinalScoreEntry, 0, len(deltas))
		for _, d := range deltas {
			finalScores = append(finalScores, FinalScoreEntry{
				UserID:            d.UserID,
				TotalScore:        d.Score,
				CorrectCount:      d.CorrectCount,
				AvgResponseTimeMs: d.AvgResponseTimeMs,
			})
		}
		sort.Slice(finalScores, func(i, j int) bool { return finalScores[i].TotalScore > finalScores[j].TotalScore })
		winners = winnerIDs
		return nil
	})
	return finalScores, winners, err
}

// applyLifetimeStats folds one match's result into a user's rolling
// Lifetime Stats row, serialized by the row-level lock GetLifetimeStatsForUpdate
// takes, per spec §5.
func (e *Engine) applyLifetimeStats(ctx context.Context, tx repository.Store, d repository.SettlementDelta) error {
	existing, found, err := tx.GetLifetimeStatsForUpdate(ctx, d.UserID)
	if err != nil {
		return err
	}
	if !found {
		existing = repository.LifetimeStats{UserID: d.UserID}
	}

	gamesPlayed := existing.GamesPlayed + 1
	gamesWon := existing.GamesWon
	if d.Won {
		gamesWon++
	}
	totalScore := existing.TotalScore + int64(d.Score)
	highest := existing.HighestScore
	if d.Score > highest {
		highest = d.Score
	}
	correctAnswers := existing.CorrectAnswers + int64(d.CorrectCount)
	totalAnswers := existing.TotalAnswers + int64(d.TotalAnswered)

	avgResponseMs := existing.AvgResponseTimeMs
	if totalAnswers > 0 {
		weightedPrior := int64(existing.AvgResponseTimeMs) * (existing.TotalAnswers)
		avgResponseMs = int(float64(weightedPrior+int64(d.AvgResponseTimeMs)*int64(d.TotalAnswered)) / float64(totalAnswers))
	}

	now := time.Now()
	return tx.UpsertLifetimeStats(ctx, repository.LifetimeStats{
		UserID:            d.UserID,
		GamesPlayed:       gamesPlayed,
		GamesWon:          gamesWon,
		TotalScore:        totalScore,
		HighestScore:      highest,
		CorrectAnswers:    correctAnswers,
		TotalAnswers:      totalAnswers,
		AvgResponseTimeMs: avgResponseMs,
		AverageScore:      float64(totalScore) / float64(gamesPlayed),
		LastPlayedAt:      &now,
	})
}

// computeSettlementDeltas folds a match's persisted Answers into one
// per-participant summary used for both Score rows and the tie-break.
func computeSettlementDeltas(rt *runtime, answers []repository.Answer) []repository.SettlementDelta {
	type accum struct {
		correct     int
		answered    int
		sumResponse int
	}
	accumByUser := make(map[uuid.UUID]*accum, len(rt.participants))
	for id := range rt.participants {
		accumByUser[id] = &accum{}
	}

	for _, ans := range answers {
		acc, ok := accumByUser[ans.UserID]
		if !ok {
			continue
		}
		acc.answered++
		acc.sumResponse += ans.ResponseTimeMs
		if ans.IsCorrect {
			acc.correct++
		}
	}

	out := make([]repository.SettlementDelta, 0, len(rt.participants))
	for id, p := range rt.participants {
		acc := accumByUser[id]
		avg := 0
		if acc.answered > 0 {
			avg = acc.sumResponse / acc.answered
		}
		out = append(out, repository.SettlementDelta{
			UserID:            id,
			Score:             p.score,
			CorrectCount:      acc.correct,
			TotalAnswered:     acc.answered,
			AvgResponseTimeMs: avg,
		})
	}
	return out
}

// determineWinners applies the three-key tie-break of spec §4.5: highest
// totalScore, then highest correctCount, then lowest avgResponseTimeMs
// (participants who never answered sort last on that key). Co-winners share
// the title when every key ties.
func determineWinners(deltas []repository.SettlementDelta) []uuid.UUID {
	if len(deltas) == 0 {
		return nil
	}
	ranked := make([]repository.SettlementDelta, len(deltas))
	copy(ranked, deltas)
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		return tieBreakResponseTime(a) < tieBreakResponseTime(b)
	})

	best := ranked[0]
	winners := []uuid.UUID{best.UserID}
	for _, d := range ranked[1:] {
		if d.Score == best.Score && d.CorrectCount == best.CorrectCount && tieBreakResponseTime(d) == tieBreakResponseTime(best) {
			winners = append(winners, d.UserID)
		}
	}
	return winners
}

// tieBreakResponseTime sorts participants who never answered a single
// question after everyone else on the avgResponseTimeMs key.
func tieBreakResponseTime(d repository.SettlementDelta) int {
	if d.TotalAnswered == 0 {
		return int(^uint(0) >> 1)
	}
	return d.AvgResponseTimeMs
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
