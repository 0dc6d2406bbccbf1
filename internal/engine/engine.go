// Package engine implements the Match Engine, Timer Loop, and Settlement of
// spec §4.1, §4.2, §4.5: the authoritative state machine for a single match,
// serialized per match-id, owning question ordering, answer acceptance,
// scoring, resolution, and end-of-match settlement.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/arvensis/trivia-arena/internal/db/repository"
	"github.com/arvensis/trivia-arena/internal/metrics"
	"github.com/arvensis/trivia-arena/internal/question"
)

// matchActor bundles a match's serialized executor with its in-memory
// runtime state. Every access to rt happens from inside ex's goroutine.
type matchActor struct {
	ex *executor
	rt *runtime
}

// Engine owns every active match's actor.
type Engine struct {
	store       repository.Store
	questions   question.Source
	broadcaster Broadcaster
	logger      zerolog.Logger
	cfg         Config

	mu      sync.Mutex
	matches map[uuid.UUID]*matchActor
}

// New builds an Engine. broadcaster may be nil only in tests that don't
// exercise broadcast fan-out.
func New(store repository.Store, questions question.Source, broadcaster Broadcaster, logger zerolog.Logger, cfg Config) *Engine {
	return &Engine{
		store:       store,
		questions:   questions,
		broadcaster: broadcaster,
		logger:      logger,
		cfg:         cfg,
		matches:     make(map[uuid.UUID]*matchActor),
	}
}

// withMatch runs fn serialized on matchID's executor and returns its result,
// mapping executor-acquire timeouts to a Busy error per spec §5.
func (e *Engine) withMatch(ctx context.Context, matchID uuid.UUID, fn func(a *matchActor) (interface{}, error)) (interface{}, error) {
	e.mu.Lock()
	actor, ok := e.matches[matchID]
	e.mu.Unlock()
	if !ok {
		return nil, newError(CodeNotFound, "match not found")
	}

	type outcome struct {
		val interface{}
		err error
	}
	resultCh := make(chan outcome, 1)
	task := func() {
		val, err := fn(actor)
		resultCh <- outcome{val, err}
	}

	if err := actor.ex.submit(ctx, e.cfg.ExecutorAcquireTimeout, task); err != nil {
		return nil, err
	}
	select {
	case o := <-resultCh:
		return o.val, o.err
	case <-ctx.Done():
		return nil, newError(CodeBusy, "request cancelled waiting for match executor result")
	}
}

// CreateMatch persists a new SCHEDULED match with its invited participants
// and shuffled question instances, and registers its in-memory actor. Match
// creation itself is an out-of-scope external collaborator per spec §1; this
// is the seam it calls into.
func (e *Engine) CreateMatch(ctx context.Context, hostID uuid.UUID, participantUserIDs []uuid.UUID, category, difficulty string, totalQuestions int) (uuid.UUID, error) {
	if totalQuestions < 1 || totalQuestions > e.cfg.MaxQuestionsPerMatch {
		return uuid.Nil, newError(CodeNotScheduled, fmt.Sprintf("totalQuestions must be between 1 and %d", e.cfg.MaxQuestionsPerMatch))
	}

	raw, err := e.questions.FetchRandomQuestions(ctx, category, difficulty, totalQuestions)
	if err != nil {
		return uuid.Nil, fmt.Errorf("fetch question pool: %w", err)
	}

	matchID := uuid.New()
	match := repository.Match{
		MatchID:        matchID,
		HostID:         hostID,
		Status:         repository.StatusScheduled,
		Difficulty:     difficulty,
		TotalQuestions: totalQuestions,
	}

	questionInstances := make([]repository.QuestionInstance, 0, len(raw))
	for i, q := range raw {
		questionInstances = append(questionInstances, repository.QuestionInstance{
			QuestionInstanceID: uuid.New(),
			MatchID:            matchID,
			QuestionNumber:     i + 1,
			QuestionText:       q.Text,
			Options:            shuffleOptions(q.CorrectOption, q.WrongOptions, matchID, i),
			CorrectOption:      q.CorrectOption,
			ContentHash:        q.ID.String(),
		})
	}

	err = e.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.CreateMatch(ctx, match); err != nil {
			return err
		}
		for _, uid := range participantUserIDs {
			if err := tx.InsertParticipant(ctx, matchID, uid); err != nil {
				return err
			}
		}
		for _, qi := range questionInstances {
			if err := tx.InsertQuestionInstance(ctx, qi); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("persist match: %w", err)
	}

	participants := make([]repository.Participant, 0, len(participantUserIDs))
	for _, uid := range participantUserIDs {
		participants = append(participants, repository.Participant{MatchID: matchID, UserID: uid})
	}

	e.mu.Lock()
	e.matches[matchID] = &matchActor{
		ex: newExecutor(e.cfg.ExecutorInboxCap),
		rt: newRuntime(match, participants, questionInstances),
	}
	e.mu.Unlock()
	metrics.ActiveMatches.Inc()

	return matchID, nil
}

// Join implements spec §4.1's join operation: idempotent, binds the
// reconnection case without restarting the timer, replies with a snapshot.
func (e *Engine) Join(ctx context.Context, matchID, userID uuid.UUID) (MatchStatePayload, error) {
	val, err := e.withMatch(ctx, matchID, func(a *matchActor) (interface{}, error) {
		rt := a.rt
		p, ok := rt.participants[userID]
		if !ok {
			return nil, newError(CodeNotAParticipant, "user is not a participant of this match")
		}
		if rt.match.Status == repository.StatusCanceled {
			return nil, newError(CodeCancelled, "match was cancelled")
		}
		p.connected = true
		return e.snapshotLocked(rt), nil
	})
	if err != nil {
		return MatchStatePayload{}, err
	}
	return val.(MatchStatePayload), nil
}

func (e *Engine) snapshotLocked(rt *runtime) MatchStatePayload {
	snap := MatchStatePayload{
		MatchID:               rt.match.MatchID,
		HostID:                rt.match.HostID,
		Status:                rt.match.Status,
		Difficulty:            rt.match.Difficulty,
		TotalQuestions:        rt.match.TotalQuestions,
		CurrentQuestionNumber: rt.match.CurrentQuestionNumber,
		Participants:          rt.participantView(),
	}
	if rt.match.Status == repository.StatusOngoing && rt.subState == SubStateAsking {
		if q, ok := rt.currentQuestion(); ok {
			snap.CurrentQuestion = &QuestionView{
				QuestionNumber: q.QuestionNumber,
				Text:           q.QuestionText,
				Options:        q.Options[:],
				TotalQuestions: rt.match.TotalQuestions,
			}
			elapsed := time.Since(rt.askStartMonotonic)
			remaining := int(e.cfg.QuestionDuration.Seconds()) - int(elapsed.Seconds())
			if remaining < 0 {
				remaining = 0
			}
			snap.TimeRemainingSec = &remaining
		}
	}
	return snap
}

// Start implements spec §4.1's start operation.
func (e *Engine) Start(ctx context.Context, matchID, callerUserID uuid.UUID) error {
	_, err := e.withMatch(ctx, matchID, func(a *matchActor) (interface{}, error) {
		rt := a.rt
		if rt.match.HostID != callerUserID {
			return nil, newError(CodeNotHost, "only the host may start the match")
		}
		if rt.match.Status != repository.StatusScheduled {
			return nil, newError(CodeNotScheduled, "match is not SCHEDULED")
		}
		if len(rt.participants) == 0 {
			return nil, newError(CodeNoPlayers, "match has no participants")
		}

		if err := e.store.SetMatchStarted(ctx, matchID); err != nil {
			return nil, newError(CodeBusy, "failed to persist match start")
		}
		rt.match.Status = repository.StatusOngoing
		rt.match.CurrentQuestionNumber = 1
		rt.resetForQuestion()

		q, _ := rt.currentQuestion()
		e.broadcaster.Broadcast(matchID, Event{Type: EventMatchStarted, Payload: MatchStartedPayload{
			StartedAt: time.Now().Unix(),
			FirstQuestion: QuestionView{
				QuestionNumber: q.QuestionNumber,
				Text:           q.QuestionText,
				Options:        q.Options[:],
				TotalQuestions: rt.match.TotalQuestions,
			},
		}})
		e.broadcaster.Broadcast(matchID, Event{Type: EventQuestionNew, Payload: QuestionView{
			QuestionNumber: q.QuestionNumber,
			Text:           q.QuestionText,
			Options:        q.Options[:],
			TotalQuestions: rt.match.TotalQuestions,
		}})
		e.armQuestionTimer(matchID, a)
		return nil, nil
	})
	return err
}

// AnswerResult is returned to the submitting caller privately.
type AnswerResult struct {
	IsCorrect     bool
	CorrectOption string
	PointsAwarded int
	NewScore      int
}

// SubmitAnswer implements spec §4.1's submitAnswer operation and scoring
// algorithm.
func (e *Engine) SubmitAnswer(ctx context.Context, matchID, userID uuid.UUID, questionNumber int, selectedOption string) (AnswerResult, error) {
	val, err := e.withMatch(ctx, matchID, func(a *matchActor) (interface{}, error) {
		rt := a.rt
		if rt.match.Status != repository.StatusOngoing {
			return nil, newError(CodeMatchNotOngoing, "match is not ONGOING")
		}
		if _, ok := rt.participants[userID]; !ok {
			return nil, newError(CodeNotAParticipant, "user is not a participant of this match")
		}
		if questionNumber != rt.match.CurrentQuestionNumber || rt.subState != SubStateAsking {
			return nil, newError(CodeWrongQuestion, "not accepting answers for this question")
		}
		if rt.answeredThisQ[userID] {
			return nil, newError(CodeAlreadyAnswered, "already answered this question")
		}

		q, _ := rt.currentQuestion()
		validOption := false
		for _, opt := range q.Options {
			if opt == selectedOption {
				validOption = true
				break
			}
		}
		if !validOption {
			return nil, newError(CodeOptionNotRecognised, "selected option is not one of the four shown")
		}

		elapsedMs := int(time.Since(rt.askStartMonotonic).Milliseconds())
		isCorrect := selectedOption == q.CorrectOption
		points := 0
		if isCorrect {
			points = rt.tracker.Award(elapsedMs)
		}

		selOpt := selectedOption
		answer := repository.Answer{
			QuestionInstanceID: q.QuestionInstanceID,
			UserID:             userID,
			SelectedOption:     &selOpt,
			IsCorrect:          isCorrect,
			ResponseTimeMs:     elapsedMs,
			PointsAwarded:      points,
		}

		err := e.store.WithinTx(ctx, func(tx repository.Store) error {
			if err := tx.InsertAnswer(ctx, answer); err != nil {
				return err
			}
			if points > 0 {
				if _, err := tx.IncrementParticipantScore(ctx, matchID, userID, points); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if err == repository.ErrDuplicateAnswer {
				return nil, newError(CodeAlreadyAnswered, "already answered this question")
			}
			return nil, newError(CodeBusy, "failed to persist answer, try again")
		}

		rt.answeredThisQ[userID] = true
		rt.participants[userID].score += points

		if isCorrect {
			metrics.AnswersProcessedTotal.WithLabelValues("true").Inc()
		} else {
			metrics.AnswersProcessedTotal.WithLabelValues("false").Inc()
		}

		e.broadcaster.BroadcastExcept(matchID, userID, Event{Type: EventAnswerReceived, Payload: AnswerReceivedPayload{UserID: userID}})

		result := AnswerResult{
			IsCorrect:     isCorrect,
			CorrectOption: q.CorrectOption,
			PointsAwarded: points,
			NewScore:      rt.participants[userID].score,
		}
		e.broadcaster.SendTo(matchID, userID, Event{Type: EventAnswerConfirmed, Payload: AnswerConfirmedPayload{
			IsCorrect:     result.IsCorrect,
			PointsAwarded: result.PointsAwarded,
			CorrectOption: result.CorrectOption,
			NewScore:      result.NewScore,
		}})

		if rt.allAnswered() {
			e.resolveQuestionLocked(ctx, matchID, a)
		}

		return result, nil
	})
	if err != nil {
		return AnswerResult{}, err
	}
	return val.(AnswerResult), nil
}

// Advance implements spec §4.1's advance operation (host-triggered).
func (e *Engine) Advance(ctx context.Context, matchID, callerUserID uuid.UUID) error {
	_, err := e.withMatch(ctx, matchID, func(a *matchActor) (interface{}, error) {
		rt := a.rt
		if rt.match.HostID != callerUserID {
			return nil, newError(CodeNotHost, "only the host may advance the match")
		}
		if rt.subState != SubStateResolved {
			return nil, newError(CodeWrongSubState, "advance is only valid from RESOLVED")
		}
		e.cancelAutoAdvanceLocked(rt)
		e.advanceLocked(ctx, matchID, a)
		return nil, nil
	})
	return err
}

// DeleteIfScheduled implements spec §4.1's deleteIfScheduled operation.
func (e *Engine) DeleteIfScheduled(ctx context.Context, matchID, callerUserID uuid.UUID) error {
	_, err := e.withMatch(ctx, matchID, func(a *matchActor) (interface{}, error) {
		rt := a.rt
		if rt.match.HostID != callerUserID {
			return nil, newError(CodeNotHost, "only the host may delete the match")
		}
		if rt.match.Status != repository.StatusScheduled {
			return nil, newError(CodeNotScheduled, "match is not SCHEDULED")
		}
		if err := e.store.DeleteMatchCascade(ctx, matchID); err != nil {
			return nil, newError(CodeBusy, "failed to delete match")
		}
		e.removeActor(matchID, a)
		return nil, nil
	})
	return err
}

func (e *Engine) removeActor(matchID uuid.UUID, a *matchActor) {
	e.cancelAllTimersLocked(a.rt)
	e.mu.Lock()
	delete(e.matches, matchID)
	e.mu.Unlock()
	a.ex.stop()
	e.broadcaster.CloseMatch(matchID)
	metrics.ActiveMatches.Dec()
	metrics.BroadcastQueueDepth.DeleteLabelValues(matchID.String())
}

func (e *Engine) cancelAllTimersLocked(rt *runtime) {
	if rt.timerCancel != nil {
		rt.timerCancel()
		rt.timerCancel = nil
	}
	if rt.advanceTimer != nil {
		rt.advanceTimer()
		rt.advanceTimer = nil
	}
}

func (e *Engine) cancelAutoAdvanceLocked(rt *runtime) {
	if rt.advanceTimer != nil {
		rt.advanceTimer()
		rt.advanceTimer = nil
	}
}

// resolveQuestionLocked transitions ASKING -> RESOLVED: auto-miss
// non-answerers, broadcast question:ended, arm the auto-advance timer.
// Must be called from inside the match's executor goroutine.
func (e *Engine) resolveQuestionLocked(ctx context.Context, matchID uuid.UUID, a *matchActor) {
	rt := a.rt
	if rt.subState != SubStateAsking {
		return
	}
	if rt.timerCancel != nil {
		rt.timerCancel()
		rt.timerCancel = nil
	}

	q, _ := rt.currentQuestion()
	durationMs := int(e.cfg.QuestionDuration.Milliseconds())

	var misses []uuid.UUID
	for id := range rt.participants {
		if !rt.answeredThisQ[id] {
			misses = append(misses, id)
		}
	}

	if len(misses) > 0 {
		err := e.store.WithinTx(ctx, func(tx repository.Store) error {
			for _, id := range misses {
				a := repository.Answer{
					QuestionInstanceID: q.QuestionInstanceID,
					UserID:             id,
					SelectedOption:     nil,
					IsCorrect:          false,
					ResponseTimeMs:     durationMs,
					PointsAwarded:      0,
				}
				if err := tx.InsertAnswer(ctx, a); err != nil && err != repository.ErrDuplicateAnswer {
					return err
				}
			}
			return nil
		})
		if err != nil {
			e.logger.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to persist auto-miss answers")
		}
	}
	for _, id := range misses {
		rt.answeredThisQ[id] = true
	}

	rt.subState = SubStateResolved
	metrics.QuestionResolutionSeconds.WithLabelValues(rt.match.Difficulty).Observe(time.Since(rt.askStartMonotonic).Seconds())
	e.broadcaster.Broadcast(matchID, Event{Type: EventQuestionEnded, Payload: QuestionEndedPayload{
		QuestionNumber: q.QuestionNumber,
		CorrectOption:  q.CorrectOption,
		Scoreboard:     rt.scoreboard(),
	}})

	e.armAutoAdvance(matchID, a)
}

func (rt *runtime) scoreboard() []ScoreboardEntry {
	out := make([]ScoreboardEntry, 0, len(rt.participants))
	for _, p := range rt.participants {
		out = append(out, ScoreboardEntry{UserID: p.userID, Score: p.score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// advanceLocked moves RESOLVED -> ASKING(next) or -> settlement. Must be
// called from inside the match's executor goroutine.
func (e *Engine) advanceLocked(ctx context.Context, matchID uuid.UUID, a *matchActor) {
	rt := a.rt
	next := rt.match.CurrentQuestionNumber + 1
	if next > rt.match.TotalQuestions {
		e.settleLocked(ctx, matchID, a)
		return
	}

	if err := e.store.SetMatchQuestionNumber(ctx, matchID, next); err != nil {
		e.logger.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to persist question advance")
	}
	rt.match.CurrentQuestionNumber = next
	rt.resetForQuestion()

	q, _ := rt.currentQuestion()
	e.broadcaster.Broadcast(matchID, Event{Type: EventQuestionNew, Payload: QuestionView{
		QuestionNumber: q.QuestionNumber,
		Text:           q.QuestionText,
		Options:        q.Options[:],
		TotalQuestions: rt.match.TotalQuestions,
	}})
	e.armQuestionTimer(matchID, a)
}

func shuffleOptions(correct string, wrong [3]string, matchID uuid.UUID, questionIndex int) [4]string {
	all := [4]string{correct, wrong[0], wrong[1], wrong[2]}
	seed := int64(matchID[0]) + int64(matchID[1])<<8 + int64(questionIndex)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all
}
