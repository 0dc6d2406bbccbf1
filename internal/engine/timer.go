package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// armQuestionTimer starts the per-question 1Hz timer loop of spec §4.2: a
// timer:start event, one timer:tick per elapsed second, and a timer:expired
// event plus forced resolution if the question is still unresolved when the
// countdown runs out. Every callback is
// funneled back through the match's executor inbox so it never races with a
// concurrently submitted command.
func (e *Engine) armQuestionTimer(matchID uuid.UUID, a *matchActor) {
	rt := a.rt
	totalSec := int(e.cfg.QuestionDuration.Seconds())
	ticker := time.NewTicker(time.Second)
	stop := make(chan struct{})
	rt.timerCancel = func() {
		close(stop)
		ticker.Stop()
	}

	e.broadcaster.Broadcast(matchID, Event{Type: EventTimerStart, Payload: TimerPayload{TimeRemainingSec: totalSec}})

	go func() {
		elapsed := 0
		for {
			select {
			case <-ticker.C:
				elapsed++
				remaining := totalSec - elapsed
				if remaining <= 0 {
					ticker.Stop()
					e.submitTimerCallback(matchID, a, func(ctx context.Context) {
						if a.rt.subState != SubStateAsking {
							return
						}
						e.broadcaster.Broadcast(matchID, Event{Type: EventTimerExpired, Payload: TimerPayload{TimeRemainingSec: 0}})
						e.resolveQuestionLocked(ctx, matchID, a)
					})
					return
				}
				remainingCopy := remaining
				e.submitTimerCallback(matchID, a, func(ctx context.Context) {
					if a.rt.subState != SubStateAsking {
						return
					}
					e.broadcaster.Broadcast(matchID, Event{Type: EventTimerTick, Payload: TimerPayload{TimeRemainingSec: remainingCopy}})
				})
			case <-stop:
				return
			}
		}
	}()
}

// armAutoAdvance starts the one-shot delay between question:ended and the
// automatic advance to the next question (or settlement) of spec §4.2.
func (e *Engine) armAutoAdvance(matchID uuid.UUID, a *matchActor) {
	rt := a.rt
	t := time.NewTimer(e.cfg.AutoAdvanceDelay)
	stop := make(chan struct{})
	rt.advanceTimer = func() {
		close(stop)
		t.Stop()
	}

	go func() {
		select {
		case <-t.C:
			e.submitTimerCallback(matchID, a, func(ctx context.Context) {
				if a.rt.subState != SubStateResolved {
					return
				}
				a.rt.advanceTimer = nil
				e.advanceLocked(ctx, matchID, a)
			})
		case <-stop:
		}
	}()
}

// submitTimerCallback runs fn serialized on the match's executor, best
// effort: if the executor is gone or saturated the callback is dropped,
// since the match has either finished or will be driven forward by the next
// inbound command anyway.
func (e *Engine) submitTimerCallback(matchID uuid.UUID, a *matchActor, fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ExecutorAcquireTimeout)
	defer cancel()
	_ = a.ex.submit(ctx, e.cfg.ExecutorAcquireTimeout, func() {
		fn(context.Background())
	})
}
