// Package scoring implements the speed-discounted point formula of spec
// §4.1: the fastest correct responder on a question always scores 100;
// later correct responders are discounted by how much slower they were than
// the fastest *known-so-far* responder, and already-awarded points are never
// retroactively adjusted.
package scoring

const (
	MinPoints = 10
	MaxPoints = 100

	// msPerPointStep is how many milliseconds of lag behind the fastest
	// correct responder cost one point: 1 point per 100ms.
	msPerPointStep = 100
)

// Tracker holds the monotonic-minimum elapsed time among correct answers
// accepted so far for a single question instance. It is not safe for
// concurrent use; callers serialize access (the per-match executor already
// does this).
type Tracker struct {
	fastestElapsedMs *int
}

// NewTracker builds an empty Tracker for a fresh question.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Award records a correct answer's elapsed time (in milliseconds since the
// question was broadcast) and returns the points it earns. Must only be
// called for correct answers; wrong and timed-out answers always score 0 and
// never touch the tracker.
func (t *Tracker) Award(elapsedMs int) int {
	if t.fastestElapsedMs == nil || elapsedMs < *t.fastestElapsedMs {
		v := elapsedMs
		t.fastestElapsedMs = &v
	}
	lagMs := elapsedMs - *t.fastestElapsedMs
	points := MaxPoints - (lagMs / msPerPointStep)
	return clamp(points, MinPoints, MaxPoints)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
