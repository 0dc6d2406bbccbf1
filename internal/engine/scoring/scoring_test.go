package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrackerFirstCorrectAnswerAlwaysScoresMax(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 100, tr.Award(3000))
}

func TestTrackerDiscountsLaterSlowerAnswer(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 100, tr.Award(3000))
	assert.Equal(t, 96, tr.Award(3400))
}

func TestTrackerClampsToFloorOfTen(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 100, tr.Award(1000))
	assert.Equal(t, MinPoints, tr.Award(1000+100*1000))
}

func TestTrackerDoesNotRetroactivelyAdjustEarlierAward(t *testing.T) {
	tr := NewTracker()
	first := tr.Award(5000)
	assert.Equal(t, 100, first)

	// A later arrival with a lower elapsed time becomes the new fastest,
	// but `first`'s already-returned value is never recomputed.
	second := tr.Award(2000)
	assert.Equal(t, 100, second)
	assert.Equal(t, 100, first)
}

func TestSoloCorrectResponderAlwaysScoresMax(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, 100, tr.Award(5000))
}
