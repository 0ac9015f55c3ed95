package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestExactThresholdLevelsOnceProperty checks that granting exactly level*threshold
// experience from zero gains one level and resets experience.
func TestExactThresholdLevelsOnceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, 100).Draw(t, "level")
		threshold := rapid.Int64Range(1, 1000).Draw(t, "threshold")

		res := ApplyExperience(level, 0, int64(level)*threshold, threshold)
		if res.Level != level+1 || res.Experience != 0 || res.LevelsGained != 1 {
			t.Fatalf("level %d threshold %d: got %+v", level, threshold, res)
		}
	})
}

// TestLevelLoopInvariantProperty checks that after any grant the remaining experience
// is below the next threshold and no experience is lost.
func TestLevelLoopInvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, 50).Draw(t, "level")
		threshold := rapid.Int64Range(1, 500).Draw(t, "threshold")
		xp := rapid.Int64Range(0, int64(level)*threshold-1).Draw(t, "xp")
		amount := rapid.Int64Range(0, 1_000_000).Draw(t, "amount")

		res := ApplyExperience(level, xp, amount, threshold)

		if res.Experience < 0 || res.Experience >= int64(res.Level)*threshold {
			t.Fatalf("experience %d not below threshold %d", res.Experience, int64(res.Level)*threshold)
		}

		var consumed int64
		for l := level; l < res.Level; l++ {
			consumed += int64(l) * threshold
		}
		if consumed+res.Experience != xp+amount {
			t.Fatalf("experience not conserved: consumed %d + left %d != %d", consumed, res.Experience, xp+amount)
		}
	})
}

func TestApplyExperience_DoubleGrant(t *testing.T) {
	// Level 1 with threshold 100: 100 reaches level 2, then 200 reaches level 3.
	res := ApplyExperience(1, 0, 300, 100)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, int64(0), res.Experience)

	// 2*level*threshold crosses the first boundary but not the second.
	res = ApplyExperience(2, 0, 400, 100)
	assert.Equal(t, 3, res.Level)
	assert.Equal(t, int64(200), res.Experience)

	res = ApplyExperience(1, 0, 1000, 0)
	assert.False(t, res.LeveledUp())
	assert.Equal(t, int64(1000), res.Experience)
}
