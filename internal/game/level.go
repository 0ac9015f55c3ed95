package game

// LevelResult is the outcome of applying an experience grant.
type LevelResult struct {
	Level        int
	Experience   int64
	LevelsGained int
}

// LeveledUp reports whether at least one level was gained.
func (r LevelResult) LeveledUp() bool {
	return r.LevelsGained > 0
}

// ApplyExperience adds amount to xp and levels up while xp >= level*threshold.
// Each level-up consumes its own threshold, so a large grant may cross several
// levels in one call. A non-positive threshold disables leveling.
func ApplyExperience(level int, xp, amount, threshold int64) LevelResult {
	if level < 1 {
		level = 1
	}
	xp += amount
	if xp < 0 {
		xp = 0
	}

	res := LevelResult{Level: level, Experience: xp}
	if threshold <= 0 {
		return res
	}

	for res.Experience >= int64(res.Level)*threshold {
		res.Experience -= int64(res.Level) * threshold
		res.Level++
		res.LevelsGained++
	}
	return res
}
