// Package miner implements the idle accrual rules.
// Accrual is computed lazily from (tier, last collection, now); nothing runs in the background.
package miner

import (
	"warzone-bot/internal/model"
	"warzone-bot/internal/shop"
)

// SecondsPerHour converts the hourly rate table to elapsed seconds.
const SecondsPerHour = 3600

// ComputeAccrued returns the points owed since the last collection.
// An unset last collection or a non-positive elapsed time (clock skew) yields 0.
func ComputeAccrued(p *model.Player, now int64) int64 {
	if p == nil {
		return 0
	}
	return Accrued(p.MinerTier, p.LastCollection, now)
}

// Accrued is floor(elapsed / 3600 * rate(tier)) computed in integer arithmetic.
func Accrued(tier int, lastCollection, now int64) int64 {
	if lastCollection <= 0 {
		return 0
	}
	elapsed := now - lastCollection
	if elapsed <= 0 {
		return 0
	}
	return elapsed * shop.MinerRate(tier) / SecondsPerHour
}

// NextUnitIn returns how many seconds remain until at least one point is owed.
// It returns 0 when something can already be collected, and -1 when the miner
// has never been started.
func NextUnitIn(p *model.Player, now int64) int64 {
	if p.LastCollection <= 0 {
		return -1
	}
	if ComputeAccrued(p, now) > 0 {
		return 0
	}
	rate := shop.MinerRate(p.MinerTier)
	if rate <= 0 {
		return -1
	}
	// Smallest elapsed e with e*rate >= 3600.
	need := (SecondsPerHour + rate - 1) / rate
	elapsed := now - p.LastCollection
	if elapsed < 0 {
		elapsed = 0
	}
	return need - elapsed
}

// CanUpgrade reports whether tier can still be raised and what it costs.
func CanUpgrade(tier int) (cost int64, err error) {
	if tier >= shop.MaxMinerTier {
		return 0, model.ErrMaxTierReached
	}
	return shop.MinerUpgradeCost(tier), nil
}
