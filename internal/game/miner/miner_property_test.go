package miner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"warzone-bot/internal/model"
	"warzone-bot/internal/shop"
)

// TestAccrualMonotonicProperty checks that accrual never decreases as time passes and
// always equals the closed-form hourly formula.
func TestAccrualMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tier := rapid.IntRange(shop.MinMinerTier, shop.MaxMinerTier).Draw(t, "tier")
		last := rapid.Int64Range(1, 2_000_000_000).Draw(t, "last")
		now1 := last + rapid.Int64Range(-10_000, 10_000_000).Draw(t, "d1")
		now2 := now1 + rapid.Int64Range(0, 10_000_000).Draw(t, "d2")

		p := &model.Player{MinerTier: tier, LastCollection: last}
		a1 := ComputeAccrued(p, now1)
		a2 := ComputeAccrued(p, now2)

		if a2 < a1 {
			t.Fatalf("accrual decreased: %d at %d, %d at %d", a1, now1, a2, now2)
		}

		var want int64
		if elapsed := now2 - last; elapsed > 0 {
			want = elapsed * int64(tier) * 100 / 3600
		}
		if a2 != want {
			t.Fatalf("accrued %d, closed form %d", a2, want)
		}
	})
}

// TestCollectionZeroesAccrualProperty checks that moving the last collection to now
// leaves nothing to collect at now.
func TestCollectionZeroesAccrualProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tier := rapid.IntRange(shop.MinMinerTier, shop.MaxMinerTier).Draw(t, "tier")
		last := rapid.Int64Range(1, 2_000_000_000).Draw(t, "last")
		now := last + rapid.Int64Range(0, 10_000_000).Draw(t, "elapsed")

		p := &model.Player{MinerTier: tier, LastCollection: last}
		_ = ComputeAccrued(p, now)
		p.LastCollection = now

		if got := ComputeAccrued(p, now); got != 0 {
			t.Fatalf("accrual after collection = %d", got)
		}
	})
}

func TestComputeAccrued_Scenarios(t *testing.T) {
	now := int64(1_700_000_000)

	p := &model.Player{MinerTier: 2, LastCollection: now - 5400}
	assert.Equal(t, int64(300), ComputeAccrued(p, now))

	p = &model.Player{MinerTier: 2, LastCollection: 0}
	assert.Equal(t, int64(0), ComputeAccrued(p, now))

	p = &model.Player{MinerTier: 2, LastCollection: now + 10}
	assert.Equal(t, int64(0), ComputeAccrued(p, now))

	assert.Equal(t, int64(0), ComputeAccrued(nil, now))
}

func TestNextUnitIn(t *testing.T) {
	now := int64(1_700_000_000)

	// Tier 1 pays one point every 36 seconds.
	p := &model.Player{MinerTier: 1, LastCollection: now - 10}
	assert.Equal(t, int64(26), NextUnitIn(p, now))

	p.LastCollection = now - 36
	assert.Equal(t, int64(0), NextUnitIn(p, now))

	p.LastCollection = 0
	assert.Equal(t, int64(-1), NextUnitIn(p, now))
}

func TestCanUpgrade(t *testing.T) {
	cost, err := CanUpgrade(3)
	require.NoError(t, err)
	assert.Equal(t, int64(600), cost)

	_, err = CanUpgrade(shop.MaxMinerTier)
	assert.ErrorIs(t, err, model.ErrMaxTierReached)
}
