package service

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/lock"
	"warzone-bot/internal/repository"
	"warzone-bot/internal/shop"
	"warzone-bot/internal/testutil"
)

const t0 = int64(1_700_000_000)

type fixture struct {
	ledger  *Ledger
	miner   *MinerService
	combat  *CombatService
	market  *MarketService
	boxes   *LootBoxService
	admin   *AdminService
	ranking *RankingService
	players *repository.PlayerRepository
	clock   *game.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pool := testutil.NewPostgres(t)

	players := repository.NewPlayerRepository(pool)
	inventory := repository.NewInventoryRepository(pool)
	journal := repository.NewLedgerRepository(pool)
	attacks := repository.NewAttackRepository(pool)
	clock := game.NewFakeClock(time.Unix(t0, 0))

	ledger := NewLedger(pool, players, inventory, journal, lock.NewPlayerLock(), clock, LedgerOptions{
		StartInventory: map[string]int{shop.ItemMeteor: 1},
		Progression:    Progression{Threshold: 100, CoinBonus: 500, GemBonus: 1},
	})

	return &fixture{
		ledger:  ledger,
		miner:   NewMinerService(ledger),
		combat:  NewCombatService(ledger, attacks, time.Hour),
		market:  NewMarketService(ledger),
		boxes:   NewLootBoxService(ledger, rand.New(rand.NewSource(7))),
		admin:   NewAdminService(ledger, attacks),
		ranking: NewRankingService(players, attacks, journal, time.UTC),
		players: players,
		clock:   clock,
	}
}

func (f *fixture) register(t *testing.T, id int64) *model.Player {
	t.Helper()
	p, _, err := f.ledger.Register(context.Background(), id, fmt.Sprintf("p%d", id), "")
	require.NoError(t, err)
	return p
}

func (f *fixture) quantity(t *testing.T, id int64, item string) int {
	t.Helper()
	qty, err := f.ledger.inventory.Get(context.Background(), id, item)
	require.NoError(t, err)
	return qty
}

// ============================================================================
// Ledger
// ============================================================================

func TestLedger_RegisterIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, created, err := f.ledger.Register(ctx, 1, "ace", "Ace")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1000), p.Coins)
	assert.Equal(t, t0, p.LastCollection)
	assert.Equal(t, 1, f.quantity(t, 1, shop.ItemMeteor))

	_, err = f.ledger.AdjustBalance(ctx, 1, model.ResourceCoin, 250)
	require.NoError(t, err)

	p, created, err = f.ledger.Register(ctx, 1, "ace2", "Ace Two")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(1250), p.Coins)
	assert.Equal(t, "ace2", p.Username)
	assert.Equal(t, 1, f.quantity(t, 1, shop.ItemMeteor))
}

func TestLedger_GetUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.Get(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrPlayerNotFound)
}

func TestLedger_AdjustBalanceRejectsOverdraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	balance, err := f.ledger.AdjustBalance(ctx, 1, model.ResourceGem, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	_, err = f.ledger.AdjustBalance(ctx, 1, model.ResourceGem, -4)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Gems)

	_, err = f.ledger.AdjustBalance(ctx, 1, model.Resource("gold"), 1)
	assert.ErrorIs(t, err, model.ErrUnknownResource)
}

func TestLedger_AdjustInventoryAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	qty, err := f.ledger.AdjustInventory(ctx, 1, shop.ItemTorrent, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, qty)

	_, err = f.ledger.AdjustInventory(ctx, 1, shop.ItemTorrent, -3)
	assert.ErrorIs(t, err, model.ErrInsufficientQuantity)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.Equal(t, 2, f.quantity(t, 1, shop.ItemTorrent))

	_, err = f.ledger.AdjustInventory(ctx, 1, "nuke", 1)
	assert.ErrorIs(t, err, model.ErrUnknownItem)
}

func TestLedger_SetTierRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	require.NoError(t, f.ledger.SetTier(ctx, 1, model.TierFighter, 3))
	assert.ErrorIs(t, f.ledger.SetTier(ctx, 1, model.TierFighter, 6), model.ErrInvalidTier)
	assert.ErrorIs(t, f.ledger.SetTier(ctx, 1, model.TierMiner, 0), model.ErrInvalidTier)
	assert.ErrorIs(t, f.ledger.SetTier(ctx, 404, model.TierMiner, 2), model.ErrPlayerNotFound)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, p.FighterTier)
}

func TestLedger_GrantExperienceLevelsUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	res, err := f.ledger.GrantExperience(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, res.LeveledUp())
	assert.Equal(t, 2, res.Level)
	assert.Equal(t, int64(0), res.Experience)

	// 200 for level 2 and 300 for level 3.
	res, err = f.ledger.GrantExperience(ctx, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Level)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, int64(0), res.Experience)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Level)
	assert.Equal(t, int64(1000+3*500), p.Coins)
	assert.Equal(t, int64(3), p.Gems)
}

// ============================================================================
// Miner
// ============================================================================

func TestMiner_CollectTierTwoScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)
	require.NoError(t, f.ledger.SetTier(ctx, 1, model.TierMiner, 2))

	now := t0 + 5400
	accrued, err := f.miner.Collect(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(300), accrued)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(800), p.Points)
	assert.Equal(t, now, p.LastCollection)

	_, err = f.miner.Collect(ctx, 1, now)
	assert.ErrorIs(t, err, model.ErrNothingToCollect)
}

func TestMiner_ConcurrentCollectCreditsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	now := t0 + 3600
	var wg sync.WaitGroup
	results := make([]int64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = f.miner.Collect(ctx, 1, now)
		}(i)
	}
	wg.Wait()

	var total int64
	for _, r := range results {
		total += r
	}
	assert.Equal(t, int64(100), total)
}

func TestMiner_UpgradeTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	tier, err := f.miner.UpgradeTier(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, tier)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(800), p.Coins)

	require.NoError(t, f.ledger.SetTier(ctx, 1, model.TierMiner, shop.MaxMinerTier))
	_, err = f.miner.UpgradeTier(ctx, 1)
	assert.ErrorIs(t, err, model.ErrMaxTierReached)

	require.NoError(t, f.ledger.SetTier(ctx, 1, model.TierMiner, 5))
	_, err = f.ledger.AdjustBalance(ctx, 1, model.ResourceCoin, -800)
	require.NoError(t, err)
	_, err = f.miner.UpgradeTier(ctx, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
}

// ============================================================================
// Combat
// ============================================================================

// setupDuel prepares attacker 1 at level 5 with 1000 coins and two meteors,
// and target 2 with 2000 coins.
func setupDuel(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.register(t, 1)
	f.register(t, 2)
	require.NoError(t, f.players.SetProgress(ctx, 1, 5, 0))
	_, err := f.ledger.AdjustInventory(ctx, 1, shop.ItemMeteor, 1)
	require.NoError(t, err)
	_, err = f.ledger.AdjustBalance(ctx, 2, model.ResourceCoin, 1000)
	require.NoError(t, err)
}

func TestCombat_FirstStrikeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	out, err := f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0+10)
	require.NoError(t, err)
	assert.Equal(t, int64(50), out.Damage)
	assert.Equal(t, int64(200), out.CoinLoot)
	assert.Equal(t, int64(0), out.GemLoot)
	assert.Equal(t, int64(10), out.ExperienceGained)
	assert.False(t, out.LeveledUp)
	assert.Equal(t, 5, out.NewLevel)

	attacker, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	target, err := f.ledger.Get(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), attacker.Coins)
	assert.Equal(t, int64(1800), target.Coins)
	assert.Equal(t, int64(10), attacker.Experience)
	assert.Equal(t, 1, f.quantity(t, 1, shop.ItemMeteor))
}

func TestCombat_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	_, err := f.combat.ResolveAttack(ctx, 1, 1, shop.ItemMeteor, t0)
	assert.ErrorIs(t, err, model.ErrSelfTargetForbidden)

	_, err = f.combat.ResolveAttack(ctx, 1, 404, shop.ItemMeteor, t0)
	assert.ErrorIs(t, err, model.ErrUnknownParticipant)

	// Participants are resolved before the missile name is looked at.
	_, err = f.combat.ResolveAttack(ctx, 1, 404, "nuke", t0)
	assert.ErrorIs(t, err, model.ErrUnknownParticipant)
	assert.NotErrorIs(t, err, model.ErrInsufficientResources)

	_, err = f.combat.ResolveAttack(ctx, 403, 404, "nuke", t0)
	assert.ErrorIs(t, err, model.ErrUnknownParticipant)

	// An uncatalogued missile is one the attacker holds none of.
	_, err = f.combat.ResolveAttack(ctx, 1, 2, "nuke", t0)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.NotErrorIs(t, err, model.ErrUnknownItem)

	// The level gate runs before the catalog lookup.
	_, err = f.combat.ResolveCombo(ctx, 2, 1, []string{shop.ItemTorrent, "nuke"}, t0)
	assert.ErrorIs(t, err, model.ErrLevelTooLow)

	_, err = f.combat.ResolveAttack(ctx, 2, 1, shop.ItemHailstorm, t0)
	assert.ErrorIs(t, err, model.ErrLevelTooLow)

	_, err = f.combat.ResolveAttack(ctx, 1, 2, shop.ItemTorrent, t0)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)

	_, err = f.ledger.AdjustInventory(ctx, 1, shop.ItemApocalypse, 1)
	require.NoError(t, err)
	_, err = f.combat.ResolveAttack(ctx, 1, 2, shop.ItemApocalypse, t0)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.Equal(t, 1, f.quantity(t, 1, shop.ItemApocalypse))

	attacker, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	target, err := f.ledger.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), attacker.Coins)
	assert.Equal(t, int64(2000), target.Coins)
	assert.Equal(t, 2, f.quantity(t, 1, shop.ItemMeteor))
}

func TestCombat_ZeroQuantityStaysZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	_, err := f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)
	_, err = f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)

	_, err = f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.Equal(t, 0, f.quantity(t, 1, shop.ItemMeteor))
}

func TestCombat_ConcurrentAttacksSpendLastMissileOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)
	f.register(t, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(target int64) {
			defer wg.Done()
			if _, err := f.combat.ResolveAttack(ctx, 1, target, shop.ItemMeteor, t0); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(int64(2 + i%2))
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 0, f.quantity(t, 1, shop.ItemMeteor))
}

func TestCombat_Retaliation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	first, err := f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)

	_, err = f.combat.Retaliate(ctx, 1, first.AttackID, shop.ItemMeteor, t0+60)
	assert.ErrorIs(t, err, model.ErrNotRetaliationTarget)

	open, err := f.combat.OpenAttacks(ctx, 2, t0+60, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)

	// Target 2 holds its starting meteor; attacker 1 now has 1200 coins.
	out, err := f.combat.Retaliate(ctx, 2, first.AttackID, shop.ItemMeteor, t0+60)
	require.NoError(t, err)
	assert.True(t, out.Retaliation)
	assert.Equal(t, int64(60), out.Damage)
	assert.Equal(t, int64(240), out.CoinLoot)
	assert.Equal(t, int64(100), out.ExperienceGained)
	assert.True(t, out.LeveledUp)

	_, err = f.ledger.AdjustInventory(ctx, 2, shop.ItemMeteor, 1)
	require.NoError(t, err)
	_, err = f.combat.Retaliate(ctx, 2, first.AttackID, shop.ItemMeteor, t0+120)
	assert.ErrorIs(t, err, model.ErrAlreadyRetaliated)

	// A retaliation cannot be answered in turn.
	_, err = f.combat.Retaliate(ctx, 1, out.AttackID, shop.ItemMeteor, t0+120)
	assert.ErrorIs(t, err, model.ErrRetaliationWindowExpired)

	_, err = f.combat.Retaliate(ctx, 2, 9999, shop.ItemMeteor, t0+120)
	assert.ErrorIs(t, err, model.ErrAttackNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCombat_RetaliationWindowExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	first, err := f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)

	_, err = f.combat.Retaliate(ctx, 2, first.AttackID, shop.ItemMeteor, t0+3601)
	assert.ErrorIs(t, err, model.ErrRetaliationWindowExpired)
	assert.Equal(t, 1, f.quantity(t, 2, shop.ItemMeteor))

	open, err := f.combat.OpenAttacks(ctx, 2, t0+3601, 10)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestCombat_Combo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)
	_, err := f.ledger.AdjustInventory(ctx, 1, shop.ItemHailstorm, 1)
	require.NoError(t, err)

	_, err = f.combat.ResolveCombo(ctx, 1, 2, []string{shop.ItemMeteor}, t0)
	assert.ErrorIs(t, err, model.ErrInvalidCombo)
	_, err = f.combat.ResolveCombo(ctx, 1, 2, []string{shop.ItemMeteor, shop.ItemMeteor}, t0)
	assert.ErrorIs(t, err, model.ErrInvalidCombo)

	out, err := f.combat.ResolveCombo(ctx, 1, 2, []string{shop.ItemMeteor, shop.ItemHailstorm}, t0)
	require.NoError(t, err)
	assert.True(t, out.Combo)
	assert.Equal(t, "meteor+hailstorm", out.Item)
	assert.Equal(t, int64(156), out.Damage)
	assert.Equal(t, 1, f.quantity(t, 1, shop.ItemMeteor))
	assert.Equal(t, 0, f.quantity(t, 1, shop.ItemHailstorm))
}

// ============================================================================
// Market, loot boxes and admin
// ============================================================================

func TestMarket_PurchaseAndUpgrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	held, err := f.market.PurchaseItem(ctx, 1, shop.ItemMeteor, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, held)

	_, err = f.market.PurchaseItem(ctx, 1, shop.ItemTorrent, 1)
	assert.ErrorIs(t, err, model.ErrLevelTooLow)

	_, err = f.market.PurchaseItem(ctx, 1, shop.ItemMeteor, 4)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.Equal(t, 3, f.quantity(t, 1, shop.ItemMeteor))

	tier, err := f.market.UpgradeDefense(ctx, 1, model.DefenseMissile)
	require.NoError(t, err)
	assert.Equal(t, 1, tier)

	p, err := f.ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1000-400-300), p.Coins)
	assert.Equal(t, 1, p.DefenseMissile)

	_, err = f.market.UpgradeFighter(ctx, 1)
	assert.ErrorIs(t, err, model.ErrInsufficientResources)

	require.NoError(t, f.ledger.SetTier(ctx, 1, model.TierFighter, shop.MaxFighterTier))
	_, err = f.market.UpgradeFighter(ctx, 1)
	assert.ErrorIs(t, err, model.ErrMaxTierReached)
}

func TestLootBox_Open(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, 1)

	_, err := f.boxes.Open(ctx, 1, "mystery")
	assert.ErrorIs(t, err, model.ErrUnknownLootTable)

	_, err = f.boxes.Open(ctx, 1, "elite")
	assert.ErrorIs(t, err, model.ErrInsufficientResources)

	reward, err := f.boxes.Open(ctx, 1, "basic")
	require.NoError(t, err)
	assert.Positive(t, reward.Amount)

	history, err := f.ledger.History(ctx, 1, 10)
	require.NoError(t, err)
	var spent bool
	for _, e := range history {
		if e.Kind == model.KindLootBox && e.Amount == -300 {
			spent = true
		}
	}
	assert.True(t, spent)
}

func TestAdmin_GiftStatusBackup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	_, err := f.admin.Gift(ctx, 99, 1, model.ResourceGem, 0)
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	p, err := f.admin.Gift(ctx, 99, 1, model.ResourceGem, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Gems)

	p, err = f.admin.Gift(ctx, 99, 2, model.ResourceExperience, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Level)

	_, err = f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)

	st, err := f.admin.Status(ctx, t0+60)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Players)
	assert.Equal(t, int64(1), st.AttacksLast24)

	path, err := f.admin.Backup(ctx, t.TempDir(), time.Unix(t0, 0))
	require.NoError(t, err)
	assert.Equal(t, ".gz", filepath.Ext(path))

	snap, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2)
	assert.NotEmpty(t, snap.Inventory)
	require.Len(t, snap.Attacks, 1)
	assert.Equal(t, int64(1), snap.Attacks[0].AttackerID)
	assert.True(t, snap.Attacks[0].RetaliationOpen)

	var loot bool
	for _, e := range snap.Journal {
		if e.PlayerID == 1 && e.Kind == model.KindAttackLoot && e.Resource == model.ResourceCoin {
			loot = true
		}
	}
	assert.True(t, loot, "journal should carry the attack loot entry")
}

func TestRanking_DailyRaiders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	setupDuel(t, f)

	_, err := f.combat.ResolveAttack(ctx, 1, 2, shop.ItemMeteor, t0)
	require.NoError(t, err)

	raiders, err := f.ranking.GetDailyRaiders(ctx, time.Unix(t0, 0), 10)
	require.NoError(t, err)
	require.Len(t, raiders, 1)
	assert.Equal(t, int64(1), raiders[0].PlayerID)
	assert.Equal(t, int64(200), raiders[0].Coins)

	coins, gems, err := f.ranking.GetTotalLoot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), coins)
	assert.Equal(t, int64(0), gems)

	top, err := f.ranking.GetTopByLevel(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].TelegramID)
}
