// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/pkg/lock"
	"warzone-bot/internal/repository"
	"warzone-bot/internal/shop"
)

// Progression holds the level-up rule: reaching level L+1 costs L*Threshold experience
// and pays CoinBonus and GemBonus per level gained.
type Progression struct {
	Threshold int64
	CoinBonus int64
	GemBonus  int64
}

// LedgerOptions configures a Ledger.
type LedgerOptions struct {
	StartInventory map[string]int
	Progression    Progression
}

// Ledger is the single authority over player balances, inventory and tiers.
// Every mutation runs in one database transaction holding the player's row lock.
type Ledger struct {
	pool      *pgxpool.Pool
	players   *repository.PlayerRepository
	inventory *repository.InventoryRepository
	journal   *repository.LedgerRepository
	locks     *lock.PlayerLock
	clock     game.Clock
	opts      LedgerOptions
}

// NewLedger creates a new Ledger instance.
func NewLedger(
	pool *pgxpool.Pool,
	players *repository.PlayerRepository,
	inventory *repository.InventoryRepository,
	journal *repository.LedgerRepository,
	locks *lock.PlayerLock,
	clock game.Clock,
	opts LedgerOptions,
) *Ledger {
	if clock == nil {
		clock = game.RealClock{}
	}
	if locks == nil {
		locks = lock.NewPlayerLock()
	}
	return &Ledger{
		pool:      pool,
		players:   players,
		inventory: inventory,
		journal:   journal,
		locks:     locks,
		clock:     clock,
		opts:      opts,
	}
}

// Now returns the ledger clock in unix seconds.
func (l *Ledger) Now() int64 {
	return game.NowUnix(l.clock)
}

// Register creates the player on first contact and returns the stored row.
// Repeated calls never reset balances; they only refresh the display names.
func (l *Ledger) Register(ctx context.Context, id int64, handle, name string) (*model.Player, bool, error) {
	var (
		player  *model.Player
		created bool
	)
	err := l.locks.WithLock(id, func() error {
		return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
			b := l.book(tx)

			var err error
			created, err = b.players.CreateIfAbsent(ctx, id, handle, name, l.Now())
			if err != nil {
				return err
			}

			if created {
				if err := b.seed(ctx, id, l.opts.StartInventory); err != nil {
					return err
				}
			}

			player, err = b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			if !created && (player.Username != handle || player.FullName != name) {
				if err := b.players.UpdateNames(ctx, id, handle, name); err != nil {
					return err
				}
				player.Username, player.FullName = handle, name
			}
			return nil
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to register player: %w", err)
	}

	if created {
		log.Info().Int64("player_id", id).Str("username", handle).Msg("Player registered")
	}
	return player, created, nil
}

// Get retrieves a player. Returns model.ErrPlayerNotFound if absent.
func (l *Ledger) Get(ctx context.Context, id int64) (*model.Player, error) {
	return l.players.GetByID(ctx, id)
}

// Inventory lists the items a player holds.
func (l *Ledger) Inventory(ctx context.Context, id int64) ([]model.InventoryEntry, error) {
	return l.inventory.List(ctx, id)
}

// History lists a player's latest journal entries.
func (l *Ledger) History(ctx context.Context, id int64, limit int) ([]*model.LedgerEntry, error) {
	return l.journal.GetByPlayer(ctx, id, limit)
}

// AdjustBalance adds delta to a resource and returns the new balance.
// A spend that would go below zero fails with model.ErrInsufficientResources and changes nothing.
func (l *Ledger) AdjustBalance(ctx context.Context, id int64, res model.Resource, delta int64) (int64, error) {
	if _, ok := model.ParseResource(string(res)); !ok {
		return 0, model.ErrUnknownResource
	}

	var balance int64
	err := l.locks.WithLock(id, func() error {
		return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
			b := l.book(tx)
			if _, err := b.players.GetForUpdate(ctx, id); err != nil {
				return err
			}
			var err error
			balance, err = b.credit(ctx, id, res, delta, model.KindGrant, nil)
			return err
		})
	})
	return balance, err
}

// AdjustInventory adds delta units of a catalog item and returns the new quantity.
// Consuming more than is held fails with model.ErrInsufficientQuantity and changes nothing.
func (l *Ledger) AdjustInventory(ctx context.Context, id int64, item string, delta int) (int, error) {
	if _, ok := shop.GetItem(item); !ok {
		return 0, model.ErrUnknownItem
	}

	var qty int
	err := l.locks.WithLock(id, func() error {
		return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
			b := l.book(tx)
			if _, err := b.players.GetForUpdate(ctx, id); err != nil {
				return err
			}
			var err error
			qty, err = b.inventory.Adjust(ctx, id, item, delta)
			return err
		})
	})
	return qty, err
}

// SetTier overwrites a tier after range-checking it against the catalog.
func (l *Ledger) SetTier(ctx context.Context, id int64, tier model.TierName, value int) error {
	maxTier, ok := shop.MaxTier(tier)
	if !ok || value < shop.MinTier(tier) || value > maxTier {
		return model.ErrInvalidTier
	}

	return l.locks.WithLock(id, func() error {
		return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
			b := l.book(tx)
			if _, err := b.players.GetForUpdate(ctx, id); err != nil {
				return err
			}
			return b.players.SetTier(ctx, id, tier, value)
		})
	})
}

// GrantExperience adds experience and applies every level-up it crosses, paying the
// level-up bonus once per level gained.
func (l *Ledger) GrantExperience(ctx context.Context, id int64, amount int64) (game.LevelResult, error) {
	if amount < 0 {
		return game.LevelResult{}, model.ErrInvalidAmount
	}

	var res game.LevelResult
	err := l.locks.WithLock(id, func() error {
		return db.InTx(ctx, l.pool, func(tx pgx.Tx) error {
			b := l.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			res, err = b.grantExperience(ctx, p, amount, model.KindGrant)
			return err
		})
	})
	return res, err
}

// book is the set of repositories bound to one transaction, plus the ledger rules
// that every service applies inside it.
type book struct {
	players     *repository.PlayerRepository
	inventory   *repository.InventoryRepository
	journal     *repository.LedgerRepository
	progression Progression
}

func (l *Ledger) book(tx pgx.Tx) *book {
	return &book{
		players:     l.players.WithTx(tx),
		inventory:   l.inventory.WithTx(tx),
		journal:     l.journal.WithTx(tx),
		progression: l.opts.Progression,
	}
}

// credit applies a signed balance change and journals it. A zero delta is a no-op.
func (b *book) credit(ctx context.Context, id int64, res model.Resource, delta int64, kind string, desc *string) (int64, error) {
	if delta == 0 {
		p, err := b.players.GetByID(ctx, id)
		if err != nil {
			return 0, err
		}
		return p.Balance(res), nil
	}

	balance, err := b.players.AddBalance(ctx, id, res, delta)
	if err != nil {
		return 0, err
	}
	if _, err := b.journal.Record(ctx, id, res, delta, kind, desc); err != nil {
		return 0, err
	}
	return balance, nil
}

// spend debits every non-zero cost or none of them.
func (b *book) spend(ctx context.Context, id int64, coins, gems int64, kind string, desc *string) error {
	if coins > 0 {
		if _, err := b.credit(ctx, id, model.ResourceCoin, -coins, kind, desc); err != nil {
			return err
		}
	}
	if gems > 0 {
		if _, err := b.credit(ctx, id, model.ResourceGem, -gems, kind, desc); err != nil {
			return err
		}
	}
	return nil
}

// grantExperience applies amount to a locked player row and pays level-up bonuses.
// p is updated in place.
func (b *book) grantExperience(ctx context.Context, p *model.Player, amount int64, kind string) (game.LevelResult, error) {
	res := game.ApplyExperience(p.Level, p.Experience, amount, b.progression.Threshold)
	if amount == 0 && !res.LeveledUp() {
		return res, nil
	}

	if err := b.players.SetProgress(ctx, p.TelegramID, res.Level, res.Experience); err != nil {
		return res, err
	}
	if amount > 0 {
		if _, err := b.journal.Record(ctx, p.TelegramID, model.ResourceExperience, amount, kind, nil); err != nil {
			return res, err
		}
	}
	p.Level, p.Experience = res.Level, res.Experience

	if res.LeveledUp() {
		desc := fmt.Sprintf("level %d", res.Level)
		gained := int64(res.LevelsGained)
		coins, err := b.credit(ctx, p.TelegramID, model.ResourceCoin, gained*b.progression.CoinBonus, model.KindLevelBonus, &desc)
		if err != nil {
			return res, err
		}
		gems, err := b.credit(ctx, p.TelegramID, model.ResourceGem, gained*b.progression.GemBonus, model.KindLevelBonus, &desc)
		if err != nil {
			return res, err
		}
		p.Coins, p.Gems = coins, gems

		log.Info().
			Int64("player_id", p.TelegramID).
			Int("level", res.Level).
			Int("levels_gained", res.LevelsGained).
			Msg("Player leveled up")
	}
	return res, nil
}

// seed journals the column defaults and grants the starting inventory of a new player.
func (b *book) seed(ctx context.Context, id int64, start map[string]int) error {
	p, err := b.players.GetByID(ctx, id)
	if err != nil {
		return err
	}
	for _, res := range []model.Resource{model.ResourceCoin, model.ResourceGem, model.ResourcePoint} {
		if amount := p.Balance(res); amount > 0 {
			if _, err := b.journal.Record(ctx, id, res, amount, model.KindRegister, nil); err != nil {
				return err
			}
		}
	}

	items := make([]string, 0, len(start))
	for item := range start {
		items = append(items, item)
	}
	sort.Strings(items)

	for _, item := range items {
		qty := start[item]
		if _, ok := shop.GetItem(item); !ok || qty <= 0 {
			log.Warn().Str("item", item).Int("quantity", qty).Msg("Skipping invalid starting inventory entry")
			continue
		}
		if _, err := b.inventory.Adjust(ctx, id, item, qty); err != nil {
			return err
		}
	}
	return nil
}
