package service

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/game/lootbox"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
)

// lockedSource serializes access to a Source that is not safe for concurrent use,
// such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src lootbox.Source
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Intn(n)
}

// LootBoxService sells loot boxes and pays out their rewards.
type LootBoxService struct {
	ledger *Ledger
	src    lootbox.Source
}

// NewLootBoxService creates a new LootBoxService drawing from src.
func NewLootBoxService(ledger *Ledger, src lootbox.Source) *LootBoxService {
	return &LootBoxService{ledger: ledger, src: &lockedSource{src: src}}
}

// GetTables returns the purchasable loot boxes.
func (s *LootBoxService) GetTables() []lootbox.Table {
	return []lootbox.Table{lootbox.Tables[lootbox.TableBasic], lootbox.Tables[lootbox.TableElite]}
}

// Open charges the box price, draws a reward and credits it, all in one transaction.
func (s *LootBoxService) Open(ctx context.Context, id int64, tableID string) (*lootbox.Reward, error) {
	table, ok := lootbox.GetTable(tableID)
	if !ok {
		return nil, model.ErrUnknownLootTable
	}

	var reward lootbox.Reward
	err := s.ledger.locks.WithLock(id, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			desc := table.ID
			if _, err := b.credit(ctx, id, table.CostType, -table.Cost, model.KindLootBox, &desc); err != nil {
				return err
			}

			reward, err = lootbox.Draw(s.src, table.ID)
			if err != nil {
				return err
			}
			switch {
			case reward.IsItem():
				_, err = b.inventory.Adjust(ctx, id, reward.Item, int(reward.Amount))
			case reward.Resource == model.ResourceExperience:
				_, err = b.grantExperience(ctx, p, reward.Amount, model.KindLootBox)
			default:
				_, err = b.credit(ctx, id, reward.Resource, reward.Amount, model.KindLootBox, &desc)
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("player_id", id).
		Str("table", table.ID).
		Str("reward", rewardLabel(reward)).
		Int64("amount", reward.Amount).
		Msg("Loot box opened")
	return &reward, nil
}

func rewardLabel(r lootbox.Reward) string {
	if r.IsItem() {
		return r.Item
	}
	return string(r.Resource)
}

