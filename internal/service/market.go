package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/shop"
)

// MaxPurchaseQuantity bounds one purchase order.
const MaxPurchaseQuantity = 100

// MarketService handles missile purchases and defense or fighter upgrades.
type MarketService struct {
	ledger *Ledger
}

// NewMarketService creates a new MarketService instance.
func NewMarketService(ledger *Ledger) *MarketService {
	return &MarketService{ledger: ledger}
}

// PurchaseItem buys qty units of a missile and returns the new quantity held.
func (s *MarketService) PurchaseItem(ctx context.Context, id int64, itemID string, qty int) (int, error) {
	item, ok := shop.GetItem(itemID)
	if !ok {
		return 0, model.ErrUnknownItem
	}
	if qty < 1 || qty > MaxPurchaseQuantity {
		return 0, model.ErrInvalidAmount
	}

	var held int
	err := s.ledger.locks.WithLock(id, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if p.Level < item.MinLevel {
				return model.ErrLevelTooLow
			}

			desc := fmt.Sprintf("%s x%d", item.ID, qty)
			if err := b.spend(ctx, id, item.Price*int64(qty), 0, model.KindPurchase, &desc); err != nil {
				return err
			}
			held, err = b.inventory.Adjust(ctx, id, item.ID, qty)
			return err
		})
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int64("player_id", id).Str("item", item.ID).Int("quantity", qty).Msg("Missile purchased")
	return held, nil
}

// UpgradeDefense raises one defense category a tier and returns the new tier.
func (s *MarketService) UpgradeDefense(ctx context.Context, id int64, category model.DefenseCategory) (int, error) {
	def, ok := shop.GetDefense(category)
	if !ok {
		return 0, model.ErrInvalidTier
	}

	var newTier int
	err := s.ledger.locks.WithLock(id, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			tier := p.DefenseTier(category)
			if tier >= shop.MaxDefenseTier {
				return model.ErrMaxTierReached
			}

			newTier = tier + 1
			desc := fmt.Sprintf("%s defense tier %d", category, newTier)
			if err := b.spend(ctx, id, def.DefenseUpgradeCost(tier), 0, model.KindUpgrade, &desc); err != nil {
				return err
			}
			return b.players.SetTier(ctx, id, model.DefenseTierName(category), newTier)
		})
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int64("player_id", id).Str("category", string(category)).Int("tier", newTier).Msg("Defense upgraded")
	return newTier, nil
}

// UpgradeFighter raises the fighter a tier for coins and gems and returns the new tier.
func (s *MarketService) UpgradeFighter(ctx context.Context, id int64) (int, error) {
	var newTier int
	err := s.ledger.locks.WithLock(id, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			cost, ok := shop.FighterUpgradeCost(p.FighterTier)
			if !ok {
				return model.ErrMaxTierReached
			}

			newTier = p.FighterTier + 1
			desc := fmt.Sprintf("fighter tier %d", newTier)
			if err := b.spend(ctx, id, cost.Coins, cost.Gems, model.KindUpgrade, &desc); err != nil {
				return err
			}
			return b.players.SetTier(ctx, id, model.TierFighter, newTier)
		})
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int64("player_id", id).Int("tier", newTier).Msg("Fighter upgraded")
	return newTier, nil
}
