package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/game/miner"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/pkg/metrics"
	"warzone-bot/internal/shop"
)

// MinerStatus is a read-only view of a player's idle miner.
type MinerStatus struct {
	Tier        int
	RatePerHour int64
	Pending     int64
	NextUnitIn  int64
	UpgradeCost int64
	MaxTier     bool
}

// collectLockWait bounds how long a collection queues behind the same player's
// previous action; button double-taps fail fast instead of piling up.
const collectLockWait = 2 * time.Second

// MinerService handles idle accrual collection and miner upgrades.
type MinerService struct {
	ledger *Ledger
}

// NewMinerService creates a new MinerService instance.
func NewMinerService(ledger *Ledger) *MinerService {
	return &MinerService{ledger: ledger}
}

// Status reports the miner of a player as of now.
func (s *MinerService) Status(ctx context.Context, id int64, now int64) (*MinerStatus, error) {
	p, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := &MinerStatus{
		Tier:        p.MinerTier,
		RatePerHour: shop.MinerRate(p.MinerTier),
		Pending:     miner.ComputeAccrued(p, now),
		NextUnitIn:  miner.NextUnitIn(p, now),
	}
	if cost, err := miner.CanUpgrade(p.MinerTier); err != nil {
		st.MaxTier = true
	} else {
		st.UpgradeCost = cost
	}
	return st, nil
}

// Collect credits the points accrued since the last collection and restarts the clock at now.
// Returns model.ErrNothingToCollect, with nothing changed, when nothing is owed.
func (s *MinerService) Collect(ctx context.Context, id int64, now int64) (int64, error) {
	var accrued int64
	err := s.ledger.locks.WithLockContext(ctx, id, collectLockWait, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			accrued = miner.ComputeAccrued(p, now)
			if accrued <= 0 {
				return model.ErrNothingToCollect
			}

			desc := fmt.Sprintf("tier %d miner", p.MinerTier)
			if _, err := b.credit(ctx, id, model.ResourcePoint, accrued, model.KindCollect, &desc); err != nil {
				return err
			}
			return b.players.SetLastCollection(ctx, id, now)
		})
	})
	if err != nil {
		return 0, err
	}

	metrics.Collected.Add(float64(accrued))
	log.Debug().Int64("player_id", id).Int64("accrued", accrued).Msg("Miner collected")
	return accrued, nil
}

// UpgradeTier raises the miner one tier for tier*200 coins and returns the new tier.
// Pending accrual is not settled; the new rate applies to the whole unclaimed span.
func (s *MinerService) UpgradeTier(ctx context.Context, id int64) (int, error) {
	var newTier int
	err := s.ledger.locks.WithLock(id, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}

			cost, err := miner.CanUpgrade(p.MinerTier)
			if err != nil {
				return err
			}

			newTier = p.MinerTier + 1
			desc := fmt.Sprintf("miner tier %d", newTier)
			if err := b.spend(ctx, id, cost, 0, model.KindUpgrade, &desc); err != nil {
				return err
			}
			return b.players.SetTier(ctx, id, model.TierMiner, newTier)
		})
	})
	if err != nil {
		return 0, err
	}

	log.Info().Int64("player_id", id).Int("tier", newTier).Msg("Miner upgraded")
	return newTier, nil
}
