package service

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
	"warzone-bot/internal/repository"
)

// Status is the admin overview of the game.
type Status struct {
	Players       int64
	AttacksLast24 int64
}

// Snapshot is the content of an admin backup file.
type Snapshot struct {
	TakenAt   time.Time              `json:"taken_at"`
	Players   []*model.Player        `json:"players"`
	Inventory []model.InventoryEntry `json:"inventory"`
	Attacks   []*model.AttackRecord  `json:"attacks"`
	Journal   []*model.LedgerEntry   `json:"journal"`
}

// AdminService runs privileged operations. Callers are authorized by the admin allow-list.
type AdminService struct {
	ledger  *Ledger
	attacks *repository.AttackRepository
}

// NewAdminService creates a new AdminService instance.
func NewAdminService(ledger *Ledger, attacks *repository.AttackRepository) *AdminService {
	return &AdminService{ledger: ledger, attacks: attacks}
}

// Gift credits a positive amount of a resource to a player and returns the new balance.
// Experience gifts go through the level-up rule.
func (s *AdminService) Gift(ctx context.Context, adminID, targetID int64, res model.Resource, amount int64) (*model.Player, error) {
	if amount <= 0 {
		return nil, model.ErrInvalidAmount
	}
	if _, ok := model.ParseResource(string(res)); !ok {
		return nil, model.ErrUnknownResource
	}

	var player *model.Player
	err := s.ledger.locks.WithLock(targetID, func() error {
		return db.InTx(ctx, s.ledger.pool, func(tx pgx.Tx) error {
			b := s.ledger.book(tx)
			p, err := b.players.GetForUpdate(ctx, targetID)
			if err != nil {
				return err
			}

			desc := fmt.Sprintf("admin %d", adminID)
			if res == model.ResourceExperience {
				if _, err := b.grantExperience(ctx, p, amount, model.KindAdminGift); err != nil {
					return err
				}
			} else if _, err := b.credit(ctx, targetID, res, amount, model.KindAdminGift, &desc); err != nil {
				return err
			}

			player, err = b.players.GetByID(ctx, targetID)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", targetID).
		Str("resource", string(res)).
		Int64("amount", amount).
		Str("operation", "gift").
		Msg("Admin operation executed")
	return player, nil
}

// SetTier overwrites a tier of a player.
func (s *AdminService) SetTier(ctx context.Context, adminID, targetID int64, tier model.TierName, value int) error {
	if err := s.ledger.SetTier(ctx, targetID, tier, value); err != nil {
		return err
	}

	log.Info().
		Int64("admin_id", adminID).
		Int64("target_id", targetID).
		Str("tier", string(tier)).
		Int("value", value).
		Str("operation", "set_tier").
		Msg("Admin operation executed")
	return nil
}

// Status counts players and the attacks resolved in the 24 hours before now.
func (s *AdminService) Status(ctx context.Context, now int64) (*Status, error) {
	players, err := s.ledger.players.Count(ctx)
	if err != nil {
		return nil, err
	}
	attacks, err := s.attacks.CountSince(ctx, now-24*3600)
	if err != nil {
		return nil, err
	}
	return &Status{Players: players, AttacksLast24: attacks}, nil
}

// TakeSnapshot reads players, inventory, attack records and the journal inside one
// read-only transaction.
func (s *AdminService) TakeSnapshot(ctx context.Context, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{TakenAt: now.UTC()}

	tx, err := s.ledger.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := s.ledger.book(tx)
	if err := b.players.Each(ctx, func(p *model.Player) error {
		snap.Players = append(snap.Players, p)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := b.inventory.Each(ctx, func(e model.InventoryEntry) error {
		snap.Inventory = append(snap.Inventory, e)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := s.attacks.WithTx(tx).Each(ctx, func(a *model.AttackRecord) error {
		snap.Attacks = append(snap.Attacks, a)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := b.journal.Each(ctx, func(e *model.LedgerEntry) error {
		snap.Journal = append(snap.Journal, e)
		return nil
	}); err != nil {
		return nil, err
	}
	return snap, nil
}

// Backup writes a gzip-compressed JSON snapshot into dir and returns its path.
func (s *AdminService) Backup(ctx context.Context, dir string, now time.Time) (string, error) {
	snap, err := s.TakeSnapshot(ctx, now)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("warzone-%s.json.gz", now.UTC().Format("20060102-150405")))
	if err := WriteSnapshot(path, snap); err != nil {
		return "", err
	}

	log.Info().
		Str("path", path).
		Int("players", len(snap.Players)).
		Int("inventory_rows", len(snap.Inventory)).
		Int("attacks", len(snap.Attacks)).
		Int("journal_entries", len(snap.Journal)).
		Msg("Backup written")
	return path, nil
}

// WriteSnapshot encodes snap as gzip-compressed JSON at path, creating parent directories.
func WriteSnapshot(path string, snap *Snapshot) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create backup dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(f)
	if err := json.NewEncoder(gz).Encode(snap); err != nil {
		_ = gz.Close()
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return gz.Close()
}

// ReadSnapshot decodes a file written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup: %w", err)
	}
	defer gz.Close()

	var snap Snapshot
	if err := json.NewDecoder(gz).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	return &snap, nil
}
