// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
)

const playerColumns = `telegram_id, username, full_name, coins, gems, points, level, experience,
	miner_tier, last_collection, fighter_tier, defense_missile, defense_electronic,
	defense_antifighter, created_at, updated_at`

// resourceColumns maps adjustable resources to their columns.
var resourceColumns = map[model.Resource]string{
	model.ResourceCoin:       "coins",
	model.ResourceGem:        "gems",
	model.ResourcePoint:      "points",
	model.ResourceExperience: "experience",
}

// tierColumns maps tier names to their columns.
var tierColumns = map[model.TierName]string{
	model.TierMiner:              "miner_tier",
	model.TierFighter:            "fighter_tier",
	model.TierDefenseMissile:     "defense_missile",
	model.TierDefenseElectronic:  "defense_electronic",
	model.TierDefenseAntiFighter: "defense_antifighter",
}

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	q db.Querier
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{q: pool}
}

// WithTx returns a copy of the repository whose statements run inside tx.
func (r *PlayerRepository) WithTx(tx pgx.Tx) *PlayerRepository {
	return &PlayerRepository{q: tx}
}

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.TelegramID,
		&p.Username,
		&p.FullName,
		&p.Coins,
		&p.Gems,
		&p.Points,
		&p.Level,
		&p.Experience,
		&p.MinerTier,
		&p.LastCollection,
		&p.FighterTier,
		&p.DefenseMissile,
		&p.DefenseElectronic,
		&p.DefenseAntiFighter,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIfAbsent inserts a player with default balances unless the id already exists.
// It reports whether a row was created.
func (r *PlayerRepository) CreateIfAbsent(ctx context.Context, telegramID int64, username, fullName string, lastCollection int64) (bool, error) {
	const query = `
		INSERT INTO players (telegram_id, username, full_name, last_collection, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (telegram_id) DO NOTHING
	`

	tag, err := r.q.Exec(ctx, query, telegramID, username, fullName, lastCollection)
	if err != nil {
		return false, fmt.Errorf("failed to create player: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetByID retrieves a player by Telegram ID.
// Returns model.ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, telegramID int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE telegram_id = $1`

	p, err := scanPlayer(r.q.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return p, nil
}

// GetForUpdate reads a player and holds its row lock until the transaction ends.
// Only meaningful on a repository bound with WithTx.
func (r *PlayerRepository) GetForUpdate(ctx context.Context, telegramID int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE telegram_id = $1 FOR UPDATE`

	p, err := scanPlayer(r.q.QueryRow(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to lock player: %w", err)
	}
	return p, nil
}

// AddBalance applies delta to a resource and returns the new value.
// A result below zero is rejected with model.ErrInsufficientResources and nothing changes.
func (r *PlayerRepository) AddBalance(ctx context.Context, telegramID int64, res model.Resource, delta int64) (int64, error) {
	col, ok := resourceColumns[res]
	if !ok {
		return 0, model.ErrUnknownResource
	}

	query := fmt.Sprintf(`
		UPDATE players
		SET %[1]s = %[1]s + $2, updated_at = NOW()
		WHERE telegram_id = $1 AND %[1]s + $2 >= 0
		RETURNING %[1]s
	`, col)

	var balance int64
	err := r.q.QueryRow(ctx, query, telegramID, delta).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, exErr := r.Exists(ctx, telegramID)
			if exErr != nil {
				return 0, exErr
			}
			if !exists {
				return 0, model.ErrPlayerNotFound
			}
			return 0, model.ErrInsufficientResources
		}
		return 0, fmt.Errorf("failed to update %s: %w", col, err)
	}
	return balance, nil
}

// TakeClamped removes up to coins and gems from a player, never going below zero,
// and returns the amounts actually removed.
func (r *PlayerRepository) TakeClamped(ctx context.Context, telegramID int64, coins, gems int64) (int64, int64, error) {
	const query = `
		WITH old AS (
			SELECT coins, gems FROM players WHERE telegram_id = $1 FOR UPDATE
		)
		UPDATE players p
		SET coins = p.coins - LEAST(old.coins, $2),
			gems = p.gems - LEAST(old.gems, $3),
			updated_at = NOW()
		FROM old
		WHERE p.telegram_id = $1
		RETURNING LEAST(old.coins, $2), LEAST(old.gems, $3)
	`

	var takenCoins, takenGems int64
	err := r.q.QueryRow(ctx, query, telegramID, max(coins, 0), max(gems, 0)).Scan(&takenCoins, &takenGems)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, model.ErrPlayerNotFound
		}
		return 0, 0, fmt.Errorf("failed to take loot: %w", err)
	}
	return takenCoins, takenGems, nil
}

// SetTier overwrites a tier column.
func (r *PlayerRepository) SetTier(ctx context.Context, telegramID int64, tier model.TierName, value int) error {
	col, ok := tierColumns[tier]
	if !ok {
		return model.ErrInvalidTier
	}

	query := fmt.Sprintf(`UPDATE players SET %s = $2, updated_at = NOW() WHERE telegram_id = $1`, col)

	tag, err := r.q.Exec(ctx, query, telegramID, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", col, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// SetProgress stores level and experience together.
func (r *PlayerRepository) SetProgress(ctx context.Context, telegramID int64, level int, experience int64) error {
	const query = `
		UPDATE players
		SET level = $2, experience = $3, updated_at = NOW()
		WHERE telegram_id = $1
	`

	tag, err := r.q.Exec(ctx, query, telegramID, level, experience)
	if err != nil {
		return fmt.Errorf("failed to set progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// SetLastCollection stores the last idle collection time.
func (r *PlayerRepository) SetLastCollection(ctx context.Context, telegramID int64, ts int64) error {
	const query = `UPDATE players SET last_collection = $2, updated_at = NOW() WHERE telegram_id = $1`

	tag, err := r.q.Exec(ctx, query, telegramID, ts)
	if err != nil {
		return fmt.Errorf("failed to set last collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// UpdateNames refreshes the informational handle and name.
func (r *PlayerRepository) UpdateNames(ctx context.Context, telegramID int64, username, fullName string) error {
	const query = `
		UPDATE players
		SET username = $2, full_name = $3, updated_at = NOW()
		WHERE telegram_id = $1
	`

	result, err := r.q.Exec(ctx, query, telegramID, username, fullName)
	if err != nil {
		return fmt.Errorf("failed to update names: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// GetTopByLevel retrieves the top N players by level, then experience.
func (r *PlayerRepository) GetTopByLevel(ctx context.Context, limit int) ([]*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY level DESC, experience DESC, telegram_id LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}
	return players, nil
}

// Each streams every player ordered by id to fn.
func (r *PlayerRepository) Each(ctx context.Context, fn func(p *model.Player) error) error {
	query := `SELECT ` + playerColumns + ` FROM players ORDER BY telegram_id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return fmt.Errorf("failed to scan player: %w", err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Count returns the number of registered players.
func (r *PlayerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

// Exists checks if a player with the given Telegram ID exists.
func (r *PlayerRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM players WHERE telegram_id = $1)`

	var exists bool
	err := r.q.QueryRow(ctx, query, telegramID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check player existence: %w", err)
	}
	return exists, nil
}
