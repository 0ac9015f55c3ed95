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

// InventoryRepository handles per-player item quantities.
type InventoryRepository struct {
	q db.Querier
}

// NewInventoryRepository creates a new InventoryRepository instance.
func NewInventoryRepository(pool *pgxpool.Pool) *InventoryRepository {
	return &InventoryRepository{q: pool}
}

// WithTx returns a copy of the repository whose statements run inside tx.
func (r *InventoryRepository) WithTx(tx pgx.Tx) *InventoryRepository {
	return &InventoryRepository{q: tx}
}

// Get returns the quantity a player holds of an item. Missing rows count as zero.
func (r *InventoryRepository) Get(ctx context.Context, playerID int64, item string) (int, error) {
	const query = `SELECT quantity FROM inventory WHERE player_id = $1 AND item = $2`

	var qty int
	err := r.q.QueryRow(ctx, query, playerID, item).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get inventory: %w", err)
	}
	return qty, nil
}

// Adjust changes a quantity by delta and returns the new quantity.
// A result below zero is rejected with model.ErrInsufficientQuantity and nothing changes.
func (r *InventoryRepository) Adjust(ctx context.Context, playerID int64, item string, delta int) (int, error) {
	if delta >= 0 {
		const upsert = `
			INSERT INTO inventory (player_id, item, quantity, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (player_id, item)
			DO UPDATE SET quantity = inventory.quantity + $3, updated_at = NOW()
			RETURNING quantity
		`
		var qty int
		if err := r.q.QueryRow(ctx, upsert, playerID, item, delta).Scan(&qty); err != nil {
			return 0, fmt.Errorf("failed to add inventory: %w", err)
		}
		return qty, nil
	}

	const consume = `
		UPDATE inventory
		SET quantity = quantity + $3, updated_at = NOW()
		WHERE player_id = $1 AND item = $2 AND quantity + $3 >= 0
		RETURNING quantity
	`
	var qty int
	err := r.q.QueryRow(ctx, consume, playerID, item, delta).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrInsufficientQuantity
		}
		return 0, fmt.Errorf("failed to consume inventory: %w", err)
	}
	return qty, nil
}

// List returns every item a player holds with a positive quantity.
func (r *InventoryRepository) List(ctx context.Context, playerID int64) ([]model.InventoryEntry, error) {
	const query = `
		SELECT player_id, item, quantity, updated_at
		FROM inventory
		WHERE player_id = $1 AND quantity > 0
		ORDER BY item
	`
	rows, err := r.q.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	var items []model.InventoryEntry
	for rows.Next() {
		var e model.InventoryEntry
		if err := rows.Scan(&e.PlayerID, &e.Item, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inventory: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// Each streams every positive inventory row to fn, ordered by player and item.
func (r *InventoryRepository) Each(ctx context.Context, fn func(e model.InventoryEntry) error) error {
	const query = `
		SELECT player_id, item, quantity, updated_at
		FROM inventory
		WHERE quantity > 0
		ORDER BY player_id, item
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.InventoryEntry
		if err := rows.Scan(&e.PlayerID, &e.Item, &e.Quantity, &e.UpdatedAt); err != nil {
			return fmt.Errorf("failed to scan inventory: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
