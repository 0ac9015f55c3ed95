package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/db"
)

// LedgerRepository journals every balance change.
type LedgerRepository struct {
	q db.Querier
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{q: pool}
}

// WithTx returns a copy of the repository whose statements run inside tx.
func (r *LedgerRepository) WithTx(tx pgx.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Record appends one journal entry.
func (r *LedgerRepository) Record(ctx context.Context, playerID int64, res model.Resource, amount int64, kind string, description *string) (*model.LedgerEntry, error) {
	const query = `
		INSERT INTO ledger_entries (player_id, resource, amount, kind, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, player_id, resource, amount, kind, description, created_at
	`

	var e model.LedgerEntry
	err := r.q.QueryRow(ctx, query, playerID, res, amount, kind, description).Scan(
		&e.ID,
		&e.PlayerID,
		&e.Resource,
		&e.Amount,
		&e.Kind,
		&e.Description,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return &e, nil
}

// GetByPlayer retrieves the latest entries for a player, newest first.
func (r *LedgerRepository) GetByPlayer(ctx context.Context, playerID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT id, player_id, resource, amount, kind, description, created_at
		FROM ledger_entries
		WHERE player_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		err := rows.Scan(&e.ID, &e.PlayerID, &e.Resource, &e.Amount, &e.Kind, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}
	return entries, nil
}

// Each streams the whole journal ordered by id to fn.
func (r *LedgerRepository) Each(ctx context.Context, fn func(e *model.LedgerEntry) error) error {
	const query = `
		SELECT id, player_id, resource, amount, kind, description, created_at
		FROM ledger_entries
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.PlayerID, &e.Resource, &e.Amount, &e.Kind, &e.Description, &e.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if err := fn(&e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SumByKind totals the amounts of one kind and resource for a player.
func (r *LedgerRepository) SumByKind(ctx context.Context, playerID int64, res model.Resource, kind string) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE player_id = $1 AND resource = $2 AND kind = $3
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, playerID, res, kind).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	return sum, nil
}
