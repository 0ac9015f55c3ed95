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

const attackColumns = `id, attacker_id, target_id, item, damage, coin_loot, gem_loot,
	is_retaliation, retaliation_open, retaliated, created_at`

// AttackRepository handles the attack log.
type AttackRepository struct {
	q db.Querier
}

// NewAttackRepository creates a new AttackRepository instance.
func NewAttackRepository(pool *pgxpool.Pool) *AttackRepository {
	return &AttackRepository{q: pool}
}

// WithTx returns a copy of the repository whose statements run inside tx.
func (r *AttackRepository) WithTx(tx pgx.Tx) *AttackRepository {
	return &AttackRepository{q: tx}
}

func scanAttack(row pgx.Row) (*model.AttackRecord, error) {
	var a model.AttackRecord
	err := row.Scan(
		&a.ID,
		&a.AttackerID,
		&a.TargetID,
		&a.Item,
		&a.Damage,
		&a.CoinLoot,
		&a.GemLoot,
		&a.IsRetaliation,
		&a.RetaliationOpen,
		&a.Retaliated,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create stores a resolved attack and fills in its id.
func (r *AttackRepository) Create(ctx context.Context, a *model.AttackRecord) error {
	const query = `
		INSERT INTO attacks (attacker_id, target_id, item, damage, coin_loot, gem_loot,
			is_retaliation, retaliation_open, retaliated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		a.AttackerID, a.TargetID, a.Item, a.Damage, a.CoinLoot, a.GemLoot,
		a.IsRetaliation, a.RetaliationOpen, a.Retaliated, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to create attack: %w", err)
	}
	return nil
}

// GetByID retrieves an attack record.
// Returns model.ErrAttackNotFound if it does not exist.
func (r *AttackRepository) GetByID(ctx context.Context, id int64) (*model.AttackRecord, error) {
	return r.get(ctx, `SELECT `+attackColumns+` FROM attacks WHERE id = $1`, id)
}

// GetForUpdate reads an attack record and locks it until the transaction ends.
func (r *AttackRepository) GetForUpdate(ctx context.Context, id int64) (*model.AttackRecord, error) {
	return r.get(ctx, `SELECT `+attackColumns+` FROM attacks WHERE id = $1 FOR UPDATE`, id)
}

func (r *AttackRepository) get(ctx context.Context, query string, id int64) (*model.AttackRecord, error) {
	a, err := scanAttack(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAttackNotFound
		}
		return nil, fmt.Errorf("failed to get attack: %w", err)
	}
	return a, nil
}

// MarkRetaliated closes the retaliation window of an attack for good.
func (r *AttackRepository) MarkRetaliated(ctx context.Context, id int64) error {
	const query = `
		UPDATE attacks
		SET retaliated = TRUE, retaliation_open = FALSE
		WHERE id = $1 AND retaliated = FALSE
	`
	tag, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark retaliated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAlreadyRetaliated
	}
	return nil
}

// OpenAgainst lists attacks on target created at or after since that can still be answered,
// newest first.
func (r *AttackRepository) OpenAgainst(ctx context.Context, targetID, since int64, limit int) ([]*model.AttackRecord, error) {
	query := `SELECT ` + attackColumns + ` FROM attacks
		WHERE target_id = $1 AND created_at >= $2 AND retaliation_open AND NOT retaliated
		ORDER BY created_at DESC, id DESC
		LIMIT $3`
	return r.list(ctx, query, targetID, since, limit)
}

// Each streams every attack record ordered by id to fn.
func (r *AttackRepository) Each(ctx context.Context, fn func(a *model.AttackRecord) error) error {
	rows, err := r.q.Query(ctx, `SELECT `+attackColumns+` FROM attacks ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to list attacks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAttack(rows)
		if err != nil {
			return fmt.Errorf("failed to scan attack: %w", err)
		}
		if err := fn(a); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *AttackRepository) list(ctx context.Context, query string, args ...any) ([]*model.AttackRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attacks: %w", err)
	}
	defer rows.Close()

	var out []*model.AttackRecord
	for rows.Next() {
		a, err := scanAttack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attack: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attacks: %w", err)
	}
	return out, nil
}

// CountSince returns how many attacks were resolved at or after since.
func (r *AttackRepository) CountSince(ctx context.Context, since int64) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM attacks WHERE created_at >= $1`, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count attacks: %w", err)
	}
	return n, nil
}

// TopRaiders aggregates loot per attacker in [from, to), most coins first.
func (r *AttackRepository) TopRaiders(ctx context.Context, from, to int64, limit int) ([]*model.RaidRank, error) {
	const query = `
		SELECT a.attacker_id, p.username, COALESCE(SUM(a.coin_loot), 0), COALESCE(SUM(a.gem_loot), 0), COUNT(*)
		FROM attacks a
		JOIN players p ON a.attacker_id = p.telegram_id
		WHERE a.created_at >= $1 AND a.created_at < $2
		GROUP BY a.attacker_id, p.username
		ORDER BY 3 DESC, 4 DESC, a.attacker_id
		LIMIT $3
	`
	rows, err := r.q.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get raiders: %w", err)
	}
	defer rows.Close()

	var ranks []*model.RaidRank
	for rows.Next() {
		var rank model.RaidRank
		if err := rows.Scan(&rank.PlayerID, &rank.Username, &rank.Coins, &rank.Gems, &rank.Attacks); err != nil {
			return nil, fmt.Errorf("failed to scan raider: %w", err)
		}
		ranks = append(ranks, &rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating raiders: %w", err)
	}
	return ranks, nil
}
