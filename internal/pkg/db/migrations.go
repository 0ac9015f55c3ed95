package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and applied in order on every start.
var migrations = []migration{
	{
		name: "players table",
		sql: `
		CREATE TABLE IF NOT EXISTS players (
			telegram_id BIGINT PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			full_name VARCHAR(255) NOT NULL DEFAULT '',
			coins BIGINT NOT NULL DEFAULT 1000 CHECK (coins >= 0),
			gems BIGINT NOT NULL DEFAULT 0 CHECK (gems >= 0),
			points BIGINT NOT NULL DEFAULT 500 CHECK (points >= 0),
			level INT NOT NULL DEFAULT 1 CHECK (level >= 1),
			experience BIGINT NOT NULL DEFAULT 0 CHECK (experience >= 0),
			miner_tier INT NOT NULL DEFAULT 1 CHECK (miner_tier >= 1),
			last_collection BIGINT NOT NULL DEFAULT 0,
			fighter_tier INT NOT NULL DEFAULT 0 CHECK (fighter_tier >= 0),
			defense_missile INT NOT NULL DEFAULT 0 CHECK (defense_missile >= 0),
			defense_electronic INT NOT NULL DEFAULT 0 CHECK (defense_electronic >= 0),
			defense_antifighter INT NOT NULL DEFAULT 0 CHECK (defense_antifighter >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_level ON players(level DESC, experience DESC);
		`,
	},
	{
		name: "inventory table",
		sql: `
		CREATE TABLE IF NOT EXISTS inventory (
			player_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
			item VARCHAR(50) NOT NULL,
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (player_id, item)
		);
		`,
	},
	{
		name: "attacks table",
		sql: `
		CREATE TABLE IF NOT EXISTS attacks (
			id BIGSERIAL PRIMARY KEY,
			attacker_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
			target_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
			item VARCHAR(255) NOT NULL,
			damage BIGINT NOT NULL,
			coin_loot BIGINT NOT NULL,
			gem_loot BIGINT NOT NULL,
			is_retaliation BOOLEAN NOT NULL DEFAULT FALSE,
			retaliation_open BOOLEAN NOT NULL DEFAULT TRUE,
			retaliated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_attacks_target_time ON attacks(target_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_attacks_time ON attacks(created_at DESC);
		`,
	},
	{
		name: "ledger entries table",
		sql: `
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			player_id BIGINT NOT NULL REFERENCES players(telegram_id) ON DELETE CASCADE,
			resource VARCHAR(20) NOT NULL,
			amount BIGINT NOT NULL,
			kind VARCHAR(50) NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_ledger_player_time ON ledger_entries(player_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_ledger_kind_time ON ledger_entries(kind, created_at DESC);
		`,
	},
}

// Migrate applies the schema.
func Migrate(ctx context.Context, q Querier) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := q.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("migration", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
