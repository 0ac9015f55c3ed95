// Package model defines the data models for the warzone bot.
package model

import (
	"strconv"
	"time"
)

// Player represents one chat participant and their war-economy state.
// Balances never go below zero; the database enforces this with CHECK constraints.
type Player struct {
	TelegramID         int64     `db:"telegram_id"`
	Username           string    `db:"username"`
	FullName           string    `db:"full_name"`
	Coins              int64     `db:"coins"`
	Gems               int64     `db:"gems"`
	Points             int64     `db:"points"`
	Level              int       `db:"level"`
	Experience         int64     `db:"experience"`
	MinerTier          int       `db:"miner_tier"`
	LastCollection     int64     `db:"last_collection"` // unix seconds, 0 when unset
	FighterTier        int       `db:"fighter_tier"`
	DefenseMissile     int       `db:"defense_missile"`
	DefenseElectronic  int       `db:"defense_electronic"`
	DefenseAntiFighter int       `db:"defense_antifighter"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// DisplayName returns the handle, falling back to the full name and then the id.
func (p *Player) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	if p.FullName != "" {
		return p.FullName
	}
	return "Player" + strconv.FormatInt(p.TelegramID, 10)
}

// Balance returns the stored value of a resource.
func (p *Player) Balance(r Resource) int64 {
	switch r {
	case ResourceCoin:
		return p.Coins
	case ResourceGem:
		return p.Gems
	case ResourcePoint:
		return p.Points
	case ResourceExperience:
		return p.Experience
	}
	return 0
}

// DefenseTier returns the player's tier in a defense category.
func (p *Player) DefenseTier(c DefenseCategory) int {
	switch c {
	case DefenseMissile:
		return p.DefenseMissile
	case DefenseElectronic:
		return p.DefenseElectronic
	case DefenseAntiFighter:
		return p.DefenseAntiFighter
	}
	return 0
}

// InventoryEntry is a (player, item) pair with a non-negative quantity.
type InventoryEntry struct {
	PlayerID  int64     `db:"player_id"`
	Item      string    `db:"item"`
	Quantity  int       `db:"quantity"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AttackRecord is the immutable log of one resolved attack.
// Only RetaliationOpen and Retaliated are ever updated, each exactly once.
type AttackRecord struct {
	ID              int64  `db:"id"`
	AttackerID      int64  `db:"attacker_id"`
	TargetID        int64  `db:"target_id"`
	Item            string `db:"item"`
	Damage          int64  `db:"damage"`
	CoinLoot        int64  `db:"coin_loot"`
	GemLoot         int64  `db:"gem_loot"`
	IsRetaliation   bool   `db:"is_retaliation"`
	RetaliationOpen bool   `db:"retaliation_open"`
	Retaliated      bool   `db:"retaliated"`
	CreatedAt       int64  `db:"created_at"` // unix seconds
}

// LedgerEntry is one journaled balance change.
type LedgerEntry struct {
	ID          int64     `db:"id"`
	PlayerID    int64     `db:"player_id"`
	Resource    Resource  `db:"resource"`
	Amount      int64     `db:"amount"`
	Kind        string    `db:"kind"`
	Description *string   `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// RaidRank is one row of the daily loot leaderboard.
type RaidRank struct {
	PlayerID int64  `db:"player_id"`
	Username string `db:"username"`
	Coins    int64  `db:"coins"`
	Gems     int64  `db:"gems"`
	Attacks  int    `db:"attacks"`
}

// Resource names a balance column that the ledger can adjust.
type Resource string

const (
	ResourceCoin       Resource = "coin"
	ResourceGem        Resource = "gem"
	ResourcePoint      Resource = "point"
	ResourceExperience Resource = "experience"
)

// ParseResource accepts the resource names used by admin commands.
func ParseResource(s string) (Resource, bool) {
	switch s {
	case "coin", "coins":
		return ResourceCoin, true
	case "gem", "gems":
		return ResourceGem, true
	case "point", "points", "zp":
		return ResourcePoint, true
	case "xp", "experience":
		return ResourceExperience, true
	}
	return "", false
}

// DefenseCategory names an independent defense tier counter.
type DefenseCategory string

const (
	DefenseMissile     DefenseCategory = "missile"
	DefenseElectronic  DefenseCategory = "electronic"
	DefenseAntiFighter DefenseCategory = "antifighter"
)

// DefenseCategories lists categories in display order.
func DefenseCategories() []DefenseCategory {
	return []DefenseCategory{DefenseMissile, DefenseElectronic, DefenseAntiFighter}
}

// TierName names a tier column that SetTier can overwrite.
type TierName string

const (
	TierMiner              TierName = "miner"
	TierFighter            TierName = "fighter"
	TierDefenseMissile     TierName = "defense_missile"
	TierDefenseElectronic  TierName = "defense_electronic"
	TierDefenseAntiFighter TierName = "defense_antifighter"
)

// DefenseTierName maps a defense category to its tier column.
func DefenseTierName(c DefenseCategory) TierName {
	return TierName("defense_" + string(c))
}

// Ledger entry kinds for categorizing balance changes.
const (
	KindRegister   = "register"    // Starting balances
	KindCollect    = "collect"     // Idle miner collection
	KindPurchase   = "purchase"    // Market purchase
	KindUpgrade    = "upgrade"     // Miner, fighter or defense upgrade
	KindAttackLoot = "attack_loot" // Loot gained by the attacker
	KindAttackLoss = "attack_loss" // Loot taken from the target
	KindLaunchCost = "launch_cost" // Gems spent to launch a premium missile
	KindGrant      = "grant"       // Direct ledger adjustment
	KindLevelBonus = "level_bonus" // Level-up reward
	KindLootBox    = "lootbox"     // Loot box cost or reward
	KindAdminGift  = "admin_gift"  // Admin gift
)
