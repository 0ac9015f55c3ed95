// Package shop holds the fixed game-balance tables: the missile catalog,
// miner tiers, fighter tiers and defense categories.
package shop

import (
	"sort"

	"warzone-bot/internal/model"
)

// ItemConfig describes one missile in the catalog.
type ItemConfig struct {
	ID       string // Catalog key stored in inventory rows
	Name     string // Display name
	Emoji    string
	Damage   int64 // Base damage rating
	Price    int64 // Purchase price in coins
	MinLevel int   // Minimum attacker level to buy or launch
	GemCost  int64 // Gems burned per launch; non-zero marks a premium missile
}

// IsPremium reports whether launching the missile costs gems.
func (c ItemConfig) IsPremium() bool {
	return c.GemCost > 0
}

// Missile ids.
const (
	ItemMeteor     = "meteor"
	ItemHailstorm  = "hailstorm"
	ItemTorrent    = "torrent"
	ItemApocalypse = "apocalypse"
)

// Items contains every purchasable missile.
var Items = map[string]ItemConfig{
	ItemMeteor: {
		ID:       ItemMeteor,
		Name:     "Meteor",
		Emoji:    "☄️",
		Damage:   50,
		Price:    200,
		MinLevel: 1,
	},
	ItemHailstorm: {
		ID:       ItemHailstorm,
		Name:     "Hailstorm",
		Emoji:    "🌨️",
		Damage:   70,
		Price:    500,
		MinLevel: 2,
	},
	ItemTorrent: {
		ID:       ItemTorrent,
		Name:     "Torrent",
		Emoji:    "🌊",
		Damage:   90,
		Price:    1000,
		MinLevel: 3,
	},
	ItemApocalypse: {
		ID:       ItemApocalypse,
		Name:     "Apocalypse",
		Emoji:    "💥",
		Damage:   200,
		Price:    3000,
		MinLevel: 5,
		GemCost:  2,
	},
}

// GetAllItems returns all missiles ordered by minimum level, then price.
func GetAllItems() []ItemConfig {
	items := make([]ItemConfig, 0, len(Items))
	for _, item := range Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].MinLevel != items[j].MinLevel {
			return items[i].MinLevel < items[j].MinLevel
		}
		return items[i].Price < items[j].Price
	})
	return items
}

// GetItem returns the catalog entry for an id.
func GetItem(id string) (ItemConfig, bool) {
	item, ok := Items[id]
	return item, ok
}

// ========== Miner ==========

// Miner tier bounds.
const (
	MinMinerTier = 1
	MaxMinerTier = 10
)

// MinerRate returns the points accrued per hour at a tier.
// Tiers outside the table yield 0.
func MinerRate(tier int) int64 {
	if tier < MinMinerTier || tier > MaxMinerTier {
		return 0
	}
	return int64(tier) * 100
}

// MinerUpgradeCost returns the coin cost of going from tier to tier+1.
func MinerUpgradeCost(tier int) int64 {
	return int64(tier) * 200
}

// ========== Fighter ==========

// MaxFighterTier is the fighter ceiling.
const MaxFighterTier = 5

// FighterTier describes the effect of a fighter tier in basis points.
type FighterTier struct {
	DamageBonusBP int64 // Added to the attacker's damage multiplier
	MitigationBP  int64 // Added to the owner's mitigation when defending
}

// FighterTiers is indexed by tier.
var FighterTiers = [MaxFighterTier + 1]FighterTier{
	{0, 0},
	{500, 200},
	{1000, 400},
	{1500, 600},
	{2000, 800},
	{2500, 1000},
}

// FighterUpgrade is the cost of reaching a tier.
type FighterUpgrade struct {
	Coins int64
	Gems  int64
}

// fighterUpgrades[i] is the cost of going from tier i to i+1.
var fighterUpgrades = [MaxFighterTier]FighterUpgrade{
	{1000, 0},
	{2500, 2},
	{5000, 5},
	{10000, 10},
	{20000, 20},
}

// FighterUpgradeCost returns the cost of going from tier to tier+1.
// ok is false at or above the ceiling.
func FighterUpgradeCost(tier int) (FighterUpgrade, bool) {
	if tier < 0 || tier >= MaxFighterTier {
		return FighterUpgrade{}, false
	}
	return fighterUpgrades[tier], true
}

// ========== Defense ==========

// Defense limits.
const (
	MaxDefenseTier  = 10
	MitigationCapBP = 5000 // Combined mitigation never exceeds 50%
)

// DefenseConfig holds the per-category weight and pricing.
type DefenseConfig struct {
	Category       model.DefenseCategory
	Name           string
	Emoji          string
	PercentBP      int64 // Mitigation added per tier
	CostMultiplier int64 // Upgrade to tier t+1 costs (t+1)*CostMultiplier coins
}

// Defenses contains every defense category.
var Defenses = map[model.DefenseCategory]DefenseConfig{
	model.DefenseMissile: {
		Category:       model.DefenseMissile,
		Name:           "Missile Shield",
		Emoji:          "🛡️",
		PercentBP:      300,
		CostMultiplier: 300,
	},
	model.DefenseElectronic: {
		Category:       model.DefenseElectronic,
		Name:           "Electronic Jammer",
		Emoji:          "📡",
		PercentBP:      200,
		CostMultiplier: 250,
	},
	model.DefenseAntiFighter: {
		Category:       model.DefenseAntiFighter,
		Name:           "Anti-Fighter Battery",
		Emoji:          "🎯",
		PercentBP:      150,
		CostMultiplier: 200,
	},
}

// GetDefense returns the config for a category.
func GetDefense(c model.DefenseCategory) (DefenseConfig, bool) {
	d, ok := Defenses[c]
	return d, ok
}

// DefenseUpgradeCost returns the coin cost of going from tier to tier+1.
func (d DefenseConfig) DefenseUpgradeCost(tier int) int64 {
	return int64(tier+1) * d.CostMultiplier
}

// MaxTier returns the ceiling for a tier column.
func MaxTier(name model.TierName) (int, bool) {
	switch name {
	case model.TierMiner:
		return MaxMinerTier, true
	case model.TierFighter:
		return MaxFighterTier, true
	case model.TierDefenseMissile, model.TierDefenseElectronic, model.TierDefenseAntiFighter:
		return MaxDefenseTier, true
	}
	return 0, false
}

// MinTier returns the floor for a tier column.
func MinTier(name model.TierName) int {
	if name == model.TierMiner {
		return MinMinerTier
	}
	return 0
}
