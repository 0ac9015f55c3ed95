// Package lootbox implements weighted reward draws.
// Draws take their randomness from an injected Source so results are reproducible.
package lootbox

import (
	"warzone-bot/internal/model"
	"warzone-bot/internal/shop"
)

// Source is the random source used by Draw. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Table ids.
const (
	TableBasic = "basic"
	TableElite = "elite"
)

// Reward is what one draw pays out. Exactly one of Resource or Item is set.
type Reward struct {
	Resource model.Resource
	Item     string
	Amount   int64
}

// IsItem reports whether the reward is a missile.
func (r Reward) IsItem() bool {
	return r.Item != ""
}

// Entry is one weighted outcome. Amount is drawn uniformly from [Min, Max].
type Entry struct {
	Weight   int
	Resource model.Resource
	Item     string
	Min      int64
	Max      int64
}

// Table is a priced, weighted reward table.
type Table struct {
	ID       string
	Name     string
	Emoji    string
	Cost     int64
	CostType model.Resource
	Entries  []Entry
}

// Tables contains every loot box.
var Tables = map[string]Table{
	TableBasic: {
		ID:       TableBasic,
		Name:     "Supply Crate",
		Emoji:    "📦",
		Cost:     300,
		CostType: model.ResourceCoin,
		Entries: []Entry{
			{Weight: 45, Resource: model.ResourceCoin, Min: 100, Max: 400},
			{Weight: 35, Resource: model.ResourcePoint, Min: 100, Max: 600},
			{Weight: 15, Item: shop.ItemMeteor, Min: 1, Max: 2},
			{Weight: 5, Resource: model.ResourceGem, Min: 1, Max: 2},
		},
	},
	TableElite: {
		ID:       TableElite,
		Name:     "Elite Cache",
		Emoji:    "🎁",
		Cost:     5,
		CostType: model.ResourceGem,
		Entries: []Entry{
			{Weight: 40, Resource: model.ResourceCoin, Min: 500, Max: 2000},
			{Weight: 25, Resource: model.ResourceGem, Min: 3, Max: 8},
			{Weight: 20, Item: shop.ItemHailstorm, Min: 1, Max: 2},
			{Weight: 15, Item: shop.ItemTorrent, Min: 1, Max: 1},
		},
	},
}

// GetTable returns the table for an id.
func GetTable(id string) (Table, bool) {
	t, ok := Tables[id]
	return t, ok
}

// Draw picks one reward from the table identified by tableID.
func Draw(src Source, tableID string) (Reward, error) {
	t, ok := Tables[tableID]
	if !ok {
		return Reward{}, model.ErrUnknownLootTable
	}
	return t.Roll(src), nil
}

// Roll picks one weighted entry and an amount within its range.
// An empty table pays a single coin.
func (t Table) Roll(src Source) Reward {
	total := 0
	for _, e := range t.Entries {
		total += e.Weight
	}
	if total <= 0 {
		return Reward{Resource: model.ResourceCoin, Amount: 1}
	}

	roll := src.Intn(total)
	current := 0
	picked := t.Entries[len(t.Entries)-1]
	for _, e := range t.Entries {
		current += e.Weight
		if roll < current {
			picked = e
			break
		}
	}

	amount := picked.Min
	if span := picked.Max - picked.Min; span > 0 {
		amount += int64(src.Intn(int(span) + 1))
	}
	return Reward{Resource: picked.Resource, Item: picked.Item, Amount: amount}
}
