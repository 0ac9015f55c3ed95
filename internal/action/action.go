// Package action is the typed entry point into the game core. The presentation layer
// builds an Action, dispatches it, and renders the tagged Result; no free text crosses
// this boundary.
package action

import (
	"warzone-bot/internal/game/lootbox"
	"warzone-bot/internal/model"
	"warzone-bot/internal/service"
)

// Kind names a player action.
type Kind string

const (
	KindRegister        Kind = "register"
	KindCollectIdle     Kind = "collect_idle"
	KindUpgradeIdleTier Kind = "upgrade_idle_tier"
	KindPurchaseItem    Kind = "purchase_item"
	KindUpgradeDefense  Kind = "upgrade_defense"
	KindUpgradeFighter  Kind = "upgrade_fighter"
	KindAttack          Kind = "attack"
	KindRetaliate       Kind = "retaliate"
	KindCombo           Kind = "combo"
	KindOpenLootBox     Kind = "open_lootbox"
)

// Action is one request from a player. Only the fields its Kind needs are read.
type Action struct {
	ActorID  int64
	Now      int64 // unix seconds; 0 means the dispatcher clock
	Kind     Kind
	Handle   string // register
	Name     string // register
	TargetID int64  // attack, combo
	Item     string // purchase_item, attack, retaliate
	Quantity int    // purchase_item; 0 means 1
	Items    []string
	AttackID int64                 // retaliate
	Category model.DefenseCategory // upgrade_defense
	Table    string                // open_lootbox
}

// Result is the tagged outcome of an action. On success OK is set and the payload
// fields for the Kind are filled; on failure Code and Err describe why.
type Result struct {
	Kind     Kind
	OK       bool
	Code     Code
	Err      error
	Created  bool             // register: a new player row was created
	Player   *model.Player    // balances after the action, when known
	Accrued  int64            // collect_idle
	NewTier  int              // upgrade_*
	Quantity int              // purchase_item: units now held
	Outcome  *service.Outcome // attack, retaliate, combo
	Reward   *lootbox.Reward  // open_lootbox
}

// Fail builds a failed result for kind.
func Fail(kind Kind, err error) Result {
	return Result{Kind: kind, Code: CodeOf(err), Err: err}
}
