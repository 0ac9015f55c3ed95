// Package combat holds the pure attack rules: damage, mitigation, loot and
// experience formulas, combo salvos and retaliation checks. The service layer
// applies them inside a transaction.
package combat

import (
	"strings"

	"warzone-bot/internal/model"
	"warzone-bot/internal/shop"
)

// All fractions are basis points; 10000 is 100%.
const (
	BasisPoints = 10000

	// RetaliationBonusBP is added to the damage multiplier of a retaliation.
	RetaliationBonusBP = 2000
)

// LootRule fixes the fraction and absolute ceiling taken from a target.
type LootRule struct {
	CoinBP  int64
	CoinCap int64
	GemBP   int64
	GemCap  int64
}

// Loot rules. Retaliations take more than first strikes.
var (
	FirstStrikeLoot = LootRule{CoinBP: 1000, CoinCap: 500, GemBP: 500, GemCap: 5}
	RetaliationLoot = LootRule{CoinBP: 2000, CoinCap: 1000, GemBP: 1000, GemCap: 10}
)

// comboMultiplierBP is indexed by the number of distinct missiles in a salvo.
var comboMultiplierBP = map[int]int64{
	1: 10000,
	2: 13000,
	3: 17000,
	4: 22000,
}

// FighterBonus returns the attacker's damage bonus for a fighter tier.
func FighterBonus(tier int) int64 {
	if tier < 0 {
		return 0
	}
	if tier > shop.MaxFighterTier {
		tier = shop.MaxFighterTier
	}
	return shop.FighterTiers[tier].DamageBonusBP
}

// FighterMitigation returns the defender's mitigation bonus for a fighter tier.
func FighterMitigation(tier int) int64 {
	if tier < 0 {
		return 0
	}
	if tier > shop.MaxFighterTier {
		tier = shop.MaxFighterTier
	}
	return shop.FighterTiers[tier].MitigationBP
}

// Mitigation returns the combined defense fraction of a player, capped at 50%.
func Mitigation(p *model.Player) int64 {
	var total int64
	for _, c := range model.DefenseCategories() {
		d, ok := shop.GetDefense(c)
		if !ok {
			continue
		}
		total += int64(p.DefenseTier(c)) * d.PercentBP
	}
	total += FighterMitigation(p.FighterTier)
	if total > shop.MitigationCapBP {
		return shop.MitigationCapBP
	}
	if total < 0 {
		return 0
	}
	return total
}

// FinalDamage is floor(base * (1 + fighter + retaliation) * (1 - mitigation)).
func FinalDamage(base, fighterBP, retaliationBP, mitigationBP int64) int64 {
	if base <= 0 {
		return 0
	}
	if mitigationBP > BasisPoints {
		mitigationBP = BasisPoints
	}
	return base * (BasisPoints + fighterBP + retaliationBP) * (BasisPoints - mitigationBP) / (BasisPoints * BasisPoints)
}

// Loot returns what a strike takes from a target holding coins and gems.
// Each amount is a truncated fraction independently capped by the rule.
func (r LootRule) Loot(coins, gems int64) (coinLoot, gemLoot int64) {
	return fraction(coins, r.CoinBP, r.CoinCap), fraction(gems, r.GemBP, r.GemCap)
}

func fraction(balance, bp, ceiling int64) int64 {
	if balance <= 0 {
		return 0
	}
	v := balance * bp / BasisPoints
	if v > ceiling {
		return ceiling
	}
	return v
}

// Experience returns the attacker's experience for a strike with the given base damage.
// Retaliations earn double.
func Experience(baseDamage int64, attackerLevel int, retaliation bool) int64 {
	if attackerLevel < 1 {
		attackerLevel = 1
	}
	xp := baseDamage / int64(attackerLevel)
	if xp < 1 {
		xp = 1
	}
	if retaliation {
		xp *= 2
	}
	return xp
}

// Salvo is the set of missiles launched together in one strike.
// Uncatalogued lists requested names outside the catalog; nobody holds those.
type Salvo struct {
	Items        []shop.ItemConfig
	Uncatalogued []string
}

// NewSalvo resolves catalog ids into a salvo. A single id is a plain attack;
// two to four distinct ids form a combo. Only the shape is validated here: an
// unknown name is kept in Uncatalogued so the resolver can reject it in order.
func NewSalvo(ids []string) (Salvo, error) {
	if len(ids) == 0 || len(ids) > 4 {
		return Salvo{}, model.ErrInvalidCombo
	}
	seen := make(map[string]bool, len(ids))
	items := make([]shop.ItemConfig, 0, len(ids))
	var unknown []string
	for _, id := range ids {
		if seen[id] {
			return Salvo{}, model.ErrInvalidCombo
		}
		seen[id] = true
		item, ok := shop.GetItem(id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		items = append(items, item)
	}
	return Salvo{Items: items, Uncatalogued: unknown}, nil
}

// IsCombo reports whether more than one missile is launched.
func (s Salvo) IsCombo() bool {
	return len(s.Items)+len(s.Uncatalogued) > 1
}

// BaseDamage is the summed damage rating scaled by the combo multiplier.
func (s Salvo) BaseDamage() int64 {
	var sum int64
	for _, item := range s.Items {
		sum += item.Damage
	}
	return sum * comboMultiplierBP[len(s.Items)] / BasisPoints
}

// MinLevel is the highest level requirement in the salvo.
func (s Salvo) MinLevel() int {
	lvl := 0
	for _, item := range s.Items {
		if item.MinLevel > lvl {
			lvl = item.MinLevel
		}
	}
	return lvl
}

// GemCost is the summed launch cost in gems.
func (s Salvo) GemCost() int64 {
	var sum int64
	for _, item := range s.Items {
		sum += item.GemCost
	}
	return sum
}

// Label joins item ids for the attack record.
func (s Salvo) Label() string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ID
	}
	return strings.Join(ids, "+")
}

// Strike is the computed, not yet applied, effect of one attack.
type Strike struct {
	BaseDamage  int64
	FighterBP   int64
	Retaliation bool
	Mitigation  int64
	Damage      int64
	CoinLoot    int64
	GemLoot     int64
	Experience  int64
}

// Compute evaluates steps 5 to 10 of attack resolution for a salvo.
func Compute(attacker, target *model.Player, salvo Salvo, retaliation bool) Strike {
	s := Strike{
		BaseDamage:  salvo.BaseDamage(),
		FighterBP:   FighterBonus(attacker.FighterTier),
		Retaliation: retaliation,
		Mitigation:  Mitigation(target),
	}

	var retaliationBP int64
	rule := FirstStrikeLoot
	if retaliation {
		retaliationBP = RetaliationBonusBP
		rule = RetaliationLoot
	}

	s.Damage = FinalDamage(s.BaseDamage, s.FighterBP, retaliationBP, s.Mitigation)
	s.CoinLoot, s.GemLoot = rule.Loot(target.Coins, target.Gems)
	s.Experience = Experience(s.BaseDamage, attacker.Level, retaliation)
	return s
}
