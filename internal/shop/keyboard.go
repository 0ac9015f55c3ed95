package shop

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/model"
)

// Callback data prefixes
const (
	CallbackMarketBuy     = "mkt_buy:"     // mkt_buy:meteor
	CallbackMarketDefense = "mkt_def:"     // mkt_def:missile
	CallbackMarketFighter = "mkt_fighter"  // mkt_fighter
	CallbackMarketRefresh = "mkt_refresh"  // mkt_refresh
	CallbackMinerCollect  = "miner_collect"
	CallbackMinerUpgrade  = "miner_upgrade"
	CallbackMinerRefresh  = "miner_refresh"
	CallbackAttackPick    = "atk_pick:"    // atk_pick:<token>:<item>
	CallbackAttackCancel  = "atk_cancel:"  // atk_cancel:<token>
	CallbackComboAdd      = "combo_add:"   // combo_add:<token>:<item>
	CallbackComboFire     = "combo_fire:"  // combo_fire:<token>
	CallbackRetaliate     = "ret:"         // ret:<attack_id>:<item>
	CallbackLootBox       = "box:"         // box:basic
)

// TrimCallback strips the marker telebot puts in front of callback data.
func TrimCallback(data string) string {
	return strings.TrimPrefix(data, "\f")
}

// SplitTokenItem parses "<token>:<item>" callback payloads.
func SplitTokenItem(payload string) (token, item string, ok bool) {
	token, item, ok = strings.Cut(payload, ":")
	if !ok || token == "" || item == "" {
		return "", "", false
	}
	return token, item, true
}

// ParseRetaliate parses a "ret:<attack_id>:<item>" payload.
func ParseRetaliate(payload string) (attackID int64, item string, ok bool) {
	idStr, item, ok := strings.Cut(payload, ":")
	if !ok || item == "" {
		return 0, "", false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, item, true
}

// BuildMarketPanel creates the market panel: one buy button per missile, one upgrade
// button per defense category, and the fighter upgrade.
func BuildMarketPanel(p *model.Player) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}

	items := GetAllItems()
	var rows []tele.Row

	// 2 missiles per row
	var currentRow []tele.Btn
	for i, item := range items {
		btn := markup.Data(
			fmt.Sprintf("%s %s (%d💰)", item.Emoji, item.Name, item.Price),
			CallbackMarketBuy+item.ID,
		)
		currentRow = append(currentRow, btn)
		if len(currentRow) == 2 || i == len(items)-1 {
			rows = append(rows, markup.Row(currentRow...))
			currentRow = nil
		}
	}

	for _, c := range model.DefenseCategories() {
		d := Defenses[c]
		tier := p.DefenseTier(c)
		label := fmt.Sprintf("%s %s %d/%d", d.Emoji, d.Name, tier, MaxDefenseTier)
		if tier < MaxDefenseTier {
			label += fmt.Sprintf(" (%d💰)", d.DefenseUpgradeCost(tier))
		}
		rows = append(rows, markup.Row(markup.Data(label, CallbackMarketDefense+string(c))))
	}

	fighter := fmt.Sprintf("✈️ Fighter %d/%d", p.FighterTier, MaxFighterTier)
	if cost, ok := FighterUpgradeCost(p.FighterTier); ok {
		fighter += fmt.Sprintf(" (%d💰", cost.Coins)
		if cost.Gems > 0 {
			fighter += fmt.Sprintf(" %d💎", cost.Gems)
		}
		fighter += ")"
	}
	rows = append(rows, markup.Row(markup.Data(fighter, CallbackMarketFighter)))
	rows = append(rows, markup.Row(markup.Data("🔄 Refresh", CallbackMarketRefresh)))

	markup.Inline(rows...)
	return markup
}

// BuildMinerPanel creates the miner panel.
func BuildMinerPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(
		markup.Row(
			markup.Data("⛏️ Collect", CallbackMinerCollect),
			markup.Data("⬆️ Upgrade", CallbackMinerUpgrade),
		),
		markup.Row(markup.Data("🔄 Refresh", CallbackMinerRefresh)),
	)
	return markup
}

// BuildMissilePicker lists the missiles the player holds for a pending attack.
func BuildMissilePicker(token string, inv []model.InventoryEntry) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, e := range inv {
		item, ok := GetItem(e.Item)
		if !ok || e.Quantity <= 0 {
			continue
		}
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("%s %s x%d", item.Emoji, item.Name, e.Quantity),
			CallbackAttackPick+token+":"+item.ID,
		)))
	}
	rows = append(rows, markup.Row(markup.Data("❌ Cancel", CallbackAttackCancel+token)))
	markup.Inline(rows...)
	return markup
}

// MaxComboPicks is the largest salvo a combo session collects.
const MaxComboPicks = 4

// BuildComboPicker lists held missiles not yet picked, plus a fire button once
// at least two are chosen.
func BuildComboPicker(token string, inv []model.InventoryEntry, picked []string) *tele.ReplyMarkup {
	chosen := make(map[string]bool, len(picked))
	for _, id := range picked {
		chosen[id] = true
	}

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, e := range inv {
		item, ok := GetItem(e.Item)
		if !ok || e.Quantity <= 0 || chosen[item.ID] || len(picked) >= MaxComboPicks {
			continue
		}
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("➕ %s %s", item.Emoji, item.Name),
			CallbackComboAdd+token+":"+item.ID,
		)))
	}
	if len(picked) >= 2 {
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("🚀 Fire %d", len(picked)),
			CallbackComboFire+token,
		)))
	}
	rows = append(rows, markup.Row(markup.Data("❌ Cancel", CallbackAttackCancel+token)))
	markup.Inline(rows...)
	return markup
}

// BuildRetaliationPanel offers one button per (open attack, held missile).
func BuildRetaliationPanel(attacks []*model.AttackRecord, inv []model.InventoryEntry) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, rec := range attacks {
		var row []tele.Btn
		for _, e := range inv {
			item, ok := GetItem(e.Item)
			if !ok || e.Quantity <= 0 {
				continue
			}
			row = append(row, markup.Data(
				fmt.Sprintf("#%d %s", rec.ID, item.Emoji),
				fmt.Sprintf("%s%d:%s", CallbackRetaliate, rec.ID, item.ID),
			))
		}
		if len(row) > 0 {
			rows = append(rows, markup.Row(row...))
		}
	}
	markup.Inline(rows...)
	return markup
}

// FormatMarketMessage creates the market header message
func FormatMarketMessage(p *model.Player) string {
	msg := "🏪 War Market\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("💰 Coins: %d   💎 Gems: %d\n", p.Coins, p.Gems)
	msg += fmt.Sprintf("⭐ Level: %d\n", p.Level)
	msg += "━━━━━━━━━━━━━━━\n"
	for _, item := range GetAllItems() {
		msg += fmt.Sprintf("%s %s: %d dmg, %d💰, level %d", item.Emoji, item.Name, item.Damage, item.Price, item.MinLevel)
		if item.IsPremium() {
			msg += fmt.Sprintf(", %d💎 per launch", item.GemCost)
		}
		msg += "\n"
	}
	return msg
}

// FormatInventoryMessage lists held missiles
func FormatInventoryMessage(inv []model.InventoryEntry) string {
	var lines []string
	for _, e := range inv {
		if e.Quantity <= 0 {
			continue
		}
		if item, ok := GetItem(e.Item); ok {
			lines = append(lines, fmt.Sprintf("%s %s x%d", item.Emoji, item.Name, e.Quantity))
		} else {
			lines = append(lines, fmt.Sprintf("%s x%d", e.Item, e.Quantity))
		}
	}
	if len(lines) == 0 {
		return "🎒 No missiles. Visit /market."
	}
	return "🎒 Arsenal\n" + strings.Join(lines, "\n")
}

// FormatRemainingTime formats remaining seconds for display
func FormatRemainingTime(remaining int64) string {
	if remaining <= 0 {
		return "now"
	}

	hours := remaining / 3600
	minutes := (remaining % 3600) / 60
	seconds := remaining % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh%dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
