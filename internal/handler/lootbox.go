package handler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game/lootbox"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// LootBoxHandler handles /box.
type LootBoxHandler struct {
	dispatcher *action.Dispatcher
	boxes      *service.LootBoxService
}

// NewLootBoxHandler creates a new LootBoxHandler.
func NewLootBoxHandler(dispatcher *action.Dispatcher, boxes *service.LootBoxService) *LootBoxHandler {
	return &LootBoxHandler{dispatcher: dispatcher, boxes: boxes}
}

// HandleBox handles /box [basic|elite]. Without an argument it shows the boxes.
func (h *LootBoxHandler) HandleBox(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if args := c.Args(); len(args) > 0 {
		return h.open(c, strings.ToLower(args[0]))
	}

	markup := &tele.ReplyMarkup{}
	var rows []tele.Row
	msg := "🎁 Loot Boxes\n━━━━━━━━━━━━━━━\n"
	for _, t := range h.boxes.GetTables() {
		price := formatPrice(t)
		msg += fmt.Sprintf("%s %s: %s\n", t.Emoji, t.Name, price)
		rows = append(rows, markup.Row(markup.Data(
			fmt.Sprintf("%s Open %s (%s)", t.Emoji, t.Name, price),
			shop.CallbackLootBox+t.ID,
		)))
	}
	markup.Inline(rows...)
	return c.Reply(msg, markup)
}

// HandleBoxCallback opens the box whose button was pressed.
func (h *LootBoxHandler) HandleBoxCallback(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return h.open(c, strings.TrimPrefix(callbackPayload(c), shop.CallbackLootBox))
}

func (h *LootBoxHandler) open(c tele.Context, table string) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	res := h.dispatcher.Dispatch(ctx, action.Action{
		ActorID: sender.ID,
		Kind:    action.KindOpenLootBox,
		Table:   table,
	})
	if !res.OK {
		return answer(c, FailureText(res.Code))
	}

	text := fmt.Sprintf("🎁 %s opened a box and found %s!", displayName(sender), FormatReward(*res.Reward))
	if c.Callback() != nil {
		if err := c.Respond(); err != nil {
			log.Debug().Err(err).Msg("Failed to answer loot box callback")
		}
		return c.Send(text)
	}
	return c.Reply(text)
}

// FormatReward renders one loot box reward.
func FormatReward(r lootbox.Reward) string {
	if r.IsItem() {
		return fmt.Sprintf("%dx %s", r.Amount, itemLabel(r.Item))
	}
	return fmt.Sprintf("%d%s", r.Amount, resourceLabel(string(r.Resource)))
}

func formatPrice(t lootbox.Table) string {
	return fmt.Sprintf("%d%s", t.Cost, resourceLabel(string(t.CostType)))
}

func resourceLabel(res string) string {
	switch res {
	case "coin":
		return "💰"
	case "gem":
		return "💎"
	case "point":
		return " ZP"
	case "experience":
		return " XP"
	}
	return " " + res
}
