package handler

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/model"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// MarketHandler handles missile purchases and upgrades.
type MarketHandler struct {
	dispatcher *action.Dispatcher
	ledger     *service.Ledger
}

// NewMarketHandler creates a new MarketHandler
func NewMarketHandler(dispatcher *action.Dispatcher, ledger *service.Ledger) *MarketHandler {
	return &MarketHandler{
		dispatcher: dispatcher,
		ledger:     ledger,
	}
}

// HandleMarket handles /market and shows the market panel
func (h *MarketHandler) HandleMarket(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	p, err := h.ledger.Get(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	inv, err := h.ledger.Inventory(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}

	msg := shop.FormatMarketMessage(p) + "\n" + shop.FormatInventoryMessage(inv)
	return c.Send(msg, shop.BuildMarketPanel(p))
}

// HandleBuy handles /buy <missile> [quantity]
func (h *MarketHandler) HandleBuy(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) == 0 {
		return c.Reply("Usage: /buy <missile> [quantity]")
	}

	qty := 1
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return c.Reply(FailureText(action.CodeInvalidAmount))
		}
		qty = n
	}

	res := h.dispatcher.Dispatch(ctx, action.Action{
		ActorID:  sender.ID,
		Kind:     action.KindPurchaseItem,
		Item:     strings.ToLower(args[0]),
		Quantity: qty,
	})
	if !res.OK {
		return c.Reply(FailureText(res.Code))
	}

	item, _ := shop.GetItem(strings.ToLower(args[0]))
	return c.Reply(formatPurchase(item, qty, res))
}

// HandleMarketCallback handles market button callbacks
func (h *MarketHandler) HandleMarketCallback(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	data := callbackPayload(c)
	a := action.Action{ActorID: sender.ID}

	switch {
	case data == shop.CallbackMarketRefresh:
		return h.refresh(c, "")
	case data == shop.CallbackMarketFighter:
		a.Kind = action.KindUpgradeFighter
	case strings.HasPrefix(data, shop.CallbackMarketDefense):
		a.Kind = action.KindUpgradeDefense
		a.Category = model.DefenseCategory(strings.TrimPrefix(data, shop.CallbackMarketDefense))
	case strings.HasPrefix(data, shop.CallbackMarketBuy):
		a.Kind = action.KindPurchaseItem
		a.Item = strings.TrimPrefix(data, shop.CallbackMarketBuy)
		a.Quantity = 1
	default:
		return nil
	}

	res := h.dispatcher.Dispatch(ctx, a)
	if !res.OK {
		return answer(c, FailureText(res.Code))
	}

	var notice string
	switch a.Kind {
	case action.KindPurchaseItem:
		item, _ := shop.GetItem(a.Item)
		notice = formatPurchase(item, 1, res)
	case action.KindUpgradeFighter:
		notice = "✈️ Fighter upgraded to tier " + strconv.Itoa(res.NewTier)
	case action.KindUpgradeDefense:
		notice = "🛡️ " + shop.Defenses[a.Category].Name + " upgraded to tier " + strconv.Itoa(res.NewTier)
	}
	return h.refresh(c, notice)
}

// refresh redraws the market panel with the caller's current balances.
func (h *MarketHandler) refresh(c tele.Context, notice string) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	p, err := h.ledger.Get(ctx, sender.ID)
	if err != nil {
		return answer(c, errorText(err))
	}
	inv, err := h.ledger.Inventory(ctx, sender.ID)
	if err != nil {
		return answer(c, errorText(err))
	}

	if notice != "" {
		if err := c.Respond(&tele.CallbackResponse{Text: notice}); err != nil {
			log.Debug().Err(err).Msg("Failed to answer market callback")
		}
	}
	msg := shop.FormatMarketMessage(p) + "\n" + shop.FormatInventoryMessage(inv)
	return c.Edit(msg, shop.BuildMarketPanel(p))
}

func formatPurchase(item shop.ItemConfig, qty int, res action.Result) string {
	return "✅ Bought " + strconv.Itoa(qty) + "x " + item.Emoji + " " + item.Name +
		" (now " + strconv.Itoa(res.Quantity) + ")"
}
