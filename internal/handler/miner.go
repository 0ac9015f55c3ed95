package handler

import (
	"fmt"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// MinerHandler handles the idle miner panel.
type MinerHandler struct {
	dispatcher *action.Dispatcher
	miner      *service.MinerService
	clock      game.Clock
}

// NewMinerHandler creates a new MinerHandler.
func NewMinerHandler(dispatcher *action.Dispatcher, miner *service.MinerService, clock game.Clock) *MinerHandler {
	if clock == nil {
		clock = game.RealClock{}
	}
	return &MinerHandler{dispatcher: dispatcher, miner: miner, clock: clock}
}

// HandleMiner handles the /miner command.
func (h *MinerHandler) HandleMiner(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	msg, err := h.statusMessage(sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	return c.Reply(msg, shop.BuildMinerPanel())
}

// HandleMinerCallback handles the miner panel buttons.
func (h *MinerHandler) HandleMinerCallback(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var notice string
	switch callbackPayload(c) {
	case shop.CallbackMinerCollect:
		res := h.dispatcher.Dispatch(ctx, action.Action{ActorID: sender.ID, Kind: action.KindCollectIdle})
		if !res.OK {
			return answer(c, FailureText(res.Code))
		}
		notice = fmt.Sprintf("⛏️ Collected %d ZP", res.Accrued)
	case shop.CallbackMinerUpgrade:
		res := h.dispatcher.Dispatch(ctx, action.Action{ActorID: sender.ID, Kind: action.KindUpgradeIdleTier})
		if !res.OK {
			return answer(c, FailureText(res.Code))
		}
		notice = fmt.Sprintf("⬆️ Miner upgraded to tier %d", res.NewTier)
	case shop.CallbackMinerRefresh:
	default:
		return nil
	}

	msg, err := h.statusMessage(sender.ID)
	if err != nil {
		return answer(c, errorText(err))
	}
	if notice != "" {
		if err := c.Respond(&tele.CallbackResponse{Text: notice}); err != nil {
			log.Debug().Err(err).Msg("Failed to answer miner callback")
		}
	}
	return c.Edit(msg, shop.BuildMinerPanel())
}

func (h *MinerHandler) statusMessage(id int64) (string, error) {
	ctx, cancel := requestContext()
	defer cancel()

	st, err := h.miner.Status(ctx, id, game.NowUnix(h.clock))
	if err != nil {
		return "", err
	}
	return FormatMinerStatus(st), nil
}

// FormatMinerStatus renders the miner panel text.
func FormatMinerStatus(st *service.MinerStatus) string {
	msg := "⛏️ ZP Miner\n"
	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("Tier: %d/%d\n", st.Tier, shop.MaxMinerTier)
	msg += fmt.Sprintf("Rate: %d ZP/hour\n", st.RatePerHour)
	msg += fmt.Sprintf("Ready to collect: %d ZP\n", st.Pending)
	if st.Pending == 0 && st.NextUnitIn > 0 {
		msg += fmt.Sprintf("Next ZP in: %s\n", shop.FormatRemainingTime(st.NextUnitIn))
	}
	if st.MaxTier {
		msg += "Upgrade: max tier reached\n"
	} else {
		msg += fmt.Sprintf("Upgrade: %d💰\n", st.UpgradeCost)
	}
	msg += "━━━━━━━━━━━━━━━"
	return msg
}
