package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/session"
	"warzone-bot/internal/service"
	"warzone-bot/internal/shop"
)

// openAttacksShown caps the /attacks list.
const openAttacksShown = 5

// CombatHandler handles attacks, combos and retaliation.
type CombatHandler struct {
	dispatcher *action.Dispatcher
	ledger     *service.Ledger
	combat     *service.CombatService
	sessions   *session.Store
	clock      game.Clock
}

// NewCombatHandler creates a new CombatHandler.
func NewCombatHandler(
	dispatcher *action.Dispatcher,
	ledger *service.Ledger,
	combat *service.CombatService,
	sessions *session.Store,
	clock game.Clock,
) *CombatHandler {
	if clock == nil {
		clock = game.RealClock{}
	}
	return &CombatHandler{
		dispatcher: dispatcher,
		ledger:     ledger,
		combat:     combat,
		sessions:   sessions,
		clock:      clock,
	}
}

// HandleAttack handles /attack, sent as a reply to the target's message.
// With a missile argument the strike resolves at once; without one a missile picker is shown.
func (h *CombatHandler) HandleAttack(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target := replyTarget(c)
	if target == nil {
		return c.Reply("Reply to a player's message with /attack [missile].")
	}
	if target.ID == sender.ID {
		return c.Reply(FailureText(action.CodeSelfTarget))
	}

	if args := c.Args(); len(args) > 0 {
		res := h.dispatcher.Dispatch(ctx, action.Action{
			ActorID:  sender.ID,
			Kind:     action.KindAttack,
			TargetID: target.ID,
			Item:     strings.ToLower(args[0]),
		})
		if !res.OK {
			return c.Reply(FailureText(res.Code))
		}
		return c.Reply(h.formatOutcome(res.Outcome, displayName(sender), displayName(target)))
	}

	inv, err := h.heldMissiles(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(inv) == 0 {
		return c.Reply("🎒 No missiles. Visit /market.")
	}

	sess := h.sessions.Start(sender.ID, session.KindAttackTarget, target.ID)
	return c.Reply(
		fmt.Sprintf("🎯 Target: %s\nChoose a missile:", displayName(target)),
		shop.BuildMissilePicker(sess.Token, inv),
	)
}

// HandleCombo handles /combo, sent as a reply to the target's message.
// With two or more missile arguments the salvo fires at once; without arguments a picker
// collects up to four missiles.
func (h *CombatHandler) HandleCombo(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	target := replyTarget(c)
	if target == nil {
		return c.Reply("Reply to a player's message with /combo [missile missile ...].")
	}
	if target.ID == sender.ID {
		return c.Reply(FailureText(action.CodeSelfTarget))
	}

	if args := c.Args(); len(args) > 0 {
		items := make([]string, len(args))
		for i, a := range args {
			items[i] = strings.ToLower(a)
		}
		res := h.dispatcher.Dispatch(ctx, action.Action{
			ActorID:  sender.ID,
			Kind:     action.KindCombo,
			TargetID: target.ID,
			Items:    items,
		})
		if !res.OK {
			return c.Reply(FailureText(res.Code))
		}
		return c.Reply(h.formatOutcome(res.Outcome, displayName(sender), displayName(target)))
	}

	inv, err := h.heldMissiles(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(inv) < 2 {
		return c.Reply(FailureText(action.CodeInvalidCombo))
	}

	sess := h.sessions.Start(sender.ID, session.KindCombo, target.ID)
	return c.Reply(
		fmt.Sprintf("🎯 Combo target: %s\nPick 2 to 4 different missiles:", displayName(target)),
		shop.BuildComboPicker(sess.Token, inv, nil),
	)
}

// HandleRetaliate handles /retaliate <attack_id> <missile>.
func (h *CombatHandler) HandleRetaliate(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	args := c.Args()
	if len(args) < 2 {
		return c.Reply("Usage: /retaliate <attack_id> <missile>\nSee /attacks for open attacks.")
	}
	attackID, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || attackID <= 0 {
		return c.Reply(FailureText(action.CodeAttackNotFound))
	}

	return h.retaliate(ctx, c, attackID, strings.ToLower(args[1]))
}

// HandleOpenAttacks handles /attacks and lists attacks the sender can still answer.
func (h *CombatHandler) HandleOpenAttacks(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	now := game.NowUnix(h.clock)
	attacks, err := h.combat.OpenAttacks(ctx, sender.ID, now, openAttacksShown)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(attacks) == 0 {
		return c.Reply("🕊️ No attacks to answer.")
	}

	msg := "⚔️ Attacks you can answer\n"
	msg += "━━━━━━━━━━━━━━━\n"
	for _, rec := range attacks {
		msg += fmt.Sprintf("#%d %s hit you with %s for %d (took %d💰 %d💎), %s left\n",
			rec.ID, h.playerName(ctx, rec.AttackerID), itemLabel(rec.Item), rec.Damage,
			rec.CoinLoot, rec.GemLoot, shop.FormatRemainingTime(h.combat.Deadline(rec)-now))
	}
	msg += "━━━━━━━━━━━━━━━"

	inv, err := h.heldMissiles(ctx, sender.ID)
	if err != nil {
		return c.Reply(errorText(err))
	}
	if len(inv) == 0 {
		return c.Reply(msg + "\n🎒 No missiles to answer with. Visit /market.")
	}
	return c.Reply(msg, shop.BuildRetaliationPanel(attacks, inv))
}

// HandleCombatCallback handles the missile picker, combo picker and retaliation buttons.
func (h *CombatHandler) HandleCombatCallback(c tele.Context) error {
	ctx, cancel := requestContext()
	defer cancel()

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	data := callbackPayload(c)
	switch {
	case strings.HasPrefix(data, shop.CallbackAttackPick):
		token, item, ok := shop.SplitTokenItem(strings.TrimPrefix(data, shop.CallbackAttackPick))
		if !ok {
			return nil
		}
		sess, err := h.sessions.Take(sender.ID, token)
		if err != nil {
			return answer(c, errorText(err))
		}
		return h.strike(ctx, c, action.Action{
			ActorID:  sender.ID,
			Kind:     action.KindAttack,
			TargetID: sess.TargetID,
			Item:     item,
		})

	case strings.HasPrefix(data, shop.CallbackComboAdd):
		token, item, ok := shop.SplitTokenItem(strings.TrimPrefix(data, shop.CallbackComboAdd))
		if !ok {
			return nil
		}
		picked, err := h.sessions.AddItem(sender.ID, token, item)
		if err != nil {
			return answer(c, errorText(err))
		}
		inv, err := h.heldMissiles(ctx, sender.ID)
		if err != nil {
			return answer(c, errorText(err))
		}
		return c.Edit(
			fmt.Sprintf("🎯 Combo: %s", joinLabels(picked)),
			shop.BuildComboPicker(token, inv, picked),
		)

	case strings.HasPrefix(data, shop.CallbackComboFire):
		sess, err := h.sessions.Take(sender.ID, strings.TrimPrefix(data, shop.CallbackComboFire))
		if err != nil {
			return answer(c, errorText(err))
		}
		return h.strike(ctx, c, action.Action{
			ActorID:  sender.ID,
			Kind:     action.KindCombo,
			TargetID: sess.TargetID,
			Items:    sess.Items,
		})

	case strings.HasPrefix(data, shop.CallbackAttackCancel):
		if _, err := h.sessions.Take(sender.ID, strings.TrimPrefix(data, shop.CallbackAttackCancel)); err != nil {
			return answer(c, errorText(err))
		}
		return c.Edit("❎ Cancelled.")

	case strings.HasPrefix(data, shop.CallbackRetaliate):
		attackID, item, ok := shop.ParseRetaliate(strings.TrimPrefix(data, shop.CallbackRetaliate))
		if !ok {
			return nil
		}
		return h.retaliate(ctx, c, attackID, item)
	}
	return nil
}

// strike dispatches an attack or combo chosen through a picker and replaces the picker
// with the outcome.
func (h *CombatHandler) strike(ctx context.Context, c tele.Context, a action.Action) error {
	res := h.dispatcher.Dispatch(ctx, a)
	if !res.OK {
		return answer(c, FailureText(res.Code))
	}
	if err := c.Respond(); err != nil {
		log.Debug().Err(err).Msg("Failed to answer combat callback")
	}
	return c.Edit(h.formatOutcome(res.Outcome, displayName(c.Sender()), h.playerName(ctx, a.TargetID)))
}

func (h *CombatHandler) retaliate(ctx context.Context, c tele.Context, attackID int64, item string) error {
	sender := c.Sender()
	res := h.dispatcher.Dispatch(ctx, action.Action{
		ActorID:  sender.ID,
		Kind:     action.KindRetaliate,
		AttackID: attackID,
		Item:     item,
	})
	if !res.OK {
		return answer(c, FailureText(res.Code))
	}

	text := h.formatOutcome(res.Outcome, displayName(sender), h.playerName(ctx, res.Outcome.TargetID))
	if c.Callback() != nil {
		if err := c.Respond(); err != nil {
			log.Debug().Err(err).Msg("Failed to answer retaliation callback")
		}
		return c.Send(text)
	}
	return c.Reply(text)
}

// heldMissiles returns the catalog missiles the player holds at least one of.
func (h *CombatHandler) heldMissiles(ctx context.Context, id int64) ([]model.InventoryEntry, error) {
	inv, err := h.ledger.Inventory(ctx, id)
	if err != nil {
		return nil, err
	}
	held := inv[:0]
	for _, e := range inv {
		if _, ok := shop.GetItem(e.Item); ok && e.Quantity > 0 {
			held = append(held, e)
		}
	}
	return held, nil
}

// playerName looks up a stored display name, falling back to the id.
func (h *CombatHandler) playerName(ctx context.Context, id int64) string {
	p, err := h.ledger.Get(ctx, id)
	if err != nil {
		return fmt.Sprintf("Player%d", id)
	}
	return p.DisplayName()
}

func (h *CombatHandler) formatOutcome(o *service.Outcome, attacker, target string) string {
	return FormatOutcome(o, attacker, target, int64(h.combat.Window().Minutes()))
}

// FormatOutcome renders an applied strike. windowMinutes is shown on first strikes so
// the target knows how long they have to answer.
func FormatOutcome(o *service.Outcome, attacker, target string, windowMinutes int64) string {
	var msg string
	switch {
	case o.Retaliation:
		msg = fmt.Sprintf("↩️ %s retaliated against %s with %s!\n", attacker, target, itemLabel(o.Item))
	case o.Combo:
		msg = fmt.Sprintf("🚀 %s fired a combo at %s: %s!\n", attacker, target, joinLabels(strings.Split(o.Item, "+")))
	default:
		msg = fmt.Sprintf("💥 %s hit %s with %s!\n", attacker, target, itemLabel(o.Item))
	}

	msg += "━━━━━━━━━━━━━━━\n"
	msg += fmt.Sprintf("Damage: %d (base %d, mitigated %s)\n", o.Damage, o.BaseDamage, formatBP(o.Mitigation))
	msg += fmt.Sprintf("Loot: %d💰 %d💎\n", o.CoinLoot, o.GemLoot)
	msg += fmt.Sprintf("XP: +%d\n", o.ExperienceGained)
	if o.LeveledUp {
		msg += fmt.Sprintf("🎉 Level up! Now level %d\n", o.NewLevel)
	}
	msg += "━━━━━━━━━━━━━━━"

	if !o.Retaliation {
		msg += fmt.Sprintf("\n%s can answer with /retaliate %d <missile> within %d minutes.", target, o.AttackID, windowMinutes)
	}
	return msg
}

func itemLabel(id string) string {
	if item, ok := shop.GetItem(id); ok {
		return item.Emoji + " " + item.Name
	}
	return id
}

func joinLabels(ids []string) string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = itemLabel(id)
	}
	return strings.Join(labels, " + ")
}
