package handler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/game/lootbox"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/session"
	"warzone-bot/internal/service"
)

func TestFailureText_EveryCodeHasText(t *testing.T) {
	codes := []action.Code{
		action.CodeNotFound, action.CodeUnknownParticipant, action.CodeAttackNotFound,
		action.CodeSelfTarget, action.CodeLevelTooLow, action.CodeInsufficientQuantity,
		action.CodeInsufficientResources, action.CodeMaxTier, action.CodeNothingToCollect,
		action.CodeAlreadyRetaliated, action.CodeWindowExpired, action.CodeNotRetaliationTarget,
		action.CodeUnknownItem, action.CodeInvalidCombo, action.CodeInvalidTier,
		action.CodeInvalidAmount, action.CodeUnknownResource, action.CodeUnknownLootTable,
		action.CodeSessionExpired, action.CodeUnknownAction, action.CodeBusy, action.CodeInternal,
	}
	for _, code := range codes {
		_, ok := failureText[code]
		assert.True(t, ok, "no text for %s", code)
	}

	assert.Equal(t, FailureText(action.CodeInternal), FailureText(action.Code("made_up")))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "❌ This prompt is no longer active.", errorText(session.ErrNoSession))
	assert.Equal(t, "❌ This prompt is no longer active.", errorText(session.ErrTokenMismatch))
	assert.Equal(t, FailureText(action.CodeSessionExpired), errorText(session.ErrSessionExpired))
	assert.Equal(t, FailureText(action.CodeNotFound), errorText(fmt.Errorf("failed to load: %w", model.ErrPlayerNotFound)))
	assert.Equal(t, FailureText(action.CodeInternal), errorText(errors.New("connection reset")))
}

func TestFormatBP(t *testing.T) {
	assert.Equal(t, "0%", formatBP(0))
	assert.Equal(t, "50%", formatBP(5000))
	assert.Equal(t, "7.50%", formatBP(750))
	assert.Equal(t, "0.05%", formatBP(5))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "@ace", displayName(&tele.User{ID: 1, Username: "ace"}))
	assert.Equal(t, "Ann Lee", displayName(&tele.User{ID: 1, FirstName: "Ann", LastName: "Lee"}))
	assert.Equal(t, "Player7", displayName(&tele.User{ID: 7}))
}

func TestFormatOutcome(t *testing.T) {
	first := &service.Outcome{
		AttackID:         3,
		Item:             "meteor",
		BaseDamage:       50,
		Damage:           50,
		CoinLoot:         200,
		ExperienceGained: 10,
	}
	msg := FormatOutcome(first, "@a", "@b", 60)
	assert.Contains(t, msg, "@a hit @b with ☄️ Meteor")
	assert.Contains(t, msg, "Damage: 50 (base 50, mitigated 0%)")
	assert.Contains(t, msg, "Loot: 200💰 0💎")
	assert.Contains(t, msg, "/retaliate 3 <missile> within 60 minutes")

	answer := &service.Outcome{
		AttackID:    4,
		Item:        "meteor",
		Damage:      60,
		Retaliation: true,
		LeveledUp:   true,
		NewLevel:    2,
	}
	msg = FormatOutcome(answer, "@b", "@a", 60)
	assert.Contains(t, msg, "@b retaliated against @a")
	assert.Contains(t, msg, "Level up! Now level 2")
	assert.NotContains(t, msg, "/retaliate")

	combo := &service.Outcome{Item: "meteor+hailstorm", Combo: true}
	assert.Contains(t, FormatOutcome(combo, "@a", "@b", 60), "☄️ Meteor + 🌨️ Hailstorm")
}

func TestParseGiftArgs(t *testing.T) {
	id, res, amount, err := parseGiftArgs([]string{"42", "zp", "300"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, model.ResourcePoint, res)
	assert.Equal(t, int64(300), amount)

	for _, args := range [][]string{
		{"42", "coin"},
		{"abc", "coin", "5"},
		{"42", "gold", "5"},
		{"42", "coin", "0"},
		{"42", "coin", "-5"},
	} {
		_, _, _, err := parseGiftArgs(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestFormatMinerStatus(t *testing.T) {
	msg := FormatMinerStatus(&service.MinerStatus{Tier: 2, RatePerHour: 200, Pending: 0, NextUnitIn: 18, UpgradeCost: 400})
	assert.Contains(t, msg, "Tier: 2/10")
	assert.Contains(t, msg, "Rate: 200 ZP/hour")
	assert.Contains(t, msg, "Next ZP in: 18s")
	assert.Contains(t, msg, "Upgrade: 400💰")

	msg = FormatMinerStatus(&service.MinerStatus{Tier: 10, RatePerHour: 1000, Pending: 5, MaxTier: true})
	assert.Contains(t, msg, "max tier reached")
	assert.NotContains(t, msg, "Next ZP")
}

func TestFormatReward(t *testing.T) {
	assert.Equal(t, "2x ☄️ Meteor", FormatReward(lootbox.Reward{Item: "meteor", Amount: 2}))
	assert.Equal(t, "150💰", FormatReward(lootbox.Reward{Resource: model.ResourceCoin, Amount: 150}))
	assert.Equal(t, "300 ZP", FormatReward(lootbox.Reward{Resource: model.ResourcePoint, Amount: 300}))
}

func TestHelpText_ListsPlayerCommands(t *testing.T) {
	for _, cmd := range []string{
		"/wallet", "/profile", "/miner", "/market", "/buy", "/attack", "/combo",
		"/attacks", "/retaliate", "/box", "/top", "/raiders", "/help",
	} {
		assert.Contains(t, HelpText, cmd)
	}
	assert.NotContains(t, HelpText, "/gift")
}
