// Package handler provides Telegram bot command handlers.
// Handlers translate chat input into typed actions and render the tagged results.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"warzone-bot/internal/action"
	"warzone-bot/internal/pkg/session"
)

// requestTimeout bounds the database work of one update.
const requestTimeout = 10 * time.Second

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// senderNames returns the handle and full name stored for a Telegram user.
func senderNames(u *tele.User) (handle, name string) {
	return u.Username, strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// displayName renders a Telegram user the way the ledger does.
func displayName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("Player%d", u.ID)
}

// replyTarget returns the author of the message being replied to, if any.
func replyTarget(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil || msg.ReplyTo.Sender == nil || msg.ReplyTo.Sender.IsBot {
		return nil
	}
	return msg.ReplyTo.Sender
}

// callbackPayload returns the callback data with the telebot marker removed.
func callbackPayload(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

var failureText = map[action.Code]string{
	action.CodeNotFound:              "You are not registered yet. Send /start first.",
	action.CodeUnknownParticipant:    "That player has not joined the war yet.",
	action.CodeAttackNotFound:        "No such attack.",
	action.CodeSelfTarget:            "You cannot attack yourself.",
	action.CodeLevelTooLow:           "Your level is too low for that.",
	action.CodeInsufficientQuantity:  "You do not have that missile.",
	action.CodeInsufficientResources: "Not enough resources.",
	action.CodeMaxTier:               "Already at the maximum tier.",
	action.CodeNothingToCollect:      "Nothing to collect yet.",
	action.CodeAlreadyRetaliated:     "That attack was already answered.",
	action.CodeWindowExpired:         "The retaliation window has closed.",
	action.CodeNotRetaliationTarget:  "Only the player who was hit can retaliate.",
	action.CodeUnknownItem:           "Unknown missile. See /market.",
	action.CodeInvalidCombo:          "A combo needs 2 to 4 different missiles.",
	action.CodeInvalidTier:           "Invalid tier.",
	action.CodeInvalidAmount:         "The amount must be positive.",
	action.CodeUnknownResource:       "Unknown resource. Use coin, gem, point or xp.",
	action.CodeUnknownLootTable:      "Unknown box. Use basic or elite.",
	action.CodeSessionExpired:        "This prompt expired. Start again.",
	action.CodeUnknownAction:         "That action is not available.",
	action.CodeBusy:                  "Still working on your last action, try again.",
	action.CodeInternal:              "Something went wrong, please try again later.",
}

// FailureText returns the player-facing text for a failure code.
func FailureText(code action.Code) string {
	if text, ok := failureText[code]; ok {
		return "❌ " + text
	}
	return "❌ " + failureText[action.CodeInternal]
}

// errorText renders an error returned outside the dispatcher, such as from a read query.
func errorText(err error) string {
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrTokenMismatch):
		return "❌ This prompt is no longer active."
	}
	return FailureText(action.CodeOf(err))
}

// answer replies to a message, or shows an alert for a callback.
func answer(c tele.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
	}
	return c.Reply(text)
}

// formatBP renders basis points as a percentage.
func formatBP(bp int64) string {
	if bp%100 == 0 {
		return fmt.Sprintf("%d%%", bp/100)
	}
	return fmt.Sprintf("%d.%02d%%", bp/100, bp%100)
}
