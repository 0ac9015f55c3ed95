package action

import (
	"errors"

	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/lock"
)

// Code is a stable failure identifier the presentation layer renders.
type Code string

const (
	CodeNone                  Code = ""
	CodeNotFound              Code = "not_found"
	CodeUnknownParticipant    Code = "unknown_participant"
	CodeAttackNotFound        Code = "attack_not_found"
	CodeSelfTarget            Code = "self_target_forbidden"
	CodeLevelTooLow           Code = "level_too_low"
	CodeInsufficientQuantity  Code = "insufficient_quantity"
	CodeInsufficientResources Code = "insufficient_resources"
	CodeMaxTier               Code = "max_tier_reached"
	CodeNothingToCollect      Code = "nothing_to_collect"
	CodeAlreadyRetaliated     Code = "already_retaliated"
	CodeWindowExpired         Code = "retaliation_window_expired"
	CodeNotRetaliationTarget  Code = "not_retaliation_target"
	CodeUnknownItem           Code = "unknown_item"
	CodeInvalidCombo          Code = "invalid_combo"
	CodeInvalidTier           Code = "invalid_tier"
	CodeInvalidAmount         Code = "invalid_amount"
	CodeUnknownResource       Code = "unknown_resource"
	CodeUnknownLootTable      Code = "unknown_loot_table"
	CodeSessionExpired        Code = "session_expired"
	CodeUnknownAction         Code = "unknown_action"
	CodeBusy                  Code = "busy"
	CodeInternal              Code = "internal"
)

// ErrUnknownAction is returned for a Kind with no registered handler.
var ErrUnknownAction = errors.New("unknown action")

// codes is checked in order; wrapped sentinels come before the ones they wrap.
var codes = []struct {
	err  error
	code Code
}{
	{model.ErrUnknownParticipant, CodeUnknownParticipant},
	{model.ErrAttackNotFound, CodeAttackNotFound},
	{model.ErrNotFound, CodeNotFound},
	{model.ErrSelfTargetForbidden, CodeSelfTarget},
	{model.ErrLevelTooLow, CodeLevelTooLow},
	{model.ErrInsufficientQuantity, CodeInsufficientQuantity},
	{model.ErrInsufficientResources, CodeInsufficientResources},
	{model.ErrMaxTierReached, CodeMaxTier},
	{model.ErrNothingToCollect, CodeNothingToCollect},
	{model.ErrAlreadyRetaliated, CodeAlreadyRetaliated},
	{model.ErrRetaliationWindowExpired, CodeWindowExpired},
	{model.ErrNotRetaliationTarget, CodeNotRetaliationTarget},
	{model.ErrUnknownItem, CodeUnknownItem},
	{model.ErrInvalidCombo, CodeInvalidCombo},
	{model.ErrInvalidTier, CodeInvalidTier},
	{model.ErrInvalidAmount, CodeInvalidAmount},
	{model.ErrUnknownResource, CodeUnknownResource},
	{model.ErrUnknownLootTable, CodeUnknownLootTable},
	{model.ErrSessionExpired, CodeSessionExpired},
	{ErrUnknownAction, CodeUnknownAction},
	{lock.ErrLockTimeout, CodeBusy},
}

// CodeOf maps an error to its failure code. Errors outside the domain taxonomy are
// infrastructure failures and map to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeNone
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// Retryable reports whether a failure may succeed if simply tried again.
func (c Code) Retryable() bool {
	return c == CodeInternal || c == CodeBusy
}
