package model

import (
	"errors"
	"fmt"
)

// Domain errors. Validation failures are returned as-is so callers can match them
// with errors.Is; none of them leaves a partial mutation behind.
var (
	ErrNotFound           = errors.New("not found")
	ErrPlayerNotFound     = fmt.Errorf("player %w", ErrNotFound)
	ErrUnknownParticipant = fmt.Errorf("unknown participant: %w", ErrPlayerNotFound)
	ErrAttackNotFound     = fmt.Errorf("attack record %w", ErrNotFound)

	ErrSelfTargetForbidden   = errors.New("cannot target yourself")
	ErrLevelTooLow           = errors.New("level too low")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrInsufficientQuantity  = fmt.Errorf("insufficient quantity: %w", ErrInsufficientResources)
	ErrMaxTierReached        = errors.New("max tier reached")
	ErrNothingToCollect      = errors.New("nothing to collect")

	ErrAlreadyRetaliated        = errors.New("attack already retaliated")
	ErrRetaliationWindowExpired = errors.New("retaliation window expired")
	ErrNotRetaliationTarget     = errors.New("only the target of an attack can retaliate")

	ErrUnknownItem      = errors.New("unknown item")
	ErrInvalidCombo     = errors.New("combo needs 2 to 4 distinct missiles")
	ErrInvalidTier      = errors.New("invalid tier")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUnknownResource  = errors.New("unknown resource")
	ErrUnknownLootTable = errors.New("unknown loot table")
	ErrSessionExpired   = errors.New("session expired")
)
