package action

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warzone-bot/internal/game"
	"warzone-bot/internal/model"
	"warzone-bot/internal/pkg/lock"
)

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher(nil)

	assert.Error(t, d.Register("", func(context.Context, Action) Result { return Result{} }))
	assert.Error(t, d.Register(KindAttack, nil))

	require.NoError(t, d.Register(KindAttack, func(context.Context, Action) Result { return Result{} }))
	require.NoError(t, d.Register(KindCollectIdle, func(context.Context, Action) Result { return Result{} }))
	assert.Equal(t, 2, d.Count())
	assert.Equal(t, []Kind{KindAttack, KindCollectIdle}, d.Kinds())

	_, ok := d.Get(KindRetaliate)
	assert.False(t, ok)
}

func TestDispatcher_FillsNowAndTags(t *testing.T) {
	clock := game.NewFakeClock(time.Unix(1_700_000_000, 0))
	d := NewDispatcher(clock)

	var seen Action
	require.NoError(t, d.Register(KindCollectIdle, func(_ context.Context, a Action) Result {
		seen = a
		return Result{Accrued: 300}
	}))

	res := d.Dispatch(context.Background(), Action{ActorID: 7, Kind: KindCollectIdle})
	assert.True(t, res.OK)
	assert.Equal(t, KindCollectIdle, res.Kind)
	assert.Equal(t, CodeNone, res.Code)
	assert.Equal(t, int64(300), res.Accrued)
	assert.Equal(t, int64(1_700_000_000), seen.Now)

	res = d.Dispatch(context.Background(), Action{ActorID: 7, Kind: KindCollectIdle, Now: 5})
	assert.True(t, res.OK)
	assert.Equal(t, int64(5), seen.Now)
}

func TestDispatcher_Failures(t *testing.T) {
	d := NewDispatcher(nil)
	require.NoError(t, d.Register(KindAttack, func(context.Context, Action) Result {
		return Result{Err: model.ErrSelfTargetForbidden}
	}))

	res := d.Dispatch(context.Background(), Action{ActorID: 1, Kind: KindAttack, TargetID: 1})
	assert.False(t, res.OK)
	assert.Equal(t, CodeSelfTarget, res.Code)
	assert.ErrorIs(t, res.Err, model.ErrSelfTargetForbidden)

	res = d.Dispatch(context.Background(), Action{ActorID: 1, Kind: "fly"})
	assert.False(t, res.OK)
	assert.Equal(t, CodeUnknownAction, res.Code)
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeNone},
		{model.ErrUnknownParticipant, CodeUnknownParticipant},
		{model.ErrPlayerNotFound, CodeNotFound},
		{model.ErrAttackNotFound, CodeAttackNotFound},
		{model.ErrInsufficientQuantity, CodeInsufficientQuantity},
		{model.ErrInsufficientResources, CodeInsufficientResources},
		{fmt.Errorf("no %q missile held: %w", "nuke", model.ErrInsufficientResources), CodeInsufficientResources},
		{fmt.Errorf("failed to register player: %w", model.ErrInvalidTier), CodeInvalidTier},
		{model.ErrRetaliationWindowExpired, CodeWindowExpired},
		{model.ErrSessionExpired, CodeSessionExpired},
		{fmt.Errorf("collect: %w", lock.ErrLockTimeout), CodeBusy},
		{errors.New("connection reset"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}

	assert.True(t, CodeInternal.Retryable())
	assert.True(t, CodeBusy.Retryable())
	assert.False(t, CodeNothingToCollect.Retryable())
}
