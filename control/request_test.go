package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRequestLifecycle(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	req := NewRequest(ctx, h)
	require.Equal(t, RequestStateIdle, req.State(ctx))

	require.NoError(t, req.Set(ctx, validSPS()))
	require.NoError(t, req.Set(ctx, &H264PPS{}))
	require.NoError(t, req.MarkQueued(ctx))
	require.Equal(t, RequestStateQueued, req.State(ctx))

	err = req.Set(ctx, &H264PPS{PicParameterSetID: 1})
	require.ErrorAs(t, err, &ErrRequestNotIdle{})
	err = req.MarkQueued(ctx)
	require.ErrorAs(t, err, &ErrRequestNotIdle{})

	h.ApplyRequest(ctx, req)
	require.Equal(t, RequestStateApplied, req.State(ctx))
	value, ok := h.Current(ctx, IDH264SPS)
	require.True(t, ok)
	require.Equal(t, uint8(100), value.(*H264SPS).ProfileIDC)

	h.CompleteRequest(ctx, req)
	require.True(t, req.IsCompleted(ctx))
	require.NoError(t, req.WaitCompleted(ctx))

	value, err = req.Get(ctx, IDH264SPS)
	require.NoError(t, err)
	require.Equal(t, uint8(100), value.(*H264SPS).ProfileIDC)
}

func TestRequestCompleteWithoutRun(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	req := NewRequest(ctx, h)
	require.NoError(t, req.Set(ctx, validSPS()))
	require.NoError(t, req.MarkQueued(ctx))

	h.CompleteRequest(ctx, req)
	require.True(t, req.IsCompleted(ctx))

	_, ok := h.Current(ctx, IDH264SPS)
	require.False(t, ok)
}

func TestRequestWaitCompletedHonorsContext(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	req := NewRequest(ctx, h)
	waitCtx, cancelFn := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancelFn()
	err = req.WaitCompleted(waitCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestReinit(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	req := NewRequest(ctx, h)
	require.NoError(t, req.Set(ctx, validSPS()))
	require.NoError(t, req.MarkQueued(ctx))

	err = req.Reinit(ctx)
	require.ErrorAs(t, err, &ErrRequestNotCompleted{})

	h.ApplyRequest(ctx, req)
	h.CompleteRequest(ctx, req)
	require.NoError(t, req.Reinit(ctx))
	require.Equal(t, RequestStateIdle, req.State(ctx))
	require.False(t, req.IsCompleted(ctx))

	_, err = req.Get(ctx, IDH264SPS)
	require.ErrorAs(t, err, &ErrControlNotSet{})
}
