package buffer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/types"
)

func newSourceBuffer(timestamp int64, payload []byte) *Buffer {
	return &Buffer{
		Data:      payload,
		BytesUsed: len(payload),
		Timestamp: timestamp,
	}
}

func TestQueueFIFO(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionSource, 4)

	buf0 := newSourceBuffer(1000, []byte{0, 0, 1})
	buf1 := newSourceBuffer(2000, []byte{0, 0, 2})
	buf2 := newSourceBuffer(3000, []byte{0, 0, 3})
	require.NoError(t, q.Enqueue(ctx, buf0))
	require.NoError(t, q.Enqueue(ctx, buf1))
	require.NoError(t, q.Enqueue(ctx, buf2))
	require.Equal(t, 3, q.PendingCount(ctx))

	for _, expected := range []*Buffer{buf0, buf1, buf2} {
		acquired := q.AcquireNext(ctx)
		require.Same(t, expected, acquired)
		require.Equal(t, types.BufferStateActive, acquired.State())
		q.Done(ctx, acquired, types.BufferStateDone)
	}
	require.Nil(t, q.AcquireNext(ctx))

	for expectedSeq := uint32(0); expectedSeq < 3; expectedSeq++ {
		buf, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Equal(t, expectedSeq, buf.Sequence)
		require.Equal(t, types.BufferStateDone, buf.State())
	}

	stats := q.GetStats()
	require.Equal(t, uint64(3), stats.Queued.Count)
	require.Equal(t, uint64(3), stats.Done.Count)
	require.Equal(t, uint64(9), stats.Done.Bytes)
	require.Equal(t, uint64(0), stats.Errored.Count)
}

func TestQueueRejectsBusyBuffer(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionSource, 4)

	buf := newSourceBuffer(1000, []byte{1})
	require.NoError(t, q.Enqueue(ctx, buf))
	err := q.Enqueue(ctx, buf)
	require.ErrorAs(t, err, &ErrBufferBusy{})
}

func TestQueueRejectsBadPayloadSize(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionSource, 4)

	err := q.Enqueue(ctx, &Buffer{Data: make([]byte, 16)})
	require.ErrorAs(t, err, &ErrPayloadSize{})

	err = q.Enqueue(ctx, &Buffer{Data: make([]byte, 16), BytesUsed: 17})
	require.ErrorAs(t, err, &ErrPayloadSize{})
}

func TestQueueRejectsRequestOnDestination(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionDestination, 4)

	err := q.Enqueue(ctx, &Buffer{Data: make([]byte, 16), Request: &control.Request{}})
	require.ErrorAs(t, err, &ErrRequestOnDestination{})
}

func TestQueueCapacity(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionSource, 2)

	buf0 := newSourceBuffer(1000, []byte{1})
	buf1 := newSourceBuffer(2000, []byte{2})
	require.NoError(t, q.Enqueue(ctx, buf0))
	require.NoError(t, q.Enqueue(ctx, buf1))
	err := q.Enqueue(ctx, newSourceBuffer(3000, []byte{3}))
	require.ErrorAs(t, err, &ErrQueueFull{})

	q.Done(ctx, q.AcquireNext(ctx), types.BufferStateDone)
	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Same(t, buf0, dequeued)
	require.NoError(t, q.Enqueue(ctx, dequeued))
}

func TestQueueFlush(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionDestination, 4)

	buf0 := &Buffer{Data: make([]byte, 16)}
	buf1 := &Buffer{Data: make([]byte, 16)}
	require.NoError(t, q.Enqueue(ctx, buf0))
	require.NoError(t, q.Enqueue(ctx, buf1))

	flushed := q.Flush(ctx)
	require.Len(t, flushed, 2)
	require.Equal(t, 0, q.PendingCount(ctx))

	for _, expected := range []*Buffer{buf0, buf1} {
		buf, err := q.Dequeue(ctx)
		require.NoError(t, err)
		require.Same(t, expected, buf)
		require.Equal(t, types.BufferStateError, buf.State())
		require.NotZero(t, buf.Flags&FlagError)
	}
	require.Equal(t, uint64(2), q.GetStats().Errored.Count)
}

func TestQueueFindByTimestamp(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(ctx, DirectionDestination, 4)

	buf := &Buffer{Data: make([]byte, 16)}
	require.NoError(t, q.Enqueue(ctx, buf))
	buf.Timestamp = 42000

	require.Same(t, buf, q.FindByTimestamp(ctx, 42000))
	require.Nil(t, q.FindByTimestamp(ctx, 43000))
}
