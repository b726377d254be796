// queue.go implements the per-context buffer queue: a FIFO of queued
// buffers on one side and a done channel on the other. A codec context
// owns two of these, one per direction.

package buffer

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec/internal"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/xsync"
)

type Direction int

const (
	DirectionSource = Direction(iota)
	DirectionDestination
)

func (d Direction) String() string {
	switch d {
	case DirectionSource:
		return "source"
	case DirectionDestination:
		return "destination"
	}
	return fmt.Sprintf("unexpected_direction_%d", int(d))
}

type Queue struct {
	Locker   xsync.Mutex
	Counters types.QueueCounters

	direction    Direction
	capacity     uint
	pending      []*Buffer
	known        map[*Buffer]struct{}
	doneCh       chan *Buffer
	nextSequence uint32
}

func NewQueue(
	ctx context.Context,
	direction Direction,
	capacity uint,
) *Queue {
	logger.Debugf(ctx, "NewQueue(ctx, %s, %d)", direction, capacity)
	return &Queue{
		direction: direction,
		capacity:  capacity,
		known:     map[*Buffer]struct{}{},
		doneCh:    make(chan *Buffer, capacity),
	}
}

func (q *Queue) String() string {
	return fmt.Sprintf("%s_queue", q.direction)
}

func (q *Queue) Direction() Direction {
	return q.direction
}

func (q *Queue) Capacity() uint {
	return q.capacity
}

// Enqueue hands a buffer over to the runtime. The buffer must not be
// in-flight already; a source buffer must carry a payload that fits its
// backing storage.
func (q *Queue) Enqueue(
	ctx context.Context,
	buf *Buffer,
) (_err error) {
	logger.Debugf(ctx, "%s.Enqueue(ctx, %s)", q, buf)
	defer func() { logger.Debugf(ctx, "/%s.Enqueue(ctx, %s): %v", q, buf, _err) }()
	return xsync.DoA2R1(ctx, &q.Locker, q.enqueue, ctx, buf)
}

func (q *Queue) enqueue(
	_ context.Context,
	buf *Buffer,
) error {
	switch state := buf.State(); state {
	case types.BufferStateQueued, types.BufferStateActive:
		return ErrBufferBusy{State: state}
	}
	if q.direction == DirectionDestination && buf.Request != nil {
		return ErrRequestOnDestination{}
	}
	if q.direction == DirectionSource {
		if buf.BytesUsed <= 0 || buf.BytesUsed > len(buf.Data) {
			return ErrPayloadSize{BytesUsed: buf.BytesUsed, Capacity: len(buf.Data)}
		}
	} else {
		buf.BytesUsed = 0
	}
	if _, ok := q.known[buf]; !ok {
		if uint(len(q.known)) >= q.capacity {
			return ErrQueueFull{Capacity: q.capacity}
		}
		q.known[buf] = struct{}{}
	}

	buf.Flags &^= FlagError | FlagLast
	buf.setState(types.BufferStateQueued)
	q.pending = append(q.pending, buf)
	q.Counters.Queued.Increment(uint64(buf.BytesUsed))
	return nil
}

func (q *Queue) PendingCount(ctx context.Context) int {
	return xsync.DoR1(ctx, &q.Locker, func() int { return len(q.pending) })
}

// ResetSequence restarts the sequence numbering. Called when streaming
// (re)starts on the owning context.
func (q *Queue) ResetSequence(ctx context.Context) {
	q.Locker.Do(ctx, func() {
		q.nextSequence = 0
	})
}

// AcquireNext pops the oldest queued buffer and marks it active. It
// returns nil if nothing is queued.
func (q *Queue) AcquireNext(ctx context.Context) *Buffer {
	return xsync.DoA1R1(ctx, &q.Locker, q.acquireNext, ctx)
}

func (q *Queue) acquireNext(_ context.Context) *Buffer {
	if len(q.pending) == 0 {
		return nil
	}
	buf := q.pending[0]
	q.pending = q.pending[1:]
	buf.setState(types.BufferStateActive)
	return buf
}

// Done finishes an active buffer: stamps the per-queue sequence number,
// moves the buffer to its final state and delivers it through the done
// channel.
func (q *Queue) Done(
	ctx context.Context,
	buf *Buffer,
	state types.BufferState,
) {
	logger.Debugf(ctx, "%s.Done(ctx, %s, %s)", q, buf, state)
	q.Locker.Do(ctx, func() { q.done(ctx, buf, state) })
}

func (q *Queue) done(
	ctx context.Context,
	buf *Buffer,
	state types.BufferState,
) {
	internal.Assert(ctx, buf.State() == types.BufferStateActive, "finishing a buffer in state ", buf.State())
	internal.Assert(ctx, state.IsFinal(), "finishing a buffer with non-final state ", state)

	buf.Sequence = q.nextSequence
	q.nextSequence++
	if state == types.BufferStateError {
		buf.Flags |= FlagError
		q.Counters.Errored.Increment(uint64(buf.BytesUsed))
	} else {
		q.Counters.Done.Increment(uint64(buf.BytesUsed))
	}
	buf.setState(state)
	q.deliver(ctx, buf)
}

func (q *Queue) deliver(
	ctx context.Context,
	buf *Buffer,
) {
	select {
	case q.doneCh <- buf:
	default:
		internal.Assert(ctx, false, "the done channel of ", q.String(), " overflowed")
	}
}

// DoneChan returns the channel finished buffers are delivered through.
// Receiving from it transfers the buffer ownership back to the client.
func (q *Queue) DoneChan() <-chan *Buffer {
	return q.doneCh
}

// Dequeue waits for the next finished buffer.
func (q *Queue) Dequeue(ctx context.Context) (*Buffer, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case buf := <-q.doneCh:
		return buf, nil
	}
}

// Flush force-finishes every queued buffer with the error state (an
// active buffer, if any, is not touched: it is owned by the run that
// acquired it). The flushed buffers are returned so that the caller can
// complete the control requests they carry.
func (q *Queue) Flush(ctx context.Context) (_ret []*Buffer) {
	logger.Debugf(ctx, "%s.Flush(ctx)", q)
	defer func() { logger.Debugf(ctx, "/%s.Flush(ctx): %d buffers", q, len(_ret)) }()
	return xsync.DoA1R1(ctx, &q.Locker, q.flush, ctx)
}

func (q *Queue) flush(ctx context.Context) []*Buffer {
	flushed := q.pending
	q.pending = nil
	for _, buf := range flushed {
		buf.Flags |= FlagError
		buf.setState(types.BufferStateError)
		q.Counters.Errored.Increment(uint64(buf.BytesUsed))
		q.deliver(ctx, buf)
	}
	return flushed
}

// FindByTimestamp returns a buffer this queue has seen whose timestamp
// matches. This is how reference frames are resolved from the timestamps
// carried in control payloads.
func (q *Queue) FindByTimestamp(
	ctx context.Context,
	timestamp int64,
) *Buffer {
	return xsync.DoR1(ctx, &q.Locker, func() *Buffer {
		for buf := range q.known {
			if buf.Timestamp == timestamp {
				return buf
			}
		}
		return nil
	})
}

func (q *Queue) GetStats() types.QueueStatistics {
	return q.Counters.ToStats()
}
