package control

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec/helpers/closuresignaler"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/xsync"
)

type RequestState int

const (
	RequestStateIdle = RequestState(iota)
	RequestStateQueued
	RequestStateApplied
	RequestStateCompleted
)

func (s RequestState) String() string {
	switch s {
	case RequestStateIdle:
		return "idle"
	case RequestStateQueued:
		return "queued"
	case RequestStateApplied:
		return "applied"
	case RequestStateCompleted:
		return "completed"
	}
	return fmt.Sprintf("unexpected_request_state_%d", int(s))
}

// Request batches control values so that they become effective atomically,
// together with the source buffer the request is queued with. A request
// goes through the states idle -> queued -> applied -> completed; a flush
// may skip the applied step, but a queued request always completes exactly
// once.
type Request struct {
	Locker    xsync.Mutex
	handler   *Handler
	values    map[ID]Payload
	state     RequestState
	completed *closuresignaler.ClosureSignaler
}

func NewRequest(
	ctx context.Context,
	h *Handler,
) *Request {
	r := &Request{
		handler:   h,
		values:    map[ID]Payload{},
		completed: closuresignaler.New(),
	}
	logger.Debugf(ctx, "NewRequest(): %s", r)
	return r
}

func (r *Request) String() string {
	return fmt.Sprintf("request%d", types.GetObjectID(r))
}

func (r *Request) Set(
	ctx context.Context,
	payload Payload,
) (_err error) {
	logger.Debugf(ctx, "%s.Set(ctx, %s)", r, payload.ControlID())
	defer func() { logger.Debugf(ctx, "/%s.Set(ctx, %s): %v", r, payload.ControlID(), _err) }()
	return xsync.DoA2R1(ctx, &r.Locker, r.set, ctx, payload)
}

func (r *Request) set(
	_ context.Context,
	payload Payload,
) error {
	if r.state != RequestStateIdle {
		return ErrRequestNotIdle{State: r.state}
	}
	id := payload.ControlID()
	if !r.handler.declarations.Contains(id) {
		return ErrUnknownControl{ID: id}
	}
	if err := payload.Validate(); err != nil {
		return ErrInvalidPayload{ID: id, Err: err}
	}
	r.values[id] = payload
	return nil
}

func (r *Request) Get(
	ctx context.Context,
	id ID,
) (Payload, error) {
	return xsync.DoA2R2(ctx, &r.Locker, r.get, ctx, id)
}

func (r *Request) get(
	_ context.Context,
	id ID,
) (Payload, error) {
	if !r.handler.declarations.Contains(id) {
		return nil, ErrUnknownControl{ID: id}
	}
	value, ok := r.values[id]
	if !ok {
		return nil, ErrControlNotSet{ID: id}
	}
	return value, nil
}

func (r *Request) State(ctx context.Context) RequestState {
	return xsync.DoR1(ctx, &r.Locker, func() RequestState { return r.state })
}

// MarkQueued transitions the request to the queued state. It is called by
// the runtime when a source buffer referencing the request gets queued;
// from this point on the request is immutable until it completes.
func (r *Request) MarkQueued(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.MarkQueued()", r)
	defer func() { logger.Debugf(ctx, "/%s.MarkQueued(): %v", r, _err) }()
	return xsync.DoR1(ctx, &r.Locker, func() error {
		if r.state != RequestStateIdle {
			return ErrRequestNotIdle{State: r.state}
		}
		r.state = RequestStateQueued
		return nil
	})
}

// Unqueue rolls a queued request back to the idle state. It is called by
// the runtime when queueing the source buffer carrying the request failed
// after the request was already marked queued.
func (r *Request) Unqueue(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.Unqueue()", r)
	defer func() { logger.Debugf(ctx, "/%s.Unqueue(): %v", r, _err) }()
	return xsync.DoR1(ctx, &r.Locker, func() error {
		if r.state != RequestStateQueued {
			return ErrRequestNotIdle{State: r.state}
		}
		r.state = RequestStateIdle
		return nil
	})
}

// Completed returns a channel that gets closed when the request completes.
func (r *Request) Completed(ctx context.Context) <-chan struct{} {
	return xsync.DoR1(ctx, &r.Locker, func() <-chan struct{} { return r.completed.CloseChan() })
}

func (r *Request) IsCompleted(ctx context.Context) bool {
	return xsync.DoR1(ctx, &r.Locker, func() bool { return r.state == RequestStateCompleted })
}

func (r *Request) WaitCompleted(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.Completed(ctx):
		return nil
	}
}

// Reinit returns a completed (or still idle) request to the idle state,
// dropping all values, so that the allocation can be reused for the next
// frame.
func (r *Request) Reinit(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.Reinit()", r)
	defer func() { logger.Debugf(ctx, "/%s.Reinit(): %v", r, _err) }()
	return xsync.DoA1R1(ctx, &r.Locker, r.reinit, ctx)
}

func (r *Request) reinit(_ context.Context) error {
	switch r.state {
	case RequestStateIdle, RequestStateCompleted:
	default:
		return ErrRequestNotCompleted{State: r.state}
	}
	r.values = map[ID]Payload{}
	r.state = RequestStateIdle
	r.completed = closuresignaler.New()
	return nil
}
