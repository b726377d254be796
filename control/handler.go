// handler.go implements the per-context control state. The lifecycle
// mirrors what stateless decoders expect: direct Set calls adjust the
// state immediately, requests batch values that get merged in atomically
// right before the hardware run they were queued with.

package control

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec/internal"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/xsync"
)

type Handler struct {
	Locker       xsync.Mutex
	declarations Declarations
	values       map[ID]Payload
	grabbed      bool
}

func NewHandler(
	ctx context.Context,
	declarations Declarations,
) (*Handler, error) {
	if err := declarations.Validate(); err != nil {
		return nil, fmt.Errorf("unable to use the control declarations: %w", err)
	}

	h := &Handler{
		declarations: declarations,
		values:       make(map[ID]Payload, len(declarations)),
	}
	for idx := range declarations {
		decl := &declarations[idx]
		if decl.Default != nil {
			h.values[decl.ID] = decl.Default
		}
	}
	return h, nil
}

// Declared returns the declarations the handler was built with. The
// returned slice must not be modified.
func (h *Handler) Declared() Declarations {
	return h.declarations
}

func (h *Handler) Set(
	ctx context.Context,
	payload Payload,
) (_err error) {
	logger.Debugf(ctx, "Set(ctx, %s)", payload.ControlID())
	defer func() { logger.Debugf(ctx, "/Set(ctx, %s): %v", payload.ControlID(), _err) }()
	return xsync.DoA2R1(ctx, &h.Locker, h.set, ctx, payload)
}

func (h *Handler) set(
	_ context.Context,
	payload Payload,
) error {
	id := payload.ControlID()
	if !h.declarations.Contains(id) {
		return ErrUnknownControl{ID: id}
	}
	if h.grabbed {
		return ErrGrabbed{ID: id}
	}
	if err := payload.Validate(); err != nil {
		return ErrInvalidPayload{ID: id, Err: err}
	}
	h.values[id] = payload
	return nil
}

func (h *Handler) Get(
	ctx context.Context,
	id ID,
) (Payload, error) {
	return xsync.DoA2R2(ctx, &h.Locker, h.get, ctx, id)
}

func (h *Handler) get(
	_ context.Context,
	id ID,
) (Payload, error) {
	if !h.declarations.Contains(id) {
		return nil, ErrUnknownControl{ID: id}
	}
	value, ok := h.values[id]
	if !ok {
		return nil, ErrControlNotSet{ID: id}
	}
	return value, nil
}

// Current returns the effective value of a control, without distinguishing
// why it might be absent. This is what codec bindings use while preparing
// a run.
func (h *Handler) Current(
	ctx context.Context,
	id ID,
) (Payload, bool) {
	return xsync.DoA2R2(ctx, &h.Locker, h.current, ctx, id)
}

func (h *Handler) current(
	_ context.Context,
	id ID,
) (Payload, bool) {
	value, ok := h.values[id]
	return value, ok
}

// Grab freezes direct control changes. The runtime grabs the handler while
// the context is streaming; requests are still applied.
func (h *Handler) Grab(ctx context.Context) {
	logger.Debugf(ctx, "Grab()")
	h.Locker.Do(ctx, func() { h.grabbed = true })
}

func (h *Handler) Ungrab(ctx context.Context) {
	logger.Debugf(ctx, "Ungrab()")
	h.Locker.Do(ctx, func() { h.grabbed = false })
}

func (h *Handler) IsGrabbed(ctx context.Context) bool {
	return xsync.DoR1(ctx, &h.Locker, func() bool { return h.grabbed })
}

// MissingMandatory returns the mandatory controls that currently have no
// value. Scheduling a run is refused until the result is empty.
func (h *Handler) MissingMandatory(ctx context.Context) []ID {
	return xsync.DoA1R1(ctx, &h.Locker, h.missingMandatory, ctx)
}

func (h *Handler) missingMandatory(_ context.Context) []ID {
	var result []ID
	for idx := range h.declarations {
		decl := &h.declarations[idx]
		if !decl.Mandatory {
			continue
		}
		if _, ok := h.values[decl.ID]; !ok {
			result = append(result, decl.ID)
		}
	}
	return result
}

// ApplyRequest merges the values of a queued request into the handler,
// making them the effective control state. It is called by the runtime
// exactly once per queued request, right before the hardware run; the
// grabbed flag does not apply to this path.
func (h *Handler) ApplyRequest(
	ctx context.Context,
	req *Request,
) {
	logger.Debugf(ctx, "ApplyRequest(ctx, %s)", req)
	defer func() { logger.Debugf(ctx, "/ApplyRequest(ctx, %s)", req) }()
	h.Locker.Do(ctx, func() {
		req.Locker.Do(xsync.WithNoLogging(ctx, true), func() {
			internal.Assert(ctx, req.handler == h, "the request belongs to a different handler")
			internal.Assert(ctx, req.state == RequestStateQueued, "applying a request in state ", req.state)
			for id, value := range req.values {
				h.values[id] = value
			}
			req.state = RequestStateApplied
		})
	})
}

// CompleteRequest finishes the lifecycle of a queued request: it snapshots
// the effective values of the controls the request carries (so that Get on
// the request reads back what the hardware actually ran with) and signals
// the completion. It is called by the runtime exactly once per queued
// request: after the run finished, or during a flush if the request never
// ran.
func (h *Handler) CompleteRequest(
	ctx context.Context,
	req *Request,
) {
	logger.Debugf(ctx, "CompleteRequest(ctx, %s)", req)
	defer func() { logger.Debugf(ctx, "/CompleteRequest(ctx, %s)", req) }()
	h.Locker.Do(ctx, func() {
		req.Locker.Do(xsync.WithNoLogging(ctx, true), func() {
			internal.Assert(ctx, req.handler == h, "the request belongs to a different handler")
			internal.Assert(
				ctx,
				req.state == RequestStateQueued || req.state == RequestStateApplied,
				"completing a request in state ", req.state,
			)
			if req.state == RequestStateApplied {
				for id := range req.values {
					if value, ok := h.values[id]; ok {
						req.values[id] = value
					}
				}
			}
			req.state = RequestStateCompleted
			req.completed.Close(ctx)
		})
	})
}
