// run.go implements the job descriptor. A Run is created by the
// dispatcher when a context gets its turn, walks through
// preamble -> hardware -> postamble and retires by finishing its buffers.
// It is owned by the dispatcher goroutine throughout; codec bindings see
// it only from within the Ops callbacks.

package m2mcodec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/internal"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
)

type RunState int

const (
	RunStateFresh = RunState(iota)
	RunStatePreambleDone
	RunStateHWRunning
	RunStatePostambleDone
	RunStateRetired
)

func (s RunState) String() string {
	switch s {
	case RunStateFresh:
		return "fresh"
	case RunStatePreambleDone:
		return "preamble_done"
	case RunStateHWRunning:
		return "hw_running"
	case RunStatePostambleDone:
		return "postamble_done"
	case RunStateRetired:
		return "retired"
	}
	return fmt.Sprintf("unexpected_run_state_%d", int(s))
}

type Run struct {
	// CustomData is where the codec binding keeps its per-run state
	// (typically the typed control views snapshotted by BindControls).
	CustomData any

	id        uint64
	context   *Context
	state     RunState
	src       *buffer.Buffer
	dst       *buffer.Buffer
	request   *control.Request
	irqStatus hw.IRQStatus
	err       error
	startedAt time.Time
}

func newRun(c *Context, id uint64) *Run {
	return &Run{
		id:      id,
		context: c,
	}
}

func (r *Run) String() string {
	return fmt.Sprintf("run%d", r.id)
}

func (r *Run) ID() uint64 {
	return r.id
}

func (r *Run) Context() *Context {
	return r.context
}

func (r *Run) State() RunState {
	return r.state
}

func (r *Run) Source() *buffer.Buffer {
	return r.src
}

func (r *Run) Destination() *buffer.Buffer {
	return r.dst
}

func (r *Run) Request() *control.Request {
	return r.request
}

// Backend is a shortcut for the hardware of the device the run executes
// on.
func (r *Run) Backend() hw.Backend {
	return r.context.device.backend
}

func (r *Run) Err() error {
	return r.err
}

func (r *Run) setState(ctx context.Context, state RunState) {
	internal.Assert(ctx, state > r.state, "a run never moves from ", r.state, " back to ", state)
	logger.Tracef(ctx, "%s: %s -> %s", r, r.state, state)
	r.state = state
}

// preamble makes the job self-contained: it applies the attached control
// request, stamps the destination buffer with the source's identity and
// lets the codec binding snapshot the control state.
func (r *Run) preamble(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.preamble()", r)
	defer func() { logger.Debugf(ctx, "/%s.preamble(): %v", r, _err) }()
	internal.Assert(ctx, r.state == RunStateFresh, "preamble on a ", r.state, " run")

	if r.request != nil {
		r.context.controls.ApplyRequest(ctx, r.request)
	}
	buffer.CopyMetadata(r.src, r.dst, true)

	if missing := r.context.controls.MissingMandatory(ctx); len(missing) > 0 {
		return ErrMissingControls{IDs: missing}
	}
	if binder, ok := r.context.binding.Ops.(ControlBinder); ok {
		if err := binder.BindControls(ctx, r); err != nil {
			return fmt.Errorf("unable to bind the controls: %w", err)
		}
	}
	r.setState(ctx, RunStatePreambleDone)
	return nil
}

func (r *Run) startHW(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.startHW()", r)
	defer func() { logger.Debugf(ctx, "/%s.startHW(): %v", r, _err) }()
	internal.Assert(ctx, r.state == RunStatePreambleDone, "starting the hardware on a ", r.state, " run")

	r.startedAt = time.Now()
	if err := r.context.binding.Ops.Run(ctx, r); err != nil {
		return err
	}
	r.setState(ctx, RunStateHWRunning)
	return nil
}

// postamble completes the attached control request. It also runs for jobs
// that failed before (or instead of) touching the hardware: a queued
// request completes exactly once, no matter how the job ended.
func (r *Run) postamble(ctx context.Context) {
	logger.Debugf(ctx, "%s.postamble()", r)
	defer func() { logger.Debugf(ctx, "/%s.postamble()", r) }()
	internal.Assert(ctx, r.state < RunStatePostambleDone, "postamble on a ", r.state, " run")

	if r.request != nil {
		r.context.controls.CompleteRequest(ctx, r.request)
	}
	r.setState(ctx, RunStatePostambleDone)
}

// retire finishes the buffers of the job and accounts for the outcome.
func (r *Run) retire(ctx context.Context) {
	logger.Debugf(ctx, "%s.retire()", r)
	defer func() { logger.Debugf(ctx, "/%s.retire()", r) }()
	internal.Assert(ctx, r.state == RunStatePostambleDone, "retiring a ", r.state, " run")

	success := r.err == nil && r.irqStatus == hw.IRQStatusDone
	finalState := types.BufferStateError
	if success {
		finalState = types.BufferStateDone
		r.dst.BytesUsed = r.context.binding.DstFormat.FrameSize(r.context.resolution)
	}

	if r.src != nil {
		r.context.srcQueue.Done(ctx, r.src, finalState)
	}
	if r.dst != nil {
		r.context.dstQueue.Done(ctx, r.dst, finalState)
	}

	counters := []*types.RunCounters{&r.context.runCounters, &r.context.device.runCounters}
	for _, c := range counters {
		switch {
		case success:
			c.Completed.Add(1)
		case errors.As(r.err, &ErrWatchdogTimeout{}):
			c.TimedOut.Add(1)
		default:
			c.Failed.Add(1)
		}
	}
	r.setState(ctx, RunStateRetired)
}
