// dummy_test.go contains a hardware-free Ops implementation for
// exercising the dispatcher.

package m2mcodec

import (
	"context"

	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/types"
)

type DummyOps struct {
	InitFn        func(ctx context.Context, codecCtx *Context) error
	InitCallCount int

	ExitFn        func(ctx context.Context, codecCtx *Context)
	ExitCallCount int

	RunFn        func(ctx context.Context, run *Run) error
	RunCallCount int

	ResetFn        func(ctx context.Context, codecCtx *Context) error
	ResetCallCount int

	BindControlsFn        func(ctx context.Context, run *Run) error
	BindControlsCallCount int
}

var _ Ops = (*DummyOps)(nil)
var _ ControlBinder = (*DummyOps)(nil)

func (d *DummyOps) String() string {
	return "DummyOps"
}

func (d *DummyOps) Init(ctx context.Context, codecCtx *Context) error {
	d.InitCallCount++
	if d.InitFn == nil {
		return nil
	}
	return d.InitFn(ctx, codecCtx)
}

func (d *DummyOps) Exit(ctx context.Context, codecCtx *Context) {
	d.ExitCallCount++
	if d.ExitFn == nil {
		return
	}
	d.ExitFn(ctx, codecCtx)
}

func (d *DummyOps) Run(ctx context.Context, run *Run) error {
	d.RunCallCount++
	if d.RunFn == nil {
		return nil
	}
	return d.RunFn(ctx, run)
}

func (d *DummyOps) Reset(ctx context.Context, codecCtx *Context) error {
	d.ResetCallCount++
	if d.ResetFn == nil {
		return nil
	}
	return d.ResetFn(ctx, codecCtx)
}

func (d *DummyOps) BindControls(ctx context.Context, run *Run) error {
	d.BindControlsCallCount++
	if d.BindControlsFn == nil {
		return nil
	}
	return d.BindControlsFn(ctx, run)
}

// startSimulatorJob programs the registers the way a codec binding would,
// so that the simulator runs the job and delivers a completion IRQ.
func startSimulatorJob(_ context.Context, run *Run) error {
	backend := run.Backend()
	backend.AttachJobData(run.Source().Payload(), run.Destination().Data)

	resolution := run.Context().Resolution()
	regs := backend.Regs()
	regs.Write32(hw.RegCodecMode, uint32(types.CodecModeH264Dec))
	regs.Write32(hw.RegPicDims, hw.PackPicDims(resolution.Width, resolution.Height))
	regs.Write32(hw.RegSrcSize, uint32(run.Source().BytesUsed))
	regs.Write32(hw.RegSliceCount, 1)
	regs.Write32(hw.RegJobID, uint32(run.ID()))
	regs.Write32(hw.RegControl, hw.ControlStart)
	return nil
}
