// Package h264 implements the H.264 stateless decode binding: the control
// declarations the codec understands, the binder that snapshots them into
// a typed per-job view, and the hardware programming of one decode run.
package h264

import (
	"context"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/m2mcodec"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
)

// Declarations lists the controls of the binding. Everything is
// mandatory: a frame cannot be decoded without its parameter sets; the
// decode mode falls back to a per-frame default.
func Declarations() control.Declarations {
	return control.Declarations{
		{ID: control.IDH264SPS, Mandatory: true},
		{ID: control.IDH264PPS, Mandatory: true},
		{ID: control.IDH264ScalingMatrix, Mandatory: true},
		{ID: control.IDH264SliceParams, Mandatory: true},
		{ID: control.IDH264DecodeParams, Mandatory: true},
		{ID: control.IDH264DecodeMode, Mandatory: true, Default: control.H264DecodeModeFrameBased},
	}
}

// NewBinding returns the S264 -> NV12 decode binding.
func NewBinding() *m2mcodec.CodecBinding {
	return &m2mcodec.CodecBinding{
		SrcFormat: m2mcodec.Format{
			FourCC:      types.FourCCH264Slice,
			Description: "H.264 parsed slices",
			CodecMode:   types.CodecModeH264Dec,
			Compressed:  true,
			MinBuffers:  1,
			FrameSizes: m2mcodec.FrameSizeRange{
				Min:  types.Resolution{Width: 48, Height: 48},
				Max:  types.Resolution{Width: 3840, Height: 2160},
				Step: types.Resolution{Width: 16, Height: 16},
			},
		},
		DstFormat: m2mcodec.Format{
			FourCC:      types.FourCCNV12,
			Description: "Y/CbCr 4:2:0 (2 planes)",
			// enough room for a full DPB plus the frame being decoded
			MinBuffers: control.H264NumDPBEntries + 1,
			FrameSizes: m2mcodec.FrameSizeRange{
				Min:  types.Resolution{Width: 48, Height: 48},
				Max:  types.Resolution{Width: 3840, Height: 2160},
				Step: types.Resolution{Width: 16, Height: 16},
			},
		},
		Controls: Declarations(),
		Ops:      &Decoder{},
	}
}

// Decoder implements the decode Ops on top of the hw register window.
type Decoder struct{}

var _ m2mcodec.Ops = (*Decoder)(nil)
var _ m2mcodec.ControlBinder = (*Decoder)(nil)

func (d *Decoder) String() string {
	return "h264.Decoder"
}

func (d *Decoder) Init(
	ctx context.Context,
	c *m2mcodec.Context,
) (_err error) {
	logger.Debugf(ctx, "%s.Init(ctx, %s)", d, c)
	defer func() { logger.Debugf(ctx, "/%s.Init(ctx, %s): %v", d, c, _err) }()
	// nothing to prepare: the parameter sets arrive per-request, so a
	// stream may legitimately start with an empty control handler
	return nil
}

func (d *Decoder) Exit(
	ctx context.Context,
	c *m2mcodec.Context,
) {
	logger.Debugf(ctx, "%s.Exit(ctx, %s)", d, c)
	defer logger.Debugf(ctx, "/%s.Exit(ctx, %s)", d, c)
}

// BindControls snapshots the control values of the context into a typed
// RunParams and resolves the DPB references against the destination
// queue. The handler is grabbed while streaming, so the snapshot is
// consistent without extra locking.
func (d *Decoder) BindControls(
	ctx context.Context,
	run *m2mcodec.Run,
) (_err error) {
	logger.Debugf(ctx, "%s.BindControls(ctx, %s)", d, run)
	defer func() { logger.Debugf(ctx, "/%s.BindControls(ctx, %s): %v", d, run, _err) }()
	c := run.Context()

	var err error
	params := &RunParams{}
	if params.SPS, err = currentPayload[*control.H264SPS](ctx, c, control.IDH264SPS); err != nil {
		return err
	}
	if params.PPS, err = currentPayload[*control.H264PPS](ctx, c, control.IDH264PPS); err != nil {
		return err
	}
	if params.ScalingMatrix, err = currentPayload[*control.H264ScalingMatrix](ctx, c, control.IDH264ScalingMatrix); err != nil {
		return err
	}
	if params.SliceParams, err = currentPayload[control.H264SliceParams](ctx, c, control.IDH264SliceParams); err != nil {
		return err
	}
	if params.DecodeParams, err = currentPayload[*control.H264DecodeParams](ctx, c, control.IDH264DecodeParams); err != nil {
		return err
	}
	if params.DecodeMode, err = currentPayload[control.H264DecodeMode](ctx, c, control.IDH264DecodeMode); err != nil {
		return err
	}

	width, height := params.SPS.Resolution()
	res := c.Resolution()
	if width > res.Width || height > res.Height {
		return fmt.Errorf("the SPS describes %dx%d which exceeds the negotiated %s", width, height, res)
	}

	for _, idx := range params.DecodeParams.ValidDPBEntries() {
		entry := params.DecodeParams.DPB[idx]
		buf := c.FindDestinationByTimestamp(ctx, entry.ReferenceTimestamp)
		if buf == nil {
			// a lost reference degrades the picture, it does not abort
			// the decode
			logger.Warnf(ctx, "no destination buffer holds the reference with timestamp %d", entry.ReferenceTimestamp)
		}
		params.References = append(params.References, Reference{
			DPBIndex: idx,
			Entry:    entry,
			Buffer:   buf,
		})
	}
	params.RefPicListP = BuildRefPicListP(params.DecodeParams)
	params.RefPicListB0, params.RefPicListB1 = BuildRefPicListsB(params.DecodeParams)
	logger.Tracef(ctx, "run_params: %s", spew.Sdump(params))

	run.CustomData = params
	return nil
}

// Run programs the job into the hardware and arms exactly one start. It
// never blocks: the completion arrives through the IRQ path.
func (d *Decoder) Run(
	ctx context.Context,
	run *m2mcodec.Run,
) (_err error) {
	logger.Debugf(ctx, "%s.Run(ctx, %s)", d, run)
	defer func() { logger.Debugf(ctx, "/%s.Run(ctx, %s): %v", d, run, _err) }()

	params := runParams(run)
	if params == nil {
		return fmt.Errorf("%s carries no bound controls", run)
	}
	src := run.Source()
	dst := run.Destination()
	width, height := params.SPS.Resolution()

	backend := run.Backend()
	backend.AttachJobData(src.Payload(), dst.Data)
	regs := backend.Regs()
	regs.Write32(hw.RegCodecMode, uint32(types.CodecModeH264Dec))
	regs.Write32(hw.RegPicDims, hw.PackPicDims(width, height))
	regs.Write32(hw.RegSrcSize, uint32(src.BytesUsed))
	regs.Write32(hw.RegSliceCount, uint32(len(params.SliceParams)))
	regs.Write32(hw.RegJobID, uint32(run.ID()))
	regs.Write32(hw.RegControl, hw.ControlStart)
	return nil
}

// Reset brings the hardware back to the idle state after a stuck or
// failed job. The backend reset wipes the whole register file, so the
// interrupt mask has to be re-armed.
func (d *Decoder) Reset(
	ctx context.Context,
	c *m2mcodec.Context,
) (_err error) {
	logger.Debugf(ctx, "%s.Reset(ctx, %s)", d, c)
	defer func() { logger.Debugf(ctx, "/%s.Reset(ctx, %s): %v", d, c, _err) }()

	backend := c.Device().Backend()
	if err := backend.Reset(ctx); err != nil {
		return fmt.Errorf("unable to reset %s: %w", backend.Name(), err)
	}
	backend.Regs().Write32(hw.RegIntEnable, hw.IntDone|hw.IntError)
	return nil
}
