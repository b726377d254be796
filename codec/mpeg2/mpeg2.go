// Package mpeg2 implements the MPEG-2 stateless decode binding.
package mpeg2

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

// Declarations lists the controls of the binding. The slice parameters
// and the quantization matrices are what a decode cannot run without;
// the sequence and picture headers refine the frame when present.
func Declarations() control.Declarations {
	return control.Declarations{
		{ID: control.IDMPEG2Sequence},
		{ID: control.IDMPEG2Picture},
		{ID: control.IDMPEG2SliceParams, Mandatory: true},
		{ID: control.IDMPEG2Quantization, Mandatory: true, Default: DefaultQuantization()},
	}
}

// DefaultQuantization returns flat matrices: every coefficient quantised
// the same. It is what applies when the stream never loads matrices of
// its own.
func DefaultQuantization() *control.MPEG2Quantization {
	q := &control.MPEG2Quantization{
		LoadIntraQuantiserMatrix:          true,
		LoadNonIntraQuantiserMatrix:       true,
		LoadChromaIntraQuantiserMatrix:    true,
		LoadChromaNonIntraQuantiserMatrix: true,
	}
	for i := 0; i < 64; i++ {
		q.IntraQuantiserMatrix[i] = 16
		q.NonIntraQuantiserMatrix[i] = 16
		q.ChromaIntraQuantiserMatrix[i] = 16
		q.ChromaNonIntraQuantiserMatrix[i] = 16
	}
	return q
}

// NewBinding returns the MG2S -> NV12 decode binding.
func NewBinding() *m2mcodec.CodecBinding {
	return &m2mcodec.CodecBinding{
		SrcFormat: m2mcodec.Format{
			FourCC:      types.FourCCMPEG2Slice,
			Description: "MPEG-2 parsed slices",
			CodecMode:   types.CodecModeMPEG2Dec,
			Compressed:  true,
			MinBuffers:  1,
			FrameSizes: m2mcodec.FrameSizeRange{
				Min:  types.Resolution{Width: 48, Height: 48},
				Max:  types.Resolution{Width: 1920, Height: 1088},
				Step: types.Resolution{Width: 8, Height: 8},
			},
		},
		DstFormat: m2mcodec.Format{
			FourCC:      types.FourCCNV12,
			Description: "Y/CbCr 4:2:0 (2 planes)",
			// a forward and a backward reference plus the frame being
			// decoded
			MinBuffers: 3,
			FrameSizes: m2mcodec.FrameSizeRange{
				Min:  types.Resolution{Width: 48, Height: 48},
				Max:  types.Resolution{Width: 1920, Height: 1088},
				Step: types.Resolution{Width: 8, Height: 8},
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
	return "mpeg2.Decoder"
}

func (d *Decoder) Init(
	ctx context.Context,
	c *m2mcodec.Context,
) (_err error) {
	logger.Debugf(ctx, "%s.Init(ctx, %s)", d, c)
	defer func() { logger.Debugf(ctx, "/%s.Init(ctx, %s): %v", d, c, _err) }()
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
// RunParams and resolves the reference pictures against the destination
// queue.
func (d *Decoder) BindControls(
	ctx context.Context,
	run *m2mcodec.Run,
) (_err error) {
	logger.Debugf(ctx, "%s.BindControls(ctx, %s)", d, run)
	defer func() { logger.Debugf(ctx, "/%s.BindControls(ctx, %s): %v", d, run, _err) }()
	c := run.Context()

	var err error
	params := &RunParams{}
	if params.Sequence, err = currentPayload[*control.MPEG2Sequence](ctx, c, control.IDMPEG2Sequence); err != nil {
		return err
	}
	if params.Picture, err = currentPayload[*control.MPEG2Picture](ctx, c, control.IDMPEG2Picture); err != nil {
		return err
	}
	if params.SliceParams, err = currentPayload[*control.MPEG2SliceParams](ctx, c, control.IDMPEG2SliceParams); err != nil {
		return err
	}
	if params.Quantization, err = currentPayload[*control.MPEG2Quantization](ctx, c, control.IDMPEG2Quantization); err != nil {
		return err
	}

	params.Resolution = c.Resolution()
	if params.Sequence != nil {
		seqRes := types.Resolution{
			Width:  uint32(params.Sequence.HorizontalSize),
			Height: uint32(params.Sequence.VerticalSize),
		}
		negotiated := c.Resolution()
		if seqRes.Width > negotiated.Width || seqRes.Height > negotiated.Height {
			return fmt.Errorf("the sequence header describes %s which exceeds the negotiated %s", seqRes, negotiated)
		}
		params.Resolution = seqRes
	}

	if params.Picture != nil {
		if params.Picture.NeedsForwardRef() {
			params.ForwardRef = c.FindDestinationByTimestamp(ctx, params.Picture.ForwardRefTimestamp)
			if params.ForwardRef == nil {
				logger.Warnf(ctx, "no destination buffer holds the forward reference with timestamp %d", params.Picture.ForwardRefTimestamp)
			}
		}
		if params.Picture.NeedsBackwardRef() {
			params.BackwardRef = c.FindDestinationByTimestamp(ctx, params.Picture.BackwardRefTimestamp)
			if params.BackwardRef == nil {
				logger.Warnf(ctx, "no destination buffer holds the backward reference with timestamp %d", params.Picture.BackwardRefTimestamp)
			}
		}
	}

	logger.Tracef(ctx, "run_params: %s", spew.Sdump(params))
	run.CustomData = params
	return nil
}

// Run programs the job into the hardware and arms exactly one start.
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

	backend := run.Backend()
	backend.AttachJobData(src.Payload(), dst.Data)
	regs := backend.Regs()
	regs.Write32(hw.RegCodecMode, uint32(types.CodecModeMPEG2Dec))
	regs.Write32(hw.RegPicDims, hw.PackPicDims(params.Resolution.Width, params.Resolution.Height))
	regs.Write32(hw.RegSrcSize, uint32(src.BytesUsed))
	regs.Write32(hw.RegSliceCount, 1)
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
