package m2mcodec

import (
	"fmt"

	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/types"
)

// FrameSizeRange is the resolution window a format supports, with the
// alignment step the hardware requires.
type FrameSizeRange struct {
	Min  types.Resolution
	Max  types.Resolution
	Step types.Resolution
}

// Clamp fits a requested resolution into the range and aligns it down to
// the step, the way a try-format negotiation does.
func (r FrameSizeRange) Clamp(res types.Resolution) types.Resolution {
	clamp := func(v, min, max, step uint32) uint32 {
		if v < min {
			v = min
		}
		if v > max {
			v = max
		}
		if step > 1 {
			v -= (v - min) % step
		}
		return v
	}
	return types.Resolution{
		Width:  clamp(res.Width, r.Min.Width, r.Max.Width, r.Step.Width),
		Height: clamp(res.Height, r.Min.Height, r.Max.Height, r.Step.Height),
	}
}

// Format describes one pixel- or bitstream-format a device can consume or
// produce.
type Format struct {
	FourCC      types.FourCC
	Description string
	// CodecMode is the hardware decode mode a compressed format selects
	// (CodecModeNone for raw formats).
	CodecMode  types.CodecMode
	Compressed bool
	// MinBuffers is how many buffers a client should give the queue at
	// least (e.g. the size of the reference picture buffer plus one).
	MinBuffers uint
	FrameSizes FrameSizeRange
}

func (f Format) String() string {
	return fmt.Sprintf("%s (%s)", f.FourCC, f.Description)
}

// FrameSize returns the per-buffer storage size in bytes at the given
// resolution: the 4:2:0 picture size for raw formats, a worst-case bound
// for one coded frame for compressed ones.
func (f Format) FrameSize(res types.Resolution) int {
	if f.Compressed {
		return int(res.Width) * int(res.Height) * 2
	}
	return int(res.Width) * int(res.Height) * 3 / 2
}

// CodecBinding glues one compressed source format to the Ops that decode
// it and to the controls the codec understands.
type CodecBinding struct {
	SrcFormat Format
	DstFormat Format
	Controls  control.Declarations
	Ops       Ops
}

func (b *CodecBinding) String() string {
	return fmt.Sprintf("binding(%s -> %s)", b.SrcFormat.FourCC, b.DstFormat.FourCC)
}

func (b *CodecBinding) validate() error {
	if b.Ops == nil {
		return fmt.Errorf("%s carries no Ops", b)
	}
	if !b.SrcFormat.Compressed || b.SrcFormat.CodecMode == types.CodecModeNone {
		return fmt.Errorf("%s: the source format must be a compressed one", b)
	}
	if b.DstFormat.Compressed {
		return fmt.Errorf("%s: the destination format must be a raw one", b)
	}
	if err := b.Controls.Validate(); err != nil {
		return fmt.Errorf("%s: %w", b, err)
	}
	return nil
}
