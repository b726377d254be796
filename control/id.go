// Package control implements the codec control plane: typed parameter
// payloads, per-context control handlers and transactional control
// requests. Controls describe everything the hardware needs to know about
// a frame besides the bitstream itself.
package control

import (
	"fmt"
)

// ID identifies a control. The values follow the numbering of the codec
// control class so that logs and traces line up with what existing tooling
// expects.
type ID uint32

const codecClassBase = ID(0x00990900)

const (
	IDMPEG2Sequence     = codecClassBase + 220
	IDMPEG2Picture      = codecClassBase + 221
	IDMPEG2SliceParams  = codecClassBase + 250
	IDMPEG2Quantization = codecClassBase + 251

	IDH264SPS           = codecClassBase + 383
	IDH264PPS           = codecClassBase + 384
	IDH264ScalingMatrix = codecClassBase + 385
	IDH264SliceParams   = codecClassBase + 386
	IDH264DecodeParams  = codecClassBase + 387
	IDH264DecodeMode    = codecClassBase + 388
)

func (id ID) String() string {
	switch id {
	case IDMPEG2Sequence:
		return "mpeg2_sequence"
	case IDMPEG2Picture:
		return "mpeg2_picture"
	case IDMPEG2SliceParams:
		return "mpeg2_slice_params"
	case IDMPEG2Quantization:
		return "mpeg2_quantization"
	case IDH264SPS:
		return "h264_sps"
	case IDH264PPS:
		return "h264_pps"
	case IDH264ScalingMatrix:
		return "h264_scaling_matrix"
	case IDH264SliceParams:
		return "h264_slice_params"
	case IDH264DecodeParams:
		return "h264_decode_params"
	case IDH264DecodeMode:
		return "h264_decode_mode"
	}
	return fmt.Sprintf("control_0x%08x", uint32(id))
}
