// mpeg2.go defines the control payloads of the stateless MPEG-2 decode
// interface.

package control

import (
	"fmt"
)

type MPEG2SequenceFlag uint32

const (
	MPEG2SequenceFlagProgressive = MPEG2SequenceFlag(1 << iota)
)

// MPEG2Sequence carries the sequence header and sequence extension fields.
type MPEG2Sequence struct {
	HorizontalSize            uint16
	VerticalSize              uint16
	VBVBufferSize             uint32
	ProfileAndLevelIndication uint16
	ChromaFormat              uint8
	Flags                     MPEG2SequenceFlag
}

var _ Payload = (*MPEG2Sequence)(nil)

func (p *MPEG2Sequence) ControlID() ID {
	return IDMPEG2Sequence
}

func (p *MPEG2Sequence) Validate() error {
	if p.HorizontalSize == 0 || p.VerticalSize == 0 {
		return fmt.Errorf("the picture size %dx%d contains a zero dimension", p.HorizontalSize, p.VerticalSize)
	}
	if p.ChromaFormat < 1 || p.ChromaFormat > 3 {
		return fmt.Errorf("chroma_format is %d, must be in 1..3", p.ChromaFormat)
	}
	return nil
}

type MPEG2PictureCodingType uint8

const (
	MPEG2PictureCodingTypeI = MPEG2PictureCodingType(iota + 1)
	MPEG2PictureCodingTypeP
	MPEG2PictureCodingTypeB
	MPEG2PictureCodingTypeD
)

func (t MPEG2PictureCodingType) String() string {
	switch t {
	case MPEG2PictureCodingTypeI:
		return "I"
	case MPEG2PictureCodingTypeP:
		return "P"
	case MPEG2PictureCodingTypeB:
		return "B"
	case MPEG2PictureCodingTypeD:
		return "D"
	}
	return fmt.Sprintf("unexpected_picture_coding_type_%d", uint8(t))
}

type MPEG2PictureStructure uint8

const (
	MPEG2PictureStructureTopField = MPEG2PictureStructure(iota + 1)
	MPEG2PictureStructureBottomField
	MPEG2PictureStructureFrame
)

type MPEG2PictureFlag uint32

const (
	MPEG2PictureFlagTopFieldFirst = MPEG2PictureFlag(1 << iota)
	MPEG2PictureFlagFramePredDCT
	MPEG2PictureFlagConcealmentMV
	MPEG2PictureFlagQScaleType
	MPEG2PictureFlagIntraVLC
	MPEG2PictureFlagAltScan
	MPEG2PictureFlagRepeatFirstField
	MPEG2PictureFlagProgressive
)

// MPEG2Picture carries the picture header and picture coding extension
// fields of the current picture.
type MPEG2Picture struct {
	BackwardRefTimestamp int64
	ForwardRefTimestamp  int64
	FCode                [2][2]uint8
	PictureCodingType    MPEG2PictureCodingType
	PictureStructure     MPEG2PictureStructure
	IntraDCPrecision     uint8
	Flags                MPEG2PictureFlag
}

var _ Payload = (*MPEG2Picture)(nil)

func (p *MPEG2Picture) ControlID() ID {
	return IDMPEG2Picture
}

func (p *MPEG2Picture) Validate() error {
	switch p.PictureCodingType {
	case MPEG2PictureCodingTypeI, MPEG2PictureCodingTypeP, MPEG2PictureCodingTypeB, MPEG2PictureCodingTypeD:
	default:
		return fmt.Errorf("unknown picture_coding_type %d", p.PictureCodingType)
	}
	switch p.PictureStructure {
	case MPEG2PictureStructureTopField, MPEG2PictureStructureBottomField, MPEG2PictureStructureFrame:
	default:
		return fmt.Errorf("unknown picture_structure %d", p.PictureStructure)
	}
	if p.IntraDCPrecision > 3 {
		return fmt.Errorf("intra_dc_precision is %d, must be in 0..3", p.IntraDCPrecision)
	}
	return nil
}

// NeedsForwardRef reports whether the picture predicts from a forward
// reference (P and B pictures do).
func (p *MPEG2Picture) NeedsForwardRef() bool {
	switch p.PictureCodingType {
	case MPEG2PictureCodingTypeP, MPEG2PictureCodingTypeB:
		return true
	}
	return false
}

// NeedsBackwardRef reports whether the picture predicts from a backward
// reference (only B pictures do).
func (p *MPEG2Picture) NeedsBackwardRef() bool {
	return p.PictureCodingType == MPEG2PictureCodingTypeB
}

// MPEG2SliceParams describes the portion of the source buffer occupied by
// the current slice batch.
type MPEG2SliceParams struct {
	BitSize            uint32
	DataBitOffset      uint32
	QuantiserScaleCode uint32
}

var _ Payload = (*MPEG2SliceParams)(nil)

func (p *MPEG2SliceParams) ControlID() ID {
	return IDMPEG2SliceParams
}

func (p *MPEG2SliceParams) Validate() error {
	if p.DataBitOffset > p.BitSize {
		return fmt.Errorf("data_bit_offset %d exceeds bit_size %d", p.DataBitOffset, p.BitSize)
	}
	return nil
}

// MPEG2Quantization carries the four quantization matrices in zigzag scan
// order. A matrix is consumed only if its load flag is set; otherwise the
// default matrix of the standard applies.
type MPEG2Quantization struct {
	LoadIntraQuantiserMatrix          bool
	LoadNonIntraQuantiserMatrix       bool
	LoadChromaIntraQuantiserMatrix    bool
	LoadChromaNonIntraQuantiserMatrix bool

	IntraQuantiserMatrix          [64]uint8
	NonIntraQuantiserMatrix       [64]uint8
	ChromaIntraQuantiserMatrix    [64]uint8
	ChromaNonIntraQuantiserMatrix [64]uint8
}

var _ Payload = (*MPEG2Quantization)(nil)

func (p *MPEG2Quantization) ControlID() ID {
	return IDMPEG2Quantization
}

func (p *MPEG2Quantization) Validate() error {
	return nil
}
