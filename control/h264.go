// h264.go defines the control payloads of the stateless H.264 decode
// interface. The field set mirrors what an H.264 slice decoder needs to be
// told per frame; parsing the bitstream to obtain these values is the
// client's job, not ours.

package control

import (
	"fmt"
)

const (
	// H264NumDPBEntries is the size of the decoded-picture-buffer table in
	// H264DecodeParams.
	H264NumDPBEntries = 16

	// H264NumRefPicEntries is the size of the per-slice reference picture
	// lists.
	H264NumRefPicEntries = 32
)

type H264SPSFlag uint32

const (
	H264SPSFlagSeparateColourPlane = H264SPSFlag(1 << iota)
	H264SPSFlagQPPrimeYZeroTransformBypass
	H264SPSFlagDeltaPicOrderAlwaysZero
	H264SPSFlagGapsInFrameNumValueAllowed
	H264SPSFlagFrameMBSOnly
	H264SPSFlagMBAdaptiveFrameField
	H264SPSFlagDirect8x8Inference
)

// H264SPS is the active sequence parameter set.
type H264SPS struct {
	ProfileIDC                     uint8
	ConstraintSetFlags             uint8
	LevelIDC                       uint8
	SeqParameterSetID              uint8
	ChromaFormatIDC                uint8
	BitDepthLumaMinus8             uint8
	BitDepthChromaMinus8           uint8
	Log2MaxFrameNumMinus4          uint8
	PicOrderCntType                uint8
	Log2MaxPicOrderCntLSBMinus4    uint8
	MaxNumRefFrames                uint8
	NumRefFramesInPicOrderCntCycle uint8
	OffsetForRefFrame              [255]int32
	OffsetForNonRefPic             int32
	OffsetForTopToBottomField      int32
	PicWidthInMBsMinus1            uint16
	PicHeightInMapUnitsMinus1      uint16
	Flags                          H264SPSFlag
}

var _ Payload = (*H264SPS)(nil)

func (p *H264SPS) ControlID() ID {
	return IDH264SPS
}

func (p *H264SPS) Validate() error {
	if p.ChromaFormatIDC > 3 {
		return fmt.Errorf("chroma_format_idc is %d, must be in 0..3", p.ChromaFormatIDC)
	}
	if p.PicOrderCntType > 2 {
		return fmt.Errorf("pic_order_cnt_type is %d, must be in 0..2", p.PicOrderCntType)
	}
	if p.Log2MaxFrameNumMinus4 > 12 {
		return fmt.Errorf("log2_max_frame_num_minus4 is %d, must be in 0..12", p.Log2MaxFrameNumMinus4)
	}
	if p.Log2MaxPicOrderCntLSBMinus4 > 12 {
		return fmt.Errorf("log2_max_pic_order_cnt_lsb_minus4 is %d, must be in 0..12", p.Log2MaxPicOrderCntLSBMinus4)
	}
	if p.MaxNumRefFrames > H264NumDPBEntries {
		return fmt.Errorf("max_num_ref_frames is %d, must not exceed %d", p.MaxNumRefFrames, H264NumDPBEntries)
	}
	return nil
}

// Resolution returns the coded picture size in pixels (macroblock-aligned
// by construction).
func (p *H264SPS) Resolution() (width, height uint32) {
	width = (uint32(p.PicWidthInMBsMinus1) + 1) * 16
	height = (uint32(p.PicHeightInMapUnitsMinus1) + 1) * 16
	if p.Flags&H264SPSFlagFrameMBSOnly == 0 {
		height *= 2
	}
	return
}

type H264PPSFlag uint32

const (
	H264PPSFlagEntropyCodingMode = H264PPSFlag(1 << iota)
	H264PPSFlagBottomFieldPicOrderInFramePresent
	H264PPSFlagWeightedPred
	H264PPSFlagDeblockingFilterControlPresent
	H264PPSFlagConstrainedIntraPred
	H264PPSFlagRedundantPicCntPresent
	H264PPSFlagTransform8x8Mode
	H264PPSFlagScalingMatrixPresent
)

// H264PPS is the active picture parameter set.
type H264PPS struct {
	PicParameterSetID             uint8
	SeqParameterSetID             uint8
	NumRefIdxL0DefaultActiveMinus1 uint8
	NumRefIdxL1DefaultActiveMinus1 uint8
	WeightedBipredIDC             uint8
	PicInitQPMinus26              int8
	PicInitQSMinus26              int8
	ChromaQPIndexOffset           int8
	SecondChromaQPIndexOffset     int8
	Flags                         H264PPSFlag
}

var _ Payload = (*H264PPS)(nil)

func (p *H264PPS) ControlID() ID {
	return IDH264PPS
}

func (p *H264PPS) Validate() error {
	if p.WeightedBipredIDC > 2 {
		return fmt.Errorf("weighted_bipred_idc is %d, must be in 0..2", p.WeightedBipredIDC)
	}
	if v := p.NumRefIdxL0DefaultActiveMinus1; v > 31 {
		return fmt.Errorf("num_ref_idx_l0_default_active_minus1 is %d, must be in 0..31", v)
	}
	if v := p.NumRefIdxL1DefaultActiveMinus1; v > 31 {
		return fmt.Errorf("num_ref_idx_l1_default_active_minus1 is %d, must be in 0..31", v)
	}
	return nil
}

// H264ScalingMatrix carries the (inverse-scan-ordered) scaling lists.
type H264ScalingMatrix struct {
	ScalingList4x4 [6][16]uint8
	ScalingList8x8 [6][64]uint8
}

var _ Payload = (*H264ScalingMatrix)(nil)

func (p *H264ScalingMatrix) ControlID() ID {
	return IDH264ScalingMatrix
}

func (p *H264ScalingMatrix) Validate() error {
	return nil
}

type H264SliceType uint8

const (
	H264SliceTypeP = H264SliceType(iota)
	H264SliceTypeB
	H264SliceTypeI
	H264SliceTypeSP
	H264SliceTypeSI
)

func (t H264SliceType) String() string {
	switch t {
	case H264SliceTypeP:
		return "P"
	case H264SliceTypeB:
		return "B"
	case H264SliceTypeI:
		return "I"
	case H264SliceTypeSP:
		return "SP"
	case H264SliceTypeSI:
		return "SI"
	}
	return fmt.Sprintf("unexpected_slice_type_%d", uint8(t))
}

type H264ReferenceField uint8

const (
	H264ReferenceFieldTop = H264ReferenceField(1 << iota)
	H264ReferenceFieldBottom
)

// H264Reference points into the DPB table of H264DecodeParams.
type H264Reference struct {
	Index  uint8
	Fields H264ReferenceField
}

type H264SliceFlag uint32

const (
	H264SliceFlagDirectSpatialMVPred = H264SliceFlag(1 << iota)
	H264SliceFlagSPForSwitch
)

// H264SliceParam describes one slice of the current frame. The control is
// array-valued: one element per slice submitted in the source buffer.
type H264SliceParam struct {
	HeaderBitSize              uint32
	FirstMBInSlice             uint32
	SliceType                  H264SliceType
	ColourPlaneID              uint8
	RedundantPicCnt            uint8
	CabacInitIDC               uint8
	SliceQPDelta               int8
	SliceQSDelta               int8
	DisableDeblockingFilterIDC uint8
	SliceAlphaC0OffsetDiv2     int8
	SliceBetaOffsetDiv2        int8
	NumRefIdxL0ActiveMinus1    uint8
	NumRefIdxL1ActiveMinus1    uint8
	RefPicList0                [H264NumRefPicEntries]H264Reference
	RefPicList1                [H264NumRefPicEntries]H264Reference
	Flags                      H264SliceFlag
}

func (p *H264SliceParam) validate(sliceIdx int) error {
	if p.SliceType > H264SliceTypeSI {
		return fmt.Errorf("slice #%d: unknown slice_type %d", sliceIdx, p.SliceType)
	}
	if p.CabacInitIDC > 2 {
		return fmt.Errorf("slice #%d: cabac_init_idc is %d, must be in 0..2", sliceIdx, p.CabacInitIDC)
	}
	if p.DisableDeblockingFilterIDC > 2 {
		return fmt.Errorf("slice #%d: disable_deblocking_filter_idc is %d, must be in 0..2", sliceIdx, p.DisableDeblockingFilterIDC)
	}
	return nil
}

// H264SliceParams is the array-valued slice parameters control.
type H264SliceParams []H264SliceParam

var _ Payload = (H264SliceParams)(nil)

func (p H264SliceParams) ControlID() ID {
	return IDH264SliceParams
}

func (p H264SliceParams) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("a frame consists of at least one slice")
	}
	for idx := range p {
		if err := p[idx].validate(idx); err != nil {
			return err
		}
	}
	return nil
}

type H264DPBEntryFlag uint32

const (
	H264DPBEntryFlagValid = H264DPBEntryFlag(1 << iota)
	H264DPBEntryFlagActive
	H264DPBEntryFlagLongTerm
	H264DPBEntryFlagFieldPicture
)

// H264DPBEntry describes one reference picture. ReferenceTimestamp is the
// timestamp of the destination buffer that holds the decoded picture; the
// runtime resolves it against the destination queue.
type H264DPBEntry struct {
	ReferenceTimestamp  int64
	FrameNum            uint32
	PicNum              uint32
	TopFieldOrderCnt    int32
	BottomFieldOrderCnt int32
	Flags               H264DPBEntryFlag
}

// PicOrderCnt returns the picture order count of the entry as a whole
// picture (the lowest of the field POCs for field pairs).
func (e *H264DPBEntry) PicOrderCnt() int32 {
	if e.BottomFieldOrderCnt < e.TopFieldOrderCnt {
		return e.BottomFieldOrderCnt
	}
	return e.TopFieldOrderCnt
}

type H264DecodeParamsFlag uint32

const (
	H264DecodeParamsFlagIDRPic = H264DecodeParamsFlag(1 << iota)
	H264DecodeParamsFlagFieldPic
	H264DecodeParamsFlagBottomField
)

// H264DecodeParams is the per-frame decode parameters control.
type H264DecodeParams struct {
	DPB                     [H264NumDPBEntries]H264DPBEntry
	NALRefIDC               uint16
	FrameNum                uint16
	TopFieldOrderCnt        int32
	BottomFieldOrderCnt     int32
	IDRPicID                uint16
	PicOrderCntLSB          uint16
	DeltaPicOrderCntBottom  int32
	DeltaPicOrderCnt0       int32
	DeltaPicOrderCnt1       int32
	DecRefPicMarkingBitSize uint32
	PicOrderCntBitSize      uint32
	SliceGroupChangeCycle   uint32
	Flags                   H264DecodeParamsFlag
}

var _ Payload = (*H264DecodeParams)(nil)

func (p *H264DecodeParams) ControlID() ID {
	return IDH264DecodeParams
}

func (p *H264DecodeParams) Validate() error {
	for idx := range p.DPB {
		entry := &p.DPB[idx]
		if entry.Flags&H264DPBEntryFlagActive != 0 && entry.Flags&H264DPBEntryFlagValid == 0 {
			return fmt.Errorf("dpb entry #%d is marked active but not valid", idx)
		}
	}
	return nil
}

// PicOrderCnt returns the picture order count of the current frame (the
// lowest of the field POCs, same as H264DPBEntry.PicOrderCnt).
func (p *H264DecodeParams) PicOrderCnt() int32 {
	if p.BottomFieldOrderCnt < p.TopFieldOrderCnt {
		return p.BottomFieldOrderCnt
	}
	return p.TopFieldOrderCnt
}

// ActiveDPBEntries returns the indexes of the DPB entries usable as
// references for the current frame.
func (p *H264DecodeParams) ActiveDPBEntries() []int {
	var result []int
	for idx := range p.DPB {
		if p.DPB[idx].Flags&H264DPBEntryFlagActive != 0 {
			result = append(result, idx)
		}
	}
	return result
}

// ValidDPBEntries returns the indexes of the DPB entries that hold a
// decoded reference picture, whether or not the current frame uses it.
func (p *H264DecodeParams) ValidDPBEntries() []int {
	var result []int
	for idx := range p.DPB {
		if p.DPB[idx].Flags&H264DPBEntryFlagValid != 0 {
			result = append(result, idx)
		}
	}
	return result
}

// H264DecodeMode selects whether the hardware consumes whole frames or
// individual slices per run.
type H264DecodeMode int32

const (
	H264DecodeModeSliceBased = H264DecodeMode(iota)
	H264DecodeModeFrameBased
)

var _ Payload = (H264DecodeMode)(0)

func (m H264DecodeMode) ControlID() ID {
	return IDH264DecodeMode
}

func (m H264DecodeMode) Validate() error {
	switch m {
	case H264DecodeModeSliceBased, H264DecodeModeFrameBased:
		return nil
	}
	return fmt.Errorf("unknown decode mode %d", int32(m))
}

func (m H264DecodeMode) String() string {
	switch m {
	case H264DecodeModeSliceBased:
		return "slice_based"
	case H264DecodeModeFrameBased:
		return "frame_based"
	}
	return fmt.Sprintf("unexpected_decode_mode_%d", int32(m))
}
