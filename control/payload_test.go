package control

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestH264SPSValidate(t *testing.T) {
	require.NoError(t, validSPS().Validate())

	sps := validSPS()
	sps.ChromaFormatIDC = 4
	require.Error(t, sps.Validate())

	sps = validSPS()
	sps.PicOrderCntType = 3
	require.Error(t, sps.Validate())

	sps = validSPS()
	sps.MaxNumRefFrames = 17
	require.Error(t, sps.Validate())
}

func TestH264SPSResolution(t *testing.T) {
	sps := validSPS()
	width, height := sps.Resolution()
	require.Equal(t, uint32(1920), width)
	require.Equal(t, uint32(1088), height)

	sps.Flags &^= H264SPSFlagFrameMBSOnly
	_, height = sps.Resolution()
	require.Equal(t, uint32(2176), height)
}

func TestH264SliceParamsValidate(t *testing.T) {
	require.Error(t, H264SliceParams{}.Validate())
	require.NoError(t, H264SliceParams{{SliceType: H264SliceTypeI}}.Validate())
	require.Error(t, H264SliceParams{{SliceType: 5}}.Validate())
	require.Error(t, H264SliceParams{{SliceType: H264SliceTypeP, CabacInitIDC: 3}}.Validate())
}

func TestH264DecodeParamsValidate(t *testing.T) {
	params := &H264DecodeParams{}
	require.NoError(t, params.Validate())

	params.DPB[3].Flags = H264DPBEntryFlagActive
	require.Error(t, params.Validate())

	params.DPB[3].Flags = H264DPBEntryFlagValid | H264DPBEntryFlagActive
	require.NoError(t, params.Validate())
	require.Equal(t, []int{3}, params.ActiveDPBEntries())
}

func TestH264DecodeModeValidate(t *testing.T) {
	require.NoError(t, H264DecodeModeFrameBased.Validate())
	require.NoError(t, H264DecodeModeSliceBased.Validate())
	require.Error(t, H264DecodeMode(2).Validate())
}

func TestMPEG2SequenceValidate(t *testing.T) {
	seq := &MPEG2Sequence{HorizontalSize: 720, VerticalSize: 576, ChromaFormat: 1}
	require.NoError(t, seq.Validate())

	seq.ChromaFormat = 0
	require.Error(t, seq.Validate())

	seq = &MPEG2Sequence{HorizontalSize: 0, VerticalSize: 576, ChromaFormat: 1}
	require.Error(t, seq.Validate())
}

func TestMPEG2PictureValidate(t *testing.T) {
	pic := &MPEG2Picture{
		PictureCodingType: MPEG2PictureCodingTypeB,
		PictureStructure:  MPEG2PictureStructureFrame,
	}
	require.NoError(t, pic.Validate())
	require.True(t, pic.NeedsForwardRef())
	require.True(t, pic.NeedsBackwardRef())

	pic.PictureCodingType = MPEG2PictureCodingTypeI
	require.False(t, pic.NeedsForwardRef())
	require.False(t, pic.NeedsBackwardRef())

	pic.PictureCodingType = 0
	require.Error(t, pic.Validate())

	pic = &MPEG2Picture{PictureCodingType: MPEG2PictureCodingTypeI}
	require.Error(t, pic.Validate())
}

func TestMPEG2SliceParamsValidate(t *testing.T) {
	params := &MPEG2SliceParams{BitSize: 1024, DataBitOffset: 64}
	require.NoError(t, params.Validate())

	params.DataBitOffset = 2048
	require.Error(t, params.Validate())
}

func TestControlIDStrings(t *testing.T) {
	require.Equal(t, "h264_sps", IDH264SPS.String())
	require.Equal(t, "mpeg2_quantization", IDMPEG2Quantization.String())
	require.Equal(t, "control_0x12345678", ID(0x12345678).String())
}
