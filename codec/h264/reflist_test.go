package h264

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/control"
)

func refEntry(frameNum uint32, poc int32, flags control.H264DPBEntryFlag) control.H264DPBEntry {
	return control.H264DPBEntry{
		FrameNum:            frameNum,
		PicNum:              frameNum,
		TopFieldOrderCnt:    poc,
		BottomFieldOrderCnt: poc,
		Flags:               control.H264DPBEntryFlagValid | control.H264DPBEntryFlagActive | flags,
	}
}

func TestBuildRefPicListP(t *testing.T) {
	params := &control.H264DecodeParams{}
	params.DPB[0] = refEntry(3, 6, 0)
	params.DPB[1] = refEntry(5, 10, 0)
	params.DPB[2] = refEntry(4, 8, 0)
	params.DPB[3] = refEntry(1, 2, control.H264DPBEntryFlagLongTerm)
	params.DPB[5] = refEntry(2, 4, control.H264DPBEntryFlagLongTerm)

	// short-term by descending frame number, then long-term by
	// ascending pic number
	require.Equal(t, []int{1, 2, 0, 3, 5}, BuildRefPicListP(params))
}

func TestBuildRefPicListsB(t *testing.T) {
	params := &control.H264DecodeParams{
		TopFieldOrderCnt:    8,
		BottomFieldOrderCnt: 8,
	}
	params.DPB[0] = refEntry(1, 2, 0)
	params.DPB[1] = refEntry(2, 4, 0)
	params.DPB[2] = refEntry(4, 12, 0)
	params.DPB[3] = refEntry(5, 10, 0)
	params.DPB[4] = refEntry(3, 6, control.H264DPBEntryFlagLongTerm)

	b0, b1 := BuildRefPicListsB(params)
	require.Equal(t, []int{1, 0, 3, 2, 4}, b0)
	require.Equal(t, []int{3, 2, 1, 0, 4}, b1)
}

func TestRefPicListSkipsInactiveEntries(t *testing.T) {
	params := &control.H264DecodeParams{}
	params.DPB[0] = refEntry(1, 2, 0)
	params.DPB[1] = refEntry(7, 14, 0)
	params.DPB[1].Flags = control.H264DPBEntryFlagValid

	require.Equal(t, []int{0}, BuildRefPicListP(params))

	b0, b1 := BuildRefPicListsB(params)
	require.Equal(t, []int{0}, b0)
	require.Equal(t, []int{0}, b1)
}

func TestRefPicListTieBreaksByDPBIndex(t *testing.T) {
	params := &control.H264DecodeParams{}
	params.DPB[2] = refEntry(7, 14, 0)
	params.DPB[6] = refEntry(7, 14, 0)

	require.Equal(t, []int{2, 6}, BuildRefPicListP(params))
}

func TestRefPicListEmptyDPB(t *testing.T) {
	params := &control.H264DecodeParams{}
	require.Empty(t, BuildRefPicListP(params))
	b0, b1 := BuildRefPicListsB(params)
	require.Empty(t, b0)
	require.Empty(t, b1)
}
