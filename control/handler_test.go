package control

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testDeclarations() Declarations {
	return Declarations{
		{ID: IDH264SPS, Mandatory: true},
		{ID: IDH264PPS, Mandatory: true},
		{ID: IDH264DecodeParams, Mandatory: true},
		{ID: IDH264SliceParams, Mandatory: true},
		{ID: IDH264ScalingMatrix},
		{ID: IDH264DecodeMode, Default: H264DecodeModeFrameBased},
	}
}

func validSPS() *H264SPS {
	return &H264SPS{
		ProfileIDC:                100,
		LevelIDC:                  41,
		ChromaFormatIDC:           1,
		PicWidthInMBsMinus1:       119,
		PicHeightInMapUnitsMinus1: 67,
		Flags:                     H264SPSFlagFrameMBSOnly,
	}
}

func TestHandlerDefaults(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	value, err := h.Get(ctx, IDH264DecodeMode)
	require.NoError(t, err)
	require.Equal(t, H264DecodeModeFrameBased, value)

	_, err = h.Get(ctx, IDH264SPS)
	require.ErrorAs(t, err, &ErrControlNotSet{})
}

func TestHandlerRejectsDuplicateDeclarations(t *testing.T) {
	ctx := context.Background()

	_, err := NewHandler(ctx, Declarations{
		{ID: IDH264SPS},
		{ID: IDH264SPS},
	})
	require.ErrorAs(t, err, &ErrDuplicateControl{})
}

func TestHandlerSet(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	require.NoError(t, h.Set(ctx, validSPS()))
	value, err := h.Get(ctx, IDH264SPS)
	require.NoError(t, err)
	require.Equal(t, uint8(100), value.(*H264SPS).ProfileIDC)

	err = h.Set(ctx, &MPEG2Sequence{HorizontalSize: 720, VerticalSize: 576, ChromaFormat: 1})
	require.ErrorAs(t, err, &ErrUnknownControl{})

	err = h.Set(ctx, &H264SPS{ChromaFormatIDC: 7})
	require.ErrorAs(t, err, &ErrInvalidPayload{})
}

func TestHandlerGrab(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	h.Grab(ctx)
	require.True(t, h.IsGrabbed(ctx))
	err = h.Set(ctx, validSPS())
	require.ErrorAs(t, err, &ErrGrabbed{})

	h.Ungrab(ctx)
	require.NoError(t, h.Set(ctx, validSPS()))
}

func TestHandlerMissingMandatory(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)

	missing := h.MissingMandatory(ctx)
	require.Equal(t, []ID{IDH264SPS, IDH264PPS, IDH264DecodeParams, IDH264SliceParams}, missing)

	require.NoError(t, h.Set(ctx, validSPS()))
	require.NoError(t, h.Set(ctx, &H264PPS{}))
	require.NoError(t, h.Set(ctx, &H264DecodeParams{}))
	require.NoError(t, h.Set(ctx, H264SliceParams{{SliceType: H264SliceTypeI}}))
	require.Empty(t, h.MissingMandatory(ctx))
}

func TestHandlerAppliedRequestBypassesGrab(t *testing.T) {
	ctx := context.Background()

	h, err := NewHandler(ctx, testDeclarations())
	require.NoError(t, err)
	h.Grab(ctx)

	req := NewRequest(ctx, h)
	require.NoError(t, req.Set(ctx, validSPS()))
	require.NoError(t, req.MarkQueued(ctx))

	h.ApplyRequest(ctx, req)
	value, ok := h.Current(ctx, IDH264SPS)
	require.True(t, ok)
	require.Equal(t, uint8(100), value.(*H264SPS).ProfileIDC)
}
