package h264

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/control"
)

func TestDeclarations(t *testing.T) {
	ctx := context.Background()
	h, err := control.NewHandler(ctx, Declarations())
	require.NoError(t, err)

	require.Equal(t, []control.ID{
		control.IDH264SPS,
		control.IDH264PPS,
		control.IDH264ScalingMatrix,
		control.IDH264SliceParams,
		control.IDH264DecodeParams,
	}, h.MissingMandatory(ctx))

	payload, err := h.Get(ctx, control.IDH264DecodeMode)
	require.NoError(t, err)
	require.Equal(t, control.H264DecodeModeFrameBased, payload)
}

func TestBindingValidates(t *testing.T) {
	b := NewBinding()
	require.NotNil(t, b.Ops)
	require.True(t, b.SrcFormat.Compressed)
	require.False(t, b.DstFormat.Compressed)
	require.EqualValues(t, control.H264NumDPBEntries+1, b.DstFormat.MinBuffers)
}
