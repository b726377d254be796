package mpeg2

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/control"
)

func TestDefaultQuantization(t *testing.T) {
	q := DefaultQuantization()
	require.NoError(t, q.Validate())
	require.Equal(t, control.IDMPEG2Quantization, q.ControlID())
	require.True(t, q.LoadIntraQuantiserMatrix)
	require.True(t, q.LoadNonIntraQuantiserMatrix)
	require.True(t, q.LoadChromaIntraQuantiserMatrix)
	require.True(t, q.LoadChromaNonIntraQuantiserMatrix)
	for i := 0; i < 64; i++ {
		require.EqualValues(t, 16, q.IntraQuantiserMatrix[i])
		require.EqualValues(t, 16, q.NonIntraQuantiserMatrix[i])
		require.EqualValues(t, 16, q.ChromaIntraQuantiserMatrix[i])
		require.EqualValues(t, 16, q.ChromaNonIntraQuantiserMatrix[i])
	}
}

func TestDeclarations(t *testing.T) {
	ctx := context.Background()
	h, err := control.NewHandler(ctx, Declarations())
	require.NoError(t, err)

	// the quantization matrices are pre-seeded, the slice parameters
	// are what the client still owes
	require.Equal(t, []control.ID{control.IDMPEG2SliceParams}, h.MissingMandatory(ctx))

	payload, err := h.Get(ctx, control.IDMPEG2Quantization)
	require.NoError(t, err)
	require.Equal(t, DefaultQuantization(), payload)
}

func TestBindingValidates(t *testing.T) {
	b := NewBinding()
	require.NotNil(t, b.Ops)
	require.True(t, b.SrcFormat.Compressed)
	require.False(t, b.DstFormat.Compressed)
	require.EqualValues(t, 3, b.DstFormat.MinBuffers)
}
