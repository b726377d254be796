package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFourCCPacking(t *testing.T) {
	require.Equal(t, FourCC(0x34363253), FourCCH264Slice)
	require.Equal(t, FourCC(0x5332474d), FourCCMPEG2Slice)
}

func TestFourCCString(t *testing.T) {
	require.Equal(t, "S264", FourCCH264Slice.String())
	require.Equal(t, "MG2S", FourCCMPEG2Slice.String())
	require.Equal(t, "NV12", FourCCNV12.String())
	require.Equal(t, "0x00000001", FourCC(1).String())
}

func TestResolutionMacroblockAlign(t *testing.T) {
	require.Equal(
		t,
		Resolution{Width: 1920, Height: 1088},
		Resolution{Width: 1920, Height: 1080}.MacroblockAlign(16),
	)
	require.Equal(
		t,
		Resolution{Width: 48, Height: 48},
		Resolution{Width: 33, Height: 48}.MacroblockAlign(16),
	)
}
