package types

import (
	"fmt"
)

// FourCC is a four-character pixel/bitstream format code, packed
// little-endian the way the original user-space ABI packs it.
type FourCC uint32

func NewFourCC(a, b, c, d byte) FourCC {
	return FourCC(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	// FourCCH264Slice: H.264 parsed slice data (Annex B NALs without start
	// codes, pre-parsed by the client).
	FourCCH264Slice = NewFourCC('S', '2', '6', '4')
	// FourCCMPEG2Slice: MPEG-2 parsed slice data.
	FourCCMPEG2Slice = NewFourCC('M', 'G', '2', 'S')
	// FourCCNV12: 2-plane Y/CbCr 4:2:0, the decoded destination format.
	FourCCNV12 = NewFourCC('N', 'V', '1', '2')
)

func (f FourCC) String() string {
	result := make([]byte, 0, 4)
	for i := 0; i < 4; i++ {
		ch := byte(f >> (8 * i))
		if ch < 0x20 || ch >= 0x7f {
			return fmt.Sprintf("0x%08X", uint32(f))
		}
		result = append(result, ch)
	}
	return string(result)
}
