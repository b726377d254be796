package hwsim

// FillDecodePattern writes the simulator's deterministic "decoded
// picture" into dst: a byte-wise expansion of the bitstream payload. It
// is exported so that tests can compute the expected output without
// duplicating the formula.
func FillDecodePattern(src []byte, dst []byte) {
	if len(src) == 0 {
		return
	}
	for idx := range dst {
		dst[idx] = src[idx%len(src)] ^ byte(idx>>8)
	}
}
