package hw

// Reg is a register offset within the register window of a backend.
type Reg uint32

const (
	// RegControl starts a job (see the Control* bits).
	RegControl = Reg(0x00)
	// RegStatus reports the job state (see the Status* bits).
	RegStatus = Reg(0x04)
	// RegIntEnable masks the completion interrupts (see the Int* bits).
	RegIntEnable = Reg(0x08)
	// RegSrcSize is the bitstream payload size in bytes.
	RegSrcSize = Reg(0x0c)
	// RegPicDims is the coded picture size: width in the upper 16 bits,
	// height in the lower 16.
	RegPicDims = Reg(0x10)
	// RegCodecMode selects the decode mode (the numeric value of a
	// types.CodecMode).
	RegCodecMode = Reg(0x14)
	// RegJobID tags the job for tracing.
	RegJobID = Reg(0x18)
	// RegSliceCount is the number of slices in the bitstream payload.
	RegSliceCount = Reg(0x1c)
)

const (
	ControlStart = uint32(1 << 0)
)

const (
	StatusBusy  = uint32(1 << 0)
	StatusDone  = uint32(1 << 1)
	StatusError = uint32(1 << 2)
)

const (
	IntDone  = uint32(1 << 0)
	IntError = uint32(1 << 1)
)

// PackPicDims encodes a picture size for RegPicDims.
func PackPicDims(width, height uint32) uint32 {
	return (width&0xffff)<<16 | height&0xffff
}

// UnpackPicDims decodes a RegPicDims value.
func UnpackPicDims(value uint32) (width, height uint32) {
	return value >> 16, value & 0xffff
}
