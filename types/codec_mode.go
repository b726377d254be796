// codec_mode.go defines the CodecMode enum (the format-identity tag a
// context is opened with).

package types

import "fmt"

// CodecMode identifies which hardware capability set (and thus which
// format adapter) a codec context is bound to.
type CodecMode int

const (
	CodecModeNone = CodecMode(iota)
	CodecModeH264Dec
	CodecModeMPEG2Dec
)

func CodecModes() []CodecMode {
	return []CodecMode{
		CodecModeH264Dec,
		CodecModeMPEG2Dec,
	}
}

func (m CodecMode) String() string {
	switch m {
	case CodecModeNone:
		return "none"
	case CodecModeH264Dec:
		return "h264_dec"
	case CodecModeMPEG2Dec:
		return "mpeg2_dec"
	}
	return fmt.Sprintf("unexpected_codec_mode_%d", int(m))
}
