package buffer

// CopyMetadata propagates the frame identity from a source buffer to the
// destination buffer it is paired with. It runs at job start, not at job
// end, so that controls of a follow-up frame can already reference the
// destination buffer by timestamp while it is still being decoded.
func CopyMetadata(src, dst *Buffer, copyFrameFlags bool) {
	dst.Timestamp = src.Timestamp
	dst.Timecode = src.Timecode
	if copyFrameFlags {
		dst.Flags &^= frameTypeFlags
		dst.Flags |= src.Flags & frameTypeFlags
	}
}
