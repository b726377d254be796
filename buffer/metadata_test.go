package buffer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/typing"
)

func TestCopyMetadata(t *testing.T) {
	src := &Buffer{
		Timestamp: 123456789,
		Timecode:  typing.Opt(types.Timecode{Hours: 1, Minutes: 2, Seconds: 3, Frames: 4, FPS: 25}),
		Flags:     FlagKeyFrame,
	}
	dst := &Buffer{Flags: FlagBFrame | FlagLast}

	CopyMetadata(src, dst, true)
	require.Equal(t, int64(123456789), dst.Timestamp)
	require.True(t, dst.Timecode.IsSet())
	require.Equal(t, uint8(25), dst.Timecode.Get().FPS)
	require.Equal(t, FlagKeyFrame|FlagLast, dst.Flags)

	dst = &Buffer{Flags: FlagBFrame}
	CopyMetadata(src, dst, false)
	require.Equal(t, FlagBFrame, dst.Flags)
}

func TestPoolReset(t *testing.T) {
	p := NewPool(64)

	buf := p.Get()
	require.Len(t, buf.Data, 64)
	buf.BytesUsed = 10
	buf.Timestamp = 1000
	buf.Flags = FlagError
	buf.Sequence = 7
	buf.setState(types.BufferStateDone)

	p.Put(buf)
	reused := p.Get()
	require.Equal(t, 0, reused.BytesUsed)
	require.Equal(t, int64(0), reused.Timestamp)
	require.Equal(t, Flags(0), reused.Flags)
	require.Equal(t, types.BufferStateDequeued, reused.State())
}
