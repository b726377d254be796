// Package buffer implements the data plane of the codec runtime: buffers,
// the paired FIFO queues a codec context owns, and a pool for cheap buffer
// reuse. Source buffers carry the bitstream into the hardware, destination
// buffers carry decoded pictures out.
package buffer

import (
	"fmt"
	"sync/atomic"

	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/typing"
)

type Flags uint32

const (
	FlagKeyFrame = Flags(1 << iota)
	FlagPFrame
	FlagBFrame
	FlagError
	FlagLast
)

const frameTypeFlags = FlagKeyFrame | FlagPFrame | FlagBFrame

func (f Flags) String() string {
	result := ""
	add := func(flag Flags, name string) {
		if f&flag == 0 {
			return
		}
		if result != "" {
			result += "|"
		}
		result += name
	}
	add(FlagKeyFrame, "key")
	add(FlagPFrame, "p")
	add(FlagBFrame, "b")
	add(FlagError, "error")
	add(FlagLast, "last")
	if result == "" {
		return "none"
	}
	return result
}

// Buffer is one exchange unit between a client and the codec runtime.
//
// While the buffer sits in a queue (state Queued or Active), it is owned
// by the runtime and the client must not touch it; ownership comes back
// with the delivery through the queue's done channel.
type Buffer struct {
	// Data is the backing storage. For a source buffer the first
	// BytesUsed bytes are the bitstream payload; for a destination buffer
	// the runtime sets BytesUsed to the size of the produced picture.
	Data      []byte
	BytesUsed int

	// Timestamp (in nanoseconds) identifies the frame. The runtime copies
	// it from the source buffer to the paired destination buffer, which is
	// also how inter-frame references are resolved.
	Timestamp int64
	Timecode  typing.Optional[types.Timecode]
	Flags     Flags

	// Sequence is a per-queue counter stamped when the buffer finishes.
	Sequence uint32

	// Request optionally attaches a control request to a source buffer.
	Request *control.Request

	state atomic.Int32
}

func (b *Buffer) String() string {
	return fmt.Sprintf("buffer{ts:%d,seq:%d,state:%s}", b.Timestamp, b.Sequence, b.State())
}

func (b *Buffer) State() types.BufferState {
	return types.BufferState(b.state.Load())
}

func (b *Buffer) setState(state types.BufferState) {
	b.state.Store(int32(state))
}

// Payload returns the used portion of Data.
func (b *Buffer) Payload() []byte {
	return b.Data[:b.BytesUsed]
}
