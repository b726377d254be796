// pool.go implements a buffer pool, so that a client pushing thousands of
// frames does not allocate a fresh Data slice for each of them.

package buffer

import (
	"sync"

	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/typing"
)

var ReuseMemory = true

type Pool struct {
	sync.Pool
}

// NewPool returns a pool of buffers whose Data is pre-allocated to
// bufferSize bytes.
func NewPool(bufferSize uint) *Pool {
	return &Pool{
		Pool: sync.Pool{
			New: func() any {
				return &Buffer{
					Data: make([]byte, bufferSize),
				}
			},
		},
	}
}

func (p *Pool) Get() *Buffer {
	return p.Pool.Get().(*Buffer)
}

func (p *Pool) Put(bufs ...*Buffer) {
	if !ReuseMemory {
		return
	}
	for _, buf := range bufs {
		reset(buf)
		p.Pool.Put(buf)
	}
}

func reset(buf *Buffer) {
	buf.BytesUsed = 0
	buf.Timestamp = 0
	buf.Timecode = typing.Optional[types.Timecode]{}
	buf.Flags = 0
	buf.Sequence = 0
	buf.Request = nil
	buf.setState(types.BufferStateDequeued)
}
