package buffer

import (
	"fmt"

	"github.com/xaionaro-go/m2mcodec/types"
)

type ErrBufferBusy struct {
	State types.BufferState
}

func (err ErrBufferBusy) Error() string {
	return fmt.Sprintf("the buffer is %s, it cannot be queued until it finishes", err.State)
}

type ErrQueueFull struct {
	Capacity uint
}

func (err ErrQueueFull) Error() string {
	return fmt.Sprintf("the queue already tracks its maximum of %d buffers", err.Capacity)
}

type ErrPayloadSize struct {
	BytesUsed int
	Capacity  int
}

func (err ErrPayloadSize) Error() string {
	return fmt.Sprintf("the payload size %d does not fit 1..%d", err.BytesUsed, err.Capacity)
}

type ErrRequestOnDestination struct{}

func (ErrRequestOnDestination) Error() string {
	return "control requests can only be attached to source buffers"
}
