package mpeg2

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec"
	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/types"
)

// RunParams is the typed control snapshot the binder captures for one
// job. The payload pointers are non-owning references into the control
// handler; the handler keeps them immutable while the job is in flight.
type RunParams struct {
	Sequence     *control.MPEG2Sequence
	Picture      *control.MPEG2Picture
	SliceParams  *control.MPEG2SliceParams
	Quantization *control.MPEG2Quantization

	// Resolution is the coded frame size: the sequence header when one
	// is set, the negotiated context resolution otherwise.
	Resolution types.Resolution

	// ForwardRef/BackwardRef are the resolved reference pictures; nil
	// when the frame does not use one (or no queued destination carries
	// the referenced timestamp).
	ForwardRef  *buffer.Buffer
	BackwardRef *buffer.Buffer
}

func runParams(run *m2mcodec.Run) *RunParams {
	params, _ := run.CustomData.(*RunParams)
	return params
}

// currentPayload reads one control value and asserts its concrete type.
// An absent control yields the zero value, not an error: whether absence
// is fatal was already decided by the mandatory-control check.
func currentPayload[T control.Payload](
	ctx context.Context,
	c *m2mcodec.Context,
	id control.ID,
) (T, error) {
	var zero T
	payload, ok := c.Controls().Current(ctx, id)
	if !ok {
		return zero, nil
	}
	value, ok := payload.(T)
	if !ok {
		return zero, fmt.Errorf("the %s payload has an unexpected type %T", id, payload)
	}
	return value, nil
}
