package h264

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec"
	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/control"
)

// RunParams is the typed control snapshot the binder captures for one
// job. The payload pointers are non-owning references into the control
// handler; the handler keeps them immutable while the job is in flight.
type RunParams struct {
	SPS           *control.H264SPS
	PPS           *control.H264PPS
	ScalingMatrix *control.H264ScalingMatrix
	SliceParams   control.H264SliceParams
	DecodeParams  *control.H264DecodeParams
	DecodeMode    control.H264DecodeMode

	// References are the resolved DPB entries; RefPicList* index into
	// DecodeParams.DPB.
	References   []Reference
	RefPicListP  []int
	RefPicListB0 []int
	RefPicListB1 []int
}

// Reference pairs a DPB entry with the destination buffer that holds the
// decoded picture. Buffer is nil when no queued destination carries the
// referenced timestamp.
type Reference struct {
	DPBIndex int
	Entry    control.H264DPBEntry
	Buffer   *buffer.Buffer
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
