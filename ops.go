// ops.go defines the contract between the runtime and the codec bindings:
// the runtime owns scheduling, queues and requests, a binding owns
// everything the specific bitstream format requires.

package m2mcodec

import (
	"context"
)

// Ops is implemented by a codec binding. All of the callbacks are invoked
// by the runtime with the job serialization already taken care of: at most
// one Run per device is between Run() and its completion IRQ.
type Ops interface {
	// Init prepares the per-context state of the codec. It is invoked
	// when the context starts streaming.
	Init(ctx context.Context, codecCtx *Context) error

	// Exit releases what Init prepared. It is invoked when the context
	// stops streaming.
	Exit(ctx context.Context, codecCtx *Context)

	// Run programs the hardware for one job and starts it. After Run
	// returns successfully the runtime waits for the completion IRQ.
	Run(ctx context.Context, run *Run) error

	// Reset brings the hardware back into an idle state after a failed
	// or timed-out job.
	Reset(ctx context.Context, codecCtx *Context) error
}

// ControlBinder is optionally implemented by an Ops. When it is, the
// runtime invokes BindControls during the job preamble (after the
// attached control request got applied and after the mandatory-control
// check passed), which is where a binding snapshots the control values
// into its typed per-run view (see Run.CustomData).
type ControlBinder interface {
	BindControls(ctx context.Context, run *Run) error
}

/* for easier copy&paste:

func (*) Init(ctx context.Context, codecCtx *m2mcodec.Context) error {

}

func (*) Exit(ctx context.Context, codecCtx *m2mcodec.Context) {

}

func (*) Run(ctx context.Context, run *m2mcodec.Run) error {

}

func (*) Reset(ctx context.Context, codecCtx *m2mcodec.Context) error {

}

*/
