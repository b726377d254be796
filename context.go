// context.go implements the per-client codec context: the negotiated
// formats, the control handler and the paired source/destination queues.

package m2mcodec

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/helpers/closuresignaler"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

// Context is one client's handle on a device. Contexts are independent:
// each owns its queues, its control state and its streaming flag; the
// device interleaves their jobs one at a time.
type Context struct {
	Locker xsync.Mutex

	device      *Device
	binding     *CodecBinding
	resolution  types.Resolution
	controls    *control.Handler
	srcQueue    *buffer.Queue
	dstQueue    *buffer.Queue
	closer      *closuresignaler.ClosureSignaler
	runCounters types.RunCounters

	// streaming is guarded by Locker.
	streaming bool

	// scheduled is dispatcher state and is guarded by the device's
	// Locker, not by the context's.
	scheduled bool
}

func (c *Context) String() string {
	return fmt.Sprintf("context%d(%s)", types.GetObjectID(c), c.binding.SrcFormat.FourCC)
}

func (c *Context) Device() *Device {
	return c.device
}

func (c *Context) SourceFormat() Format {
	return c.binding.SrcFormat
}

func (c *Context) DestinationFormat() Format {
	return c.binding.DstFormat
}

func (c *Context) Resolution() types.Resolution {
	return c.resolution
}

// Controls returns the control handler of the context. Values set through
// it directly take effect immediately; use NewRequest to make values take
// effect atomically with a specific source buffer.
func (c *Context) Controls() *control.Handler {
	return c.controls
}

func (c *Context) NewRequest(ctx context.Context) *control.Request {
	return control.NewRequest(ctx, c.controls)
}

// QueueSource hands a bitstream buffer to the runtime. If the buffer
// carries a control request, the request gets queued with it.
func (c *Context) QueueSource(
	ctx context.Context,
	buf *buffer.Buffer,
) (_err error) {
	logger.Debugf(ctx, "%s.QueueSource(ctx, %s)", c, buf)
	defer func() { logger.Debugf(ctx, "/%s.QueueSource(ctx, %s): %v", c, buf, _err) }()

	if c.closer.IsClosed() {
		return ErrContextClosed{}
	}
	if buf.Request != nil {
		if err := buf.Request.MarkQueued(ctx); err != nil {
			return fmt.Errorf("unable to queue the attached request: %w", err)
		}
	}
	if err := c.srcQueue.Enqueue(ctx, buf); err != nil {
		if buf.Request != nil {
			if unqueueErr := buf.Request.Unqueue(ctx); unqueueErr != nil {
				logger.Errorf(ctx, "unable to roll back the request of %s: %v", buf, unqueueErr)
			}
		}
		return err
	}
	c.device.trySchedule(ctx, c)
	return nil
}

// QueueDestination hands a picture buffer to the runtime.
func (c *Context) QueueDestination(
	ctx context.Context,
	buf *buffer.Buffer,
) (_err error) {
	logger.Debugf(ctx, "%s.QueueDestination(ctx, %s)", c, buf)
	defer func() { logger.Debugf(ctx, "/%s.QueueDestination(ctx, %s): %v", c, buf, _err) }()

	if c.closer.IsClosed() {
		return ErrContextClosed{}
	}
	if err := c.dstQueue.Enqueue(ctx, buf); err != nil {
		return err
	}
	c.device.trySchedule(ctx, c)
	return nil
}

func (c *Context) SourceDoneChan() <-chan *buffer.Buffer {
	return c.srcQueue.DoneChan()
}

func (c *Context) DestinationDoneChan() <-chan *buffer.Buffer {
	return c.dstQueue.DoneChan()
}

// DequeueSource waits for the next finished bitstream buffer.
func (c *Context) DequeueSource(ctx context.Context) (*buffer.Buffer, error) {
	return c.dequeue(ctx, c.srcQueue)
}

// DequeueDestination waits for the next finished picture buffer.
func (c *Context) DequeueDestination(ctx context.Context) (*buffer.Buffer, error) {
	return c.dequeue(ctx, c.dstQueue)
}

func (c *Context) dequeue(
	ctx context.Context,
	q *buffer.Queue,
) (*buffer.Buffer, error) {
	select {
	case buf := <-q.DoneChan():
		return buf, nil
	default:
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case buf := <-q.DoneChan():
		return buf, nil
	case <-c.closer.CloseChan():
		// a closed context still drains what already finished
		select {
		case buf := <-q.DoneChan():
			return buf, nil
		default:
			return nil, ErrContextClosed{}
		}
	}
}

// FindDestinationByTimestamp resolves a reference frame: it is how codec
// bindings translate the reference timestamps carried in control payloads
// into picture buffers.
func (c *Context) FindDestinationByTimestamp(
	ctx context.Context,
	timestamp int64,
) *buffer.Buffer {
	return c.dstQueue.FindByTimestamp(ctx, timestamp)
}

// StreamOn starts the context: the controls get grabbed, the codec
// binding initializes, and the context becomes schedulable.
func (c *Context) StreamOn(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.StreamOn()", c)
	defer func() { logger.Debugf(ctx, "/%s.StreamOn(): %v", c, _err) }()

	if c.closer.IsClosed() {
		return ErrContextClosed{}
	}
	if err := xsync.DoA1R1(ctx, &c.Locker, c.streamOn, ctx); err != nil {
		return err
	}
	c.device.trySchedule(ctx, c)
	return nil
}

func (c *Context) streamOn(ctx context.Context) error {
	if c.streaming {
		return ErrAlreadyStreaming{}
	}
	c.srcQueue.ResetSequence(ctx)
	c.dstQueue.ResetSequence(ctx)
	c.controls.Grab(ctx)
	if err := c.binding.Ops.Init(ctx, c); err != nil {
		c.controls.Ungrab(ctx)
		return fmt.Errorf("unable to initialize %s: %w", c.binding, err)
	}
	c.streaming = true
	return nil
}

// StreamOff stops the context: it waits for the in-flight job (if any),
// flushes both queues with the error state, completes the requests that
// never ran and lets the codec binding tear down. The control values
// survive for the next StreamOn.
func (c *Context) StreamOff(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.StreamOff()", c)
	defer func() { logger.Debugf(ctx, "/%s.StreamOff(): %v", c, _err) }()
	ctx = xcontext.DetachDone(ctx)

	if err := xsync.DoR1(ctx, &c.Locker, func() error {
		if !c.streaming {
			return ErrNotStreaming{}
		}
		c.streaming = false
		return nil
	}); err != nil {
		return err
	}

	c.device.cancelJob(ctx, c)
	for _, buf := range c.srcQueue.Flush(ctx) {
		if buf.Request != nil {
			c.controls.CompleteRequest(ctx, buf.Request)
		}
	}
	c.dstQueue.Flush(ctx)

	c.Locker.Do(ctx, func() {
		c.binding.Ops.Exit(ctx, c)
		c.controls.Ungrab(ctx)
	})
	return nil
}

// Close releases the context. It is safe to call more than once.
func (c *Context) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.Close()", c)
	defer func() { logger.Debugf(ctx, "/%s.Close(): %v", c, _err) }()

	if c.closer.IsClosed() {
		return nil
	}
	c.closer.Close(ctx)

	if xsync.DoR1(ctx, &c.Locker, func() bool { return c.streaming }) {
		if err := c.StreamOff(ctx); err != nil {
			logger.Errorf(ctx, "unable to stop streaming on %s: %v", c, err)
		}
	}
	c.device.removeContext(ctx, c)
	return nil
}

func (c *Context) IsClosed() bool {
	return c.closer.IsClosed()
}

// isRunnable reports whether the dispatcher may pick the context: it is
// streaming and both queues have work. Called with the device's Locker
// held.
func (c *Context) isRunnable(ctx context.Context) bool {
	if c.closer.IsClosed() {
		return false
	}
	if !xsync.DoR1(ctx, &c.Locker, func() bool { return c.streaming }) {
		return false
	}
	return c.srcQueue.PendingCount(ctx) > 0 && c.dstQueue.PendingCount(ctx) > 0
}

func (c *Context) GetStats() ContextStatistics {
	return ContextStatistics{
		Source:      c.srcQueue.GetStats(),
		Destination: c.dstQueue.GetStats(),
		Runs:        c.runCounters.ToStats(),
	}
}
