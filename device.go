// device.go implements the codec device: the hardware handle, the table
// of codec bindings and the dispatcher state shared by every context
// opened on the device.

package m2mcodec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astikit"
	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/go-ng/xatomic"
	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/helpers/closuresignaler"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

const (
	// DefaultWatchdogTimeout bounds how long a hardware job may stay
	// running before the dispatcher declares it stuck and resets the
	// core.
	DefaultWatchdogTimeout = 2 * time.Second

	// DefaultQueueCapacity is how many buffers a single queue admits.
	DefaultQueueCapacity = uint(32)
)

// Device is one decoder hardware instance together with its dispatcher.
// Any number of contexts may be opened on a device; their jobs execute
// one at a time, in the order the contexts became runnable.
//
// The dispatcher itself runs inside Serve; nothing decodes until Serve
// is running.
type Device struct {
	// WatchdogTimeout may be changed at any moment; it takes effect
	// starting with the next job.
	WatchdogTimeout atomic.Duration

	Locker          xsync.Mutex
	backend         hw.Backend
	bindings        []*CodecBinding
	queueCapacity   uint
	closer          *astikit.Closer
	closedSignaler  *closuresignaler.ClosureSignaler
	contexts        map[*Context]struct{}
	runnable        []*Context
	active          *Run
	wakeCh          chan struct{}
	irqCh           chan hw.IRQStatus
	nextJobID       atomic.Uint64
	runCounters     types.RunCounters
	isServing       bool
	jobFinishedChan *chan struct{}
}

// NewDevice wraps a hardware backend. It raises the clock to the
// configured rate (the maximum one if the config does not say
// otherwise), installs the IRQ handler and unmasks the completion
// interrupts.
func NewDevice(
	ctx context.Context,
	backend hw.Backend,
	cfg Config,
	bindings ...*CodecBinding,
) (_ret *Device, _err error) {
	logger.Debugf(ctx, "NewDevice(ctx, %s, %d bindings)", backend.Name(), len(bindings))
	defer func() { logger.Debugf(ctx, "/NewDevice(ctx, %s): %v %v", backend.Name(), _ret, _err) }()

	cfg = cfg.withDefaults()
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no codec bindings provided")
	}
	seen := map[types.FourCC]struct{}{}
	for _, b := range bindings {
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("unable to use the binding %s: %w", b, err)
		}
		if _, ok := seen[b.SrcFormat.FourCC]; ok {
			return nil, fmt.Errorf("duplicate binding for %s", b.SrcFormat.FourCC)
		}
		seen[b.SrcFormat.FourCC] = struct{}{}
	}

	d := &Device{
		backend:         backend,
		bindings:        bindings,
		queueCapacity:   cfg.QueueCapacity,
		closer:          astikit.NewCloser(),
		closedSignaler:  closuresignaler.New(),
		contexts:        map[*Context]struct{}{},
		wakeCh:          make(chan struct{}, 1),
		irqCh:           make(chan hw.IRQStatus, 2),
		jobFinishedChan: ptr(make(chan struct{})),
	}
	d.WatchdogTimeout.Store(cfg.WatchdogTimeout)

	clockRate := cfg.ClockRateHz
	if clockRate == 0 {
		clockRate = backend.MaxClockRate()
	}
	if err := backend.SetClockRate(ctx, clockRate); err != nil {
		return nil, fmt.Errorf("unable to set the clock rate of %s to %dHz: %w", backend.Name(), clockRate, err)
	}

	backend.SetIRQHandler(d.onIRQ)
	backend.Regs().Write32(hw.RegIntEnable, hw.IntDone|hw.IntError)

	d.closer.Add(func() {
		errmon.ObserveErrorCtx(ctx, backend.Close(ctx))
	})
	return d, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("device(%s)", d.backend.Name())
}

func (d *Device) Backend() hw.Backend {
	return d.backend
}

// Formats lists the formats the device supports on the given queue
// direction.
func (d *Device) Formats(direction buffer.Direction) []Format {
	var result []Format
	seen := map[types.FourCC]struct{}{}
	for _, b := range d.bindings {
		f := b.SrcFormat
		if direction == buffer.DirectionDestination {
			f = b.DstFormat
		}
		if _, ok := seen[f.FourCC]; ok {
			continue
		}
		seen[f.FourCC] = struct{}{}
		result = append(result, f)
	}
	return result
}

func (d *Device) findBinding(fourCC types.FourCC) *CodecBinding {
	for _, b := range d.bindings {
		if b.SrcFormat.FourCC == fourCC {
			return b
		}
	}
	return nil
}

// OpenContext opens a codec context for the given bitstream format. The
// requested resolution gets clamped into the window the format
// supports; check Context.Resolution for the negotiated value.
func (d *Device) OpenContext(
	ctx context.Context,
	fourCC types.FourCC,
	resolution types.Resolution,
) (_ret *Context, _err error) {
	logger.Debugf(ctx, "%s.OpenContext(ctx, %s, %s)", d, fourCC, resolution)
	defer func() {
		logger.Debugf(ctx, "/%s.OpenContext(ctx, %s, %s): %v %v", d, fourCC, resolution, _ret, _err)
	}()

	binding := d.findBinding(fourCC)
	if binding == nil {
		return nil, ErrUnsupportedFormat{FourCC: fourCC}
	}
	negotiated := binding.SrcFormat.FrameSizes.Clamp(resolution)
	if negotiated != resolution {
		logger.Debugf(ctx, "clamped the resolution: %s -> %s", resolution, negotiated)
	}
	controls, err := control.NewHandler(ctx, binding.Controls)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the control handler: %w", err)
	}

	c := &Context{
		device:     d,
		binding:    binding,
		resolution: negotiated,
		controls:   controls,
		srcQueue:   buffer.NewQueue(ctx, buffer.DirectionSource, d.queueCapacity),
		dstQueue:   buffer.NewQueue(ctx, buffer.DirectionDestination, d.queueCapacity),
		closer:     closuresignaler.New(),
	}
	return c, xsync.DoR1(ctx, &d.Locker, func() error {
		if d.closedSignaler.IsClosed() {
			return ErrDeviceClosed{}
		}
		d.contexts[c] = struct{}{}
		return nil
	})
}

func (d *Device) removeContext(ctx context.Context, c *Context) {
	d.Locker.Do(ctx, func() {
		delete(d.contexts, c)
		d.removeRunnable(c)
	})
}

// removeRunnable is called with d.Locker held.
func (d *Device) removeRunnable(c *Context) {
	c.scheduled = false
	for idx, it := range d.runnable {
		if it == c {
			d.runnable = append(d.runnable[:idx], d.runnable[idx+1:]...)
			return
		}
	}
}

// trySchedule appends the context to the runnable queue if it has work
// to do and is not already waiting for its turn, then wakes the
// dispatcher. Safe to call from any goroutine.
func (d *Device) trySchedule(ctx context.Context, c *Context) {
	logger.Tracef(ctx, "%s.trySchedule(%s)", d, c)
	scheduled := xsync.DoR1(ctx, &d.Locker, func() bool {
		if c.scheduled {
			return false
		}
		if d.active != nil && d.active.context == c {
			// the dispatcher re-schedules the context itself when the
			// current job retires, which also keeps the rotation fair
			return false
		}
		if !c.isRunnable(ctx) {
			return false
		}
		c.scheduled = true
		d.runnable = append(d.runnable, c)
		return true
	})
	if !scheduled {
		return
	}
	select {
	case d.wakeCh <- struct{}{}:
	default:
	}
}

// onIRQ is invoked by the backend when a job completes. It must not
// block: it only forwards the status to the dispatcher.
func (d *Device) onIRQ(ctx context.Context, status hw.IRQStatus) {
	logger.Debugf(ctx, "%s.onIRQ(%s)", d, status)
	select {
	case d.irqCh <- status:
	default:
		logger.Errorf(ctx, "the IRQ queue is full, dropping %s", status)
	}
}

func (d *Device) signalJobFinished() {
	close(*xatomic.SwapPointer(&d.jobFinishedChan, ptr(make(chan struct{}))))
}

func (d *Device) jobFinishedChanGet() <-chan struct{} {
	return *xatomic.LoadPointer(&d.jobFinishedChan)
}

// cancelJob detaches the context from the dispatcher and waits until the
// context's in-flight job (if any) retires. The job itself is not
// aborted mid-flight: the hardware completion (or the watchdog) is what
// bounds the wait.
func (d *Device) cancelJob(ctx context.Context, c *Context) {
	logger.Debugf(ctx, "%s.cancelJob(%s)", d, c)
	defer logger.Debugf(ctx, "/%s.cancelJob(%s)", d, c)

	d.Locker.Do(ctx, func() {
		d.removeRunnable(c)
	})
	for {
		// the channel must be sampled before checking the active slot,
		// otherwise a job that retires in between would get missed
		ch := d.jobFinishedChanGet()
		isActive := xsync.DoR1(ctx, &d.Locker, func() bool {
			return d.active != nil && d.active.context == c
		})
		if !isActive {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-d.closedSignaler.CloseChan():
			return
		case <-ch:
		}
	}
}

func (d *Device) IsServing(ctx context.Context) bool {
	return xsync.DoR1(ctx, &d.Locker, func() bool { return d.isServing })
}

func (d *Device) IsClosed() bool {
	return d.closedSignaler.IsClosed()
}

func (d *Device) GetStats() DeviceStatistics {
	numContexts := xsync.DoR1(context.TODO(), &d.Locker, func() uint {
		return uint(len(d.contexts))
	})
	return DeviceStatistics{
		Runs:        d.runCounters.ToStats(),
		NumContexts: numContexts,
	}
}

// Close tears the device down: it closes every context (stopping their
// streams and flushing their queues), stops the serve loop and releases
// the backend. It is safe to call more than once.
func (d *Device) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "%s.Close()", d)
	defer func() { logger.Debugf(ctx, "/%s.Close(): %v", d, _err) }()
	ctx = xcontext.DetachDone(ctx)

	contexts := xsync.DoR1(ctx, &d.Locker, func() []*Context {
		result := make([]*Context, 0, len(d.contexts))
		for c := range d.contexts {
			result = append(result, c)
		}
		return result
	})

	var errs []error
	for _, c := range contexts {
		if err := c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("unable to close %s: %w", c, err))
		}
	}

	d.closedSignaler.Close(ctx)
	if err := d.closer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("unable to release the backend: %w", err))
	}
	return errors.Join(errs...)
}
