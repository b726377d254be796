// device_serve.go implements the dispatcher loop: it picks runnable
// contexts one at a time, walks each job through its phases and deals
// with the hardware completion, the errors and the watchdog.

package m2mcodec

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

type ServeConfig struct {
	DebugData any
}

// Serve runs the dispatcher until ctx is cancelled or the device gets
// closed. Errors of individual jobs are reported through errCh (if it is
// not nil) and never stop the loop: the affected buffers carry the error
// flag and the next job proceeds.
func (d *Device) Serve(
	ctx context.Context,
	serveConfig ServeConfig,
	errCh chan<- Error,
) {
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	ctx = belt.WithField(ctx, "device", d.backend.Name())
	if serveConfig.DebugData != nil {
		ctx = belt.WithField(ctx, "debug_data", serveConfig.DebugData)
	}
	ctx = xsync.WithNoLogging(ctx, true)
	deviceKey := fmt.Sprintf("%s:%p", d, d)
	logger.Tracef(ctx, "Serve[%s]", deviceKey)
	defer func() { logger.Tracef(ctx, "/Serve[%s]", deviceKey) }()

	sendErr := func(err error) {
		logger.Debugf(ctx, "Serve[%s]: sendErr(%v)", deviceKey, err)
		if errCh == nil {
			return
		}
		select {
		case errCh <- Error{
			Device: d,
			Err:    err,
		}:
		default:
			logger.Errorf(ctx, "error queue is full, cannot send error: '%v'", err)
		}
	}

	defer func() { logger.Debugf(ctx, "finished dispatching") }()
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Errorf(ctx, "got panic in Device[%s]: %v:\n%s\n", deviceKey, r, debug.Stack())
	}()

	if err := xsync.DoR1(ctx, &d.Locker, func() error {
		if d.isServing {
			logger.Debugf(ctx, "double-start: %s", deviceKey)
			return ErrAlreadyStarted{}
		}
		d.isServing = true
		return nil
	}); err != nil {
		sendErr(err)
		return
	}
	defer d.Locker.Do(xcontext.DetachDone(ctx), func() {
		d.isServing = false
	})

	for {
		select {
		case <-ctx.Done():
			logger.Debugf(ctx, "Serve[%s]: the context is closed", deviceKey)
			return
		case <-d.closedSignaler.CloseChan():
			logger.Debugf(ctx, "Serve[%s]: the device is closed", deviceKey)
			return
		case <-d.wakeCh:
		}
		for d.runNext(ctx, sendErr) {
		}
	}
}

// runNext pops the next runnable context and executes one job for it. It
// reports whether there was anything to execute.
func (d *Device) runNext(
	ctx context.Context,
	sendErr func(error),
) bool {
	run := xsync.DoR1(ctx, &d.Locker, func() *Run {
		if len(d.runnable) == 0 {
			return nil
		}
		c := d.runnable[0]
		d.runnable = d.runnable[1:]
		c.scheduled = false
		run := newRun(c, d.nextJobID.Inc())
		d.active = run
		return run
	})
	if run == nil {
		return false
	}
	d.executeRun(ctx, run, sendErr)
	return true
}

func (d *Device) executeRun(
	ctx context.Context,
	run *Run,
	sendErr func(error),
) {
	c := run.context
	ctx = belt.WithField(ctx, "run_id", run.id)
	ctx = belt.WithField(ctx, "codec", c.binding.SrcFormat.FourCC.String())
	logger.Debugf(ctx, "executeRun[%s]: %s", run, c)
	defer func() { logger.Debugf(ctx, "/executeRun[%s]: %v", run, run.err) }()

	run.src = c.srcQueue.AcquireNext(ctx)
	run.dst = c.dstQueue.AcquireNext(ctx)
	if run.src != nil {
		run.request = run.src.Request
	}

	switch {
	case run.src == nil && run.dst == nil:
		// raced with a flush, nothing to run
	case run.src == nil || run.dst == nil:
		run.err = fmt.Errorf("the queues went out of balance: src:%v dst:%v", run.src, run.dst)
	default:
		d.drainStaleIRQs(ctx)
		if err := run.preamble(ctx); err != nil {
			run.err = err
		} else if err := run.startHW(ctx); err != nil {
			run.err = err
		} else {
			d.waitRunCompletion(ctx, run)
		}
	}

	d.finishRun(ctx, run, sendErr)
}

// drainStaleIRQs discards completion signals that nobody waits for
// anymore (e.g. a completion that lost the race against the watchdog).
func (d *Device) drainStaleIRQs(ctx context.Context) {
	for {
		select {
		case status := <-d.irqCh:
			logger.Warnf(ctx, "discarding a stale completion: %s", status)
		default:
			return
		}
	}
}

func (d *Device) waitRunCompletion(
	ctx context.Context,
	run *Run,
) {
	timeout := d.WatchdogTimeout.Load()
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case status := <-d.irqCh:
		run.irqStatus = status
		if status != hw.IRQStatusDone {
			run.err = ErrHardware{Status: status}
			d.resetHW(ctx, run)
		}
	case <-t.C:
		run.err = ErrWatchdogTimeout{Timeout: timeout}
		logger.Errorf(ctx, "%s did not complete within %v, resetting the hardware", run, timeout)
		d.resetHW(ctx, run)
	case <-d.closedSignaler.CloseChan():
		run.err = ErrDeviceClosed{}
		d.resetHW(ctx, run)
	case <-ctx.Done():
		run.err = ctx.Err()
		d.resetHW(ctx, run)
	}
}

func (d *Device) resetHW(ctx context.Context, run *Run) {
	ctx = xcontext.DetachDone(ctx)
	if err := run.context.binding.Ops.Reset(ctx, run.context); err != nil {
		logger.Errorf(ctx, "unable to reset the hardware after %s: %v", run, err)
	}
}

// finishRun retires the job whatever way it ended, reports its error (if
// any) and gives the context's remaining work a new turn at the tail of
// the rotation.
func (d *Device) finishRun(
	ctx context.Context,
	run *Run,
	sendErr func(error),
) {
	if run.src != nil || run.dst != nil || run.request != nil {
		run.postamble(ctx)
		run.retire(ctx)
	}
	if run.err != nil {
		sendErr(fmt.Errorf("%s on %s: %w", run, run.context, run.err))
	}
	d.Locker.Do(ctx, func() {
		d.active = nil
	})
	d.signalJobFinished()
	d.trySchedule(ctx, run.context)
}
