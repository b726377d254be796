package m2mcodec

import (
	"fmt"
	"time"

	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/types"
)

// Error is what Device.Serve reports through its error channel.
type Error struct {
	Device *Device
	Err    error
}

func (e Error) Error() string {
	return fmt.Sprintf("received an error on %s: %v", e.Device, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

type ErrAlreadyStarted struct{}

func (ErrAlreadyStarted) Error() string {
	return "already started serving"
}

type ErrAlreadyStreaming struct{}

func (ErrAlreadyStreaming) Error() string {
	return "the context is already streaming"
}

type ErrNotStreaming struct{}

func (ErrNotStreaming) Error() string {
	return "the context is not streaming"
}

type ErrContextClosed struct{}

func (ErrContextClosed) Error() string {
	return "the context is closed"
}

type ErrDeviceClosed struct{}

func (ErrDeviceClosed) Error() string {
	return "the device is closed"
}

type ErrUnsupportedFormat struct {
	FourCC types.FourCC
}

func (err ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("no codec binding accepts the format %s", err.FourCC)
}

type ErrMissingControls struct {
	IDs []control.ID
}

func (err ErrMissingControls) Error() string {
	return fmt.Sprintf("mandatory controls have no value: %v", err.IDs)
}

type ErrHardware struct {
	Status hw.IRQStatus
}

func (err ErrHardware) Error() string {
	return fmt.Sprintf("the hardware reported %s", err.Status)
}

type ErrWatchdogTimeout struct {
	Timeout time.Duration
}

func (err ErrWatchdogTimeout) Error() string {
	return fmt.Sprintf("the hardware delivered no IRQ within %s", err.Timeout)
}
