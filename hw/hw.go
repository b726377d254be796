// Package hw defines the seam between the codec runtime and the decoder
// hardware it drives: a small register window, a DMA-less way to attach
// the job data, and an IRQ callback. Package hwsim provides the software
// implementation used by tests and by the demo binary.
package hw

import (
	"context"
)

// IRQHandler receives the completion interrupt of a job. It is invoked
// from the backend's own goroutine; implementations must be quick and
// must not block on the runtime.
type IRQHandler func(ctx context.Context, status IRQStatus)

// RegisterWindow is the MMIO-style register access of a backend.
type RegisterWindow interface {
	Read32(reg Reg) uint32
	Write32(reg Reg, value uint32)
}

// Backend is one decoder hardware instance. A backend executes at most
// one job at a time; serializing the jobs is the runtime's duty, not the
// backend's.
type Backend interface {
	Name() string

	Regs() RegisterWindow

	// AttachJobData hands the payloads of the upcoming job to the
	// backend: the bitstream to consume and the storage for the decoded
	// picture. It must be called before the start bit is written.
	AttachJobData(src []byte, dst []byte)

	SetIRQHandler(handler IRQHandler)

	SetClockRate(ctx context.Context, hz uint64) error
	MaxClockRate() uint64

	// Reset puts the hardware back into a known idle state, cancelling
	// a possibly stuck job. No IRQ is delivered for a cancelled job.
	Reset(ctx context.Context) error

	Close(ctx context.Context) error
}

/* for easier copy&paste:

func (b *) Name() string {

}

func (b *) Regs() hw.RegisterWindow {

}

func (b *) AttachJobData(src []byte, dst []byte) {

}

func (b *) SetIRQHandler(handler hw.IRQHandler) {

}

func (b *) SetClockRate(ctx context.Context, hz uint64) error {

}

func (b *) MaxClockRate() uint64 {

}

func (b *) Reset(ctx context.Context) error {

}

func (b *) Close(ctx context.Context) error {

}

*/
