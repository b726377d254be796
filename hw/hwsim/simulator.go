// Package hwsim is a software stand-in for a stateless decoder: it
// implements hw.Backend with a register file backed by atomics, a
// configurable decode latency and one-shot failure injection. It is what
// the tests and the demo binary run against.
package hwsim

import (
	"context"
	"time"

	"github.com/xaionaro-go/m2mcodec/helpers/closuresignaler"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/internal"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

const (
	DefaultMaxClockRateHz = uint64(500_000_000)
	DefaultLatency        = 500 * time.Microsecond

	regCount = 8
)

// JobRecord is one journal entry; the journal keeps the order and the
// wall-clock intervals of the executed jobs.
type JobRecord struct {
	JobID      uint32
	CodecMode  types.CodecMode
	Width      uint32
	Height     uint32
	SrcSize    uint32
	StartedAt  time.Time
	FinishedAt time.Time
	Status     hw.IRQStatus
}

type Simulator struct {
	// Latency is how long one decode takes at the maximum clock rate.
	Latency atomic.Duration

	Locker     xsync.Mutex
	irqHandler hw.IRQHandler
	jobSrc     []byte
	jobDst     []byte
	journal    []JobRecord

	name           string
	ctx            context.Context
	regs           [regCount]atomic.Uint32
	clockRateHz    atomic.Uint64
	maxClockRateHz uint64
	failNext       atomic.Bool
	hangNext       atomic.Bool
	generation     atomic.Uint64
	closer         *closuresignaler.ClosureSignaler
}

var _ hw.Backend = (*Simulator)(nil)

// NewSimulator returns an idle simulated decoder. The context is kept for
// the job goroutines: register writes (which is what starts a job) do not
// carry one.
func NewSimulator(
	ctx context.Context,
	name string,
) *Simulator {
	logger.Debugf(ctx, "NewSimulator(ctx, '%s')", name)
	s := &Simulator{
		name:           name,
		ctx:            ctx,
		maxClockRateHz: DefaultMaxClockRateHz,
		closer:         closuresignaler.New(),
	}
	s.Latency.Store(DefaultLatency)
	return s
}

func (s *Simulator) Name() string {
	return s.name
}

func (s *Simulator) Regs() hw.RegisterWindow {
	return registerWindow{sim: s}
}

func (s *Simulator) AttachJobData(src []byte, dst []byte) {
	s.Locker.Do(s.ctx, func() {
		s.jobSrc = src
		s.jobDst = dst
	})
}

func (s *Simulator) SetIRQHandler(handler hw.IRQHandler) {
	s.Locker.Do(s.ctx, func() {
		s.irqHandler = handler
	})
}

func (s *Simulator) SetClockRate(
	ctx context.Context,
	hz uint64,
) error {
	logger.Debugf(ctx, "SetClockRate(ctx, %d)", hz)
	if hz > s.maxClockRateHz {
		return hw.ErrClockRate{RequestedHz: hz, MaxHz: s.maxClockRateHz}
	}
	s.clockRateHz.Store(hz)
	return nil
}

func (s *Simulator) MaxClockRate() uint64 {
	return s.maxClockRateHz
}

// FailNext makes the next job finish with an error IRQ.
func (s *Simulator) FailNext() {
	s.failNext.Store(true)
}

// HangNext makes the next job never deliver an IRQ, as a wedged decoder
// would. Recovery requires a Reset.
func (s *Simulator) HangNext() {
	s.hangNext.Store(true)
}

func (s *Simulator) Reset(ctx context.Context) error {
	logger.Debugf(ctx, "Reset(ctx)")
	s.generation.Inc()
	for idx := range s.regs {
		s.regs[idx].Store(0)
	}
	return nil
}

func (s *Simulator) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close(ctx)")
	s.closer.Close(ctx)
	return s.Reset(ctx)
}

// Journal returns a copy of the job journal.
func (s *Simulator) Journal() []JobRecord {
	return xsync.DoR1(s.ctx, &s.Locker, func() []JobRecord {
		result := make([]JobRecord, len(s.journal))
		copy(result, s.journal)
		return result
	})
}

type registerWindow struct {
	sim *Simulator
}

var _ hw.RegisterWindow = registerWindow{}

func (w registerWindow) Read32(reg hw.Reg) uint32 {
	return w.sim.reg(reg).Load()
}

func (w registerWindow) Write32(reg hw.Reg, value uint32) {
	s := w.sim
	s.reg(reg).Store(value)
	if reg == hw.RegControl && value&hw.ControlStart != 0 {
		s.startJob()
	}
}

func (s *Simulator) reg(reg hw.Reg) *atomic.Uint32 {
	idx := int(reg) / 4
	internal.Assert(s.ctx, reg%4 == 0 && idx < regCount, "access to the unknown register ", reg)
	return &s.regs[idx]
}

// effectiveLatency scales the configured latency by the clock rate: a
// decoder running at half the clock takes twice as long.
func (s *Simulator) effectiveLatency() time.Duration {
	latency := s.Latency.Load()
	rate := s.clockRateHz.Load()
	if rate == 0 || rate >= s.maxClockRateHz {
		return latency
	}
	return time.Duration(uint64(latency) * s.maxClockRateHz / rate)
}

func (s *Simulator) startJob() {
	ctx := s.ctx
	logger.Debugf(ctx, "startJob()")
	if s.closer.IsClosed() {
		logger.Errorf(ctx, "a job got started on an already closed simulator")
		return
	}

	record := JobRecord{
		JobID:     s.reg(hw.RegJobID).Load(),
		CodecMode: types.CodecMode(s.reg(hw.RegCodecMode).Load()),
		SrcSize:   s.reg(hw.RegSrcSize).Load(),
		StartedAt: time.Now(),
	}
	record.Width, record.Height = hw.UnpackPicDims(s.reg(hw.RegPicDims).Load())

	var src, dst []byte
	s.Locker.Do(ctx, func() {
		src, dst = s.jobSrc, s.jobDst
		s.jobSrc, s.jobDst = nil, nil
	})

	generation := s.generation.Load()
	latency := s.effectiveLatency()
	fail := s.failNext.Swap(false)
	hang := s.hangNext.Swap(false)
	s.reg(hw.RegStatus).Store(hw.StatusBusy)

	observability.Go(ctx, func(ctx context.Context) {
		select {
		case <-time.After(latency):
		case <-s.closer.CloseChan():
			return
		}
		if hang {
			logger.Debugf(ctx, "job %d: hanging without an IRQ", record.JobID)
			return
		}
		if s.generation.Load() != generation {
			logger.Debugf(ctx, "job %d: dropped, the hardware got reset meanwhile", record.JobID)
			return
		}

		status := hw.IRQStatusDone
		if fail || s.execute(ctx, &record, src, dst) != nil {
			status = hw.IRQStatusError
		}
		record.Status = status
		record.FinishedAt = time.Now()

		if status == hw.IRQStatusError {
			s.reg(hw.RegStatus).Store(hw.StatusError)
		} else {
			s.reg(hw.RegStatus).Store(hw.StatusDone)
		}

		var irqHandler hw.IRQHandler
		s.Locker.Do(ctx, func() {
			s.journal = append(s.journal, record)
			irqHandler = s.irqHandler
		})

		if !s.irqEnabled(status) {
			logger.Debugf(ctx, "job %d: the %s IRQ is masked", record.JobID, status)
			return
		}
		if irqHandler == nil {
			logger.Warnf(ctx, "job %d: no IRQ handler is set", record.JobID)
			return
		}
		irqHandler(ctx, status)
	})
}

func (s *Simulator) irqEnabled(status hw.IRQStatus) bool {
	mask := s.reg(hw.RegIntEnable).Load()
	switch status {
	case hw.IRQStatusDone:
		return mask&hw.IntDone != 0
	case hw.IRQStatusError:
		return mask&hw.IntError != 0
	}
	return false
}

func (s *Simulator) execute(
	ctx context.Context,
	record *JobRecord,
	src []byte,
	dst []byte,
) (_err error) {
	defer func() { logger.Debugf(ctx, "/execute: job %d: %v", record.JobID, _err) }()
	switch record.CodecMode {
	case types.CodecModeH264Dec, types.CodecModeMPEG2Dec:
	default:
		return hw.ErrUnsupportedMode{Mode: uint32(record.CodecMode)}
	}
	if record.SrcSize == 0 || int(record.SrcSize) > len(src) {
		return hw.ErrBadJobData{Reason: "the source size does not match the attached bitstream"}
	}
	frameSize := nv12FrameSize(record.Width, record.Height)
	if frameSize == 0 || frameSize > len(dst) {
		return hw.ErrBadJobData{Reason: "the destination storage is too small for the picture"}
	}
	FillDecodePattern(src[:record.SrcSize], dst[:frameSize])
	return nil
}

func nv12FrameSize(width, height uint32) int {
	return int(width) * int(height) * 3 / 2
}
