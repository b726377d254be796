package hwsim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/m2mcodec/hw"
	"github.com/xaionaro-go/m2mcodec/types"
)

func startTestJob(
	ctx context.Context,
	s *Simulator,
	src []byte,
	dst []byte,
) <-chan hw.IRQStatus {
	irqCh := make(chan hw.IRQStatus, 1)
	s.SetIRQHandler(func(ctx context.Context, status hw.IRQStatus) {
		irqCh <- status
	})

	regs := s.Regs()
	regs.Write32(hw.RegIntEnable, hw.IntDone|hw.IntError)
	regs.Write32(hw.RegSrcSize, uint32(len(src)))
	regs.Write32(hw.RegPicDims, hw.PackPicDims(64, 48))
	regs.Write32(hw.RegCodecMode, uint32(types.CodecModeH264Dec))
	regs.Write32(hw.RegJobID, 1)
	s.AttachJobData(src, dst)
	regs.Write32(hw.RegControl, hw.ControlStart)
	return irqCh
}

func waitIRQ(t *testing.T, irqCh <-chan hw.IRQStatus) hw.IRQStatus {
	select {
	case status := <-irqCh:
		return status
	case <-time.After(time.Second):
		t.Fatal("no IRQ arrived")
		return hw.IRQStatusNone
	}
}

func TestSimulatorDecodesJob(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(time.Microsecond)

	src := []byte{0x00, 0x00, 0x01, 0x65, 0x88, 0x84}
	dst := make([]byte, 64*48*3/2)
	irqCh := startTestJob(ctx, s, src, dst)

	require.Equal(t, hw.IRQStatusDone, waitIRQ(t, irqCh))
	require.Equal(t, hw.StatusDone, s.Regs().Read32(hw.RegStatus))

	expected := make([]byte, len(dst))
	FillDecodePattern(src, expected)
	require.Equal(t, expected, dst)

	journal := s.Journal()
	require.Len(t, journal, 1)
	require.Equal(t, uint32(1), journal[0].JobID)
	require.Equal(t, types.CodecModeH264Dec, journal[0].CodecMode)
	require.Equal(t, uint32(64), journal[0].Width)
	require.Equal(t, uint32(48), journal[0].Height)
	require.Equal(t, hw.IRQStatusDone, journal[0].Status)
	require.False(t, journal[0].FinishedAt.Before(journal[0].StartedAt))
}

func TestSimulatorFailNext(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(time.Microsecond)
	s.FailNext()

	irqCh := startTestJob(ctx, s, []byte{1, 2, 3}, make([]byte, 64*48*3/2))
	require.Equal(t, hw.IRQStatusError, waitIRQ(t, irqCh))
	require.Equal(t, hw.StatusError, s.Regs().Read32(hw.RegStatus))
}

func TestSimulatorHangNextAndReset(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(time.Microsecond)
	s.HangNext()

	irqCh := startTestJob(ctx, s, []byte{1, 2, 3}, make([]byte, 64*48*3/2))
	select {
	case status := <-irqCh:
		t.Fatalf("got an IRQ (%s) from a hung job", status)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, s.Reset(ctx))
	irqCh = startTestJob(ctx, s, []byte{1, 2, 3}, make([]byte, 64*48*3/2))
	require.Equal(t, hw.IRQStatusDone, waitIRQ(t, irqCh))
}

func TestSimulatorRejectsTooSmallDestination(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(time.Microsecond)

	irqCh := startTestJob(ctx, s, []byte{1, 2, 3}, make([]byte, 16))
	require.Equal(t, hw.IRQStatusError, waitIRQ(t, irqCh))
}

func TestSimulatorClockRate(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(10 * time.Millisecond)

	err := s.SetClockRate(ctx, s.MaxClockRate()+1)
	require.ErrorAs(t, err, &hw.ErrClockRate{})

	require.NoError(t, s.SetClockRate(ctx, s.MaxClockRate()))
	require.Equal(t, 10*time.Millisecond, s.effectiveLatency())

	require.NoError(t, s.SetClockRate(ctx, s.MaxClockRate()/2))
	require.Equal(t, 20*time.Millisecond, s.effectiveLatency())
}

func TestSimulatorMaskedIRQ(t *testing.T) {
	ctx := context.Background()
	s := NewSimulator(ctx, "hwsim-test")
	s.Latency.Store(time.Microsecond)

	irqCh := make(chan hw.IRQStatus, 1)
	s.SetIRQHandler(func(ctx context.Context, status hw.IRQStatus) {
		irqCh <- status
	})

	src := []byte{1, 2, 3}
	regs := s.Regs()
	regs.Write32(hw.RegSrcSize, uint32(len(src)))
	regs.Write32(hw.RegPicDims, hw.PackPicDims(64, 48))
	regs.Write32(hw.RegCodecMode, uint32(types.CodecModeH264Dec))
	s.AttachJobData(src, make([]byte, 64*48*3/2))
	regs.Write32(hw.RegControl, hw.ControlStart)

	select {
	case status := <-irqCh:
		t.Fatalf("got an IRQ (%s) although the IRQs are masked", status)
	case <-time.After(50 * time.Millisecond):
	}
	require.Equal(t, hw.StatusDone, s.Regs().Read32(hw.RegStatus))
}
