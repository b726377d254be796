// vdecsim pushes a synthetic bitstream through the decoder runtime on top
// of the simulated hardware backend and prints the decode statistics. It
// exists to exercise the full stack (contexts, requests-free control flow,
// the dispatcher, the watchdog) outside of the test suite.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/facebookincubator/go-belt"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/m2mcodec"
	"github.com/xaionaro-go/m2mcodec/buffer"
	"github.com/xaionaro-go/m2mcodec/codec/h264"
	"github.com/xaionaro-go/m2mcodec/codec/mpeg2"
	"github.com/xaionaro-go/m2mcodec/control"
	"github.com/xaionaro-go/m2mcodec/hw/hwsim"
	"github.com/xaionaro-go/m2mcodec/logger"
	"github.com/xaionaro-go/m2mcodec/types"
	"github.com/xaionaro-go/observability"

	_ "net/http/pprof"
)

const frameInterval = time.Second / 30

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "syntax: %s [flags]\n", os.Args[0])
		pflag.PrintDefaults()
	}

	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen by net/pprof")
	codecName := pflag.String("codec", "h264", "the codec to decode: 'h264' or 'mpeg2'")
	frames := pflag.Uint("frames", 300, "how many frames to push through the decoder")
	resolutionFlag := pflag.String("resolution", "1280x720", "the coded resolution")
	bitstreamSizeFlag := pflag.String("bitstream-size", "64KiB", "the size of the per-frame bitstream payload")
	queueDepth := pflag.Uint("queue-depth", 4, "how many frames to keep in flight")
	hwLatency := pflag.Duration("hw-latency", hwsim.DefaultLatency, "the simulated decode duration of one frame at the maximum clock rate")
	clockRate := pflag.Uint64("clock-rate", 0, "the simulated decoder clock rate in Hz; zero means the maximum")
	watchdogTimeout := pflag.Duration("watchdog-timeout", m2mcodec.DefaultWatchdogTimeout, "how long to wait for a hardware job before resetting the decoder")
	failEvery := pflag.Uint("fail-every", 0, "make every Nth hardware job fail; zero disables the injection")
	pflag.Parse()
	if len(pflag.Args()) != 0 {
		pflag.Usage()
		os.Exit(1)
	}

	var resolution types.Resolution
	if err := resolution.Parse(*resolutionFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: unable to parse the resolution '%s': %v\n", *resolutionFlag, err)
		os.Exit(1)
	}

	bitstreamSize, err := humanize.ParseBytes(*bitstreamSizeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: unable to parse the bitstream size '%s': %v\n", *bitstreamSizeFlag, err)
		os.Exit(1)
	}

	var fourCC types.FourCC
	switch *codecName {
	case "h264":
		fourCC = types.FourCCH264Slice
	case "mpeg2":
		fourCC = types.FourCCMPEG2Slice
	default:
		fmt.Fprintf(os.Stderr, "error: unknown codec '%s'\n", *codecName)
		os.Exit(1)
	}

	ctx := withLogger(context.Background(), loggerLevel)
	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	defer belt.Flush(ctx)

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) {
			logger.Error(ctx, http.ListenAndServe(*netPprofAddr, nil))
		})
	}

	sim := hwsim.NewSimulator(ctx, "vdecsim0")
	sim.Latency.Store(*hwLatency)

	dev, err := m2mcodec.NewDevice(ctx, sim, m2mcodec.Config{
		WatchdogTimeout: *watchdogTimeout,
		// the pool below is not pinned, so in the worst case every frame
		// shows up in a buffer the queue has never seen before
		QueueCapacity: *frames + *queueDepth,
		ClockRateHz:   *clockRate,
	}, h264.NewBinding(), mpeg2.NewBinding())
	assert(ctx, err == nil, err)
	defer dev.Close(ctx)

	c, err := dev.OpenContext(ctx, fourCC, resolution)
	assert(ctx, err == nil, err)
	defer c.Close(ctx)
	logger.Infof(ctx, "opened %s: %s -> %s at %s", c, c.SourceFormat(), c.DestinationFormat(), c.Resolution())

	installControls(ctx, c, fourCC, bitstreamSize)

	err = c.StreamOn(ctx)
	assert(ctx, err == nil, err)

	errCh := make(chan m2mcodec.Error, 10)
	observability.Go(ctx, func(ctx context.Context) {
		dev.Serve(ctx, m2mcodec.ServeConfig{}, errCh)
	})

	srcPool := buffer.NewPool(uint(bitstreamSize))
	dstPool := buffer.NewPool(uint(c.DestinationFormat().FrameSize(c.Resolution())))
	inFlight := make(chan struct{}, *queueDepth)

	observability.Go(ctx, func(ctx context.Context) {
		for frameIdx := uint(0); frameIdx < *frames; frameIdx++ {
			select {
			case inFlight <- struct{}{}:
			case <-ctx.Done():
				return
			}
			if *failEvery > 0 && (frameIdx+1)%*failEvery == 0 {
				sim.FailNext()
			}

			timestamp := int64(frameIdx) * int64(frameInterval)
			src := srcPool.Get()
			src.BytesUsed = int(bitstreamSize)
			src.Timestamp = timestamp
			src.Request = frameRequest(ctx, c, fourCC, frameIdx, timestamp-int64(frameInterval))
			fillBitstream(src.Payload(), frameIdx)
			if err := c.QueueSource(ctx, src); err != nil {
				logger.Errorf(ctx, "unable to queue frame #%d: %v", frameIdx, err)
				return
			}
			if err := c.QueueDestination(ctx, dstPool.Get()); err != nil {
				logger.Errorf(ctx, "unable to queue a picture buffer: %v", err)
				return
			}
		}
	})

	var decoded, errored uint
	var lastDst *buffer.Buffer
	statusTicker := time.NewTicker(time.Second)
	defer statusTicker.Stop()
	for decoded+errored < *frames {
		select {
		case <-ctx.Done():
			logger.Infof(ctx, "cancelled")
			return
		case e := <-errCh:
			logger.Warnf(ctx, "a decode error: %v", e.Err)
		case buf := <-c.SourceDoneChan():
			srcPool.Put(buf)
		case buf := <-c.DestinationDoneChan():
			if buf.State() == types.BufferStateError {
				errored++
			} else {
				decoded++
			}
			// the next frame still references this picture; recycle
			// the one before it instead
			if lastDst != nil {
				dstPool.Put(lastDst)
			}
			lastDst = buf
			<-inFlight
		case <-statusTicker.C:
			printStats(ctx, dev, c)
		}
	}

	printStats(ctx, dev, c)
	fmt.Printf("done: decoded %d frame(s), errored %d frame(s)\n", decoded, errored)
}

// installControls sets the stateless controls one real client would
// extract from the bitstream headers. The payloads here describe the
// synthetic stream produced by fillBitstream.
func installControls(
	ctx context.Context,
	c *m2mcodec.Context,
	fourCC types.FourCC,
	bitstreamSize uint64,
) {
	handler := c.Controls()
	set := func(payload control.Payload) {
		err := handler.Set(ctx, payload)
		assert(ctx, err == nil, err)
	}

	resolution := c.Resolution()
	switch fourCC {
	case types.FourCCH264Slice:
		set(&control.H264SPS{
			ProfileIDC:                100,
			LevelIDC:                  41,
			ChromaFormatIDC:           1,
			MaxNumRefFrames:           1,
			PicWidthInMBsMinus1:       uint16(resolution.Width/16 - 1),
			PicHeightInMapUnitsMinus1: uint16(resolution.Height/16 - 1),
			Flags:                     control.H264SPSFlagFrameMBSOnly,
		})
		set(&control.H264PPS{})
		set(&control.H264ScalingMatrix{})
		set(control.H264SliceParams{{SliceType: control.H264SliceTypeI}})
		set(&control.H264DecodeParams{})
	case types.FourCCMPEG2Slice:
		set(&control.MPEG2SliceParams{
			BitSize:            uint32(bitstreamSize * 8),
			QuantiserScaleCode: 1,
		})
		set(mpeg2.DefaultQuantization())
	}

	logger.Debugf(ctx, "the declared controls: %s", spew.Sdump(handler.Declared()))
}

// frameRequest builds the per-frame control request: every frame after
// the first one decodes as a P-frame referencing its predecessor.
func frameRequest(
	ctx context.Context,
	c *m2mcodec.Context,
	fourCC types.FourCC,
	frameIdx uint,
	prevTimestamp int64,
) *control.Request {
	if frameIdx == 0 {
		return nil
	}
	req := c.NewRequest(ctx)
	var err error
	switch fourCC {
	case types.FourCCH264Slice:
		params := &control.H264DecodeParams{
			FrameNum:         uint16(frameIdx),
			TopFieldOrderCnt: int32(2 * frameIdx),
		}
		params.DPB[0] = control.H264DPBEntry{
			ReferenceTimestamp: prevTimestamp,
			FrameNum:           uint32(frameIdx - 1),
			Flags:              control.H264DPBEntryFlagValid | control.H264DPBEntryFlagActive,
		}
		err = req.Set(ctx, params)
	case types.FourCCMPEG2Slice:
		err = req.Set(ctx, &control.MPEG2Picture{
			ForwardRefTimestamp: prevTimestamp,
			PictureCodingType:   control.MPEG2PictureCodingTypeP,
			PictureStructure:    control.MPEG2PictureStructureFrame,
		})
	}
	assert(ctx, err == nil, err)
	return req
}

func fillBitstream(data []byte, frameIdx uint) {
	for idx := range data {
		data[idx] = byte(idx*7 + int(frameIdx))
	}
}

func printStats(
	ctx context.Context,
	dev *m2mcodec.Device,
	c *m2mcodec.Context,
) {
	devStatsJSON, err := json.Marshal(dev.GetStats())
	assert(ctx, err == nil, err)
	ctxStatsJSON, err := json.Marshal(c.GetStats())
	assert(ctx, err == nil, err)
	fmt.Printf("device:%s context:%s\n", devStatsJSON, ctxStatsJSON)
}
