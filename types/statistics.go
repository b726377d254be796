package types

import (
	"sync/atomic"
)

// StatisticsItem is a plain (non-atomic) snapshot of a CountersItem.
type StatisticsItem struct {
	Count uint64 `json:",omitempty"`
	Bytes uint64 `json:",omitempty"`
}

type CountersItem struct {
	Count atomic.Uint64
	Bytes atomic.Uint64
}

func (c *CountersItem) Increment(size uint64) {
	c.Count.Add(1)
	c.Bytes.Add(size)
}

func (c *CountersItem) ToStats() StatisticsItem {
	return StatisticsItem{
		Count: c.Count.Load(),
		Bytes: c.Bytes.Load(),
	}
}

// QueueCounters counts the buffer traffic through one buffer queue.
type QueueCounters struct {
	Queued  CountersItem
	Done    CountersItem
	Errored CountersItem
}

func (c *QueueCounters) ToStats() QueueStatistics {
	return QueueStatistics{
		Queued:  c.Queued.ToStats(),
		Done:    c.Done.ToStats(),
		Errored: c.Errored.ToStats(),
	}
}

type QueueStatistics struct {
	Queued  StatisticsItem
	Done    StatisticsItem
	Errored StatisticsItem
}

// RunCounters counts the hardware runs of one context (or, aggregated, of
// a whole device).
type RunCounters struct {
	Completed atomic.Uint64
	Failed    atomic.Uint64
	TimedOut  atomic.Uint64
}

func (c *RunCounters) ToStats() RunStatistics {
	return RunStatistics{
		Completed: c.Completed.Load(),
		Failed:    c.Failed.Load(),
		TimedOut:  c.TimedOut.Load(),
	}
}

func (c *RunCounters) AddTo(dst *RunCounters) {
	dst.Completed.Add(c.Completed.Load())
	dst.Failed.Add(c.Failed.Load())
	dst.TimedOut.Add(c.TimedOut.Load())
}

type RunStatistics struct {
	Completed uint64 `json:",omitempty"`
	Failed    uint64 `json:",omitempty"`
	TimedOut  uint64 `json:",omitempty"`
}
