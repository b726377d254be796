package m2mcodec

import (
	"github.com/xaionaro-go/m2mcodec/types"
)

// ContextStatistics is a JSON/YAML-friendly snapshot of one context.
type ContextStatistics struct {
	Source      types.QueueStatistics `json:",omitempty" yaml:",omitempty"`
	Destination types.QueueStatistics `json:",omitempty" yaml:",omitempty"`
	Runs        types.RunStatistics   `json:",omitempty" yaml:",omitempty"`
}

// DeviceStatistics is a JSON/YAML-friendly snapshot of a whole device:
// the run counters aggregated over every context that ever ran on it.
type DeviceStatistics struct {
	Runs        types.RunStatistics `json:",omitempty" yaml:",omitempty"`
	NumContexts uint                `json:",omitempty" yaml:",omitempty"`
}
