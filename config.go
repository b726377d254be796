package m2mcodec

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the device-level tuning. The zero value is valid: every
// field falls back to its default.
type Config struct {
	// WatchdogTimeout bounds the execution time of one hardware job.
	WatchdogTimeout time.Duration `json:"watchdog_timeout,omitempty" yaml:"watchdog_timeout,omitempty"`

	// QueueCapacity is how many buffers a single source or destination
	// queue admits.
	QueueCapacity uint `json:"queue_capacity,omitempty" yaml:"queue_capacity,omitempty"`

	// ClockRateHz is the clock rate to run the hardware at; zero means
	// the maximum rate the backend reports.
	ClockRateHz uint64 `json:"clock_rate_hz,omitempty" yaml:"clock_rate_hz,omitempty"`
}

func (cfg Config) withDefaults() Config {
	if cfg.WatchdogTimeout == 0 {
		cfg.WatchdogTimeout = DefaultWatchdogTimeout
	}
	if cfg.QueueCapacity == 0 {
		cfg.QueueCapacity = DefaultQueueCapacity
	}
	return cfg
}

func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal the config: %w", err)
	}
	return cfg, nil
}

func (cfg Config) Bytes() ([]byte, error) {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to marshal the config: %w", err)
	}
	return b, nil
}
