package hw

import (
	"fmt"
)

type ErrClockRate struct {
	RequestedHz uint64
	MaxHz       uint64
}

func (err ErrClockRate) Error() string {
	return fmt.Sprintf("the requested clock rate %dHz exceeds the maximum of %dHz", err.RequestedHz, err.MaxHz)
}

type ErrUnsupportedMode struct {
	Mode uint32
}

func (err ErrUnsupportedMode) Error() string {
	return fmt.Sprintf("the hardware does not implement codec mode %d", err.Mode)
}

type ErrBadJobData struct {
	Reason string
}

func (err ErrBadJobData) Error() string {
	return fmt.Sprintf("invalid job data: %s", err.Reason)
}
