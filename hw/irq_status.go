package hw

import (
	"fmt"
)

// IRQStatus is the outcome a backend reports through its IRQHandler.
type IRQStatus int

const (
	IRQStatusNone = IRQStatus(iota)
	IRQStatusDone
	IRQStatusError
)

func (s IRQStatus) String() string {
	switch s {
	case IRQStatusNone:
		return "none"
	case IRQStatusDone:
		return "done"
	case IRQStatusError:
		return "error"
	}
	return fmt.Sprintf("unexpected_irq_status_%d", int(s))
}
