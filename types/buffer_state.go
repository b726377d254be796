// buffer_state.go defines the BufferState enum and its methods.

package types

import "fmt"

// BufferState describes where a buffer currently is in its life-cycle.
//
// A buffer is in exactly one state at any moment; the terminal states
// (BufferStateDone, BufferStateError) double as the completion verdict
// of the job that consumed the buffer.
type BufferState int

const (
	// BufferStateDequeued: the buffer is owned by the client.
	BufferStateDequeued = BufferState(iota)
	// BufferStateQueued: the buffer sits in a source or destination queue.
	BufferStateQueued
	// BufferStateActive: the buffer is referenced by the in-flight job.
	BufferStateActive
	// BufferStateDone: the job consuming the buffer succeeded.
	BufferStateDone
	// BufferStateError: the job consuming the buffer failed (or the buffer
	// was flushed without a run).
	BufferStateError
)

func (s BufferState) String() string {
	switch s {
	case BufferStateDequeued:
		return "dequeued"
	case BufferStateQueued:
		return "queued"
	case BufferStateActive:
		return "active"
	case BufferStateDone:
		return "done"
	case BufferStateError:
		return "error"
	}
	return fmt.Sprintf("unexpected_buffer_state_%d", int(s))
}

// IsFinal reports whether the state is a completion verdict.
func (s BufferState) IsFinal() bool {
	return s == BufferStateDone || s == BufferStateError
}
