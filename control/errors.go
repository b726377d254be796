package control

import (
	"fmt"
)

type ErrUnknownControl struct {
	ID ID
}

func (err ErrUnknownControl) Error() string {
	return fmt.Sprintf("control %s is not declared on this handler", err.ID)
}

type ErrInvalidPayload struct {
	ID  ID
	Err error
}

func (err ErrInvalidPayload) Error() string {
	return fmt.Sprintf("invalid value for control %s: %v", err.ID, err.Err)
}

func (err ErrInvalidPayload) Unwrap() error {
	return err.Err
}

type ErrGrabbed struct {
	ID ID
}

func (err ErrGrabbed) Error() string {
	return fmt.Sprintf("control %s cannot be changed directly while the handler is grabbed (use a request)", err.ID)
}

type ErrControlNotSet struct {
	ID ID
}

func (err ErrControlNotSet) Error() string {
	return fmt.Sprintf("control %s has no value, yet", err.ID)
}

type ErrDuplicateControl struct {
	ID ID
}

func (err ErrDuplicateControl) Error() string {
	return fmt.Sprintf("control %s is declared more than once", err.ID)
}

type ErrRequestNotIdle struct {
	State RequestState
}

func (err ErrRequestNotIdle) Error() string {
	return fmt.Sprintf("the request is %s, expected it to be %s", err.State, RequestStateIdle)
}

type ErrRequestNotCompleted struct {
	State RequestState
}

func (err ErrRequestNotCompleted) Error() string {
	return fmt.Sprintf("the request is %s, expected it to be %s", err.State, RequestStateCompleted)
}
