package reactive

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrWriteInDerivation is returned by Signal.Set when it is called while a
// computed derivation is running. The write is not applied and the
// derivation's read fails with this error.
var ErrWriteInDerivation = errors.New("reactive: signal write during computed derivation")

// ErrCircularDependency is reported when a computed reads itself, directly or
// through other computeds, while it is being derived.
var ErrCircularDependency = errors.New("reactive: circular computed dependency")

// ErrBudgetExceeded is returned when one flush pass runs more effects than
// Config.MaxRunsPerFlush allows. This almost always means a write cycle that
// never settles. The remaining queue is dropped; edges stay consistent.
var ErrBudgetExceeded = errors.New("reactive: run budget exceeded")

// ErrFrameMismatch is returned by Observer.End when the observer's tracking
// frame was not the innermost one. Frames pushed after it and never closed
// are discarded.
var ErrFrameMismatch = errors.New("reactive: tracking frames not properly nested")

// ErrWrongGoroutine is the panic value raised when Config.CheckGoroutine is
// set and the runtime is used from a goroutine other than the one that
// created it.
var ErrWrongGoroutine = errors.New("reactive: runtime used from a foreign goroutine")

// RunError wraps the failure of one derivation, effect run or observer
// notification with the node that failed.
type RunError struct {
	NodeID uint64
	Name   string
	Kind   NodeKind
	Err    error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("reactive: %s %q (#%d): %v", e.Kind, e.Name, e.NodeID, e.Err)
	}
	return fmt.Sprintf("reactive: %s #%d: %v", e.Kind, e.NodeID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(n *node, err error) error {
	if err == nil {
		return nil
	}
	var re *RunError
	if errors.As(err, &re) && re.NodeID == n.id {
		return err
	}
	return &RunError{NodeID: n.id, Name: n.name, Kind: n.kind, Err: err}
}

// PanicError is a panic recovered from a user callback.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("reactive: panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error, so a failing computed
// read inside an effect still matches errors.Is against the original cause.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// callSafe runs fn and converts a panic into a *PanicError. Panics carrying
// a *RunError (a failing Computed.Get) are returned as-is.
func callSafe(fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if re, ok := r.(*RunError); ok {
			err = re
			return
		}
		err = &PanicError{Value: r, Stack: debug.Stack()}
	}()
	return fn()
}
