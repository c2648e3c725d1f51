// Package errors provides structured error handling for the hostglue bridge.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPipe indicates a command pipe read or write failure.
	KindPipe
	// KindLooper indicates a multiplexer failure.
	KindLooper
	// KindHandshake indicates a violated handshake invariant.
	KindHandshake
	// KindInput indicates an input queue failure.
	KindInput
	// KindConfig indicates a configuration snapshot failure.
	KindConfig
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPipe:
		return "pipe"
	case KindLooper:
		return "looper"
	case KindHandshake:
		return "handshake"
	case KindInput:
		return "input"
	case KindConfig:
		return "config"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// GlueError represents a structured error in the hostglue bridge.
type GlueError struct {
	// Op is the operation that failed (e.g., "glue.writeCmd").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *GlueError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *GlueError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "activity.main").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ErrorHandler receives errors reported by the bridge.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *GlueError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
