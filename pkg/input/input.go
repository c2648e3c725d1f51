// Package input defines the decoded input events delivered to the
// application and the queue interface through which the host supplies them.
//
// Decoding the platform's raw event payloads is the embedder's concern; this
// package only carries the already-decoded values across the bridge.
package input

import "github.com/go-drift/hostglue/pkg/looper"

// Status reports whether the application handled an input event. Unhandled
// events may be redelivered to the host's fallback handling (e.g. the back
// button finishing the activity).
type Status int

const (
	Unhandled Status = iota
	Handled
)

// Event is a decoded input event.
type Event interface {
	isInputEvent()
}

// KeyAction describes what happened to a key.
type KeyAction int

const (
	KeyActionDown KeyAction = iota
	KeyActionUp
	KeyActionMultiple
)

// KeyEvent is a decoded key event.
type KeyEvent struct {
	Action   KeyAction
	KeyCode  int32
	ScanCode int32
	Meta     MetaState
	DeviceID int32
	Repeat   int32
}

func (KeyEvent) isInputEvent() {}

// MetaState holds the modifier key state of an event.
type MetaState uint32

const (
	MetaAltOn   MetaState = 0x02
	MetaShiftOn MetaState = 0x01
	MetaCtrlOn  MetaState = 0x1000
)

// MotionAction describes what happened to a pointer.
type MotionAction int

const (
	MotionActionDown MotionAction = iota
	MotionActionUp
	MotionActionMove
	MotionActionCancel
)

// Pointer is one contact point in a motion event.
type Pointer struct {
	ID       int32
	X, Y     float32
	Pressure float32
}

// MotionEvent is a decoded touch or pointer event.
type MotionEvent struct {
	Action   MotionAction
	Pointers []Pointer
	DeviceID int32
}

func (MotionEvent) isInputEvent() {}

// Queue is the host-owned input queue. It is attached to the application's
// looper only while the application is not actively draining, so that a
// burst of events produces a single wakeup.
//
// NextEvent and FinishEvent must only be called by the application
// goroutine; attach and detach are driven by the bridge.
type Queue interface {
	// AttachLooper arms the queue so new input reports ident on the looper.
	AttachLooper(l *looper.Looper, ident int32)
	// DetachLooper disarms the queue. Buffered events remain readable.
	DetachLooper()
	// NextEvent returns the next buffered event, or ok=false when the queue
	// is currently empty.
	NextEvent() (ev Event, ok bool)
	// FinishEvent must be called exactly once per event returned by
	// NextEvent, reporting whether the application handled it.
	FinishEvent(ev Event, handled bool)
}
