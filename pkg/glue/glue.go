// Package glue is the synchronization core of the bridge: a one-way command
// pipe from the host goroutine to the application goroutine, a single
// mutex-guarded shared state, and condition-variable handshakes for the
// operations where the host must not proceed until the application has
// observed and reacted to a change.
//
// The platform does not consider an activity resumed, or a window fully
// destroyed, until application code has run; the blocking setters here
// mirror that rule. They are uninterruptible by design: if the application
// goroutine stops polling, the host blocks until it resumes. That is the
// caller's documented responsibility, not a recoverable fault.
package glue

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/go-drift/hostglue/pkg/config"
	"github.com/go-drift/hostglue/pkg/input"
	"github.com/go-drift/hostglue/pkg/looper"
)

// State is the authoritative lifecycle phase of the activity, as observed by
// the application goroutine.
type State int

const (
	// StateInit is the initial phase; it is never a transition target.
	StateInit State = iota
	StateStart
	StateResume
	StatePause
	StateStop
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateStart:
		return "start"
	case StateResume:
		return "resume"
	case StatePause:
		return "pause"
	case StateStop:
		return "stop"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ThreadState tracks the application goroutine spawned by Launch.
type ThreadState int

const (
	// ThreadInit means the application goroutine hasn't started yet.
	ThreadInit ThreadState = iota
	// ThreadRunning means the application goroutine is running user code.
	ThreadRunning
	// ThreadStopped means the application goroutine has finished.
	ThreadStopped
)

// Options configures a new Glue.
type Options struct {
	// SavedState is the state blob the host restored for this activity
	// instance, if any. The bridge keeps its own copy.
	SavedState []byte
	// Config is the initial configuration snapshot.
	Config *config.Configuration
}

// Glue holds everything shared between the host goroutine and the
// application goroutine. All fields sit behind one mutex; every mutation
// broadcasts on the condition variable and every waiter loops re-checking
// its own predicate, so unrelated wakeups and spurious wakeups are harmless.
type Glue struct {
	mu   sync.Mutex
	cond *sync.Cond

	msgRead  int
	msgWrite int

	configRef     *config.Ref
	pendingConfig *config.Configuration

	savedState       []byte
	appHasSavedState bool
	saveHandshake    bool

	window          Window
	pendingWindow   Window
	windowHandshake bool

	inputQueue        input.Queue
	pendingInputQueue input.Queue
	inputHandshake    bool

	contentRect Rect

	activityState    State
	destroyRequested bool
	destroyed        bool
	threadState      ThreadState
}

// New creates the shared state and the command pipe. It is called exactly
// once per activity instance, before the application goroutine exists.
func New(opts Options) (*Glue, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("glue: command pipe: %w", err)
	}

	g := &Glue{
		msgRead:    fds[0],
		msgWrite:   fds[1],
		configRef:  config.NewRef(opts.Config),
		savedState: append([]byte(nil), opts.SavedState...),
	}
	g.cond = sync.NewCond(&g.mu)
	return g, nil
}

// CmdReadFD returns the descriptor the application goroutine registers with
// its looper to be told when a command is pending.
func (g *Glue) CmdReadFD() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.msgRead
}

// ReadCmd reads one pending command. It must only be called after the
// looper reported the command descriptor readable.
func (g *Glue) ReadCmd() (Cmd, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return readCmd(g.msgRead)
}

// Config returns the shared configuration reference. The snapshot it points
// at is replaced wholesale when a ConfigChanged command is processed.
func (g *Glue) Config() *config.Ref {
	return g.configRef
}

// ContentRect returns the current content rectangle.
func (g *Glue) ContentRect() Rect {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.contentRect
}

// CurrentWindow returns the window the application currently owns, or nil.
// The handle stays valid until the TermWindow callback for it returns; an
// application that retains it longer must Acquire its own reference.
func (g *Glue) CurrentWindow() Window {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// DestroyRequested reports whether the Destroy command has been processed.
func (g *Glue) DestroyRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.destroyRequested
}

// ActivityState returns the lifecycle phase the application has acknowledged.
func (g *Glue) ActivityState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.activityState
}

// SavedState returns a copy of the saved-state buffer, or nil when no bytes
// were ever stored.
func (g *Glue) SavedState() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.savedState) == 0 {
		return nil
	}
	return append([]byte(nil), g.savedState...)
}

// SetSavedState replaces the saved-state buffer with a copy of state.
func (g *Glue) SetSavedState(state []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.savedState = append(g.savedState[:0], state...)
}

/////////////////////////////
// Host-side operations
/////////////////////////////

// SetWindow hands a new window (or nil at teardown) to the application and
// blocks until the application goroutine has executed the matching
// InitWindow or TermWindow processing. After it returns both goroutines
// observe the same current window.
//
// Overlapping SetWindow calls are a caller programming error and panic.
func (g *Glue) SetWindow(w Window) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.windowHandshake {
		panic("glue: window update clash")
	}
	g.windowHandshake = true

	if g.window != nil {
		writeCmd(g.msgWrite, CmdTermWindow)
	}
	if w != nil {
		// The pending slot holds its own reference until the handshake
		// completes.
		w.Acquire()
	}
	g.pendingWindow = w
	if w != nil {
		writeCmd(g.msgWrite, CmdInitWindow)
	}

	for g.window != g.pendingWindow {
		g.cond.Wait()
	}

	if g.pendingWindow != nil {
		g.pendingWindow.Release()
	}
	g.pendingWindow = nil
	g.windowHandshake = false
}

// SetActivityState emits the lifecycle command for state and blocks until
// the application goroutine has processed it. Transitioning into StateInit
// is illegal.
func (g *Glue) SetActivityState(state State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var cmd Cmd
	switch state {
	case StateStart:
		cmd = CmdStart
	case StateResume:
		cmd = CmdResume
	case StatePause:
		cmd = CmdPause
	case StateStop:
		cmd = CmdStop
	default:
		panic(fmt.Sprintf("glue: can't explicitly transition into %v", state))
	}
	writeCmd(g.msgWrite, cmd)

	for g.activityState != state {
		g.cond.Wait()
	}
}

// SetInputQueue hands a new input queue (or nil at teardown) to the
// application and blocks until the application goroutine has swapped it in
// and re-registered its looper. Overlapping calls panic.
func (g *Glue) SetInputQueue(q input.Queue) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inputHandshake {
		panic("glue: input queue update clash")
	}
	g.inputHandshake = true

	g.pendingInputQueue = q
	writeCmd(g.msgWrite, CmdInputQueueChanged)

	for g.inputQueue != g.pendingInputQueue {
		g.cond.Wait()
	}

	g.pendingInputQueue = nil
	g.inputHandshake = false
}

// RequestSaveState emits SaveState and blocks until the application's
// SaveState callback has returned. It returns a fresh copy of whatever the
// application stored, owned by the caller, or nil when no bytes were stored.
// Overlapping calls panic.
func (g *Glue) RequestSaveState() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.saveHandshake {
		panic("glue: save state request clash")
	}
	g.saveHandshake = true
	writeCmd(g.msgWrite, CmdSaveState)

	for !g.appHasSavedState {
		g.cond.Wait()
	}
	g.appHasSavedState = false
	g.saveHandshake = false

	if len(g.savedState) == 0 {
		return nil
	}
	return append([]byte(nil), g.savedState...)
}

// NotifyDestroyed emits the terminal Destroy command, blocks until the
// application goroutine has stopped, and closes the command pipe. No
// command can follow.
func (g *Glue) NotifyDestroyed() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.destroyed = true
	writeCmd(g.msgWrite, CmdDestroy)

	for g.threadState != ThreadStopped {
		g.cond.Wait()
	}

	unix.Close(g.msgRead)
	g.msgRead = -1
	unix.Close(g.msgWrite)
	g.msgWrite = -1
}

// Close releases the command pipe without the Destroy handshake. It is only
// for wiring failures before the application goroutine exists; a running
// bridge is torn down through NotifyDestroyed.
func (g *Glue) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	unix.Close(g.msgRead)
	g.msgRead = -1
	unix.Close(g.msgWrite)
	g.msgWrite = -1
}

// NotifyConfigChanged stores the replacement snapshot and emits
// ConfigChanged. The swap happens on the application goroutine, before the
// ConfigChanged callback runs, so accessors inside the callback already see
// the new configuration.
func (g *Glue) NotifyConfigChanged(c *config.Configuration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingConfig = c
	writeCmd(g.msgWrite, CmdConfigChanged)
}

// NotifyLowMemory emits LowMemory.
func (g *Glue) NotifyLowMemory() {
	g.mu.Lock()
	defer g.mu.Unlock()
	writeCmd(g.msgWrite, CmdLowMemory)
}

// NotifyFocusChanged emits GainedFocus or LostFocus.
func (g *Glue) NotifyFocusChanged(focused bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if focused {
		writeCmd(g.msgWrite, CmdGainedFocus)
	} else {
		writeCmd(g.msgWrite, CmdLostFocus)
	}
}

// NotifyWindowResized emits WindowResized. SetWindow always syncs the
// pending window back to current before returning, so the host can never
// report a resize in an interim state or for a window the bridge doesn't
// know about; both would be host bugs.
func (g *Glue) NotifyWindowResized(w Window) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window != w {
		panic("glue: resize notification for unknown window")
	}
	writeCmd(g.msgWrite, CmdWindowResized)
}

// NotifyWindowRedrawNeeded emits WindowRedrawNeeded, with the same
// current-window validation as NotifyWindowResized.
func (g *Glue) NotifyWindowRedrawNeeded(w Window) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.window != w {
		panic("glue: redraw notification for unknown window")
	}
	writeCmd(g.msgWrite, CmdWindowRedrawNeeded)
}

// SetContentRect stores the new content rectangle and emits
// ContentRectChanged.
func (g *Glue) SetContentRect(r Rect) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.contentRect = r
	writeCmd(g.msgWrite, CmdContentRectChanged)
}

/////////////////////////////
// Application-side operations
/////////////////////////////

// LooperAttachedInputQueue returns the current input queue, re-attached to
// the given looper so future input again produces a wakeup, or nil when no
// queue is attached. It is called when the application explicitly drains
// input; the queue stays detached between drains to avoid a wake-up storm
// on every incoming event.
func (g *Glue) LooperAttachedInputQueue(l *looper.Looper, ident int32) input.Queue {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inputQueue == nil {
		return nil
	}
	g.inputQueue.AttachLooper(l, ident)
	return g.inputQueue
}

// DetachInputQueue detaches the current input queue from whatever looper it
// is attached to, so that a burst of input produces a single wakeup.
func (g *Glue) DetachInputQueue() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inputQueue != nil {
		g.inputQueue.DetachLooper()
	}
}

// NotifyThreadRunning marks the application goroutine as started.
func (g *Glue) NotifyThreadRunning() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threadState = ThreadRunning
	g.cond.Broadcast()
}

// NotifyThreadStopped marks the application goroutine as finished, releasing
// a blocked NotifyDestroyed.
func (g *Glue) NotifyThreadStopped() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threadState = ThreadStopped
	g.cond.Broadcast()
}

// WaitThreadStarted blocks the host until the application goroutine has left
// the initial thread state. It deliberately doesn't insist on Running: a
// user main that returns immediately may already have stopped.
func (g *Glue) WaitThreadStarted() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.threadState == ThreadInit {
		g.cond.Wait()
	}
}
