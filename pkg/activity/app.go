package activity

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-drift/hostglue/pkg/config"
	"github.com/go-drift/hostglue/pkg/errors"
	"github.com/go-drift/hostglue/pkg/glue"
	"github.com/go-drift/hostglue/pkg/input"
	"github.com/go-drift/hostglue/pkg/looper"
)

// Looper idents reserved by the bridge. Descriptors registered through
// App.AddFD must use idents above LooperIDInput.
const (
	LooperIDMain  int32 = 1
	LooperIDInput int32 = 2
)

// App is the application goroutine's handle to the bridge. Exactly one
// goroutine (the one running the main function passed to Launch) may call
// PollEvents and InputEvents; the accessors are safe from any goroutine.
type App struct {
	glue   *glue.Glue
	looper *looper.Looper

	polling atomic.Bool

	internalDataPath string
	externalDataPath string
	obbPath          string
}

func newApp(g *glue.Glue, opts Options) (*App, error) {
	l, err := looper.New()
	if err != nil {
		return nil, err
	}
	l.AddFD(g.CmdReadFD(), LooperIDMain)

	return &App{
		glue:             g,
		looper:           l,
		internalDataPath: opts.InternalDataPath,
		externalDataPath: opts.ExternalDataPath,
		obbPath:          opts.ObbPath,
	}, nil
}

// PollEvents blocks until something happens, runs at most one dispatch
// iteration, and returns. A negative timeout blocks indefinitely. The
// callback is invoked zero or one time per call, with the relevant Event.
//
// For lifecycle commands, shared state is updated before the callback runs
// (so accessors see post-transition values, with the terminating window as
// the documented exception) and handshake completion is signaled after the
// callback returns.
//
// PollEvents must only be called from the application goroutine; concurrent
// use panics.
func (a *App) PollEvents(timeout time.Duration, callback func(Event)) {
	if !a.polling.CompareAndSwap(false, true) {
		panic("activity: PollEvents called concurrently")
	}
	defer a.polling.Store(false)

	ev, err := a.looper.Poll(timeout)
	if err != nil {
		// The integrity of the host command channel is suspect; there is no
		// defined recovery.
		errors.Report(&errors.GlueError{
			Op:   "activity.PollEvents",
			Kind: errors.KindLooper,
			Err:  err,
		})
		panic(fmt.Sprintf("activity: unrecoverable looper failure: %v", err))
	}

	switch ev.Kind {
	case looper.Wake:
		callback(WakeEvent{})
	case looper.Timeout:
		callback(TimeoutEvent{})
	case looper.Source:
		switch ev.Ident {
		case LooperIDMain:
			a.dispatchCmd(callback)
		case LooperIDInput:
			// One InputAvailable per burst: the queue stays detached until
			// the application drains it via InputEvents.
			a.glue.DetachInputQueue()
			callback(InputAvailableEvent{})
		default:
			callback(SourceEvent{Ident: ev.Ident, FD: ev.FD})
		}
	}
}

// dispatchCmd reads one command and runs its pre-exec / callback / post-exec
// triad.
func (a *App) dispatchCmd(callback func(Event)) {
	cmd, ok := a.glue.ReadCmd()
	if !ok {
		return
	}

	a.glue.PreExec(cmd, a.looper, LooperIDInput)

	var event Event
	var scope *atomic.Bool
	switch cmd {
	case glue.CmdInputQueueChanged:
		// Queue swaps are internal; applications only see InputAvailable.
	case glue.CmdInitWindow:
		event = InitWindowEvent{}
	case glue.CmdTermWindow:
		event = TerminateWindowEvent{}
	case glue.CmdWindowResized:
		event = WindowResizedEvent{}
	case glue.CmdWindowRedrawNeeded:
		event = RedrawNeededEvent{}
	case glue.CmdContentRectChanged:
		event = ContentRectChangedEvent{}
	case glue.CmdGainedFocus:
		event = GainedFocusEvent{}
	case glue.CmdLostFocus:
		event = LostFocusEvent{}
	case glue.CmdConfigChanged:
		event = ConfigChangedEvent{}
	case glue.CmdLowMemory:
		event = LowMemoryEvent{}
	case glue.CmdStart:
		event = StartEvent{}
	case glue.CmdResume:
		scope = validScope()
		event = ResumeEvent{Loader: StateLoader{app: a, valid: scope}}
	case glue.CmdSaveState:
		scope = validScope()
		event = SaveStateEvent{Saver: StateSaver{app: a, valid: scope}}
	case glue.CmdPause:
		event = PauseEvent{}
	case glue.CmdStop:
		event = StopEvent{}
	case glue.CmdDestroy:
		event = DestroyEvent{}
	}

	if event != nil {
		callback(event)
		if scope != nil {
			scope.Store(false)
		}
	}

	a.glue.PostExec(cmd)
}

func validScope() *atomic.Bool {
	b := new(atomic.Bool)
	b.Store(true)
	return b
}

// InputEvents drains all currently buffered input events through the
// callback, finishing each one with the host. Draining re-attaches the
// input queue to the looper so the next burst of input produces a new
// InputAvailableEvent. Without a queue it is a no-op.
//
// The per-event finish call is made even if the callback panics, to keep the
// host's event bookkeeping intact before the panic propagates.
func (a *App) InputEvents(callback func(input.Event) input.Status) {
	q := a.glue.LooperAttachedInputQueue(a.looper, LooperIDInput)
	if q == nil {
		return
	}

	for {
		ev, ok := q.NextEvent()
		if !ok {
			return
		}

		status := input.Unhandled
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.FinishEvent(ev, false)
					panic(r)
				}
			}()
			status = callback(ev)
		}()
		q.FinishEvent(ev, status == input.Handled)
	}
}

// CreateWaker returns a handle that interrupts PollEvents from any
// goroutine. The handle shares the bridge's lifetime and may be copied
// freely.
func (a *App) CreateWaker() Waker {
	return Waker{looper: a.looper}
}

// AddFD registers an extra readable descriptor with the poll loop. When it
// fires, PollEvents delivers a SourceEvent with the given ident. Idents
// reserved by the bridge are rejected.
func (a *App) AddFD(fd int, ident int32) {
	if ident == LooperIDMain || ident == LooperIDInput {
		panic(fmt.Sprintf("activity: ident %d is reserved", ident))
	}
	a.looper.AddFD(fd, ident)
}

// RemoveFD unregisters a descriptor added with AddFD.
func (a *App) RemoveFD(fd int) {
	a.looper.RemoveFD(fd)
}

// NativeWindow returns the current window, or nil when no window is
// attached. During a TerminateWindowEvent callback it still returns the
// window being terminated.
func (a *App) NativeWindow() glue.Window {
	return a.glue.CurrentWindow()
}

// Config returns the shared configuration reference.
func (a *App) Config() *config.Ref {
	return a.glue.Config()
}

// ContentRect returns the current content rectangle.
func (a *App) ContentRect() glue.Rect {
	return a.glue.ContentRect()
}

// ActivityState returns the acknowledged lifecycle phase.
func (a *App) ActivityState() glue.State {
	return a.glue.ActivityState()
}

// DestroyRequested reports whether the terminal Destroy command has been
// observed; main functions should return once it is set.
func (a *App) DestroyRequested() bool {
	return a.glue.DestroyRequested()
}

// InternalDataPath returns the host-provided private data directory, or "".
func (a *App) InternalDataPath() string { return a.internalDataPath }

// ExternalDataPath returns the host-provided external data directory, or "".
func (a *App) ExternalDataPath() string { return a.externalDataPath }

// ObbPath returns the host-provided expansion file directory, or "".
func (a *App) ObbPath() string { return a.obbPath }

// Waker interrupts a blocked PollEvents call from any goroutine. Waking
// while the loop isn't blocked makes the next poll return a WakeEvent.
type Waker struct {
	looper *looper.Looper
}

// Wake interrupts the poll loop. Safe to call concurrently, at any time.
func (w Waker) Wake() {
	w.looper.Wake()
}
