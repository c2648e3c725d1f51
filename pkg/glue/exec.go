package glue

import (
	"github.com/go-drift/hostglue/pkg/looper"
)

// PreExec applies a command's state transition before the application
// callback runs, so that accessors called from inside the callback already
// observe post-transition values. The one exception is TermWindow: the
// window slated for termination stays visible through the duration of its
// own terminate callback and is cleared in PostExec.
//
// Must only be called by the application goroutine, between ReadCmd and the
// callback.
func (g *Glue) PreExec(cmd Cmd, l *looper.Looper, inputIdent int32) {
	switch cmd {
	case CmdInputQueueChanged:
		g.mu.Lock()
		if g.inputQueue != nil {
			g.inputQueue.DetachLooper()
		}
		g.inputQueue = g.pendingInputQueue
		if g.inputQueue != nil {
			g.inputQueue.AttachLooper(l, inputIdent)
		}
		g.cond.Broadcast()
		g.mu.Unlock()

	case CmdInitWindow:
		g.mu.Lock()
		g.window = g.pendingWindow
		if g.window != nil {
			g.window.Acquire()
		}
		g.cond.Broadcast()
		g.mu.Unlock()

	case CmdStart, CmdResume, CmdPause, CmdStop:
		g.mu.Lock()
		switch cmd {
		case CmdStart:
			g.activityState = StateStart
		case CmdResume:
			g.activityState = StateResume
		case CmdPause:
			g.activityState = StatePause
		case CmdStop:
			g.activityState = StateStop
		}
		g.cond.Broadcast()
		g.mu.Unlock()

	case CmdConfigChanged:
		g.mu.Lock()
		if g.pendingConfig != nil {
			g.configRef.Replace(g.pendingConfig)
			g.pendingConfig = nil
		}
		g.cond.Broadcast()
		g.mu.Unlock()

	case CmdDestroy:
		g.mu.Lock()
		g.destroyRequested = true
		g.cond.Broadcast()
		g.mu.Unlock()
	}
}

// PostExec applies a command's deferred effects after the application
// callback has returned: the terminated window is cleared and released, and
// a completed SaveState callback is flagged so the blocked host request can
// copy the buffer out.
//
// Must only be called by the application goroutine, after the callback.
func (g *Glue) PostExec(cmd Cmd) {
	switch cmd {
	case CmdTermWindow:
		g.mu.Lock()
		if g.window != nil {
			g.window.Release()
			g.window = nil
		}
		g.cond.Broadcast()
		g.mu.Unlock()

	case CmdSaveState:
		g.mu.Lock()
		g.appHasSavedState = true
		g.cond.Broadcast()
		g.mu.Unlock()
	}
}
