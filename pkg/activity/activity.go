package activity

import (
	"github.com/go-drift/hostglue/pkg/config"
	"github.com/go-drift/hostglue/pkg/errors"
	"github.com/go-drift/hostglue/pkg/glue"
	"github.com/go-drift/hostglue/pkg/input"
)

// Options configures a launched activity instance.
type Options struct {
	// SavedState is the state blob the host restored for this instance, if
	// any. It becomes readable through StateLoader on the first Resume.
	SavedState []byte

	// Config is the initial configuration snapshot. Nil means an empty
	// configuration.
	Config *config.Configuration

	// Data directories provided by the host.
	InternalDataPath string
	ExternalDataPath string
	ObbPath          string

	// Finish is invoked on the application goroutine after the main
	// function returns, so the embedder can ask the host to destroy the
	// activity. It must not block: the host's destroy callback will in turn
	// block until the application goroutine reports stopped, which only
	// happens after Finish returns.
	Finish func()
}

// Activity is the host side of a launched bridge. Its On* methods are the
// host's lifecycle callbacks; each one emits the corresponding command, and
// the handshake-backed ones block until the application goroutine has
// reacted. They must be called from the host callback goroutine only.
type Activity struct {
	glue *glue.Glue
}

// Launch wires up a new bridge instance and spawns the application
// goroutine running main. It blocks until that goroutine has signaled it is
// running (or already finished), then returns the host-facing handle. A
// setup failure (the command pipe or the multiplexer cannot be created)
// returns an error; no goroutine is spawned and no handshake may follow.
//
// This is the process entry contract: the embedder's native entry point
// calls Launch exactly once per activity instance, then routes every host
// lifecycle callback to the returned Activity.
func Launch(opts Options, main func(*App)) (*Activity, error) {
	g, err := glue.New(glue.Options{
		SavedState: opts.SavedState,
		Config:     opts.Config,
	})
	if err != nil {
		return nil, err
	}

	app, err := newApp(g, opts)
	if err != nil {
		g.Close()
		return nil, err
	}

	act := &Activity{glue: g}

	go func() {
		g.NotifyThreadRunning()

		// Recover panics from user code here so the terminal Destroy
		// handshake can still run and release the host.
		func() {
			defer errors.Recover("activity.main")
			main(app)
		}()

		if opts.Finish != nil {
			opts.Finish()
		}
		g.NotifyThreadStopped()
	}()

	g.WaitThreadStarted()
	return act, nil
}

// OnStart is the host's start callback. Blocks until the application has
// processed StartEvent.
func (a *Activity) OnStart() {
	a.glue.SetActivityState(glue.StateStart)
}

// OnResume is the host's resume callback. Blocks until the application has
// processed ResumeEvent.
func (a *Activity) OnResume() {
	a.glue.SetActivityState(glue.StateResume)
}

// OnPause is the host's pause callback. Blocks until the application has
// processed PauseEvent.
func (a *Activity) OnPause() {
	a.glue.SetActivityState(glue.StatePause)
}

// OnStop is the host's stop callback. Blocks until the application has
// processed StopEvent.
func (a *Activity) OnStop() {
	a.glue.SetActivityState(glue.StateStop)
}

// OnSaveInstanceState is the host's save callback. Blocks until the
// application's SaveStateEvent callback has returned, then hands back a copy
// of the stored bytes, or nil when the application stored nothing.
func (a *Activity) OnSaveInstanceState() []byte {
	return a.glue.RequestSaveState()
}

// OnWindowCreated is the host's window creation callback. Blocks until the
// application has processed InitWindowEvent.
func (a *Activity) OnWindowCreated(w glue.Window) {
	a.glue.SetWindow(w)
}

// OnWindowDestroyed is the host's window destruction callback. Blocks until
// the application's TerminateWindowEvent callback has returned and the
// window reference has been released, so the host may free the surface as
// soon as this returns.
func (a *Activity) OnWindowDestroyed() {
	a.glue.SetWindow(nil)
}

// OnWindowResized is the host's resize callback for the current window.
func (a *Activity) OnWindowResized(w glue.Window) {
	a.glue.NotifyWindowResized(w)
}

// OnWindowRedrawNeeded is the host's redraw callback for the current window.
func (a *Activity) OnWindowRedrawNeeded(w glue.Window) {
	a.glue.NotifyWindowRedrawNeeded(w)
}

// OnInputQueueCreated is the host's input queue attach callback. Blocks
// until the application goroutine has swapped the queue in.
func (a *Activity) OnInputQueueCreated(q input.Queue) {
	a.glue.SetInputQueue(q)
}

// OnInputQueueDestroyed is the host's input queue detach callback. Blocks
// until the application goroutine has let go of the queue.
func (a *Activity) OnInputQueueDestroyed() {
	a.glue.SetInputQueue(nil)
}

// OnContentRectChanged is the host's content rectangle callback.
func (a *Activity) OnContentRectChanged(r glue.Rect) {
	a.glue.SetContentRect(r)
}

// OnConfigurationChanged is the host's configuration change callback. The
// snapshot is swapped in on the application goroutine before the
// ConfigChangedEvent callback runs.
func (a *Activity) OnConfigurationChanged(c *config.Configuration) {
	a.glue.NotifyConfigChanged(c)
}

// OnWindowFocusChanged is the host's focus callback.
func (a *Activity) OnWindowFocusChanged(focused bool) {
	a.glue.NotifyFocusChanged(focused)
}

// OnLowMemory is the host's low memory callback.
func (a *Activity) OnLowMemory() {
	a.glue.NotifyLowMemory()
}

// OnDestroy is the host's terminal callback. Blocks until the application
// goroutine has stopped, then tears down the command pipe. No other
// callback may follow.
func (a *Activity) OnDestroy() {
	a.glue.NotifyDestroyed()
}
