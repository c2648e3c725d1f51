package activity

import "sync/atomic"

// StateSaver stores application state during a SaveStateEvent callback. It
// must not be retained past the callback; a stale saver panics.
type StateSaver struct {
	app   *App
	valid *atomic.Bool
}

// Store keeps a copy of state for the host's pending save request and for
// later StateLoader.Load calls. Storing empty or nil bytes records "no
// state".
func (s StateSaver) Store(state []byte) {
	if s.valid == nil || !s.valid.Load() {
		panic("activity: StateSaver used outside its SaveState callback")
	}
	s.app.glue.SetSavedState(state)
}

// StateLoader reads previously saved application state during a ResumeEvent
// callback. It must not be retained past the callback; a stale loader
// panics.
type StateLoader struct {
	app   *App
	valid *atomic.Bool
}

// Load returns a copy of the state saved during the last SaveStateEvent (or
// restored by the host at launch), or nil when there is none.
func (l StateLoader) Load() []byte {
	if l.valid == nil || !l.valid.Load() {
		panic("activity: StateLoader used outside its Resume callback")
	}
	return l.app.glue.SavedState()
}
