package activity

// Event is delivered to the PollEvents callback. Applications switch on the
// concrete type.
type Event interface {
	isEvent()
}

// WakeEvent reports that a Waker interrupted the poll. No state changed.
type WakeEvent struct{}

// TimeoutEvent reports that the poll timeout elapsed.
type TimeoutEvent struct{}

// SourceEvent reports that a descriptor registered with App.AddFD became
// readable. The bridge doesn't touch it; the application owns the read.
type SourceEvent struct {
	Ident int32
	FD    int
}

// StartEvent corresponds to the activity entering the started phase.
type StartEvent struct{}

// ResumeEvent corresponds to the activity entering the resumed phase. Loader
// reads state saved by a previous SaveStateEvent (or restored by the host at
// launch) and is only valid until the callback returns.
type ResumeEvent struct {
	Loader StateLoader
}

// SaveStateEvent asks the application to store its state via Saver, which is
// only valid until the callback returns. The host's blocking save request
// completes once the callback is done.
type SaveStateEvent struct {
	Saver StateSaver
}

// PauseEvent corresponds to the activity entering the paused phase.
type PauseEvent struct{}

// StopEvent corresponds to the activity entering the stopped phase.
type StopEvent struct{}

// DestroyEvent is the terminal event. The application's main function should
// return promptly once it has been observed.
type DestroyEvent struct{}

// InitWindowEvent reports that a window is now available; App.NativeWindow
// already returns it during the callback.
type InitWindowEvent struct{}

// TerminateWindowEvent reports that the current window is being taken away.
// App.NativeWindow still returns it for the duration of this callback and
// returns nil afterwards.
type TerminateWindowEvent struct{}

// WindowResizedEvent reports that the current window changed size.
type WindowResizedEvent struct{}

// RedrawNeededEvent reports that the current window needs to be redrawn.
type RedrawNeededEvent struct{}

// ContentRectChangedEvent reports that the content rectangle changed;
// App.ContentRect returns the new value.
type ContentRectChangedEvent struct{}

// GainedFocusEvent reports that the activity window gained input focus.
type GainedFocusEvent struct{}

// LostFocusEvent reports that the activity window lost input focus.
type LostFocusEvent struct{}

// ConfigChangedEvent reports that the configuration snapshot was replaced;
// App.Config already returns the new snapshot during the callback.
type ConfigChangedEvent struct{}

// LowMemoryEvent reports that the system is low on memory and the
// application should release what it can.
type LowMemoryEvent struct{}

// InputAvailableEvent reports that input is pending. It is delivered at most
// once per poll iteration; the application drains via App.InputEvents, which
// also re-arms the notification.
type InputAvailableEvent struct{}

func (WakeEvent) isEvent()               {}
func (TimeoutEvent) isEvent()            {}
func (SourceEvent) isEvent()             {}
func (StartEvent) isEvent()              {}
func (ResumeEvent) isEvent()             {}
func (SaveStateEvent) isEvent()          {}
func (PauseEvent) isEvent()              {}
func (StopEvent) isEvent()               {}
func (DestroyEvent) isEvent()            {}
func (InitWindowEvent) isEvent()         {}
func (TerminateWindowEvent) isEvent()    {}
func (WindowResizedEvent) isEvent()      {}
func (RedrawNeededEvent) isEvent()       {}
func (ContentRectChangedEvent) isEvent() {}
func (GainedFocusEvent) isEvent()        {}
func (LostFocusEvent) isEvent()          {}
func (ConfigChangedEvent) isEvent()      {}
func (LowMemoryEvent) isEvent()          {}
func (InputAvailableEvent) isEvent()     {}
