// Package activity bridges a host-controlled callback goroutine and a single
// dedicated application goroutine, synchronizing lifecycle notifications
// between them.
//
// The embedder calls Launch once per activity instance and routes every host
// lifecycle callback to the returned Activity. The application's main
// function receives an App and typically loops:
//
//	func appMain(app *activity.App) {
//	    for {
//	        app.PollEvents(-1, func(ev activity.Event) {
//	            switch e := ev.(type) {
//	            case activity.InitWindowEvent:
//	                surface = app.NativeWindow()
//	            case activity.SaveStateEvent:
//	                e.Saver.Store(snapshot())
//	            case activity.InputAvailableEvent:
//	                app.InputEvents(handleInput)
//	            }
//	        })
//	        if app.DestroyRequested() {
//	            return
//	        }
//	    }
//	}
//
// Handshake-backed host callbacks (start/resume/pause/stop, window and input
// queue changes, save state, destroy) block until the application goroutine
// has observed and reacted to the change. There is no timeout on these
// handshakes: an application that stops polling deadlocks the host, by
// contract.
package activity
