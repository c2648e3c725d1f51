package activity

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/go-drift/hostglue/pkg/config"
	"github.com/go-drift/hostglue/pkg/errors"
	"github.com/go-drift/hostglue/pkg/glue"
	"github.com/go-drift/hostglue/pkg/input"
	"github.com/go-drift/hostglue/pkg/looper"
)

// recorder collects what the application goroutine observed, in order.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.entries = append(r.entries, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}

func (r *recorder) index(entry string) int {
	for i, e := range r.list() {
		if e == entry {
			return i
		}
	}
	return -1
}

func (r *recorder) has(entry string) bool {
	return r.index(entry) >= 0
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type testWindow struct {
	mu   sync.Mutex
	refs int
}

func (w *testWindow) Acquire() {
	w.mu.Lock()
	w.refs++
	w.mu.Unlock()
}

func (w *testWindow) Release() {
	w.mu.Lock()
	w.refs--
	w.mu.Unlock()
}

func (w *testWindow) refCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.refs
}

// testQueue is an input.Queue backed by a signal pipe, so queue readiness
// flows through the looper exactly like platform input would.
type testQueue struct {
	readFD  int
	writeFD int

	mu       sync.Mutex
	looper   *looper.Looper
	events   []input.Event
	finished []bool
}

func newTestQueue(t *testing.T) *testQueue {
	t.Helper()
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return &testQueue{readFD: fds[0], writeFD: fds[1]}
}

func (q *testQueue) Push(ev input.Event) {
	q.mu.Lock()
	q.events = append(q.events, ev)
	q.mu.Unlock()
	unix.Write(q.writeFD, []byte{1})
}

func (q *testQueue) AttachLooper(l *looper.Looper, ident int32) {
	q.mu.Lock()
	q.looper = l
	q.mu.Unlock()
	l.AddFD(q.readFD, ident)
}

func (q *testQueue) DetachLooper() {
	q.mu.Lock()
	l := q.looper
	q.mu.Unlock()
	if l != nil {
		l.RemoveFD(q.readFD)
	}
}

func (q *testQueue) NextEvent() (input.Event, bool) {
	q.mu.Lock()
	if len(q.events) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	q.mu.Unlock()

	buf := make([]byte, 1)
	unix.Read(q.readFD, buf)
	return ev, true
}

func (q *testQueue) FinishEvent(_ input.Event, handled bool) {
	q.mu.Lock()
	q.finished = append(q.finished, handled)
	q.mu.Unlock()
}

func (q *testQueue) finishedList() []bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]bool(nil), q.finished...)
}

// harness runs a standard event-narrating application main against a
// launched activity.
type harness struct {
	t   *testing.T
	rec *recorder
	act *Activity

	mu        sync.Mutex
	saveBytes []byte

	// onAppStart runs on the application goroutine before the poll loop.
	onAppStart func(app *App)

	destroyOnce sync.Once
}

func launchHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	h := &harness{t: t, rec: &recorder{}}

	act, err := Launch(opts, h.appMain)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	h.act = act
	t.Cleanup(h.destroy)
	return h
}

func (h *harness) destroy() {
	h.destroyOnce.Do(h.act.OnDestroy)
}

func (h *harness) setSave(b []byte) {
	h.mu.Lock()
	h.saveBytes = b
	h.mu.Unlock()
}

func (h *harness) save() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveBytes
}

func (h *harness) appMain(app *App) {
	if h.onAppStart != nil {
		h.onAppStart(app)
	}

	for {
		app.PollEvents(-1, func(ev Event) {
			switch e := ev.(type) {
			case StartEvent:
				h.rec.add("start phase=%s", app.ActivityState())
			case ResumeEvent:
				if state := e.Loader.Load(); state != nil {
					h.rec.add("resume state=%q", state)
				} else {
					h.rec.add("resume state=<nil>")
				}
			case PauseEvent:
				h.rec.add("pause phase=%s", app.ActivityState())
			case StopEvent:
				h.rec.add("stop phase=%s", app.ActivityState())
			case SaveStateEvent:
				e.Saver.Store(h.save())
				h.rec.add("save")
			case InitWindowEvent:
				h.rec.add("init-window win=%v", app.NativeWindow() != nil)
			case TerminateWindowEvent:
				h.rec.add("term-window win=%v", app.NativeWindow() != nil)
			case WindowResizedEvent:
				h.rec.add("resized")
			case RedrawNeededEvent:
				h.rec.add("redraw")
			case GainedFocusEvent:
				h.rec.add("gained-focus")
			case LostFocusEvent:
				h.rec.add("lost-focus")
			case ConfigChangedEvent:
				h.rec.add("config orientation=%s", app.Config().Get().Orientation)
			case ContentRectChangedEvent:
				r := app.ContentRect()
				h.rec.add("content-rect %dx%d", r.Width(), r.Height())
			case LowMemoryEvent:
				h.rec.add("low-memory")
			case InputAvailableEvent:
				h.rec.add("input-available")
				app.InputEvents(func(input.Event) input.Status {
					h.rec.add("input-event")
					return input.Handled
				})
			case WakeEvent:
				h.rec.add("wake")
			case DestroyEvent:
				h.rec.add("destroy requested=%v", app.DestroyRequested())
			case SourceEvent:
				buf := make([]byte, 1)
				unix.Read(e.FD, buf)
				h.rec.add("source ident=%d", e.Ident)
			}
		})
		if app.DestroyRequested() {
			return
		}
	}
}

func TestScenarioStartResumeWindowThenSave(t *testing.T) {
	h := launchHarness(t, Options{})
	h.setSave([]byte("state-v1"))

	h.act.OnStart()
	h.act.OnResume()
	h.act.OnWindowCreated(&testWindow{})

	state := h.act.OnSaveInstanceState()
	if !bytes.Equal(state, []byte("state-v1")) {
		t.Fatalf("save returned %q", state)
	}

	// OnSaveInstanceState completes only after the save callback, so every
	// earlier command's callback has run by now.
	rec := h.rec
	for _, entry := range []string{"start phase=start", "resume state=<nil>", "init-window win=true"} {
		if !rec.has(entry) {
			t.Fatalf("missing %q in %v", entry, rec.list())
		}
	}
	save := rec.index("save")
	if save < 0 {
		t.Fatalf("missing save in %v", rec.list())
	}
	if rec.index("resume state=<nil>") > save || rec.index("init-window win=true") > save {
		t.Fatalf("save ran before lifecycle was observed: %v", rec.list())
	}
}

func TestScenarioPauseThenSaveStateBytes(t *testing.T) {
	h := launchHarness(t, Options{})
	h.setSave([]byte("foo://bar"))

	h.act.OnStart()
	h.act.OnResume()
	h.act.OnPause()

	got := h.act.OnSaveInstanceState()
	if !bytes.Equal(got, []byte("foo://bar")) {
		t.Fatalf("got %q, want %q", got, "foo://bar")
	}

	if h.rec.index("pause phase=pause") > h.rec.index("save") {
		t.Fatalf("pause was not observed before save: %v", h.rec.list())
	}
}

func TestScenarioSaveStateBlocksWithoutPolling(t *testing.T) {
	block := make(chan struct{})
	act, err := Launch(Options{}, func(app *App) {
		<-block
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	done := make(chan []byte, 1)
	go func() {
		// This blocks forever: the application never polls, so nothing ever
		// sets the saved-state flag. The goroutine is deliberately leaked.
		done <- act.OnSaveInstanceState()
	}()

	select {
	case <-done:
		t.Fatal("save request completed without the application polling")
	case <-time.After(100 * time.Millisecond):
	}

	close(block)
	act.OnDestroy()
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	h := launchHarness(t, Options{})
	h.setSave([]byte("abc"))

	h.act.OnStart()
	h.act.OnResume()
	h.act.OnPause()
	if got := h.act.OnSaveInstanceState(); !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("save returned %q", got)
	}
	h.act.OnResume()
	h.destroy()

	if !h.rec.has(`resume state="abc"`) {
		t.Fatalf("restored state not observed: %v", h.rec.list())
	}
}

func TestSaveEmptyStateMeansNoState(t *testing.T) {
	h := launchHarness(t, Options{})
	h.setSave(nil)

	h.act.OnStart()
	h.act.OnResume()
	if got := h.act.OnSaveInstanceState(); got != nil {
		t.Fatalf("expected nil for empty save, got %q", got)
	}
	h.act.OnResume()
	h.destroy()

	// Both resumes observe "no state".
	count := 0
	for _, e := range h.rec.list() {
		if e == "resume state=<nil>" {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 empty resumes, got %d: %v", count, h.rec.list())
	}
}

func TestLaunchRestoredState(t *testing.T) {
	h := launchHarness(t, Options{SavedState: []byte("prior")})

	h.act.OnStart()
	h.act.OnResume()
	h.destroy()

	if !h.rec.has(`resume state="prior"`) {
		t.Fatalf("launch-restored state not observed: %v", h.rec.list())
	}
}

func TestWindowVisibleThroughTerminateCallback(t *testing.T) {
	h := launchHarness(t, Options{})

	w := &testWindow{}
	h.act.OnWindowCreated(w)
	h.act.OnWindowDestroyed()

	// OnWindowDestroyed returns only after post-exec released the window.
	if got := w.refCount(); got != 0 {
		t.Fatalf("window still referenced after destroy: %d", got)
	}
	h.destroy()

	if !h.rec.has("term-window win=true") {
		t.Fatalf("window was not visible during its terminate callback: %v", h.rec.list())
	}
}

func TestWindowResizeAndRedraw(t *testing.T) {
	h := launchHarness(t, Options{})

	w := &testWindow{}
	h.act.OnWindowCreated(w)
	h.act.OnWindowResized(w)
	h.act.OnWindowRedrawNeeded(w)
	h.destroy()

	rec := h.rec
	if !rec.has("resized") || !rec.has("redraw") {
		t.Fatalf("missing resize/redraw events: %v", rec.list())
	}
}

func TestFocusAndLowMemory(t *testing.T) {
	h := launchHarness(t, Options{})

	h.act.OnWindowFocusChanged(true)
	h.act.OnWindowFocusChanged(false)
	h.act.OnLowMemory()
	h.destroy()

	rec := h.rec
	gained, lost, low := rec.index("gained-focus"), rec.index("lost-focus"), rec.index("low-memory")
	if gained < 0 || lost < 0 || low < 0 || gained > lost || lost > low {
		t.Fatalf("focus/low-memory order wrong: %v", rec.list())
	}
}

func TestConfigChangeVisibleInCallback(t *testing.T) {
	h := launchHarness(t, Options{
		Config: &config.Configuration{Orientation: config.OrientationPortrait},
	})

	h.act.OnConfigurationChanged(&config.Configuration{Orientation: config.OrientationLandscape})
	h.destroy()

	if !h.rec.has("config orientation=landscape") {
		t.Fatalf("callback did not observe the refreshed config: %v", h.rec.list())
	}
}

func TestContentRectChange(t *testing.T) {
	h := launchHarness(t, Options{})

	h.act.OnContentRectChanged(glue.Rect{Left: 0, Top: 0, Right: 100, Bottom: 200})
	h.destroy()

	if !h.rec.has("content-rect 100x200") {
		t.Fatalf("content rect not observed: %v", h.rec.list())
	}
}

func TestWakerInterruptsPoll(t *testing.T) {
	wakers := make(chan Waker, 1)
	h := &harness{t: t, rec: &recorder{}}
	h.onAppStart = func(app *App) {
		wakers <- app.CreateWaker()
	}

	act, err := Launch(Options{}, h.appMain)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	h.act = act
	t.Cleanup(h.destroy)

	w := <-wakers
	w.Wake()

	waitFor(t, "wake event", func() bool { return h.rec.has("wake") })
}

func TestInputDrainFlow(t *testing.T) {
	h := launchHarness(t, Options{})

	q := newTestQueue(t)
	h.act.OnInputQueueCreated(q)

	q.Push(input.KeyEvent{Action: input.KeyActionDown, KeyCode: 4})

	waitFor(t, "input drained", func() bool { return h.rec.has("input-event") })

	finished := q.finishedList()
	if len(finished) != 1 || !finished[0] {
		t.Fatalf("expected one handled finish, got %v", finished)
	}

	h.act.OnInputQueueDestroyed()
	h.destroy()

	if h.rec.index("input-available") > h.rec.index("input-event") {
		t.Fatalf("drain before availability notice: %v", h.rec.list())
	}
}

func TestAddFDDeliversSourceEvent(t *testing.T) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	h := &harness{t: t, rec: &recorder{}}
	h.onAppStart = func(app *App) {
		app.AddFD(fds[0], 7)
	}

	act, err := Launch(Options{}, h.appMain)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	h.act = act
	t.Cleanup(h.destroy)

	if _, err := unix.Write(fds[1], []byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}

	waitFor(t, "source event", func() bool { return h.rec.has("source ident=7") })
}

func TestAddFDReservedIdentPanics(t *testing.T) {
	apps := make(chan *App, 1)
	h := &harness{t: t, rec: &recorder{}}
	h.onAppStart = func(app *App) {
		apps <- app
	}

	act, err := Launch(Options{}, h.appMain)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	h.act = act
	t.Cleanup(h.destroy)

	app := <-apps
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for reserved ident")
		}
	}()
	app.AddFD(0, LooperIDMain)
}

func TestStateSaverExpiresAfterCallback(t *testing.T) {
	rec := &recorder{}
	act, err := Launch(Options{}, func(app *App) {
		var stale *StateSaver
		for {
			app.PollEvents(-1, func(ev Event) {
				if e, ok := ev.(SaveStateEvent); ok {
					s := e.Saver
					s.Store([]byte("ok"))
					stale = &s
				}
			})
			if stale != nil {
				func() {
					defer func() {
						if recover() != nil {
							rec.add("stale-saver-panic")
						}
					}()
					stale.Store([]byte("no"))
				}()
				stale = nil
			}
			if app.DestroyRequested() {
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	if got := act.OnSaveInstanceState(); !bytes.Equal(got, []byte("ok")) {
		t.Fatalf("save returned %q", got)
	}
	act.OnDestroy()

	if !rec.has("stale-saver-panic") {
		t.Fatal("retained saver did not panic")
	}
}

func TestFinishRunsBeforeDestroyCompletes(t *testing.T) {
	finished := make(chan struct{})
	act, err := Launch(Options{Finish: func() { close(finished) }}, func(app *App) {})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	act.OnDestroy()

	select {
	case <-finished:
	default:
		t.Fatal("finish hook did not run before destroy completed")
	}
}

type captureHandler struct {
	mu     sync.Mutex
	panics []*errors.PanicError
}

func (h *captureHandler) HandleError(*errors.GlueError) {}

func (h *captureHandler) HandlePanic(err *errors.PanicError) {
	h.mu.Lock()
	h.panics = append(h.panics, err)
	h.mu.Unlock()
}

func (h *captureHandler) panicValues() []any {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []any
	for _, p := range h.panics {
		out = append(out, p.Value)
	}
	return out
}

func TestMainPanicStillAllowsDestroy(t *testing.T) {
	capture := &captureHandler{}
	errors.SetHandler(capture)
	defer errors.SetHandler(nil)

	act, err := Launch(Options{}, func(app *App) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}

	// The panic was recovered at the goroutine boundary, so the terminal
	// handshake still completes instead of deadlocking the host.
	act.OnDestroy()

	values := capture.panicValues()
	if len(values) != 1 || values[0] != "boom" {
		t.Fatalf("expected recovered panic \"boom\", got %v", values)
	}
}

func TestLaunchSurfacesSetupFailure(t *testing.T) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		t.Skipf("getrlimit: %v", err)
	}
	defer unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)

	// Find the next free descriptors, then leave room for the command pipe
	// but not for the multiplexer's wake pipe.
	var probe [2]int
	if err := unix.Pipe2(probe[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	unix.Close(probe[0])
	unix.Close(probe[1])

	lowered := lim
	lowered.Cur = uint64(probe[1]) + 1
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lowered); err != nil {
		t.Skipf("setrlimit: %v", err)
	}

	act, err := Launch(Options{}, func(app *App) {})
	unix.Setrlimit(unix.RLIMIT_NOFILE, &lim)
	if err == nil {
		act.OnDestroy()
		t.Fatal("expected Launch to fail without descriptors")
	}

	// The partially wired command pipe was released on the way out.
	if err := unix.Pipe2(probe[:], unix.O_CLOEXEC); err != nil {
		t.Fatalf("descriptors not released: %v", err)
	}
	unix.Close(probe[0])
	unix.Close(probe[1])
}

func TestDataPathAccessors(t *testing.T) {
	paths := make(chan [3]string, 1)
	h := &harness{t: t, rec: &recorder{}}
	h.onAppStart = func(app *App) {
		paths <- [3]string{app.InternalDataPath(), app.ExternalDataPath(), app.ObbPath()}
	}

	act, err := Launch(Options{
		InternalDataPath: "/data/internal",
		ExternalDataPath: "/data/external",
		ObbPath:          "/data/obb",
	}, h.appMain)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	h.act = act
	t.Cleanup(h.destroy)

	got := <-paths
	want := [3]string{"/data/internal", "/data/external", "/data/obb"}
	if got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
}
