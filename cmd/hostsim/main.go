// Package main provides hostsim, a host-side simulator for the bridge.
// It plays a YAML lifecycle scenario against a launched activity the way
// the platform would: callbacks fire in script order, and the
// handshake-backed ones block until the application goroutine has reacted.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-drift/hostglue/cmd/hostsim/internal/scenario"
	"github.com/go-drift/hostglue/pkg/activity"
	"github.com/go-drift/hostglue/pkg/config"
	"github.com/go-drift/hostglue/pkg/errors"
	"github.com/go-drift/hostglue/pkg/glue"
	"github.com/go-drift/hostglue/pkg/input"
	"github.com/go-drift/hostglue/pkg/looper"
)

func main() {
	verbose := flag.Bool("v", false, "verbose error output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hostsim [flags] <scenario.yaml>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		errors.SetHandler(&errors.LogHandler{Verbose: true})
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "hostsim: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	name := sc.App.Name
	if name == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		name = scenario.DefaultAppName(wd)
	}

	sim := &simulator{name: name}
	act, err := activity.Launch(activity.Options{
		Config: &config.Configuration{
			Orientation: config.OrientationPortrait,
			Language:    "en",
			Country:     "US",
		},
	}, sim.appMain)
	if err != nil {
		return err
	}
	sim.act = act

	for _, step := range sc.Steps {
		if err := sim.play(step); err != nil {
			return err
		}
		if step.Kind == scenario.StepDestroy {
			return nil
		}
	}

	// Scripts that stop short of destroy still need the terminal handshake,
	// otherwise the application goroutine is left running.
	sim.play(scenario.Step{Kind: scenario.StepDestroy})
	return nil
}

// simulator owns the host side of one scripted run.
type simulator struct {
	name string
	act  *activity.Activity

	window *simWindow
	queue  *simQueue
}

func (s *simulator) logf(format string, args ...any) {
	fmt.Printf("[%s host] %s\n", s.name, fmt.Sprintf(format, args...))
}

func (s *simulator) play(step scenario.Step) error {
	if step.Arg != "" {
		s.logf("%s %s", step.Kind, step.Arg)
	} else {
		s.logf("%s", step.Kind)
	}

	switch step.Kind {
	case scenario.StepStart:
		s.act.OnStart()
	case scenario.StepResume:
		s.act.OnResume()
	case scenario.StepPause:
		s.act.OnPause()
	case scenario.StepStop:
		s.act.OnStop()
	case scenario.StepSaveState:
		state := s.act.OnSaveInstanceState()
		s.logf("saved %d bytes", len(state))
	case scenario.StepLowMemory:
		s.act.OnLowMemory()
	case scenario.StepWait:
		time.Sleep(step.Wait)
	case scenario.StepWindow:
		switch step.Arg {
		case "create":
			s.window = &simWindow{}
			s.act.OnWindowCreated(s.window)
		case "destroy":
			s.act.OnWindowDestroyed()
			s.window = nil
		case "resize":
			if s.window == nil {
				return fmt.Errorf("script asks for a resize without a window")
			}
			s.act.OnWindowResized(s.window)
		case "redraw":
			if s.window == nil {
				return fmt.Errorf("script asks for a redraw without a window")
			}
			s.act.OnWindowRedrawNeeded(s.window)
		}
	case scenario.StepFocus:
		s.act.OnWindowFocusChanged(step.Arg == "gained")
	case scenario.StepInputQueue:
		switch step.Arg {
		case "create":
			s.queue = &simQueue{}
			s.act.OnInputQueueCreated(s.queue)
		case "destroy":
			s.act.OnInputQueueDestroyed()
			s.queue = nil
		}
	case scenario.StepOrientation:
		orientation := config.OrientationPortrait
		if step.Arg == "landscape" {
			orientation = config.OrientationLandscape
		}
		s.act.OnConfigurationChanged(&config.Configuration{
			Orientation: orientation,
			Language:    "en",
			Country:     "US",
		})
	case scenario.StepDestroy:
		s.act.OnDestroy()
	}
	return nil
}

// appMain is the simulated application: it polls, narrates every event, and
// exercises the save/load capabilities.
func (s *simulator) appMain(app *activity.App) {
	appLogf := func(format string, args ...any) {
		fmt.Printf("[%s app] %s\n", s.name, fmt.Sprintf(format, args...))
	}

	for {
		app.PollEvents(-1, func(ev activity.Event) {
			switch e := ev.(type) {
			case activity.ResumeEvent:
				if state := e.Loader.Load(); state != nil {
					appLogf("resumed, restored %q", state)
				} else {
					appLogf("resumed, no saved state")
				}
			case activity.SaveStateEvent:
				state := fmt.Sprintf("phase=%s", app.ActivityState())
				e.Saver.Store([]byte(state))
				appLogf("stored %q", state)
			case activity.InitWindowEvent:
				appLogf("window ready: %v", app.NativeWindow() != nil)
			case activity.ConfigChangedEvent:
				appLogf("config now %s", app.Config().Get())
			case activity.InputAvailableEvent:
				app.InputEvents(func(input.Event) input.Status {
					return input.Handled
				})
			default:
				appLogf("%T", ev)
			}
		})
		if app.DestroyRequested() {
			appLogf("destroy requested, exiting")
			return
		}
	}
}

// simWindow is a reference-counted stand-in for a platform surface. The
// host and application goroutines both touch the count.
type simWindow struct {
	refs atomic.Int32
}

func (w *simWindow) Acquire() { w.refs.Add(1) }
func (w *simWindow) Release() { w.refs.Add(-1) }

var _ glue.Window = (*simWindow)(nil)

// simQueue is an input queue with no events; it exists so scripts can
// exercise the attach/detach handshakes.
type simQueue struct{}

func (*simQueue) AttachLooper(*looper.Looper, int32)  {}
func (*simQueue) DetachLooper()                       {}
func (*simQueue) NextEvent() (input.Event, bool)      { return nil, false }
func (*simQueue) FinishEvent(ev input.Event, ok bool) {}

var _ input.Queue = (*simQueue)(nil)
