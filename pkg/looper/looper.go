// Package looper provides a descriptor-based multiplexer for the bridge's
// application goroutine.
//
// A Looper waits on an arbitrary set of readable file descriptors plus an
// internal wake pipe, and reports which source fired. It fills the role the
// platform's event looper plays for a native activity: the command pipe and
// the input queue are registered with it, and a Waker interrupts it from any
// goroutine.
package looper

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// EventKind describes why Poll returned.
type EventKind int

const (
	// Timeout means the poll timeout elapsed with no source ready.
	Timeout EventKind = iota
	// Wake means Wake was called, either during the poll or before it.
	Wake
	// Source means a registered descriptor became readable.
	Source
)

func (k EventKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Wake:
		return "wake"
	case Source:
		return "source"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is the result of a single Poll.
type Event struct {
	Kind EventKind
	// Ident identifies the registered source that fired. Valid for Source.
	Ident int32
	// FD is the descriptor that fired. Valid for Source.
	FD int
}

// Looper multiplexes readable file descriptors with wait-with-timeout
// semantics. Registration is safe from any goroutine; Poll must only be
// called from the goroutine that owns the looper.
type Looper struct {
	mu      sync.Mutex
	sources map[int]int32 // fd -> ident

	wakeRead  int
	wakeWrite int
}

// New creates a looper with its wake pipe armed.
func New() (*Looper, error) {
	var fds [2]int
	// Non-blocking on both ends: Wake must never block even if the pipe
	// fills up, and draining must stop at the last buffered byte.
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
		return nil, fmt.Errorf("looper: wake pipe: %w", err)
	}
	return &Looper{
		sources:   make(map[int]int32),
		wakeRead:  fds[0],
		wakeWrite: fds[1],
	}, nil
}

// AddFD registers a descriptor to be reported with the given ident when it
// becomes readable.
func (l *Looper) AddFD(fd int, ident int32) {
	l.mu.Lock()
	l.sources[fd] = ident
	l.mu.Unlock()
}

// RemoveFD unregisters a descriptor. Removing an unregistered descriptor is
// a no-op.
func (l *Looper) RemoveFD(fd int) {
	l.mu.Lock()
	delete(l.sources, fd)
	l.mu.Unlock()
}

// Wake interrupts the current poll, or makes the next poll return a Wake
// event if the looper is not currently blocked. Safe to call concurrently
// from any goroutine.
func (l *Looper) Wake() {
	b := []byte{1}
	for {
		_, err := unix.Write(l.wakeWrite, b)
		if err == unix.EINTR {
			continue
		}
		// EAGAIN means a wake is already pending, which is just as good.
		return
	}
}

// Poll blocks until a registered descriptor is readable, Wake is called, or
// the timeout elapses. A negative timeout blocks indefinitely. A returned
// error means the multiplexer itself failed and the looper is unusable.
func (l *Looper) Poll(timeout time.Duration) (Event, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		l.mu.Lock()
		pollfds := make([]unix.PollFd, 0, len(l.sources)+1)
		pollfds = append(pollfds, unix.PollFd{Fd: int32(l.wakeRead), Events: unix.POLLIN})
		for fd := range l.sources {
			pollfds = append(pollfds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		}
		l.mu.Unlock()

		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			// Round up so a sub-millisecond remainder can't time out early.
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}

		n, err := unix.Poll(pollfds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return Event{}, fmt.Errorf("looper: poll: %w", err)
		}
		if n == 0 {
			return Event{Kind: Timeout}, nil
		}

		// Wake takes priority over sources so that an explicit interrupt is
		// never starved by a busy descriptor.
		if pollfds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
			l.drainWakePipe()
			return Event{Kind: Wake}, nil
		}

		for _, pfd := range pollfds[1:] {
			if pfd.Revents&unix.POLLNVAL != 0 {
				return Event{}, fmt.Errorf("looper: invalid descriptor %d", pfd.Fd)
			}
			// POLLERR and POLLHUP are reported as readable so the owner can
			// observe the failure or EOF through its own read.
			if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
				l.mu.Lock()
				ident, ok := l.sources[int(pfd.Fd)]
				l.mu.Unlock()
				if !ok {
					// Removed between snapshot and wakeup; ignore this round.
					continue
				}
				return Event{Kind: Source, Ident: ident, FD: int(pfd.Fd)}, nil
			}
		}

		// Spurious wakeup with no readable source; poll again.
	}
}

// drainWakePipe consumes all pending wake bytes so a single Wake event is
// delivered no matter how many times Wake was called.
func (l *Looper) drainWakePipe() {
	buf := make([]byte, 16)
	for {
		n, err := unix.Read(l.wakeRead, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return
		}
	}
}

// Close releases the wake pipe. The looper must not be polled afterwards.
func (l *Looper) Close() error {
	err1 := unix.Close(l.wakeRead)
	err2 := unix.Close(l.wakeWrite)
	if err1 != nil {
		return err1
	}
	return err2
}
