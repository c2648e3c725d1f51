package glue

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/go-drift/hostglue/pkg/errors"
)

// Cmd is a lifecycle notification sent from the host goroutine to the
// application goroutine, encoded as a single byte on the command pipe.
type Cmd byte

const (
	CmdInputQueueChanged Cmd = iota
	CmdInitWindow
	CmdTermWindow
	CmdWindowResized
	CmdWindowRedrawNeeded
	CmdContentRectChanged
	CmdGainedFocus
	CmdLostFocus
	CmdConfigChanged
	CmdLowMemory
	CmdStart
	CmdResume
	CmdSaveState
	CmdPause
	CmdStop
	CmdDestroy
)

func (c Cmd) String() string {
	switch c {
	case CmdInputQueueChanged:
		return "InputQueueChanged"
	case CmdInitWindow:
		return "InitWindow"
	case CmdTermWindow:
		return "TermWindow"
	case CmdWindowResized:
		return "WindowResized"
	case CmdWindowRedrawNeeded:
		return "WindowRedrawNeeded"
	case CmdContentRectChanged:
		return "ContentRectChanged"
	case CmdGainedFocus:
		return "GainedFocus"
	case CmdLostFocus:
		return "LostFocus"
	case CmdConfigChanged:
		return "ConfigChanged"
	case CmdLowMemory:
		return "LowMemory"
	case CmdStart:
		return "Start"
	case CmdResume:
		return "Resume"
	case CmdSaveState:
		return "SaveState"
	case CmdPause:
		return "Pause"
	case CmdStop:
		return "Stop"
	case CmdDestroy:
		return "Destroy"
	default:
		return fmt.Sprintf("Cmd(%d)", byte(c))
	}
}

// cmdFromByte decodes a command byte. Unknown values are rejected rather
// than cast so that newer hosts with a larger command set degrade to a
// logged no-op instead of corrupting dispatch.
func cmdFromByte(b byte) (Cmd, bool) {
	if b <= byte(CmdDestroy) {
		return Cmd(b), true
	}
	return 0, false
}

// writeCmd performs the blocking single-byte command write. Interrupted
// writes are retried; any other failure is reported and the command is
// dropped, since the host callback that triggered it has no way to surface
// the error to the platform.
func writeCmd(fd int, cmd Cmd) {
	buf := []byte{byte(cmd)}
	for {
		n, err := unix.Write(fd, buf)
		switch {
		case n == 1:
			return
		case err == unix.EINTR:
			continue
		default:
			errors.Report(&errors.GlueError{
				Op:   "glue.writeCmd",
				Kind: errors.KindPipe,
				Err:  fmt.Errorf("writing %s: n=%d: %w", cmd, n, errOrSpurious(err)),
			})
			return
		}
	}
}

// readCmd performs the blocking single-byte command read. Interrupted reads
// are retried. A zero-length read (peer closed) or an unrecognized byte is
// reported and yields ok=false.
func readCmd(fd int) (Cmd, bool) {
	buf := make([]byte, 1)
	for {
		n, err := unix.Read(fd, buf)
		switch {
		case n == 1:
			cmd, ok := cmdFromByte(buf[0])
			if !ok {
				errors.Report(&errors.GlueError{
					Op:   "glue.readCmd",
					Kind: errors.KindPipe,
					Err:  fmt.Errorf("spurious, unknown cmd byte: %d", buf[0]),
				})
				return 0, false
			}
			return cmd, true
		case err == unix.EINTR:
			continue
		default:
			errors.Report(&errors.GlueError{
				Op:   "glue.readCmd",
				Kind: errors.KindPipe,
				Err:  fmt.Errorf("n=%d: %w", n, errOrSpurious(err)),
			})
			return 0, false
		}
	}
}

// errOrSpurious keeps the %w verb usable when a short read or write came
// back with no error at all.
func errOrSpurious(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("spurious short transfer")
}
