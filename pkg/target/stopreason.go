package target

import (
	"fmt"
	"syscall"

	"github.com/hitzhangjie/tinydbg/pkg/logflags"
	"golang.org/x/sys/unix"
)

// ProcessState is the lifecycle state of a tracee.
type ProcessState int

const (
	// Stopped means the tracee is halted in a trace-stop.
	Stopped ProcessState = iota
	// Running means the tracee was resumed and has not stopped yet.
	Running
	// Exited means the tracee terminated normally.
	Exited
	// Terminated means the tracee was killed by a signal.
	Terminated
)

func (s ProcessState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// StopReason records why a wait on the tracee completed. Code carries the
// exit status for Exited and the signal number for Terminated and Stopped.
type StopReason struct {
	State ProcessState
	Code  int
}

// newStopReason decodes the wait status populated by wait4.
func newStopReason(status unix.WaitStatus) StopReason {
	switch {
	case status.Exited():
		return StopReason{State: Exited, Code: status.ExitStatus()}
	case status.Signaled():
		return StopReason{State: Terminated, Code: int(status.Signal())}
	case status.Stopped():
		return StopReason{State: Stopped, Code: int(status.StopSignal())}
	}

	// unrecognized status shape, decode to a sentinel instead of aborting
	logflags.DebuggerLogger().Errorf("could not decode wait status %#x", int(status))
	return StopReason{State: Stopped, Code: -1}
}

// Message renders the one-line stop report for the tracee identified by pid.
func (r StopReason) Message(pid int) string {
	switch r.State {
	case Exited:
		return fmt.Sprintf("process %d exited with status %d", pid, r.Code)
	case Terminated:
		return fmt.Sprintf("process %d terminated with signal %s", pid, signalName(r.Code))
	case Stopped:
		return fmt.Sprintf("process %d stopped with signal %s", pid, signalName(r.Code))
	}
	return fmt.Sprintf("process %d in unexpected state %s", pid, r.State)
}

func signalName(sig int) string {
	if name := unix.SignalName(syscall.Signal(sig)); name != "" {
		return name
	}
	return "UNKNOWN"
}
