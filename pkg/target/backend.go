package target

import (
	"syscall"

	"github.com/hitzhangjie/tinydbg/pkg/forkexec"
	"golang.org/x/sys/unix"
)

// TraceBackend abstracts the raw OS calls used to control a tracee so the
// state machine can be exercised with a fake in tests. The real
// implementation must only be driven from the ExecPtrace dispatcher thread,
// since the kernel demands all ptrace requests for a tracee come from the
// same tracer thread.
type TraceBackend interface {
	// ForkExec forks and execs args under PTRACE_TRACEME when traceMe is
	// set, reporting child-side setup failures through the pipe pair p.
	ForkExec(args []string, traceMe bool, p [2]int) (int, error)
	// Attach establishes a trace relationship with a running process.
	Attach(pid int) error
	// Cont restarts a stopped tracee, delivering sig if non-zero.
	Cont(pid int, sig int) error
	// Detach ends the trace relationship.
	Detach(pid int) error
	// Wait blocks until the tracee changes state.
	Wait(pid int, options int) (unix.WaitStatus, error)
	// Kill sends sig to the tracee.
	Kill(pid int, sig syscall.Signal) error
}

// ptraceBackend issues the real OS calls.
type ptraceBackend struct{}

func (ptraceBackend) ForkExec(args []string, traceMe bool, p [2]int) (int, error) {
	r := forkexec.Runner{Args: args, Ptrace: traceMe}
	return r.Start(p)
}

func (ptraceBackend) Attach(pid int) error {
	return unix.PtraceAttach(pid)
}

func (ptraceBackend) Cont(pid int, sig int) error {
	return unix.PtraceCont(pid, sig)
}

func (ptraceBackend) Detach(pid int) error {
	return unix.PtraceDetach(pid)
}

func (ptraceBackend) Wait(pid int, options int) (unix.WaitStatus, error) {
	var status unix.WaitStatus
	_, err := unix.Wait4(pid, &status, options, nil)
	for err == unix.EINTR {
		_, err = unix.Wait4(pid, &status, options, nil)
	}
	return status, err
}

func (ptraceBackend) Kill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
