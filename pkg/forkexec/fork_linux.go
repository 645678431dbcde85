package forkexec

import (
	"os"
	"syscall"
	"unsafe" // required for go:linkname.

	"golang.org/x/sys/unix"
)

//go:linkname beforeFork syscall.runtime_BeforeFork
func beforeFork()

//go:linkname afterFork syscall.runtime_AfterFork
func afterFork()

//go:linkname afterForkInChild syscall.runtime_AfterForkInChild
func afterForkInChild()

// Runner holds the exec parameters for the tracee child process.
type Runner struct {
	// argv and env for the execve syscall in the child
	Args []string
	Env  []string

	// Ptrace makes the child call ptrace(PTRACE_TRACEME) before execve.
	// The runtime OS thread must be locked before calling Start when set,
	// since later ptrace requests must come from the forking thread.
	Ptrace bool
}

// Start forks and execs the child. p holds the handshake pipe descriptors,
// p[0] the read end kept by the parent and p[1] the write end used by the
// child to report a setup failure. Start returns the child pid; it does not
// wait for the handshake, the caller closes p[1] and reads p[0].
//
// Reference to src/syscall/exec_linux.go
//
//go:norace
func (r *Runner) Start(p [2]int) (int, error) {
	env := r.Env
	if env == nil {
		env = os.Environ()
	}
	argv0, argv, envv, err := prepareExec(r.Args, env)
	if err != nil {
		return 0, err
	}

	// Acquire the fork lock so that no other threads
	// create new fds that are not yet close-on-exec
	// before we fork.
	syscall.ForkLock.Lock()

	pid, err1 := forkAndExecInChild(argv0, argv, envv, r.Ptrace, p)

	// restore all signals
	afterFork()
	syscall.ForkLock.Unlock()

	if err1 != 0 {
		return 0, err1
	}
	return int(pid), nil
}

//go:norace
func forkAndExecInChild(argv0 *byte, argv, env []*byte, traceMe bool, p [2]int) (r1 uintptr, err1 syscall.Errno) {
	// About to call fork.
	// No more allocation or calls of non-assembly functions.
	beforeFork()

	r1, _, err1 = syscall.RawSyscall6(syscall.SYS_CLONE, uintptr(syscall.SIGCHLD), 0, 0, 0, 0, 0)
	if err1 != 0 || r1 != 0 {
		// in parent process, immediate return
		return
	}

	// In child process
	afterForkInChild()
	// Notice: cannot call any GO functions beyond this point

	pipe := uintptr(p[1])

	// The read end belongs to the parent.
	if _, _, err1 = syscall.RawSyscall(syscall.SYS_CLOSE, uintptr(p[0]), 0, 0); err1 != 0 {
		childExitError(pipe, LocCloseRead, err1)
	}

	// Make the child a tracee of the parent. pid, addr and data are ignored.
	if traceMe {
		_, _, err1 = syscall.RawSyscall(syscall.SYS_PTRACE, uintptr(syscall.PTRACE_TRACEME), 0, 0)
		if err1 != 0 {
			childExitError(pipe, LocPtraceMe, err1)
		}
	}

	_, _, err1 = syscall.RawSyscall(unix.SYS_EXECVE, uintptr(unsafe.Pointer(argv0)),
		uintptr(unsafe.Pointer(&argv[0])), uintptr(unsafe.Pointer(&env[0])))
	// A successful execve never returns; the failure must not be silent.
	childExitError(pipe, LocExecve, err1)
	return
}

//go:nosplit
func childExitError(pipe uintptr, loc ErrorLocation, err syscall.Errno) {
	childError := ChildError{
		Err:      err,
		Location: loc,
	}

	// send the report on the pipe, then exit non-zero
	syscall.RawSyscall(unix.SYS_WRITE, pipe, uintptr(unsafe.Pointer(&childError)), unsafe.Sizeof(childError))
	for {
		syscall.RawSyscall(syscall.SYS_EXIT, uintptr(err), 0, 0)
	}
}

// prepareExec prepares execve parameters
func prepareExec(args, env []string) (*byte, []*byte, []*byte, error) {
	argv0, err := syscall.BytePtrFromString(args[0])
	if err != nil {
		return nil, nil, nil, err
	}
	argv, err := syscall.SlicePtrFromStrings(args)
	if err != nil {
		return nil, nil, nil, err
	}
	envv, err := syscall.SlicePtrFromStrings(env)
	if err != nil {
		return nil, nil, nil, err
	}
	return argv0, argv, envv, nil
}
