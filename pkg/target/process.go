package target

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tinydbg/pkg/forkexec"
	"github.com/hitzhangjie/tinydbg/pkg/logflags"
	"github.com/hitzhangjie/tinydbg/pkg/pipe"
)

// DBPProcess is the tracee of the current debug session.
var DBPProcess *DebuggedProcess

var (
	// ErrBadPid is returned by Attach before any OS call for pid <= 0.
	ErrBadPid = errors.New("invalid pid: pid must be greater than 0")
	// ErrProcessGone is returned by Resume once the tracee reached a
	// terminal state.
	ErrProcessGone = errors.New("tracee has already exited or terminated")
	// ErrNotStopped is returned by Resume when the tracee is not halted.
	ErrNotStopped = errors.New("tracee is not stopped")
)

// DebuggedProcess 被调试进程信息
//
// It owns the tracee's pid and lifecycle state. The state only changes in
// Resume (to Running) and in the wait-status decoder, never ad hoc.
type DebuggedProcess struct {
	pid   int
	state ProcessState

	// ownsLifetime is set when the tracee was spawned by Launch; the
	// teardown then kills and reaps it unconditionally.
	ownsLifetime bool
	// isTraced is set once a trace relationship was actually established.
	isTraced bool
	detached bool

	backend TraceBackend
	logger  *logrus.Entry

	once       *sync.Once
	ptraceCh   chan func() // ptrace请求统一发送到这里，由专门协程处理
	ptraceDone chan int    // ptrace请求完成
	stopCh     chan int    // 通知需要停止调试
}

type launchOptions struct {
	trace bool
}

// LaunchOption adjusts how Launch spawns the tracee.
type LaunchOption func(*launchOptions)

// WithoutTrace launches the child without establishing a trace
// relationship. No construction-time wait is performed: the caller gets a
// handle to a possibly already-running process.
func WithoutTrace() LaunchOption {
	return func(o *launchOptions) {
		o.trace = false
	}
}

func newDebuggedProcess(backend TraceBackend) *DebuggedProcess {
	return &DebuggedProcess{
		state:      Stopped,
		backend:    backend,
		logger:     logflags.DebuggerLogger(),
		once:       &sync.Once{},
		ptraceCh:   make(chan func()),
		ptraceDone: make(chan int),
		stopCh:     make(chan int),
	}
}

// Launch 创建一个待调试进程
//
// It forks, optionally puts the child under PTRACE_TRACEME, and execs path
// with args. A setup failure in the child between fork and exec is read
// back over the handshake pipe and returned here; the failed child is
// reaped so no zombie is left behind.
func Launch(path string, args []string, opts ...LaunchOption) (*DebuggedProcess, error) {
	return launchWith(ptraceBackend{}, path, args, opts...)
}

func launchWith(backend TraceBackend, path string, args []string, opts ...LaunchOption) (*DebuggedProcess, error) {
	o := launchOptions{trace: true}
	for _, opt := range opts {
		opt(&o)
	}

	target := newDebuggedProcess(backend)
	target.ownsLifetime = true
	target.isTraced = o.trace

	defer func() {
		if target.pid == 0 {
			target.StopPtrace()
		}
	}()

	ch, err := pipe.New(true)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	var pid int
	target.ExecPtrace(func() {
		pid, err = backend.ForkExec(append([]string{path}, args...), o.trace, [2]int{ch.ReadFd(), ch.WriteFd()})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fork tracer process: %w", err)
	}

	// parent half of the handshake: give up the write end, then block
	// until the child either reports a failure or execs (which closes its
	// write end through close-on-exec and reads back empty).
	ch.CloseWrite()
	buf, err := ch.Read()
	if err != nil {
		target.reapAbandoned(pid)
		return nil, err
	}
	if cerr := forkexec.ReadChildError(buf); cerr != nil {
		// the child is exiting on its own, reap it
		target.ExecPtrace(func() { _, _ = backend.Wait(pid, 0) })
		return nil, fmt.Errorf("launch %s: %w", path, cerr)
	}

	if o.trace {
		// consume the trace-stop the kernel delivers on a traced execve
		var status unix.WaitStatus
		target.ExecPtrace(func() {
			status, err = backend.Wait(pid, 0)
		})
		if err != nil {
			target.reapAbandoned(pid)
			return nil, fmt.Errorf("failed to wait on tracee: %w", err)
		}
		target.state = newStopReason(status).State
		target.logger.Debugf("process %d stopped at execve trap", pid)
	}

	target.pid = pid
	return target, nil
}

// reapAbandoned kills and reaps a half-launched child after a parent-side
// failure, so launch errors never leave a live process behind.
func (t *DebuggedProcess) reapAbandoned(pid int) {
	t.ExecPtrace(func() {
		_ = t.backend.Kill(pid, syscall.SIGKILL)
		_, _ = t.backend.Wait(pid, 0)
	})
}

// Attach trace一个运行中的目标进程
func Attach(pid int) (*DebuggedProcess, error) {
	return attachWith(ptraceBackend{}, pid)
}

func attachWith(backend TraceBackend, pid int) (*DebuggedProcess, error) {
	if pid <= 0 {
		return nil, ErrBadPid
	}

	target := newDebuggedProcess(backend)
	target.pid = pid
	target.isTraced = true

	var err error
	target.ExecPtrace(func() {
		err = backend.Attach(pid)
	})
	if err != nil {
		target.StopPtrace()
		return nil, fmt.Errorf("failed to attach to provided pid '%d': %w", pid, err)
	}

	// the kernel sends the tracee a SIGSTOP on attach, consume it
	if _, err = target.WaitOnSignal(); err != nil {
		target.StopPtrace()
		return nil, err
	}
	target.logger.Debugf("process %d attached", pid)
	return target, nil
}

// Pid returns the process ID of the tracee.
func (t *DebuggedProcess) Pid() int {
	return t.pid
}

// State returns the current lifecycle state of the tracee.
func (t *DebuggedProcess) State() ProcessState {
	return t.state
}

// Resume 让tracee恢复执行，直到下一个停止事件
func (t *DebuggedProcess) Resume() error {
	switch t.state {
	case Exited, Terminated:
		return ErrProcessGone
	case Running:
		return ErrNotStopped
	}

	var err error
	t.ExecPtrace(func() {
		err = t.backend.Cont(t.pid, 0)
	})
	if err != nil {
		return fmt.Errorf("failed to resume execution for tracee: %w", err)
	}

	t.state = Running
	return nil
}

// WaitOnSignal blocks until the tracee changes state and returns the
// decoded stop reason. The tracee's lifecycle state follows the decode.
func (t *DebuggedProcess) WaitOnSignal() (StopReason, error) {
	var (
		status unix.WaitStatus
		err    error
	)
	t.ExecPtrace(func() {
		status, err = t.backend.Wait(t.pid, 0)
	})
	if err != nil {
		return StopReason{}, fmt.Errorf("failed to wait on tracee: %w", err)
	}

	reason := newStopReason(status)
	t.state = reason.State
	return reason, nil
}

// Detach tears the session down. If a trace relationship exists and the
// tracee is running it is first halted, then detached and sent SIGCONT so
// it is left runnable and untraced. A tracee spawned by Launch is killed
// and reaped unconditionally. Signaling or reaping an already-dead process
// is a benign no-op, so Detach is safe to call at any point and repeatedly.
func (t *DebuggedProcess) Detach() {
	if t.pid == 0 || t.detached {
		return
	}
	t.detached = true

	t.ExecPtrace(func() {
		if t.isTraced {
			if t.state == Running {
				_ = t.backend.Kill(t.pid, syscall.SIGSTOP)
				_, _ = t.backend.Wait(t.pid, 0)
			}
			if err := t.backend.Detach(t.pid); err != nil {
				t.logger.Debugf("detach tracee %d: %v", t.pid, err)
			}
			_ = t.backend.Kill(t.pid, syscall.SIGCONT)
		}
		if t.ownsLifetime {
			_ = t.backend.Kill(t.pid, syscall.SIGKILL)
			_, _ = t.backend.Wait(t.pid, 0)
		}
	})
	t.StopPtrace()
}

// ExecPtrace runs fn on the dispatcher goroutine.
//
// ensure all ptrace requests goes via the same tracer (thread)
//
// issue: https://github.com/golang/go/issues/7699
func (t *DebuggedProcess) ExecPtrace(fn func()) {
	t.once.Do(func() {
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			for {
				select {
				case reqFn := <-t.ptraceCh:
					reqFn()
					t.ptraceDone <- 1
				case <-t.stopCh:
					return
				}
			}
		}()
	})
	t.ptraceCh <- fn
	<-t.ptraceDone
}

// StopPtrace stops the dispatcher goroutine. Safe to call once only, which
// Detach guarantees.
func (t *DebuggedProcess) StopPtrace() {
	close(t.stopCh)
}
