package target

import (
	"os/exec"
	"syscall"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tinydbg/pkg/forkexec"
)

// fakeBackend scripts the OS interactions so the lifecycle state machine
// can be driven without forking anything.
type fakeBackend struct {
	forkPid  int
	forkErr  error
	childErr *forkexec.ChildError // failure report the fake child writes

	attachErr error
	contErr   error
	waits     []unix.WaitStatus
	waitErr   error

	calls []string
}

func (f *fakeBackend) ForkExec(args []string, traceMe bool, p [2]int) (int, error) {
	f.calls = append(f.calls, "forkexec")
	if f.forkErr != nil {
		return 0, f.forkErr
	}
	if f.childErr != nil {
		buf := make([]byte, unsafe.Sizeof(*f.childErr))
		*(*forkexec.ChildError)(unsafe.Pointer(&buf[0])) = *f.childErr
		_, _ = unix.Write(p[1], buf)
	}
	return f.forkPid, nil
}

func (f *fakeBackend) Attach(pid int) error {
	f.calls = append(f.calls, "attach")
	return f.attachErr
}

func (f *fakeBackend) Cont(pid int, sig int) error {
	f.calls = append(f.calls, "cont")
	return f.contErr
}

func (f *fakeBackend) Detach(pid int) error {
	f.calls = append(f.calls, "detach")
	return nil
}

func (f *fakeBackend) Wait(pid int, options int) (unix.WaitStatus, error) {
	f.calls = append(f.calls, "wait")
	if f.waitErr != nil {
		return 0, f.waitErr
	}
	if len(f.waits) == 0 {
		return 0, unix.ECHILD
	}
	status := f.waits[0]
	f.waits = f.waits[1:]
	return status, nil
}

func (f *fakeBackend) Kill(pid int, sig syscall.Signal) error {
	f.calls = append(f.calls, "kill")
	return nil
}

const (
	stoppedBySigtrap = unix.WaitStatus(0x057f)
	exitedWithThree  = unix.WaitStatus(0x0300)
)

func TestLaunch_StateMachine(t *testing.T) {
	fake := &fakeBackend{forkPid: 42, waits: []unix.WaitStatus{stoppedBySigtrap, exitedWithThree}}

	dbp, err := launchWith(fake, "/bin/true", nil)
	require.Nil(t, err)
	defer dbp.Detach()

	assert.Equal(t, 42, dbp.Pid())
	assert.Equal(t, Stopped, dbp.State())

	require.Nil(t, dbp.Resume())
	assert.Equal(t, Running, dbp.State())

	// resume while running is rejected
	assert.Equal(t, ErrNotStopped, dbp.Resume())

	reason, err := dbp.WaitOnSignal()
	require.Nil(t, err)
	assert.Equal(t, StopReason{Exited, 3}, reason)
	assert.Equal(t, Exited, dbp.State())

	// terminal state: any further resume must fail
	assert.Equal(t, ErrProcessGone, dbp.Resume())
}

func TestLaunch_ChildSetupFailure(t *testing.T) {
	fake := &fakeBackend{
		forkPid:  43,
		childErr: &forkexec.ChildError{Err: syscall.ENOENT, Location: forkexec.LocExecve},
	}

	dbp, err := launchWith(fake, "/nonexistent", nil)
	require.NotNil(t, err)
	assert.Nil(t, dbp)
	assert.Contains(t, err.Error(), "failed to exec within child process")
	// the dying child was reaped
	assert.Contains(t, fake.calls, "wait")
}

func TestLaunch_WithoutTrace(t *testing.T) {
	fake := &fakeBackend{forkPid: 44}

	dbp, err := launchWith(fake, "/bin/true", nil, WithoutTrace())
	require.Nil(t, err)
	defer dbp.Detach()

	// no construction-time wait happens for an untraced launch
	assert.NotContains(t, fake.calls, "wait")
	assert.Equal(t, Stopped, dbp.State())
}

func TestAttach_RejectsBadPid(t *testing.T) {
	for _, pid := range []int{0, -1, -42} {
		dbp, err := Attach(pid)
		assert.Equal(t, ErrBadPid, err)
		assert.Nil(t, dbp)
	}
}

func TestAttach_StateMachine(t *testing.T) {
	fake := &fakeBackend{waits: []unix.WaitStatus{unix.WaitStatus(0x137f)}}

	dbp, err := attachWith(fake, 45)
	require.Nil(t, err)
	defer dbp.Detach()

	assert.Equal(t, Stopped, dbp.State())
	assert.Equal(t, []string{"attach", "wait"}, fake.calls)
}

func TestDetach_RunningTracee(t *testing.T) {
	fake := &fakeBackend{forkPid: 46, waits: []unix.WaitStatus{stoppedBySigtrap, unix.WaitStatus(0x137f)}}

	dbp, err := launchWith(fake, "/bin/true", nil)
	require.Nil(t, err)
	require.Nil(t, dbp.Resume())

	fake.calls = nil
	dbp.Detach()

	// halt, wait, detach, continue, then kill+reap since we spawned it
	assert.Equal(t, []string{"kill", "wait", "detach", "kill", "kill", "wait"}, fake.calls)

	// second teardown is a no-op
	fake.calls = nil
	dbp.Detach()
	assert.Empty(t, fake.calls)
}

// -----------------------------------------------------------------------
// integration tests against real processes

func TestLaunch_Real(t *testing.T) {
	dbp, err := Launch("/bin/sleep", []string{"30"})
	require.Nil(t, err)
	defer dbp.Detach()

	assert.Equal(t, Stopped, dbp.State())

	comm, err := readProcComm(dbp.Pid())
	require.Nil(t, err)
	assert.Equal(t, rune(statusTraceStop), status(dbp.Pid(), comm))
}

func TestLaunch_NonexistentPath(t *testing.T) {
	dbp, err := Launch("/nonexistent/definitely-not-a-binary", nil)
	require.NotNil(t, err)
	assert.Nil(t, dbp)
	assert.Contains(t, err.Error(), "failed to exec within child process")
}

func TestResume_Real(t *testing.T) {
	dbp, err := Launch("/bin/sleep", []string{"30"})
	require.Nil(t, err)
	defer dbp.Detach()

	require.Nil(t, dbp.Resume())
	assert.Equal(t, Running, dbp.State())

	// give the tracee a moment to leave the trace-stop
	time.Sleep(100 * time.Millisecond)
	comm, err := readProcComm(dbp.Pid())
	require.Nil(t, err)
	st := status(dbp.Pid(), comm)
	assert.True(t, st == statusSleeping || st == statusRunning, "status = %c", st)
}

func TestRoundtrip_ExitCode(t *testing.T) {
	dbp, err := Launch("/bin/sh", []string{"-c", "exit 7"})
	require.Nil(t, err)
	defer dbp.Detach()

	require.Nil(t, dbp.Resume())
	reason, err := dbp.WaitOnSignal()
	require.Nil(t, err)
	assert.Equal(t, StopReason{Exited, 7}, reason)

	assert.Equal(t, ErrProcessGone, dbp.Resume())
}

func TestDetach_AfterTraceeExited(t *testing.T) {
	dbp, err := Launch("/bin/true", nil)
	require.Nil(t, err)

	require.Nil(t, dbp.Resume())
	reason, err := dbp.WaitOnSignal()
	require.Nil(t, err)
	assert.Equal(t, Exited, reason.State)

	// kill/detach/wait on the dead pid must be tolerated silently
	dbp.Detach()
}

func TestAttach_Real(t *testing.T) {
	sleeper := exec.Command("/bin/sleep", "30")
	require.Nil(t, sleeper.Start())
	defer func() {
		_ = sleeper.Process.Kill()
		_, _ = sleeper.Process.Wait()
	}()

	dbp, err := Attach(sleeper.Process.Pid)
	require.Nil(t, err)
	assert.Equal(t, Stopped, dbp.State())

	comm, err := readProcComm(dbp.Pid())
	require.Nil(t, err)
	assert.Equal(t, rune(statusTraceStop), status(dbp.Pid(), comm))

	// detach leaves the attached process running and untraced
	dbp.Detach()
	time.Sleep(100 * time.Millisecond)
	st := status(dbp.Pid(), comm)
	assert.True(t, st == statusSleeping || st == statusRunning, "status = %c", st)
}

func TestAttach_NonexistentPid(t *testing.T) {
	// pick a pid far above pid_max defaults
	dbp, err := Attach(99999999)
	require.NotNil(t, err)
	assert.Nil(t, dbp)
}
