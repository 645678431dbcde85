package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// raw wait statuses as encoded by the kernel: exit code in the second byte,
// termination signal in the low bits, 0x7f marks a stop.
func TestNewStopReason(t *testing.T) {
	tests := []struct {
		name   string
		status unix.WaitStatus
		want   StopReason
	}{
		{"exited zero", unix.WaitStatus(0x0000), StopReason{Exited, 0}},
		{"exited with code", unix.WaitStatus(0x0700), StopReason{Exited, 7}},
		{"terminated by SIGKILL", unix.WaitStatus(0x0009), StopReason{Terminated, 9}},
		{"terminated by SIGSEGV with core", unix.WaitStatus(0x008b), StopReason{Terminated, 11}},
		{"stopped by SIGTRAP", unix.WaitStatus(0x057f), StopReason{Stopped, 5}},
		{"stopped by SIGSTOP", unix.WaitStatus(0x137f), StopReason{Stopped, 19}},
		{"unrecognized shape", unix.WaitStatus(0xffff), StopReason{Stopped, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newStopReason(tt.status))
		})
	}
}

func TestStopReasonMessage(t *testing.T) {
	assert.Equal(t, "process 42 exited with status 3",
		StopReason{Exited, 3}.Message(42))
	assert.Equal(t, "process 42 terminated with signal SIGKILL",
		StopReason{Terminated, 9}.Message(42))
	assert.Equal(t, "process 42 stopped with signal SIGTRAP",
		StopReason{Stopped, 5}.Message(42))

	// the sentinel code decodes to no known signal
	assert.Equal(t, "process 42 stopped with signal UNKNOWN",
		StopReason{Stopped, -1}.Message(42))
}

func TestProcessStateString(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "exited", Exited.String())
	assert.Equal(t, "terminated", Terminated.String())
}
