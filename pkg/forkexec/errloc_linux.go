package forkexec

import (
	"syscall"
	"unsafe"
)

// ErrorLocation defines the child-side step at which the fork/exec failed.
type ErrorLocation int

// ChildError is the failure report a child writes to the handshake pipe
// before exiting. It has a fixed layout so the child can emit it with a
// single raw write.
type ChildError struct {
	Err      syscall.Errno
	Location ErrorLocation
}

// Location constants, in the order the child performs each step.
const (
	LocCloseRead ErrorLocation = iota + 1
	LocPtraceMe
	LocExecve
)

var locToString = []string{
	"child setup failed",
	"failed to close pipe read end in child",
	"failed to trace child process",
	"failed to exec within child process",
}

func (e ErrorLocation) String() string {
	if e >= LocCloseRead && e <= LocExecve {
		return locToString[e]
	}
	return locToString[0]
}

func (e ChildError) Error() string {
	return e.Location.String() + ": " + e.Err.Error()
}

// ReadChildError decodes the bytes the parent read from the handshake pipe.
// An empty buffer means the child execed successfully and nil is returned.
// A short read means the child died mid-report and maps to EPIPE.
func ReadChildError(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if uintptr(len(buf)) < unsafe.Sizeof(ChildError{}) {
		return syscall.EPIPE
	}
	return *(*ChildError)(unsafe.Pointer(&buf[0]))
}
