// Package pipe wraps a unidirectional pipe used to hand a setup failure
// from a forked child back to the tracer before it blocks on the child.
package pipe

import (
	"fmt"

	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// closed is the sentinel stored in place of a file descriptor that has
// already been released.
const closed = -1

// bufSize is the fixed size of the read buffer. A setup failure report is
// always far smaller than this.
const bufSize = 1024

// Pipe is a pair of pipe file descriptors. After a fork the parent keeps the
// read end and the child keeps the write end, each side closing the end it
// does not need.
type Pipe struct {
	readFd  *atomic.Int32
	writeFd *atomic.Int32
}

// New creates the pipe.
//
// With closeOnExec the two descriptors carry O_CLOEXEC, so a successful
// execve in the child closes its write end automatically and the parent
// observes end-of-file, meaning the exec went through.
func New(closeOnExec bool) (*Pipe, error) {
	var (
		fds   [2]int
		flags int
	)
	if closeOnExec {
		flags = unix.O_CLOEXEC
	}
	if err := unix.Pipe2(fds[:], flags); err != nil {
		return nil, fmt.Errorf("create pipe: %w", err)
	}
	return &Pipe{
		readFd:  atomic.NewInt32(int32(fds[0])),
		writeFd: atomic.NewInt32(int32(fds[1])),
	}, nil
}

// Read blocks until data arrives on the read end, returning up to 1024
// bytes. A zero-length result means the write end was closed without
// anything written.
func (p *Pipe) Read() ([]byte, error) {
	buf := make([]byte, bufSize)

	n, err := unix.Read(int(p.readFd.Load()), buf)
	for err == unix.EINTR {
		n, err = unix.Read(int(p.readFd.Load()), buf)
	}
	if err != nil {
		return nil, fmt.Errorf("read from pipe: %w", err)
	}
	return buf[:n], nil
}

// Write writes buf to the write end.
func (p *Pipe) Write(buf []byte) error {
	_, err := unix.Write(int(p.writeFd.Load()), buf)
	for err == unix.EINTR {
		_, err = unix.Write(int(p.writeFd.Load()), buf)
	}
	if err != nil {
		return fmt.Errorf("write to pipe: %w", err)
	}
	return nil
}

// ReadFd returns the raw read end descriptor, or -1 after CloseRead.
func (p *Pipe) ReadFd() int {
	return int(p.readFd.Load())
}

// WriteFd returns the raw write end descriptor, or -1 after CloseWrite.
func (p *Pipe) WriteFd() int {
	return int(p.writeFd.Load())
}

// CloseRead closes the read end. Calling it again is a no-op: the swap to
// the sentinel guarantees the descriptor is released at most once.
func (p *Pipe) CloseRead() {
	if fd := p.readFd.Swap(closed); fd != closed {
		unix.Close(int(fd))
	}
}

// CloseWrite closes the write end, idempotently.
func (p *Pipe) CloseWrite() {
	if fd := p.writeFd.Swap(closed); fd != closed {
		unix.Close(int(fd))
	}
}

// Close force-closes both ends regardless of prior explicit closes.
func (p *Pipe) Close() {
	p.CloseRead()
	p.CloseWrite()
}
