// Package forkexec forks the tracer and replaces the child's image with the
// tracee program, optionally under PTRACE_TRACEME.
//
// A setup failure in the child (between fork and a successful execve) is
// reported back to the parent through a close-on-exec pipe, so the parent
// can tell "the tracee is running" apart from "the child died during setup"
// without racing on waitpid.
package forkexec
