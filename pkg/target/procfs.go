package target

import (
	"bufio"
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
)

// tracee statuses in /proc/<pid>/stat
const (
	statusSleeping  = 'S'
	statusRunning   = 'R'
	statusTraceStop = 't'
	statusZombie    = 'Z'
)

// readProcComm read /proc/pid/comm to load the command name of process.
func readProcComm(pid int) (string, error) {
	comm, err := ioutil.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("could not read proc comm: %v", err)
	}
	return string(bytes.TrimSuffix(comm, []byte("\n"))), nil
}

// status returns the run state letter of pid from /proc/pid/stat.
func status(pid int, comm string) rune {
	f, err := os.Open(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return '\000'
	}
	defer f.Close()
	rd := bufio.NewReader(f)

	var (
		p     int
		state rune
	)

	// The second field of /proc/pid/stat is the name of the task in
	// parenthesis. Since both parenthesis and spaces can appear inside the
	// name and no escaping happens, the caller supplies the name read from
	// /proc/pid/comm and we scan around it.
	_, _ = fmt.Fscanf(rd, "%d ("+comm+")  %c", &p, &state)
	return state
}
