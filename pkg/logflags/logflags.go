// Package logflags configures the per-layer loggers used across tinydbg.
package logflags

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
)

var debugger = false
var forkExec = false

func makeLogger(flag bool, fields logrus.Fields) *logrus.Entry {
	logger := logrus.New().WithFields(fields)
	logger.Logger.Level = logrus.DebugLevel
	if !flag {
		logger.Logger.Level = logrus.ErrorLevel
	}
	return logger
}

// Debugger returns true if the target package should log.
func Debugger() bool {
	return debugger
}

// DebuggerLogger returns a logger for the target package.
func DebuggerLogger() *logrus.Entry {
	return makeLogger(debugger, logrus.Fields{"layer": "debugger"})
}

// ForkExec returns true if the forkexec package should log.
func ForkExec() bool {
	return forkExec
}

// ForkExecLogger returns a logger for the forkexec package.
func ForkExecLogger() *logrus.Entry {
	return makeLogger(forkExec, logrus.Fields{"layer": "forkexec"})
}

// Setup sets the enabled logging layers from a comma separated list.
// An empty list with logFlag true enables the debugger layer only.
func Setup(logFlag bool, logstr string) error {
	if !logFlag {
		return nil
	}
	if logstr == "" {
		logstr = "debugger"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "debugger":
			debugger = true
		case "forkexec":
			forkExec = true
		default:
			return errors.New("invalid log layer '" + logcmd + "'")
		}
	}
	return nil
}
