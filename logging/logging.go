// Package logging provides the leveled debug logging every other package
// calls into, routed through github.com/sirupsen/logrus with a
// runtime-adjustable verbosity threshold that arenafsctl's -v flag sets.
package logging

import (
	"github.com/sirupsen/logrus"
)

// level is the current debug verbosity threshold; DPrintf calls at or
// below this level are emitted. 0 disables debug logging entirely,
// leaving only whatever the caller logs directly through Log.
var level uint64 = 1

// Log is the shared logrus instance every package logs through.
var Log = logrus.StandardLogger()

func init() {
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Log.SetLevel(logrus.DebugLevel)
}

// SetLevel changes the debug verbosity threshold.
func SetLevel(l uint64) {
	level = l
}

// DPrintf logs a formatted debug message if lvl is within the current
// threshold.
func DPrintf(lvl uint64, format string, a ...interface{}) {
	if lvl <= level {
		Log.Debugf(format, a...)
	}
}
