package util

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Debug is the verbosity threshold for DPrintf; level 0 messages are
// always emitted. Set MEMFS_DEBUG to raise it.
var Debug uint64 = envDebug()

var logger = mkLogger()

func envDebug() uint64 {
	s := os.Getenv("MEMFS_DEBUG")
	if s == "" {
		return 0
	}
	lvl, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return lvl
}

func mkLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

func DPrintf(level uint64, format string, a ...interface{}) {
	if level > Debug {
		return
	}
	if level == 0 {
		logger.Errorf(format, a...)
	} else {
		logger.Debugf(format, a...)
	}
}

func RoundUp(n uint64, sz uint64) uint64 {
	return (n + sz - 1) / sz
}

func Min(n uint64, m uint64) uint64 {
	if n < m {
		return n
	}
	return m
}
