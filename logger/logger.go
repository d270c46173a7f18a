// Package logger supplies the loggers client components default to.
package logger

import (
	"io"
	"log"
)

// Null discards everything. Components log to it until an option
// injects a real logger.
func Null() *log.Logger {
	return log.New(io.Discard, "", log.LstdFlags)
}

// Default is the process-wide standard logger.
func Default() *log.Logger {
	return log.Default()
}
