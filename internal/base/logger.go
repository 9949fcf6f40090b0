package base

import (
	"fmt"
	"log"
)

// Logger defines an interface for writing log messages, matching the
// ambient logging surface the rest of the module's host engine would
// provide.
type Logger interface {
	Infof(format string, args ...interface{})
}

// DefaultLogger logs to the Go standard library logger.
type DefaultLogger struct{}

// Infof implements Logger.
func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, fmt.Sprintf(format, args...))
}
