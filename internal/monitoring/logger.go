// Package monitoring holds the diagnostic logger and the Prometheus sink
// that evaluation passes report to.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by evaluation passes,
// stores and report writers. It defaults to log.Printf; SetLogger redirects
// or mutes it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that tags every line with prefix and forwards
// to whatever Logf is at call time.
func Prefixed(prefix string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
