// Package log adapts logrus to the small Logger interface the session
// package depends on, mirroring the teacher's vendored
// go-stomp/stomp/v3 logger.go / internal/log/stdlogger.go split: the
// public interface lives next to its consumer, the concrete
// implementation lives here.
package log

import "github.com/sirupsen/logrus"

// Logger is the logging surface the session package calls into. It is
// satisfied by *logrus.Entry directly, and by Discard for callers who
// don't want any session logging at all.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NewEntry returns a logrus.Entry scoped to pkg, the same
// logrus.WithField("pkg", ...) convention used throughout the teacher's
// backends (see backends/activemq/activemq.go).
func NewEntry(pkg string) *logrus.Entry {
	return logrus.WithField("pkg", pkg)
}

// Discard is a Logger that drops everything, for hosts that want the
// session state machine to stay silent.
type Discard struct{}

func (Discard) Debugf(string, ...interface{}) {}
func (Discard) Infof(string, ...interface{})  {}
func (Discard) Warnf(string, ...interface{})  {}
func (Discard) Errorf(string, ...interface{}) {}
