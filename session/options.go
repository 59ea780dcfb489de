package session

import stomplog "github.com/batchcorp/stompcore/internal/log"

// Option customizes a new Session.
type Option func(*Session)

// WithLogger overrides the session's logger. By default a Session logs
// the transition to connected and every ERROR frame from the broker
// through a logrus.WithField("pkg", "session") entry.
func WithLogger(l stomplog.Logger) Option {
	return func(s *Session) { s.log = l }
}
