package failover

import "github.com/pkg/errors"

// Stable error kind tags for failover URI parsing, per spec.md §4.4 /
// §7. Parsing errors are always fatal at construction time.
const (
	KindMalformedURI   = "malformed-uri"
	KindUnknownOption  = "unknown-option"
	KindBadOptionValue = "bad-option-value"
)

// ParseError reports a problem with a failover URI: a malformed broker
// list, an option name the parser does not recognize, or an option
// value that does not parse as its declared type.
type ParseError struct {
	Kind    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return "stomp failover uri: " + e.Kind + ": " + e.Message + ": " + e.Cause.Error()
	}
	return "stomp failover uri: " + e.Kind + ": " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Cause }

func malformedURI(uri, reason string) *ParseError {
	return &ParseError{Kind: KindMalformedURI, Message: "invalid uri \"" + uri + "\": " + reason}
}

func unknownOption(name string) *ParseError {
	return &ParseError{Kind: KindUnknownOption, Message: "unrecognized failover option: " + name}
}

func badOptionValue(name, value string, cause error) *ParseError {
	return &ParseError{
		Kind:    KindBadOptionValue,
		Message: "invalid value for option " + name + ": " + value,
		Cause:   errors.Wrap(cause, "parse option value"),
	}
}

// errNoMoreBrokers is returned internally by Iterator.delay when the
// configured reconnect-attempt budget for the current streak is
// exhausted. It is not a ParseError: it surfaces as Next()'s bool
// return turning false, the normal terminal value of the iterator
// (spec.md §7 "no_more_brokers is a normal terminal value").
var errNoMoreBrokers = errors.New("failover: no more brokers, reconnect attempt budget exhausted")
