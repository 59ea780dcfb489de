package session

import (
	"fmt"

	"github.com/batchcorp/stompcore/frame"
)

// Stable error kind tags, per spec.md §7.
const (
	KindIllegalInState     = "illegal-in-state"
	KindUnknownTransaction = "unknown-transaction"
	KindUnmatchedReceipt   = "unmatched-receipt"
	KindVersionMismatch    = "version-mismatch"
	KindMissingHeader      = "missing-header"
)

// StateError reports a frame attempted in the wrong state, an unknown
// transaction token, an unmatched receipt, a version mismatch, or a
// malformed inbound frame the session must reject. Connection-fatal
// kinds (version-mismatch, and any ERROR/framing error routed through
// the session) cause an abrupt transition to disconnected; the rest
// leave the session's state untouched, per spec.md §7.
type StateError struct {
	Kind    string
	Command string
	Message string
	Frame   *frame.Frame
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stomp session: %s (%s): %s", e.Command, e.Kind, e.Message)
}

func illegalInState(command string, state State) *StateError {
	return &StateError{
		Kind:    KindIllegalInState,
		Command: command,
		Message: command + " is not legal in state " + state.String(),
	}
}

func unknownTransaction(command, token string) *StateError {
	return &StateError{
		Kind:    KindUnknownTransaction,
		Command: command,
		Message: "transaction is not active: " + token,
	}
}

func unmatchedReceipt(id string) *StateError {
	return &StateError{
		Kind:    KindUnmatchedReceipt,
		Command: frame.RECEIPT,
		Message: "no pending frame for receipt id: " + id,
	}
}

func versionMismatch(message string, f *frame.Frame) *StateError {
	return &StateError{
		Kind:    KindVersionMismatch,
		Command: frame.CONNECTED,
		Message: message,
		Frame:   f,
	}
}

func missingHeader(command, name string, f *frame.Frame) *StateError {
	return &StateError{
		Kind:    KindMissingHeader,
		Command: command,
		Message: "required header is missing: " + name,
		Frame:   f,
	}
}
