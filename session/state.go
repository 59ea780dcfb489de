// Package session implements the client-side STOMP connection state
// machine: connect negotiation, subscription lifecycle, transactions,
// pending receipts, and subscription replay after a forced reconnect.
// It performs no I/O; it only accepts outbound intents and inbound
// frames and reports the resulting frame/event/error, per spec.md §4.3.
package session

// State is one of the four states a Session can be in. Transitions are
// an exhaustive switch in session.go; there is no fifth state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}
