package client

import "github.com/batchcorp/stompcore/frame"

// AckOption customizes an ACK or NACK frame beyond its mandatory
// fields.
type AckOption func(*frame.Frame) error

// WithAckHeader adds an arbitrary custom header entry.
func WithAckHeader(name, value string) AckOption {
	return func(f *frame.Frame) error {
		f.Header.Add(name, value)
		return nil
	}
}

// WithAckTransaction tags the ACK/NACK frame with a transaction token.
func WithAckTransaction(token string) AckOption {
	return func(f *frame.Frame) error {
		f.Header.Set(frame.Transaction, token)
		return nil
	}
}

// Ack builds an ACK frame from the headers of the MESSAGE being
// acknowledged. The required fields differ by version (spec.md §4.2):
// 1.0 needs "message-id"; 1.1 needs "message-id" and "subscription";
// 1.2 needs only the server-provided "ack" token, carried as "id".
func Ack(version frame.Version, messageHeaders *frame.Header, opts ...AckOption) (*frame.Frame, error) {
	return buildAckNack(frame.ACK, version, messageHeaders, opts)
}

// Nack builds a NACK frame. NACK does not exist in STOMP 1.0.
func Nack(version frame.Version, messageHeaders *frame.Header, opts ...AckOption) (*frame.Frame, error) {
	if version == frame.V10 {
		return nil, invalid(frame.NACK, frame.Ack, "NACK is not defined in STOMP 1.0")
	}
	return buildAckNack(frame.NACK, version, messageHeaders, opts)
}

func buildAckNack(command string, version frame.Version, messageHeaders *frame.Header, opts []AckOption) (*frame.Frame, error) {
	if messageHeaders == nil {
		return nil, missing(command, frame.MessageId)
	}

	f := frame.New(command)

	switch version {
	case frame.V10:
		messageId, ok := messageHeaders.Contains(frame.MessageId)
		if !ok {
			return nil, missing(command, frame.MessageId)
		}
		f.Header.Set(frame.MessageId, messageId)
		if sub, ok := messageHeaders.Contains(frame.Subscription); ok {
			f.Header.Set(frame.Subscription, sub)
		}

	case frame.V11:
		messageId, ok := messageHeaders.Contains(frame.MessageId)
		if !ok {
			return nil, missing(command, frame.MessageId)
		}
		sub, ok := messageHeaders.Contains(frame.Subscription)
		if !ok {
			return nil, missing(command, frame.Subscription)
		}
		f.Header.Set(frame.MessageId, messageId)
		f.Header.Set(frame.Subscription, sub)

	case frame.V12:
		ackToken, ok := messageHeaders.Contains(frame.Ack)
		if !ok {
			return nil, missing(command, frame.Ack)
		}
		f.Header.Set(frame.Id, ackToken)

	default:
		return nil, invalid(command, frame.VersionHeader, "unsupported STOMP version: "+version.String())
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}
