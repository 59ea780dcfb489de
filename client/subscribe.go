package client

import "github.com/batchcorp/stompcore/frame"

// SubscribeOption customizes a SUBSCRIBE or UNSUBSCRIBE frame beyond
// its mandatory fields.
type SubscribeOption func(*frame.Frame) error

// WithSubscriptionId sets the "id" header explicitly, replacing the
// value taken from Subscribe's id parameter. Subscribe checks that
// parameter before any option runs, so for 1.1+ it must be non-empty
// even when this option is used.
func WithSubscriptionId(id string) SubscribeOption {
	return func(f *frame.Frame) error {
		f.Header.Set(frame.Id, id)
		return nil
	}
}

// WithSubscribeHeader adds an arbitrary custom header entry.
func WithSubscribeHeader(name, value string) SubscribeOption {
	return func(f *frame.Frame) error {
		f.Header.Add(name, value)
		return nil
	}
}

// Subscribe builds a SUBSCRIBE frame. id is mandatory for 1.1 and 1.2;
// it may be empty under 1.0. ack defaults to frame.AckAuto if empty.
func Subscribe(version frame.Version, destination, id string, ack frame.AckMode, opts ...SubscribeOption) (*frame.Frame, error) {
	if destination == "" {
		return nil, missing(frame.SUBSCRIBE, frame.Destination)
	}
	if id == "" && version != frame.V10 {
		return nil, missing(frame.SUBSCRIBE, frame.Id)
	}
	if ack == "" {
		ack = frame.AckAuto
	}
	if !ack.Valid() {
		return nil, invalid(frame.SUBSCRIBE, frame.Ack, "unrecognized ack mode: "+string(ack))
	}

	f := frame.New(frame.SUBSCRIBE)
	f.Header.Set(frame.Destination, destination)
	f.Header.Set(frame.Ack, string(ack))
	if id != "" {
		f.Header.Set(frame.Id, id)
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

// Unsubscribe builds an UNSUBSCRIBE frame. id is mandatory for 1.1 and
// 1.2. 1.0 accepts either destination or id.
func Unsubscribe(version frame.Version, id, destination string, opts ...SubscribeOption) (*frame.Frame, error) {
	if version != frame.V10 {
		if id == "" {
			return nil, missing(frame.UNSUBSCRIBE, frame.Id)
		}
	} else if id == "" && destination == "" {
		return nil, invalid(frame.UNSUBSCRIBE, frame.Id, "1.0 UNSUBSCRIBE requires either id or destination")
	}

	f := frame.New(frame.UNSUBSCRIBE)
	if id != "" {
		f.Header.Set(frame.Id, id)
	}
	if destination != "" {
		f.Header.Set(frame.Destination, destination)
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
