package client

import (
	"strconv"

	"github.com/batchcorp/stompcore/frame"
)

// sendBuilder carries the in-progress SEND frame plus the one piece of
// state ("should we suppress the auto content-length") that does not
// live naturally as a frame header.
type sendBuilder struct {
	frame                  *frame.Frame
	suppressContentLength bool
}

// SendOption customizes a SEND frame beyond its mandatory destination.
type SendOption func(*sendBuilder) error

// WithContentType sets the "content-type" header.
func WithContentType(contentType string) SendOption {
	return func(b *sendBuilder) error {
		b.frame.Header.Set(frame.ContentType, contentType)
		return nil
	}
}

// WithTransaction tags the SEND frame with a transaction token. The
// session (not this package) is responsible for checking that the
// token names an active transaction.
func WithTransaction(token string) SendOption {
	return func(b *sendBuilder) error {
		b.frame.Header.Set(frame.Transaction, token)
		return nil
	}
}

// WithReceipt requests a RECEIPT for this frame, keyed by id.
func WithReceipt(id string) SendOption {
	return func(b *sendBuilder) error {
		b.frame.Header.Set(frame.Receipt, id)
		return nil
	}
}

// WithNoContentLength suppresses the automatic content-length header
// this package would otherwise add for a non-empty body under 1.1+.
// Some brokers assign special meaning to a SEND with no content-length
// (e.g. treating the body as text rather than binary).
func WithNoContentLength() SendOption {
	return func(b *sendBuilder) error {
		b.suppressContentLength = true
		b.frame.Header.Del(frame.ContentLength)
		return nil
	}
}

// WithSendHeader adds an arbitrary custom header entry.
func WithSendHeader(name, value string) SendOption {
	return func(b *sendBuilder) error {
		b.frame.Header.Add(name, value)
		return nil
	}
}

// Send builds a SEND frame. version decides whether a missing
// content-length is auto-populated for a non-empty body (spec.md
// §4.2): 1.0 never gets one added automatically, 1.1+ does unless the
// caller already supplied one or opted out with WithNoContentLength.
func Send(version frame.Version, destination string, body []byte, opts ...SendOption) (*frame.Frame, error) {
	if destination == "" {
		return nil, missing(frame.SEND, frame.Destination)
	}

	f := frame.New(frame.SEND)
	f.Header.Set(frame.Destination, destination)
	f.Body = body

	b := &sendBuilder{frame: f}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if !b.suppressContentLength && len(body) > 0 && version != frame.V10 {
		if _, ok := f.Header.Contains(frame.ContentLength); !ok {
			f.Header.Set(frame.ContentLength, strconv.Itoa(len(body)))
		}
	}

	return f, nil
}
