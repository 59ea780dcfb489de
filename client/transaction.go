package client

import "github.com/batchcorp/stompcore/frame"

// Begin builds a BEGIN frame for the given transaction token.
func Begin(token string) (*frame.Frame, error) {
	if token == "" {
		return nil, missing(frame.BEGIN, frame.Transaction)
	}
	return frame.New(frame.BEGIN, frame.Transaction, token), nil
}

// Commit builds a COMMIT frame for the given transaction token.
func Commit(token string) (*frame.Frame, error) {
	if token == "" {
		return nil, missing(frame.COMMIT, frame.Transaction)
	}
	return frame.New(frame.COMMIT, frame.Transaction, token), nil
}

// Abort builds an ABORT frame for the given transaction token.
func Abort(token string) (*frame.Frame, error) {
	if token == "" {
		return nil, missing(frame.ABORT, frame.Transaction)
	}
	return frame.New(frame.ABORT, frame.Transaction, token), nil
}
