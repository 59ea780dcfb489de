package client

import "github.com/batchcorp/stompcore/frame"

// Disconnect builds a DISCONNECT frame. If receipt is non-empty, the
// frame carries a "receipt" header so the broker acknowledges it,
// which is how a caller performs the graceful shutdown sequence
// described in spec.md §5.
func Disconnect(receipt string) (*frame.Frame, error) {
	f := frame.New(frame.DISCONNECT)
	if receipt != "" {
		f.Header.Set(frame.Receipt, receipt)
	}
	return f, nil
}
