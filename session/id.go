package session

import (
	"strconv"

	"github.com/google/uuid"
)

// IDs are per-session, never process-wide (spec.md §9 "no global
// state"). Subscription and transaction tokens are short monotonic
// counters local to the session, mirroring the teacher's vendored
// go-stomp/stomp id.go scheme, since those tokens only ever need to be
// unique within one session. Receipt ids use a collision-proof UUID
// instead: unlike subscription/transaction tokens, a receipt id can
// outlive an abrupt disconnect and be compared against a RECEIPT
// frame that arrives on a freshly re-established connection, and a
// restarted monotonic counter would otherwise be able to collide with
// an id minted before the reconnect.
type idAllocator struct {
	nextSub uint64
	nextTx  uint64
}

func (a *idAllocator) subscriptionToken() string {
	a.nextSub++
	return "sub-" + strconv.FormatUint(a.nextSub, 10)
}

func (a *idAllocator) transactionToken() string {
	a.nextTx++
	return "tx-" + strconv.FormatUint(a.nextTx, 10)
}

func (a *idAllocator) receiptID() string {
	return uuid.NewString()
}
