package session

import "github.com/batchcorp/stompcore/frame"

// Subscription records everything needed to replay a SUBSCRIBE after a
// forced reconnect: the original frame (so replay is byte-for-byte
// faithful to what was actually sent, per spec.md invariant 4), and the
// opaque context the caller supplied so it can re-register its message
// handler once the subscription is live again.
type Subscription struct {
	Token       string
	Destination string
	AckMode     frame.AckMode
	Context     interface{}
	original    *frame.Frame
}

// subscriptionSet is an insertion-ordered map keyed by token.
// Replay requires stable order even after intervening removals
// (spec.md §9 "subscriptions as insertion-ordered mapping"), so
// removal filters the order slice rather than leaving a hole.
type subscriptionSet struct {
	order []string
	byTok map[string]*Subscription
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{byTok: make(map[string]*Subscription)}
}

func (s *subscriptionSet) add(sub *Subscription) {
	if _, exists := s.byTok[sub.Token]; !exists {
		s.order = append(s.order, sub.Token)
	}
	s.byTok[sub.Token] = sub
}

func (s *subscriptionSet) remove(token string) {
	if _, ok := s.byTok[token]; !ok {
		return
	}
	delete(s.byTok, token)
	filtered := s.order[:0:0]
	for _, t := range s.order {
		if t != token {
			filtered = append(filtered, t)
		}
	}
	s.order = filtered
}

func (s *subscriptionSet) get(token string) (*Subscription, bool) {
	sub, ok := s.byTok[token]
	return sub, ok
}

func (s *subscriptionSet) ordered() []*Subscription {
	out := make([]*Subscription, 0, len(s.order))
	for _, t := range s.order {
		out = append(out, s.byTok[t])
	}
	return out
}
