package session

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/batchcorp/stompcore/client"
	"github.com/batchcorp/stompcore/frame"
)

func connectAndNegotiate(g *WithT, s *Session, serverVersion string) {
	_, err := s.Connect(ConnectParams{AcceptVersions: []frame.Version{frame.V10, frame.V11, frame.V12}, Host: "broker"})
	g.Expect(err).NotTo(HaveOccurred())

	connected := frame.New(frame.CONNECTED, frame.VersionHeader, serverVersion, frame.Session, "sess-1", frame.Server, "test/1.0")
	ev, err := s.OnFrame(connected)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ev.Kind).To(Equal(EventConnected))
	g.Expect(s.State()).To(Equal(StateConnected))
}

func TestConnect_illegalOutsideDisconnected(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	_, err := s.Connect(ConnectParams{AcceptVersions: []frame.Version{frame.V12}, Host: "broker"})
	g.Expect(err).To(HaveOccurred())

	se, ok := err.(*StateError)
	g.Expect(ok).To(BeTrue())
	g.Expect(se.Kind).To(Equal(KindIllegalInState))
}

func TestOnConnected_negotiatesBestMutuallySupportedVersion(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.1,1.2")

	g.Expect(s.NegotiatedVersion()).To(Equal(frame.V12))
	g.Expect(s.SessionId()).To(Equal("sess-1"))
	g.Expect(s.ServerName()).To(Equal("test/1.0"))
}

func TestOnConnected_versionMismatchAbruptlyDisconnects(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	_, err := s.Connect(ConnectParams{AcceptVersions: []frame.Version{frame.V10}, Host: "broker"})
	g.Expect(err).NotTo(HaveOccurred())

	_, _, sendErr := s.Subscribe(nil, nil)
	g.Expect(sendErr).To(HaveOccurred(), "sanity: not connected yet")

	connected := frame.New(frame.CONNECTED, frame.VersionHeader, "1.2")
	_, err = s.OnFrame(connected)
	g.Expect(err).To(HaveOccurred())

	se, ok := err.(*StateError)
	g.Expect(ok).To(BeTrue())
	g.Expect(se.Kind).To(Equal(KindVersionMismatch))
	g.Expect(s.State()).To(Equal(StateDisconnected))
}

func TestSubscribeAndReplay_preservesOrderAndOriginalFrame(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	idA, fA, err := s.Subscribe(map[string]string{frame.Destination: "/q/a"}, "ctxA")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(fA.Header.Get(frame.Destination)).To(Equal("/q/a"))
	g.Expect(idA).NotTo(BeEmpty())

	idB, _, err := s.Subscribe(map[string]string{frame.Destination: "/q/b", frame.Id: "custom-b"}, "ctxB")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(idB).To(Equal("custom-b"))

	lost := s.Abrupt()
	g.Expect(lost).To(BeEmpty())
	g.Expect(s.State()).To(Equal(StateDisconnected))

	replayed := s.Replay()
	g.Expect(replayed).To(HaveLen(2))
	g.Expect(replayed[0].Header.Get(frame.Destination)).To(Equal("/q/a"))
	g.Expect(replayed[1].Header.Get(frame.Destination)).To(Equal("/q/b"))

	subs := s.Subscriptions()
	g.Expect(subs).To(HaveLen(2))
	g.Expect(subs[0].Context).To(Equal("ctxA"))
	g.Expect(subs[1].Context).To(Equal("ctxB"))
}

func TestUnsubscribe_removesFromReplaySet(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	id, _, err := s.Subscribe(map[string]string{frame.Destination: "/q/a"}, nil)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = s.Unsubscribe(id)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.Replay()).To(BeEmpty())
}

func TestSend_withUnknownTransactionIsRejected(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	_, err := s.Send("/q/a", []byte("hi"), client.WithTransaction("tx-doesnt-exist"))
	g.Expect(err).To(HaveOccurred())

	se, ok := err.(*StateError)
	g.Expect(ok).To(BeTrue())
	g.Expect(se.Kind).To(Equal(KindUnknownTransaction))
	g.Expect(s.State()).To(Equal(StateConnected), "rejected send leaves state untouched")
}

func TestBeginCommitAbort_transactionLifecycle(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	token, beginFrame, err := s.Begin()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(beginFrame.Header.Get(frame.Transaction)).To(Equal(token))

	_, err = s.Send("/q/a", []byte("hi"), client.WithTransaction(token))
	g.Expect(err).NotTo(HaveOccurred())

	_, err = s.Commit(token)
	g.Expect(err).NotTo(HaveOccurred())

	_, err = s.Commit(token)
	g.Expect(err).To(HaveOccurred(), "committing a second time is now unknown-transaction")
}

func TestSendReceipt_registeredAndClearedByMatchingReceipt(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	f, err := s.Send("/q/a", []byte("hi"), client.WithReceipt("r-1"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.Header.Get(frame.Receipt)).To(Equal("r-1"))
	g.Expect(s.HasPendingReceipts()).To(BeTrue())

	ev, err := s.OnFrame(frame.New(frame.RECEIPT, frame.ReceiptId, "r-1"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ev.Kind).To(Equal(EventReceipt))
	g.Expect(s.HasPendingReceipts()).To(BeFalse())
}

func TestOnReceipt_unmatchedReceiptIsError(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	_, err := s.OnFrame(frame.New(frame.RECEIPT, frame.ReceiptId, "never-registered"))
	g.Expect(err).To(HaveOccurred())

	se, ok := err.(*StateError)
	g.Expect(ok).To(BeTrue())
	g.Expect(se.Kind).To(Equal(KindUnmatchedReceipt))
}

func TestDisconnect_withReceiptCompletesDisconnectingOnMatchingReceipt(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	f, err := s.Disconnect(true)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.State()).To(Equal(StateDisconnecting))

	receiptId := f.Header.Get(frame.Receipt)
	g.Expect(receiptId).NotTo(BeEmpty())
	g.Expect(s.AwaitReceipt(receiptId)).To(BeTrue())

	_, err = s.OnFrame(frame.New(frame.RECEIPT, frame.ReceiptId, receiptId))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(s.State()).To(Equal(StateDisconnected))
	g.Expect(s.AwaitReceipt(receiptId)).To(BeFalse())
}

func TestOnError_abruptDisconnectClearsReceipts(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	_, _, err := s.Begin()
	g.Expect(err).NotTo(HaveOccurred())
	_, err = s.Send("/q/a", nil, client.WithReceipt("r-1"))
	g.Expect(err).NotTo(HaveOccurred())

	ev, err := s.OnFrame(frame.New(frame.ERROR, frame.Message, "broker exploded"))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ev.Kind).To(Equal(EventBrokerError))
	g.Expect(ev.LostReceipts).To(HaveLen(1))
	g.Expect(ev.LostReceipts[0].ReceiptId).To(Equal("r-1"))
	g.Expect(s.State()).To(Equal(StateDisconnected))

	_, err = s.Commit("anything")
	g.Expect(err).To(HaveOccurred(), "COMMIT is illegal once the session is disconnected")
}

func TestOnMessage_requiresSubscriptionHeaderBeyond10(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.1")

	_, err := s.OnFrame(frame.New(frame.MESSAGE, frame.Destination, "/q/a", frame.MessageId, "m-1"))
	g.Expect(err).To(HaveOccurred())

	se, ok := err.(*StateError)
	g.Expect(ok).To(BeTrue())
	g.Expect(se.Kind).To(Equal(KindMissingHeader))
}

func TestOnMessage_deliversWhenWellFormed(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	connectAndNegotiate(g, s, "1.2")

	subId, _, err := s.Subscribe(map[string]string{frame.Destination: "/q/a"}, nil)
	g.Expect(err).NotTo(HaveOccurred())

	msg := frame.New(frame.MESSAGE,
		frame.Destination, "/q/a",
		frame.MessageId, "m-1",
		frame.Subscription, subId,
	)
	ev, err := s.OnFrame(msg)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ev.Kind).To(Equal(EventMessage))
	g.Expect(ev.Message).To(Equal(msg))
}

func TestHeartBeatIntervals_negotiatedFromConnected(t *testing.T) {
	g := NewGomegaWithT(t)

	s := New()
	_, err := s.Connect(ConnectParams{
		AcceptVersions:    []frame.Version{frame.V12},
		Host:              "broker",
		OutgoingHeartBeat: 5000 * time.Millisecond,
		IncomingHeartBeat: 1000 * time.Millisecond,
	})
	g.Expect(err).NotTo(HaveOccurred())

	connected := frame.New(frame.CONNECTED, frame.VersionHeader, "1.2", frame.HeartBeat, "2000,10000")
	_, err = s.OnFrame(connected)
	g.Expect(err).NotTo(HaveOccurred())

	outgoing, incoming := s.HeartBeatIntervals()
	g.Expect(outgoing).To(Equal(10000 * time.Millisecond))
	g.Expect(incoming).To(Equal(2000 * time.Millisecond))
}
