package session

import (
	"strings"
	"sync"
	"time"

	"github.com/batchcorp/stompcore/client"
	"github.com/batchcorp/stompcore/frame"
	stomplog "github.com/batchcorp/stompcore/internal/log"
)

// EventKind classifies the result of feeding an inbound frame to
// Session.OnFrame.
type EventKind int

const (
	EventNone EventKind = iota
	EventConnected
	EventMessage
	EventReceipt
	EventBrokerError
)

// Event is the outcome of Session.OnFrame: at most one of Message or
// BrokerError is populated, depending on Kind. LostReceipts is
// populated whenever the frame caused an abrupt disconnect, per
// spec.md §4.3's "Receipts" rule that pending receipts are cleared and
// reported as receipt-lost on abrupt disconnect.
type Event struct {
	Kind          EventKind
	Message       *frame.Frame
	ReceiptId     string
	BrokerError   *frame.Frame
	LostReceipts  []PendingReceipt
}

// ConnectParams groups the fields a CONNECT/STOMP frame needs, mirroring
// the language-neutral signature in spec.md §6
// ("connect(accept_versions, host, login?, passcode?, heart_beat?)").
type ConnectParams struct {
	AcceptVersions    []frame.Version
	Host              string
	Login, Passcode   string
	OutgoingHeartBeat time.Duration
	IncomingHeartBeat time.Duration
	UseStompCommand   bool
}

// Session is the client-side STOMP connection state machine described
// in spec.md §4.3. It is I/O-free: callers hand it outbound intents and
// inbound frames, and it hands back frames to send or events to
// surface. A Session has a single logical owner; if the host runtime is
// multi-threaded, a mutex around Session calls is sufficient (this type
// also guards itself with one, since its footprint is small enough that
// doing so costs nothing and makes accidental concurrent use safe
// rather than silently corrupting state).
type Session struct {
	mu sync.Mutex

	state State

	acceptVersions []frame.Version
	version        frame.Version
	sessionId      string
	serverName     string

	clientOutgoingHB time.Duration
	clientIncomingHB time.Duration
	outgoingHB       time.Duration
	incomingHB       time.Duration

	subscriptions *subscriptionSet
	transactions  map[string]bool
	receipts      *receiptSet

	ids idAllocator

	log stomplog.Logger
}

// New creates a Session in the disconnected state, ready for Connect.
func New(opts ...Option) *Session {
	s := &Session{
		state:         StateDisconnected,
		subscriptions: newSubscriptionSet(),
		transactions:  make(map[string]bool),
		receipts:      newReceiptSet(),
		log:           stomplog.NewEntry("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NegotiatedVersion returns the version negotiated during connect. It
// is the zero Version until a CONNECTED frame has been processed.
func (s *Session) NegotiatedVersion() frame.Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// SessionId returns the broker-assigned session id, or "" if none was
// supplied or the session has not connected yet.
func (s *Session) SessionId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionId
}

// ServerName returns the broker's self-reported server string, or "".
func (s *Session) ServerName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverName
}

// HeartBeatIntervals returns the negotiated outgoing and incoming
// heart-beat intervals. Both are zero until CONNECTED is processed, or
// if a side's interval was disabled during negotiation.
func (s *Session) HeartBeatIntervals() (outgoing, incoming time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outgoingHB, s.incomingHB
}

// PendingReceipts returns the outstanding receipt-tagged frames the
// session is still waiting to hear back about.
func (s *Session) PendingReceipts() []PendingReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receipts.ordered()
}

// AwaitReceipt reports whether the given receipt id is still pending.
// A host performing the graceful-shutdown sequence of spec.md §5 calls
// Disconnect(true), then polls AwaitReceipt with the id that returned,
// and only closes its transport once this reports false.
func (s *Session) AwaitReceipt(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.receipts.ordered() {
		if r.ReceiptId == id {
			return true
		}
	}
	return false
}

// HasPendingReceipts reports whether any receipt-tagged frame is still
// unanswered.
func (s *Session) HasPendingReceipts() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.receipts.empty()
}

// Connect builds and registers a CONNECT (or STOMP) frame. Legal only
// in the disconnected state.
func (s *Session) Connect(p ConnectParams, opts ...client.ConnectOption) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateDisconnected {
		return nil, illegalInState(frame.CONNECT, s.state)
	}

	connOpts := opts
	if p.Login != "" || p.Passcode != "" {
		connOpts = append([]client.ConnectOption{client.WithLogin(p.Login, p.Passcode)}, connOpts...)
	}
	if p.OutgoingHeartBeat > 0 || p.IncomingHeartBeat > 0 {
		connOpts = append(connOpts, client.WithHeartBeat(p.OutgoingHeartBeat, p.IncomingHeartBeat))
	}

	var f *frame.Frame
	var err error
	if p.UseStompCommand {
		f, err = client.Stomp(p.AcceptVersions, p.Host, connOpts...)
	} else {
		f, err = client.Connect(p.AcceptVersions, p.Host, connOpts...)
	}
	if err != nil {
		return nil, err
	}

	s.acceptVersions = p.AcceptVersions
	s.clientOutgoingHB = p.OutgoingHeartBeat
	s.clientIncomingHB = p.IncomingHeartBeat
	s.state = StateConnecting
	return f, nil
}

// Subscribe registers a subscription and builds its SUBSCRIBE frame.
// headers must contain "destination"; "id" and "ack" are optional
// ("id" is allocated locally if absent, "ack" defaults to "auto").
// ctx is opaque caller state, handed back unchanged by Replay so the
// caller can re-register its handler for this subscription.
func (s *Session) Subscribe(headers map[string]string, ctx interface{}) (string, *frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return "", nil, illegalInState(frame.SUBSCRIBE, s.state)
	}

	destination := headers[frame.Destination]
	id := headers[frame.Id]
	if id == "" {
		id = s.ids.subscriptionToken()
	}
	ack := frame.AckMode(headers[frame.Ack])

	var subOpts []client.SubscribeOption
	for name, value := range headers {
		switch name {
		case frame.Destination, frame.Id, frame.Ack:
			continue
		default:
			subOpts = append(subOpts, client.WithSubscribeHeader(name, value))
		}
	}

	f, err := client.Subscribe(s.version, destination, id, ack, subOpts...)
	if err != nil {
		return "", nil, err
	}

	ackMode := ack
	if ackMode == "" {
		ackMode = frame.AckAuto
	}

	s.subscriptions.add(&Subscription{
		Token:       id,
		Destination: destination,
		AckMode:     ackMode,
		Context:     ctx,
		original:    f.Clone(),
	})

	return id, f, nil
}

// Unsubscribe removes the subscription optimistically (before any
// server acknowledgement) and builds its UNSUBSCRIBE frame.
func (s *Session) Unsubscribe(token string) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, illegalInState(frame.UNSUBSCRIBE, s.state)
	}

	sub, ok := s.subscriptions.get(token)
	destination := ""
	if ok {
		destination = sub.Destination
	}

	f, err := client.Unsubscribe(s.version, token, destination)
	if err != nil {
		return nil, err
	}

	s.subscriptions.remove(token)
	return f, nil
}

// Send builds a SEND frame. If opts reference a transaction header via
// client.WithTransaction, that token must already be active (BEGIN
// issued, not yet COMMIT/ABORT) or the send is rejected with
// unknown-transaction and the session's state is left unchanged.
func (s *Session) Send(destination string, body []byte, opts ...client.SendOption) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, illegalInState(frame.SEND, s.state)
	}

	f, err := client.Send(s.version, destination, body, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransaction(frame.SEND, f); err != nil {
		return nil, err
	}

	s.registerReceiptIfTagged(frame.SEND, f)
	return f, nil
}

// Begin starts a transaction and returns its local token plus the
// BEGIN frame.
func (s *Session) Begin() (string, *frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return "", nil, illegalInState(frame.BEGIN, s.state)
	}

	token := s.ids.transactionToken()
	f, err := client.Begin(token)
	if err != nil {
		return "", nil, err
	}
	s.transactions[token] = true
	return token, f, nil
}

// Commit commits the named transaction.
func (s *Session) Commit(token string) (*frame.Frame, error) {
	return s.endTransaction(frame.COMMIT, token, client.Commit)
}

// Abort aborts the named transaction.
func (s *Session) Abort(token string) (*frame.Frame, error) {
	return s.endTransaction(frame.ABORT, token, client.Abort)
}

func (s *Session) endTransaction(command, token string, build func(string) (*frame.Frame, error)) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, illegalInState(command, s.state)
	}
	if !s.transactions[token] {
		return nil, unknownTransaction(command, token)
	}

	f, err := build(token)
	if err != nil {
		return nil, err
	}
	delete(s.transactions, token)
	return f, nil
}

// Ack builds an ACK frame for the given MESSAGE headers.
func (s *Session) Ack(messageHeaders *frame.Header, opts ...client.AckOption) (*frame.Frame, error) {
	return s.ackNack(frame.ACK, messageHeaders, client.Ack, opts)
}

// Nack builds a NACK frame for the given MESSAGE headers.
func (s *Session) Nack(messageHeaders *frame.Header, opts ...client.AckOption) (*frame.Frame, error) {
	return s.ackNack(frame.NACK, messageHeaders, client.Nack, opts)
}

func (s *Session) ackNack(command string, messageHeaders *frame.Header, build func(frame.Version, *frame.Header, ...client.AckOption) (*frame.Frame, error), opts []client.AckOption) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, illegalInState(command, s.state)
	}

	f, err := build(s.version, messageHeaders, opts...)
	if err != nil {
		return nil, err
	}

	if err := s.checkTransaction(command, f); err != nil {
		return nil, err
	}

	return f, nil
}

func (s *Session) checkTransaction(command string, f *frame.Frame) error {
	token, ok := f.Header.Contains(frame.Transaction)
	if !ok {
		return nil
	}
	if !s.transactions[token] {
		return unknownTransaction(command, token)
	}
	return nil
}

func (s *Session) registerReceiptIfTagged(command string, f *frame.Frame) {
	id, ok := f.Header.Contains(frame.Receipt)
	if !ok {
		return
	}
	s.receipts.add(PendingReceipt{ReceiptId: id, OriginatingCommand: command})
}

// Disconnect builds a DISCONNECT frame. Legal only in the connected
// state, after which the session moves to disconnecting. If
// withReceipt is true, a receipt id is allocated and registered as
// pending; the caller performs the graceful-shutdown sequence of
// spec.md §5 by waiting for that receipt (via OnFrame) before closing
// its transport.
func (s *Session) Disconnect(withReceipt bool) (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected {
		return nil, illegalInState(frame.DISCONNECT, s.state)
	}

	receipt := ""
	if withReceipt {
		receipt = s.ids.receiptID()
	}

	f, err := client.Disconnect(receipt)
	if err != nil {
		return nil, err
	}

	s.state = StateDisconnecting
	if withReceipt {
		s.receipts.add(PendingReceipt{ReceiptId: receipt, OriginatingCommand: frame.DISCONNECT})
	}
	return f, nil
}

// Replay returns, in original subscribe order, a SUBSCRIBE frame for
// every subscription the session still has on record. A host calls
// this after re-establishing a connection following an abrupt
// disconnect, per spec.md §4.3 "Subscription management".
func (s *Session) Replay() []*frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := s.subscriptions.ordered()
	frames := make([]*frame.Frame, 0, len(subs))
	for _, sub := range subs {
		frames = append(frames, sub.original.Clone())
	}
	return frames
}

// Subscriptions returns the current subscription set in insertion
// order, for hosts that want to inspect context/ack-mode without
// triggering a replay.
func (s *Session) Subscriptions() []*Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptions.ordered()
}

// OnFrame validates and applies an inbound frame to session state,
// returning the resulting event (or zero Event for frames that update
// state but have nothing to surface, which never happens today but
// keeps the signature stable for future frame types).
func (s *Session) OnFrame(f *frame.Frame) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch f.Command {
	case frame.CONNECTED:
		return s.onConnected(f)
	case frame.MESSAGE:
		return s.onMessage(f)
	case frame.RECEIPT:
		return s.onReceipt(f)
	case frame.ERROR:
		return s.onError(f)
	default:
		return Event{}, &StateError{
			Kind:    "unexpected-frame",
			Command: f.Command,
			Message: "frame not legal from a broker: " + f.Command,
			Frame:   f,
		}
	}
}

func (s *Session) onConnected(f *frame.Frame) (Event, error) {
	if s.state != StateConnecting {
		return Event{}, illegalInState(frame.CONNECTED, s.state)
	}

	versionHeader := f.Header.Get(frame.VersionHeader)
	negotiated, err := negotiateVersion(s.acceptVersions, versionHeader)
	if err != nil {
		lost := s.abruptDisconnect()
		return Event{Kind: EventNone, LostReceipts: lost}, versionMismatch(err.Error(), f)
	}

	s.version = negotiated
	s.sessionId = f.Header.Get(frame.Session)
	s.serverName = f.Header.Get(frame.Server)

	if hb, ok := f.Header.Contains(frame.HeartBeat); ok {
		serverOutgoing, serverIncoming, herr := frame.ParseHeartBeat(hb)
		if herr != nil {
			lost := s.abruptDisconnect()
			return Event{LostReceipts: lost}, versionMismatch(herr.Error(), f)
		}
		s.outgoingHB, s.incomingHB = frame.NegotiateHeartBeats(s.clientOutgoingHB, s.clientIncomingHB, serverOutgoing, serverIncoming)
	}

	s.state = StateConnected
	s.log.Infof("connected: version=%s session=%s server=%s", s.version, s.sessionId, s.serverName)
	return Event{Kind: EventConnected}, nil
}

func (s *Session) onMessage(f *frame.Frame) (Event, error) {
	if s.state != StateConnected {
		return Event{}, illegalInState(frame.MESSAGE, s.state)
	}
	if _, ok := f.Header.Contains(frame.Destination); !ok {
		return Event{}, missingHeader(frame.MESSAGE, frame.Destination, f)
	}
	if _, ok := f.Header.Contains(frame.MessageId); !ok {
		return Event{}, missingHeader(frame.MESSAGE, frame.MessageId, f)
	}

	var sub *Subscription
	if subID, ok := f.Header.Contains(frame.Subscription); ok {
		sub, _ = s.subscriptions.get(subID)
	} else if s.version != frame.V10 {
		return Event{}, missingHeader(frame.MESSAGE, frame.Subscription, f)
	}

	if s.version == frame.V12 && sub != nil && sub.AckMode != frame.AckAuto {
		if _, ok := f.Header.Contains(frame.Ack); !ok {
			return Event{}, missingHeader(frame.MESSAGE, frame.Ack, f)
		}
	}

	return Event{Kind: EventMessage, Message: f}, nil
}

func (s *Session) onReceipt(f *frame.Frame) (Event, error) {
	id, ok := f.Header.Contains(frame.ReceiptId)
	if !ok {
		return Event{}, missingHeader(frame.RECEIPT, frame.ReceiptId, f)
	}
	if _, ok := s.receipts.remove(id); !ok {
		return Event{}, unmatchedReceipt(id)
	}
	if s.state == StateDisconnecting {
		s.state = StateDisconnected
	}
	return Event{Kind: EventReceipt, ReceiptId: id}, nil
}

func (s *Session) onError(f *frame.Frame) (Event, error) {
	lost := s.abruptDisconnect()
	s.log.Warnf("received ERROR from broker: %s", f.Header.Get(frame.Message))
	return Event{Kind: EventBrokerError, BrokerError: f, LostReceipts: lost}, nil
}

// Abrupt marks the session disconnected due to a transport-level loss
// (socket error, framing error) detected by the host rather than by a
// frame the session itself parsed. Subscriptions and transactions are
// retained for replay; pending receipts are cleared and returned as
// lost, per spec.md §4.3/§7.
func (s *Session) Abrupt() []PendingReceipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.abruptDisconnect()
}

func (s *Session) abruptDisconnect() []PendingReceipt {
	s.state = StateDisconnected
	return s.receipts.clear()
}

func negotiateVersion(advertised []frame.Version, serverHeader string) (frame.Version, error) {
	if serverHeader == "" {
		return frame.V10, nil
	}

	best := frame.Version("")
	for _, part := range strings.Split(serverHeader, ",") {
		candidate := frame.Version(strings.TrimSpace(part))
		if !advertisedContains(advertised, candidate) {
			continue
		}
		if best == "" || versionRank(candidate) > versionRank(best) {
			best = candidate
		}
	}
	if best == "" {
		return "", &versionMismatchErr{serverHeader: serverHeader}
	}
	return best, nil
}

type versionMismatchErr struct{ serverHeader string }

func (e *versionMismatchErr) Error() string {
	return "server negotiated version(s) \"" + e.serverHeader + "\" not in client's advertised set"
}

func advertisedContains(advertised []frame.Version, v frame.Version) bool {
	for _, a := range advertised {
		if a == v {
			return true
		}
	}
	return false
}

func versionRank(v frame.Version) int {
	switch v {
	case frame.V10:
		return 0
	case frame.V11:
		return 1
	case frame.V12:
		return 2
	default:
		return -1
	}
}
