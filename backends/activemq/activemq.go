// Package activemq is a demonstrative host integration: a synchronous
// net.Conn-backed driver built on top of the core frame/codec/client/
// session packages, showing one way a caller might wire them together
// against a real ActiveMQ broker speaking STOMP. It is not part of the
// core: the core is I/O-free, and this package is the one place in
// the module that dials a socket.
package activemq

import (
	"bufio"
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/stompcore/client"
	"github.com/batchcorp/stompcore/codec"
	"github.com/batchcorp/stompcore/frame"
	"github.com/batchcorp/stompcore/session"
)

const BackendName = "activemq"

// Config describes the one connection this driver knows how to open.
// It mirrors the teacher's ActiveMQConn args (address, topic or
// queue, client id) without the protobuf/CLI plumbing those args
// arrived in.
type Config struct {
	Address  string
	Topic    string
	Queue    string
	ClientId string

	OutgoingHeartBeat time.Duration
	IncomingHeartBeat time.Duration
}

// ActiveMq drives one STOMP session over one net.Conn. Reads happen on
// a dedicated goroutine that feeds bytes into the codec and forwards
// decoded frames to the session; writes are issued synchronously by
// callers of Connect/Subscribe/Send/Close, each of which serializes its
// frame with the codec's Writer and writes it straight to the socket.
type ActiveMq struct {
	cfg  Config
	log  *logrus.Entry
	conn net.Conn

	sess   *session.Session
	reader *codec.Reader
	writer *codec.Writer

	messages chan *frame.Frame
	errors   chan error
}

// New validates cfg and returns an unconnected driver.
func New(cfg Config) (*ActiveMq, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "unable to validate options")
	}

	return &ActiveMq{
		cfg:      cfg,
		log:      logrus.WithField("backend", BackendName),
		sess:     session.New(),
		messages: make(chan *frame.Frame, 64),
		errors:   make(chan error, 1),
	}, nil
}

func (a *ActiveMq) Name() string {
	return BackendName
}

// Connect dials the broker, performs the STOMP CONNECT handshake
// through the session, and starts the background read loop. The
// aggressive heart-beat default mirrors the teacher's
// stomp.ConnOpt.HeartBeat(5*time.Second, time.Second): ActiveMQ tends
// to drop idle connections without frequent heart-beats.
func (a *ActiveMq) Connect() error {
	conn, err := net.DialTimeout("tcp", a.cfg.Address, 10*time.Second)
	if err != nil {
		return errors.Wrap(err, "unable to connect to backend")
	}
	a.conn = conn

	outgoing := a.cfg.OutgoingHeartBeat
	incoming := a.cfg.IncomingHeartBeat
	if outgoing == 0 && incoming == 0 {
		outgoing, incoming = 5*time.Second, time.Second
	}

	a.reader = codec.NewReader(frame.V10)
	a.writer = codec.NewWriter(frame.V10)

	connectFrame, err := a.sess.Connect(session.ConnectParams{
		AcceptVersions:    frame.Supported,
		Host:              hostOf(a.cfg.Address),
		OutgoingHeartBeat: outgoing,
		IncomingHeartBeat: incoming,
	})
	if err != nil {
		return errors.Wrap(err, "unable to build CONNECT frame")
	}
	if err := a.write(connectFrame); err != nil {
		return errors.Wrap(err, "unable to send CONNECT frame")
	}

	go a.readLoop()

	select {
	case err := <-a.errors:
		return errors.Wrap(err, "unable to complete STOMP handshake")
	case <-a.waitConnected():
	}

	a.log.Infof("connected to %s, negotiated version %s", a.cfg.Address, a.sess.NegotiatedVersion())
	return nil
}

func (a *ActiveMq) waitConnected() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for a.sess.State() != session.StateConnected {
			time.Sleep(10 * time.Millisecond)
		}
		close(done)
	}()
	return done
}

func (a *ActiveMq) readLoop() {
	r := bufio.NewReaderSize(a.conn, 64*1024)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if err != nil {
			a.errors <- errors.Wrap(err, "read from broker")
			a.sess.Abrupt()
			return
		}
		a.reader.Feed(buf[:n])
		for _, ev := range a.reader.Drain() {
			if ev.Err != nil {
				a.errors <- ev.Err
				a.sess.Abrupt()
				return
			}
			if ev.Heartbeat {
				continue
			}
			event, err := a.sess.OnFrame(ev.Frame)
			if err != nil {
				a.log.Warnf("session rejected inbound frame: %s", err)
				continue
			}
			switch event.Kind {
			case session.EventConnected:
				a.reader.SetVersion(a.sess.NegotiatedVersion())
				a.writer.SetVersion(a.sess.NegotiatedVersion())
			case session.EventMessage:
				a.messages <- event.Message
			}
		}
	}
}

func (a *ActiveMq) write(f *frame.Frame) error {
	b, err := a.writer.Encode(f)
	if err != nil {
		return err
	}
	_, err = a.conn.Write(b)
	return err
}

// Subscribe issues a SUBSCRIBE for this driver's configured
// destination and returns a channel of delivered MESSAGE frames.
func (a *ActiveMq) Subscribe() (<-chan *frame.Frame, error) {
	_, f, err := a.sess.Subscribe(map[string]string{
		frame.Destination: a.getDestination(),
		frame.Ack:         string(frame.AckAuto),
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build SUBSCRIBE frame")
	}
	if err := a.write(f); err != nil {
		return nil, errors.Wrap(err, "unable to send SUBSCRIBE frame")
	}
	return a.messages, nil
}

// Send publishes body to this driver's configured destination.
func (a *ActiveMq) Send(body []byte, opts ...client.SendOption) error {
	f, err := a.sess.Send(a.getDestination(), body, opts...)
	if err != nil {
		return errors.Wrap(err, "unable to build SEND frame")
	}
	return a.write(f)
}

// Close performs the graceful-shutdown sequence from spec.md §5:
// DISCONNECT-with-receipt, wait for that receipt, then close the
// socket.
func (a *ActiveMq) Close() error {
	if a.sess.State() != session.StateConnected {
		if a.conn != nil {
			return a.conn.Close()
		}
		return nil
	}

	f, err := a.sess.Disconnect(true)
	if err != nil {
		return errors.Wrap(err, "unable to build DISCONNECT frame")
	}
	receiptId := f.Header.Get(frame.Receipt)
	if err := a.write(f); err != nil {
		return errors.Wrap(err, "unable to send DISCONNECT frame")
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.sess.AwaitReceipt(receiptId) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	return a.conn.Close()
}

// getDestination determines the STOMP destination to pass to
// Subscribe/Send, preferring a configured topic over a queue.
func (a *ActiveMq) getDestination() string {
	if a.cfg.Topic != "" {
		return "/topic/" + a.cfg.Topic
	}
	return a.cfg.Queue
}

func validateConfig(cfg Config) error {
	if cfg.Address == "" {
		return errors.New("address cannot be empty")
	}
	if cfg.Topic == "" && cfg.Queue == "" {
		return errors.New("either topic or queue must be set")
	}
	return nil
}

func hostOf(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}
