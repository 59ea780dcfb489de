// Package codec turns a byte stream into STOMP frames and back. It is
// the incremental, I/O-free parser/serializer described in spec.md §4.1:
// bytes are fed in, frames (or heart-beats, or framing errors) come out
// in the order their final byte was consumed.
package codec

import (
	"bytes"
	"time"

	"github.com/batchcorp/stompcore/frame"
)

const newline = byte('\n')
const cr = byte('\r')
const nul = byte(0)
const colon = byte(':')

// Event is one item produced by Reader.Drain: exactly one of Frame or
// Heartbeat is set, unless Err is set, in which case the reader has
// entered a fatal state and no further events will ever be produced.
type Event struct {
	Frame     *frame.Frame
	Heartbeat bool
	Err       *frame.FramingError
}

// Reader incrementally decodes a byte stream into STOMP frames. It has
// a single logical owner: bytes are fed in order via Feed, and Drain
// returns whatever frames/heart-beats/errors have become decodable
// since the last call. Reader performs no I/O and suspends no
// goroutine; callers serialize access to it externally.
type Reader struct {
	version        frame.Version
	buf            []byte
	consumedTotal  int64
	fatal          bool
	lastInboundAt  time.Time
}

// NewReader creates a Reader that decodes frames according to the given
// negotiated (or, pre-negotiation, advertised) STOMP version.
func NewReader(version frame.Version) *Reader {
	return &Reader{version: version}
}

// SetVersion updates the version used to interpret subsequent bytes.
// Used after CONNECTED is received and the session learns the
// negotiated version. Frames already returned by Drain (including the
// CONNECTED frame itself) were decoded under the previous version and
// are not decoded again.
func (r *Reader) SetVersion(v frame.Version) {
	r.version = v
}

// Feed appends newly-arrived bytes to the reader's internal buffer.
// It never blocks and never parses; call Drain to extract frames.
func (r *Reader) Feed(p []byte) {
	if r.fatal || len(p) == 0 {
		return
	}
	r.buf = append(r.buf, p...)
	r.lastInboundAt = time.Now()
}

// LastInboundByteAt returns the time of the most recent call to Feed
// with a non-empty payload. The host uses this to detect a missing
// incoming heart-beat.
func (r *Reader) LastInboundByteAt() time.Time {
	return r.lastInboundAt
}

// Drain extracts every frame and heart-beat that can be fully decoded
// from the bytes fed so far, in the order their final byte was
// consumed. Heart-beat terminators are coalesced: a Drain call returns
// at most one heart-beat Event, however many of them it consumed, per
// spec.md §9. Once an Event
// with a non-nil Err is returned, the reader is permanently fatal and
// every subsequent Drain call returns an empty slice.
func (r *Reader) Drain() []Event {
	if r.fatal {
		return nil
	}

	var events []Event
	sawHeartbeat := false
	for {
		if n := countHeartbeatRun(r.buf, r.version); n > 0 {
			r.advance(n)
			if !sawHeartbeat {
				events = append(events, Event{Heartbeat: true})
				sawHeartbeat = true
			}
			continue
		}

		if len(r.buf) == 0 {
			break
		}

		f, consumed, needMore, err := r.tryParseFrame(r.buf)
		if err != nil {
			r.fatal = true
			events = append(events, Event{Err: err})
			r.buf = nil
			break
		}
		if needMore {
			break
		}
		r.advance(consumed)
		events = append(events, Event{Frame: f})
	}
	return events
}

// Finish signals that no more bytes will ever be fed, e.g. because the
// underlying transport closed. If a frame was left partially decoded in
// the buffer, that is a missing-null framing error; trailing heart-beat
// bytes or a wholly empty buffer are not an error.
func (r *Reader) Finish() *frame.FramingError {
	if r.fatal {
		return nil
	}
	if n := countHeartbeatRun(r.buf, r.version); n == len(r.buf) {
		return nil
	}
	if len(r.buf) == 0 {
		return nil
	}
	err := &frame.FramingError{Kind: frame.KindMissingNull, Message: "connection ended mid-frame", Offset: r.consumedTotal}
	r.fatal = true
	return err
}

func (r *Reader) advance(n int) {
	r.buf = r.buf[n:]
	r.consumedTotal += int64(n)
}

// countHeartbeatRun returns the number of bytes at the start of buf
// that form one or more consecutive heart-beat terminators (bare LF, or
// for 1.1/1.2, CRLF). Returns 0 if buf does not begin with a complete
// heart-beat terminator (including the case where it might, pending
// more data).
func countHeartbeatRun(buf []byte, version frame.Version) int {
	n := 0
	for {
		if n >= len(buf) {
			return n
		}
		if buf[n] == newline {
			n++
			continue
		}
		if version != frame.V10 && buf[n] == cr {
			if n+1 < len(buf) && buf[n+1] == newline {
				n += 2
				continue
			}
			// ambiguous: either a pending CRLF heart-beat or the start
			// of real frame content. Stop here without consuming it;
			// tryParseFrame (or a future Drain call, once more bytes
			// arrive) will resolve it.
			return n
		}
		return n
	}
}

// tryParseFrame attempts to decode one complete frame starting at
// buf[0]. needMore is true if buf does not yet contain enough bytes to
// know whether the frame is well-formed; the caller should wait for
// more data from Feed before trying again.
func (r *Reader) tryParseFrame(buf []byte) (f *frame.Frame, consumed int, needMore bool, err *frame.FramingError) {
	pos := 0

	commandLine, n, ok, lineErr := readLine(buf[pos:], r.version, false)
	if lineErr != nil {
		return nil, 0, false, &frame.FramingError{Kind: lineErr.Kind, Message: lineErr.Message, Offset: r.consumedTotal}
	}
	if !ok {
		return nil, 0, true, nil
	}
	pos += n

	command := string(commandLine)
	if command == "" || !frame.IsValidCommand(command) {
		return nil, 0, false, &frame.FramingError{
			Kind:    frame.KindMalformedCommand,
			Message: "unrecognized command: " + command,
			Offset:  r.consumedTotal,
		}
	}

	f = frame.New(command)

	for {
		headerLine, n, ok, lineErr := readLine(buf[pos:], r.version, true)
		if lineErr != nil {
			return nil, 0, false, &frame.FramingError{Kind: lineErr.Kind, Message: lineErr.Message, Offset: r.consumedTotal + int64(pos)}
		}
		if !ok {
			return nil, 0, true, nil
		}
		if len(headerLine) == 0 {
			pos += n
			break
		}

		idx := bytes.IndexByte(headerLine, colon)
		if idx <= 0 {
			return nil, 0, false, &frame.FramingError{
				Kind:    frame.KindBadHeaderLine,
				Message: "header line missing colon or has empty name",
				Offset:  r.consumedTotal + int64(pos),
			}
		}

		name, derr := frame.DecodeValue(r.version, command, string(headerLine[:idx]))
		if derr != nil {
			return nil, 0, false, asFramingError(derr, r.consumedTotal+int64(pos))
		}
		value, derr := frame.DecodeValue(r.version, command, string(headerLine[idx+1:]))
		if derr != nil {
			return nil, 0, false, asFramingError(derr, r.consumedTotal+int64(pos))
		}

		f.Header.Add(name, value)
		pos += n
	}

	contentLength, hasLength, lerr := f.Header.ContentLength()
	if lerr != nil {
		return nil, 0, false, &frame.FramingError{
			Kind:    frame.KindBadHeaderLine,
			Message: "malformed content-length header",
			Offset:  r.consumedTotal + int64(pos),
			Cause:   lerr,
		}
	}

	if hasLength {
		if len(buf)-pos < contentLength+1 {
			return nil, 0, true, nil
		}
		f.Body = append([]byte(nil), buf[pos:pos+contentLength]...)
		pos += contentLength
		if buf[pos] != nul {
			return nil, 0, false, &frame.FramingError{
				Kind:    frame.KindBodyOverrun,
				Message: "byte following declared content-length was not NUL",
				Offset:  r.consumedTotal + int64(pos),
			}
		}
		pos++
	} else {
		idx := bytes.IndexByte(buf[pos:], nul)
		if idx < 0 {
			return nil, 0, true, nil
		}
		f.Body = append([]byte(nil), buf[pos:pos+idx]...)
		pos += idx + 1
	}

	if !frame.AllowsBody(command) && len(f.Body) > 0 {
		return nil, 0, false, &frame.FramingError{
			Kind:    frame.KindBodyOverrun,
			Message: "command " + command + " forbids a body",
			Offset:  r.consumedTotal,
		}
	}

	return f, pos, false, nil
}

func asFramingError(err error, offset int64) *frame.FramingError {
	if fe, ok := err.(*frame.FramingError); ok {
		fe.Offset = offset
		return fe
	}
	return &frame.FramingError{Kind: frame.KindBadEscape, Message: err.Error(), Offset: offset}
}

// readLine scans buf for the next line terminator appropriate to
// version, returning the line content (terminator stripped) and the
// number of bytes consumed including the terminator. ok is false if no
// terminator has arrived yet.
//
// Per spec.md §4.1: in 1.0 a carriage return is always literal data; in
// 1.1 a bare CR not immediately followed by LF is literal, but CR-LF is
// a recognized terminator; in 1.2 any CR that is not immediately
// followed by LF inside a header line is a framing error rather than
// literal data.
func readLine(buf []byte, version frame.Version, isHeaderLine bool) (line []byte, consumed int, ok bool, err *frame.FramingError) {
	idx := bytes.IndexByte(buf, newline)
	if idx < 0 {
		return nil, 0, false, nil
	}
	line = buf[:idx]
	consumed = idx + 1

	if version == frame.V10 {
		return line, consumed, true, nil
	}

	if len(line) > 0 && line[len(line)-1] == cr {
		return line[:len(line)-1], consumed, true, nil
	}

	if version == frame.V12 && isHeaderLine && bytes.IndexByte(line, cr) >= 0 {
		return nil, 0, false, &frame.FramingError{
			Kind:    frame.KindBadHeaderLine,
			Message: "bare carriage return inside STOMP 1.2 header line",
		}
	}

	return line, consumed, true, nil
}
