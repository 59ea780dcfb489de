package codec

import (
	"bytes"

	"github.com/batchcorp/stompcore/frame"
)

// Writer serializes STOMP frames to bytes according to a negotiated
// version's line-ending and escaping rules. Writer performs no I/O; the
// host writes the returned bytes to its transport of choice.
type Writer struct {
	version frame.Version
}

// NewWriter creates a Writer that serializes frames per version's rules.
func NewWriter(version frame.Version) *Writer {
	return &Writer{version: version}
}

// SetVersion updates the version used to serialize subsequent frames.
func (w *Writer) SetVersion(v frame.Version) {
	w.version = v
}

// Encode serializes f into its wire form: command, header lines, a
// blank line, the body, and a trailing NUL. The client always emits LF
// line endings, even under 1.1 where CR-LF is also legal on the wire.
func (w *Writer) Encode(f *frame.Frame) ([]byte, error) {
	if f.Command == "" {
		return nil, &frame.FramingError{Kind: frame.KindMalformedCommand, Message: "frame has no command"}
	}
	if !frame.AllowsBody(f.Command) && len(f.Body) > 0 {
		return nil, &frame.FramingError{Kind: frame.KindBodyOverrun, Message: "command " + f.Command + " forbids a body"}
	}

	var buf bytes.Buffer
	buf.WriteString(f.Command)
	buf.WriteByte(newline)

	if f.Header != nil {
		for i := 0; i < f.Header.Len(); i++ {
			name, value := f.Header.GetAt(i)
			buf.WriteString(frame.EncodeValue(w.version, f.Command, name))
			buf.WriteByte(colon)
			buf.WriteString(frame.EncodeValue(w.version, f.Command, value))
			buf.WriteByte(newline)
		}
	}
	buf.WriteByte(newline)

	if len(f.Body) > 0 {
		buf.Write(f.Body)
	}
	buf.WriteByte(nul)

	return buf.Bytes(), nil
}

// EncodeHeartbeat returns the single-byte wire form of a heart-beat.
func (w *Writer) EncodeHeartbeat() []byte {
	return []byte{newline}
}
