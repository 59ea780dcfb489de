package frame

import "strings"

// Per-version header value escaping, driven by data rather than
// polymorphism: lookup tables keyed by Version. STOMP 1.0 has
// no escaping mechanism at all: backslash, colon, newline and carriage
// return are all literal data bytes. STOMP 1.1 adds backslash/newline/colon
// escaping but still treats carriage return literally. STOMP 1.2 adds
// carriage-return escaping on top of 1.1's table.
var (
	encoders = map[Version]*strings.Replacer{
		V10: nil,
		V11: strings.NewReplacer(
			"\\", "\\\\",
			"\n", "\\n",
			":", "\\c",
		),
		V12: strings.NewReplacer(
			"\\", "\\\\",
			"\n", "\\n",
			":", "\\c",
			"\r", "\\r",
		),
	}

	decoders = map[Version]*strings.Replacer{
		V10: nil,
		V11: strings.NewReplacer(
			"\\n", "\n",
			"\\c", ":",
			"\\\\", "\\",
		),
		V12: strings.NewReplacer(
			"\\r", "\r",
			"\\n", "\n",
			"\\c", ":",
			"\\\\", "\\",
		),
	}
)

// EncodeValue applies the version's escaping table to a header value
// about to be written to the wire. command identifies the frame the
// value belongs to: CONNECT and STOMP frames are never escaped,
// regardless of version, per protocol convention.
func EncodeValue(version Version, command, s string) string {
	if !EscapesHeaders(command) {
		return s
	}
	enc := encoders[version]
	if enc == nil {
		return s
	}
	return enc.Replace(s)
}

// DecodeValue reverses EncodeValue for an inbound header value. It
// reports an error if s contains a backslash-escape sequence that the
// version's table does not recognize (bad-escape).
func DecodeValue(version Version, command, s string) (string, error) {
	if !EscapesHeaders(command) {
		return s, nil
	}
	dec := decoders[version]
	if dec == nil {
		return s, nil
	}
	if err := checkEscapes(version, s); err != nil {
		return "", err
	}
	return dec.Replace(s), nil
}

// checkEscapes scans for a lone backslash that does not begin one of
// the version's recognized two-character escape sequences.
func checkEscapes(version Version, s string) error {
	recognized := map[Version]string{
		V11: "nc\\",
		V12: "nc\\r",
	}[version]
	if recognized == "" {
		return nil
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			continue
		}
		if i+1 >= len(s) || strings.IndexByte(recognized, s[i+1]) < 0 {
			return &FramingError{Kind: KindBadEscape, Message: "unrecognized escape sequence in header value"}
		}
		i++
	}
	return nil
}
