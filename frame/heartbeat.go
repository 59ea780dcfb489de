package frame

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var heartBeatRegexp = regexp.MustCompile(`^[0-9]+,[0-9]+$`)

// ParseHeartBeat parses a "heart-beat" header value ("cx,cy") into the
// two millisecond intervals it declares: the sender's outgoing interval
// and the sender's requested incoming interval.
func ParseHeartBeat(value string) (outgoing, incoming time.Duration, err error) {
	if !heartBeatRegexp.MatchString(value) {
		return 0, 0, &FramingError{Kind: KindBadHeaderLine, Message: "malformed heart-beat header"}
	}
	parts := strings.Split(value, ",")
	x, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, &FramingError{Kind: KindBadHeaderLine, Message: "malformed heart-beat header", Cause: err}
	}
	y, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, &FramingError{Kind: KindBadHeaderLine, Message: "malformed heart-beat header", Cause: err}
	}
	return time.Duration(x) * time.Millisecond, time.Duration(y) * time.Millisecond, nil
}

// FormatHeartBeat renders two millisecond intervals as a "heart-beat"
// header value.
func FormatHeartBeat(outgoing, incoming time.Duration) string {
	return strconv.FormatInt(int64(outgoing/time.Millisecond), 10) + "," + strconv.FormatInt(int64(incoming/time.Millisecond), 10)
}

// NegotiateHeartBeats applies the STOMP negotiation rule: the effective
// outgoing interval is the max of the client's cx and the server's sy;
// the effective incoming interval is the max of the client's sy and the
// server's cx. A zero on either side disables that direction.
func NegotiateHeartBeats(clientOutgoing, clientIncoming, serverOutgoing, serverIncoming time.Duration) (outgoing, incoming time.Duration) {
	outgoing = negotiateOne(clientOutgoing, serverIncoming)
	incoming = negotiateOne(clientIncoming, serverOutgoing)
	return
}

func negotiateOne(a, b time.Duration) time.Duration {
	if a == 0 || b == 0 {
		return 0
	}
	if a > b {
		return a
	}
	return b
}
