package client

import (
	"strings"
	"time"

	"github.com/batchcorp/stompcore/frame"
)

// ConnectOption customizes a CONNECT or STOMP frame beyond its
// mandatory fields.
type ConnectOption func(*frame.Frame) error

// WithLogin sets the "login" and "passcode" headers.
func WithLogin(login, passcode string) ConnectOption {
	return func(f *frame.Frame) error {
		f.Header.Set(frame.Login, login)
		f.Header.Set(frame.Passcode, passcode)
		return nil
	}
}

// WithHeartBeat sets the "heart-beat" header to the client's proposed
// outgoing and incoming intervals.
func WithHeartBeat(outgoing, incoming time.Duration) ConnectOption {
	return func(f *frame.Frame) error {
		f.Header.Set(frame.HeartBeat, frame.FormatHeartBeat(outgoing, incoming))
		return nil
	}
}

// WithConnectHeader adds an arbitrary custom header entry.
func WithConnectHeader(name, value string) ConnectOption {
	return func(f *frame.Frame) error {
		f.Header.Add(name, value)
		return nil
	}
}

// Connect builds a CONNECT frame. acceptVersions is the set of STOMP
// versions the client is willing to speak; host is mandatory whenever
// any version later than 1.0 is advertised.
func Connect(acceptVersions []frame.Version, host string, opts ...ConnectOption) (*frame.Frame, error) {
	return buildConnectFrame(frame.CONNECT, acceptVersions, host, opts)
}

// Stomp builds a STOMP frame, the 1.1+ alias for CONNECT. It is a
// construction error to build one while advertising only 1.0.
func Stomp(acceptVersions []frame.Version, host string, opts ...ConnectOption) (*frame.Frame, error) {
	if !advertisesAtLeast11(acceptVersions) {
		return nil, invalid(frame.STOMP, frame.AcceptVersion, "STOMP command requires advertising STOMP 1.1 or later")
	}
	return buildConnectFrame(frame.STOMP, acceptVersions, host, opts)
}

func advertisesAtLeast11(versions []frame.Version) bool {
	for _, v := range versions {
		if v == frame.V11 || v == frame.V12 {
			return true
		}
	}
	return false
}

func buildConnectFrame(command string, acceptVersions []frame.Version, host string, opts []ConnectOption) (*frame.Frame, error) {
	if len(acceptVersions) == 0 {
		return nil, missing(command, frame.AcceptVersion)
	}
	if host == "" && advertisesAtLeast11(acceptVersions) {
		return nil, missing(command, frame.Host)
	}

	strs := make([]string, len(acceptVersions))
	for i, v := range acceptVersions {
		strs[i] = v.String()
	}

	f := frame.New(command)
	f.Header.Set(frame.AcceptVersion, strings.Join(strs, ","))
	if host != "" {
		f.Header.Set(frame.Host, host)
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	return f, nil
}
