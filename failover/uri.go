// Package failover parses the client-side failover URI scheme (spec.md
// §4.4) and implements the stateful reconnect-policy iterator that
// walks the parsed broker list with backoff. It opens no connections:
// it is consulted by the surrounding transport when a connection
// attempt needs a next endpoint to try. The one exception to being
// I/O-free is DefaultLocalHostDetector (used by priorityBackup), which
// reads the machine's hostname and resolves it through DNS.
//
// Grounded on `original_source/src/core/webstompest/protocol/failover.py`
// (`StompFailoverUri`/`StompFailoverTransport`), since the teacher's
// vendored go-stomp/stomp library dials a single fixed address and has
// no equivalent of this component.
package failover

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Endpoint is one broker address parsed out of a failover URI.
type Endpoint struct {
	Protocol string
	Host     string
	Port     int
	Path     string
}

func (e Endpoint) String() string {
	return e.Protocol + "://" + e.Host + ":" + strconv.Itoa(e.Port) + e.Path
}

// Options holds the parsed reconnect-policy options, one field per
// entry in spec.md §4.4's recognized-options table, plus
// ReconnectDelayJitter and PriorityBackup's locality tie-break, both
// supplemented from the original Python implementation (see
// SPEC_FULL.md §11).
type Options struct {
	InitialReconnectDelay       time.Duration
	MaxReconnectDelay           time.Duration
	UseExponentialBackOff       bool
	BackOffMultiplier           float64
	MaxReconnectAttempts        int
	StartupMaxReconnectAttempts int
	ReconnectDelayJitter        time.Duration
	Randomize                   bool
	PriorityBackup              bool
}

func defaultOptions() Options {
	return Options{
		InitialReconnectDelay:       10 * time.Millisecond,
		MaxReconnectDelay:           30000 * time.Millisecond,
		UseExponentialBackOff:       true,
		BackOffMultiplier:           2.0,
		MaxReconnectAttempts:        -1,
		StartupMaxReconnectAttempts: 0,
		ReconnectDelayJitter:        0,
		Randomize:                   true,
		PriorityBackup:              false,
	}
}

// Config is the parsed form of a failover URI: the broker list in
// declaration order, plus the resolved options (explicit values
// overriding the defaults above).
type Config struct {
	URI     string
	Brokers []Endpoint
	Options Options
}

const failoverPrefix = "failover:"

// Parse parses a failover URI of the form
// "failover:(tcp://host1:port1,tcp://host2:port2,...)?opt1=val1&opt2=val2".
// Parentheses are optional when exactly one broker is given. Parsing
// errors are always construction-time and fatal (spec.md §7).
func Parse(uri string) (*Config, error) {
	if !strings.HasPrefix(uri, failoverPrefix) {
		return nil, malformedURI(uri, "missing \"failover:\" prefix")
	}
	body := uri[len(failoverPrefix):]

	brokerPart, optionPart := splitOnce(body, "?")
	brokerPart = strings.TrimSpace(brokerPart)
	if strings.HasPrefix(brokerPart, "(") {
		if !strings.HasSuffix(brokerPart, ")") {
			return nil, malformedURI(uri, "unbalanced parentheses in broker list")
		}
		brokerPart = brokerPart[1 : len(brokerPart)-1]
	}
	if brokerPart == "" {
		return nil, malformedURI(uri, "no brokers given")
	}

	var brokers []Endpoint
	for _, part := range strings.Split(brokerPart, ",") {
		ep, err := parseEndpoint(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		brokers = append(brokers, ep)
	}

	opts, err := parseOptions(optionPart)
	if err != nil {
		return nil, err
	}

	return &Config{URI: uri, Brokers: brokers, Options: opts}, nil
}

func splitOnce(s, sep string) (before, after string) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+len(sep):]
}

func parseEndpoint(s string) (Endpoint, error) {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Endpoint{}, malformedURI(s, "not a valid broker URI")
	}
	portStr := u.Port()
	if portStr == "" {
		return Endpoint{}, malformedURI(s, "broker URI is missing a port")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Endpoint{}, malformedURI(s, "broker port is not numeric: "+portStr)
	}
	return Endpoint{Protocol: u.Scheme, Host: u.Hostname(), Port: port, Path: u.Path}, nil
}

func parseOptions(raw string) (Options, error) {
	opts := defaultOptions()
	if raw == "" {
		return opts, nil
	}

	values, err := url.ParseQuery(raw)
	if err != nil {
		return Options{}, malformedURI(raw, "invalid option string: "+err.Error())
	}

	for name, vs := range values {
		if len(vs) == 0 {
			continue
		}
		value := vs[len(vs)-1]
		if err := applyOption(&opts, name, value); err != nil {
			return Options{}, err
		}
	}

	return opts, nil
}

func applyOption(opts *Options, name, value string) error {
	switch name {
	case "initialReconnectDelay":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.InitialReconnectDelay = time.Duration(ms) * time.Millisecond
	case "maxReconnectDelay":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.MaxReconnectDelay = time.Duration(ms) * time.Millisecond
	case "useExponentialBackOff":
		b, err := parseBool(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.UseExponentialBackOff = b
	case "backOffMultiplier":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.BackOffMultiplier = f
	case "maxReconnectAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.MaxReconnectAttempts = n
	case "startupMaxReconnectAttempts":
		n, err := strconv.Atoi(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.StartupMaxReconnectAttempts = n
	case "reconnectDelayJitter":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.ReconnectDelayJitter = time.Duration(ms) * time.Millisecond
	case "randomize":
		b, err := parseBool(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.Randomize = b
	case "priorityBackup":
		b, err := parseBool(value)
		if err != nil {
			return badOptionValue(name, value, err)
		}
		opts.PriorityBackup = b
	default:
		return unknownOption(name)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch value {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errors.New("expected \"true\" or \"false\"")
	}
}
