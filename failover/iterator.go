package failover

import (
	"math/rand"
	"sort"
	"time"
)

// Iterator is the stateful piece of the failover component described
// in spec.md §4.4: each call to Next produces the next broker endpoint
// to dial and how long to wait first, until the configured
// reconnect-attempt budget for the current failure streak is
// exhausted. NoteSuccess resets that budget; a parse error never
// reaches this type, since Parse fails before an Iterator can be built.
type Iterator struct {
	cfg         *Config
	isLocalHost LocalHostDetector
	rand        *rand.Rand

	pass      []Endpoint
	passIndex int

	reconnectDelay       time.Duration
	reconnectAttempts    int
	maxReconnectAttempts int
	everReset            bool
}

// NewIterator builds an Iterator over cfg's broker list, in the
// "startup" phase (spec.md §4.4's startupMaxReconnectAttempts budget)
// until the first NoteSuccess.
func NewIterator(cfg *Config, opts ...IteratorOption) *Iterator {
	it := &Iterator{
		cfg:         cfg,
		isLocalHost: DefaultLocalHostDetector,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(it)
	}
	it.reset()
	return it
}

// Next returns the next broker endpoint to try and how long to wait
// before trying it. ok is false once the current failure streak has
// exhausted its reconnect-attempt budget ("no_more_brokers" in
// spec.md §6/§7); the caller should treat that as terminal for this
// streak, not retry the call.
func (it *Iterator) Next() (endpoint Endpoint, delay time.Duration, ok bool) {
	if it.passIndex >= len(it.pass) {
		it.pass = it.newPass()
		it.passIndex = 0
	}

	d, err := it.delay()
	if err != nil {
		return Endpoint{}, 0, false
	}

	ep := it.pass[it.passIndex]
	it.passIndex++
	return ep, d, true
}

// NoteSuccess reports that the endpoint most recently returned by Next
// connected successfully. It resets the reconnect delay and the
// attempt budget, and ends the startup phase (startupMaxReconnectAttempts
// no longer applies to future failure streaks).
func (it *Iterator) NoteSuccess() {
	it.reset()
}

// NoteFailure reports that the endpoint most recently returned by Next
// failed to connect. The iterator has already advanced past that
// attempt inside Next/delay; NoteFailure exists for symmetry with
// NoteSuccess and as a hook callers can log against, not because the
// iterator needs an extra signal to keep going.
func (it *Iterator) NoteFailure() {}

func (it *Iterator) reset() {
	opts := it.cfg.Options
	it.reconnectDelay = opts.InitialReconnectDelay
	if !it.everReset {
		// startupMaxReconnectAttempts defaults to 0, which spec.md's own
		// failover-cycle test vector (§8) requires to mean "unlimited
		// during startup", not "zero retries" — unlike steady-state
		// maxReconnectAttempts, where 0 does mean zero retries. See
		// DESIGN.md for the writeup of this divergence from the literal
		// original_source comparison.
		if opts.StartupMaxReconnectAttempts == 0 {
			it.maxReconnectAttempts = -1
		} else {
			it.maxReconnectAttempts = opts.StartupMaxReconnectAttempts
		}
		it.everReset = true
	} else {
		it.maxReconnectAttempts = opts.MaxReconnectAttempts
	}
	it.reconnectAttempts = -1
}

func (it *Iterator) delay() (time.Duration, error) {
	opts := it.cfg.Options

	it.reconnectAttempts++
	if it.reconnectAttempts == 0 {
		return 0, nil
	}
	if it.maxReconnectAttempts != -1 && it.reconnectAttempts > it.maxReconnectAttempts {
		return 0, errNoMoreBrokers
	}

	var jitter time.Duration
	if opts.ReconnectDelayJitter > 0 {
		jitter = time.Duration(it.rand.Int63n(int64(opts.ReconnectDelayJitter) + 1))
	}

	d := it.reconnectDelay + jitter
	if d > opts.MaxReconnectDelay {
		d = opts.MaxReconnectDelay
	}
	if d < 0 {
		d = 0
	}

	if opts.UseExponentialBackOff {
		it.reconnectDelay = time.Duration(float64(it.reconnectDelay) * opts.BackOffMultiplier)
	}

	return d, nil
}

func (it *Iterator) newPass() []Endpoint {
	brokers := make([]Endpoint, len(it.cfg.Brokers))
	copy(brokers, it.cfg.Brokers)

	if it.cfg.Options.Randomize {
		it.rand.Shuffle(len(brokers), func(i, j int) {
			brokers[i], brokers[j] = brokers[j], brokers[i]
		})
	}
	if it.cfg.Options.PriorityBackup {
		sort.SliceStable(brokers, func(i, j int) bool {
			return it.isLocalHost(brokers[i].Host) && !it.isLocalHost(brokers[j].Host)
		})
	}

	return brokers
}
