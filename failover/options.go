package failover

import "math/rand"

// IteratorOption customizes a new Iterator beyond its parsed Config.
type IteratorOption func(*Iterator)

// WithLocalHostDetector overrides how priorityBackup decides which
// brokers count as local. The default is DefaultLocalHostDetector.
func WithLocalHostDetector(detect LocalHostDetector) IteratorOption {
	return func(it *Iterator) { it.isLocalHost = detect }
}

// WithRand overrides the random source used for shuffling passes and
// for reconnectDelayJitter, so tests can get a deterministic sequence
// without disabling randomize/jitter outright.
func WithRand(r *rand.Rand) IteratorOption {
	return func(it *Iterator) { it.rand = r }
}
