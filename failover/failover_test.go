package failover

import (
	"testing"
	"time"

	. "github.com/onsi/gomega"
)

func TestParse_singleBrokerNoParens(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:tcp://localhost:61613")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(cfg.Brokers).To(HaveLen(1))
	g.Expect(cfg.Brokers[0]).To(Equal(Endpoint{Protocol: "tcp", Host: "localhost", Port: 61613}))
}

func TestParse_multipleBrokersWithOptions(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:(tcp://a:1,tcp://b:2)?randomize=false&initialReconnectDelay=100&backOffMultiplier=2&maxReconnectDelay=1000")
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(cfg.Brokers).To(Equal([]Endpoint{
		{Protocol: "tcp", Host: "a", Port: 1},
		{Protocol: "tcp", Host: "b", Port: 2},
	}))
	g.Expect(cfg.Options.Randomize).To(BeFalse())
	g.Expect(cfg.Options.InitialReconnectDelay).To(Equal(100 * time.Millisecond))
	g.Expect(cfg.Options.BackOffMultiplier).To(Equal(2.0))
	g.Expect(cfg.Options.MaxReconnectDelay).To(Equal(1000 * time.Millisecond))
}

func TestParse_missingPrefixIsMalformed(t *testing.T) {
	g := NewGomegaWithT(t)

	_, err := Parse("tcp://localhost:61613")
	g.Expect(err).To(HaveOccurred())

	pe, ok := err.(*ParseError)
	g.Expect(ok).To(BeTrue())
	g.Expect(pe.Kind).To(Equal(KindMalformedURI))
}

func TestParse_unbalancedParensIsMalformed(t *testing.T) {
	g := NewGomegaWithT(t)

	_, err := Parse("failover:(tcp://a:1,tcp://b:2")
	g.Expect(err).To(HaveOccurred())

	pe, ok := err.(*ParseError)
	g.Expect(ok).To(BeTrue())
	g.Expect(pe.Kind).To(Equal(KindMalformedURI))
}

func TestParse_brokerMissingPortIsMalformed(t *testing.T) {
	g := NewGomegaWithT(t)

	_, err := Parse("failover:tcp://localhost")
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.(*ParseError).Kind).To(Equal(KindMalformedURI))
}

func TestParse_unknownOptionIsRejected(t *testing.T) {
	g := NewGomegaWithT(t)

	_, err := Parse("failover:tcp://localhost:61613?bogusOption=1")
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.(*ParseError).Kind).To(Equal(KindUnknownOption))
}

func TestParse_badOptionValueIsRejected(t *testing.T) {
	g := NewGomegaWithT(t)

	_, err := Parse("failover:tcp://localhost:61613?backOffMultiplier=notanumber")
	g.Expect(err).To(HaveOccurred())
	g.Expect(err.(*ParseError).Kind).To(Equal(KindBadOptionValue))
}

func TestParse_defaultsAppliedWhenOptionsOmitted(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:tcp://localhost:61613")
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(cfg.Options.MaxReconnectAttempts).To(Equal(-1))
	g.Expect(cfg.Options.StartupMaxReconnectAttempts).To(Equal(0))
	g.Expect(cfg.Options.Randomize).To(BeTrue())
	g.Expect(cfg.Options.UseExponentialBackOff).To(BeTrue())
}

// TestIterator_backoffSequenceMatchesDocumentedScenario walks the exact
// failover-cycle scenario: two brokers, no randomization, starting
// delay 100ms doubling each retry, clamped at 1000ms.
func TestIterator_backoffSequenceMatchesDocumentedScenario(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:(tcp://a:1,tcp://b:2)?randomize=false&initialReconnectDelay=100&backOffMultiplier=2&maxReconnectDelay=1000")
	g.Expect(err).NotTo(HaveOccurred())

	it := NewIterator(cfg)

	wantDelays := []time.Duration{
		0,
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1000 * time.Millisecond,
	}
	wantHosts := []string{"a", "b", "a", "b", "a", "b"}

	for i, want := range wantDelays {
		ep, delay, ok := it.Next()
		g.Expect(ok).To(BeTrue(), "call %d should still be within budget", i)
		g.Expect(delay).To(Equal(want), "call %d delay", i)
		g.Expect(ep.Host).To(Equal(wantHosts[i]), "call %d host", i)
	}
}

func TestIterator_noteSuccessResetsDelayAndBudget(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:tcp://a:1?randomize=false&initialReconnectDelay=100&backOffMultiplier=2&maxReconnectDelay=1000&maxReconnectAttempts=1")
	g.Expect(err).NotTo(HaveOccurred())

	it := NewIterator(cfg)

	_, d0, ok := it.Next()
	g.Expect(ok).To(BeTrue())
	g.Expect(d0).To(BeZero())

	it.NoteSuccess()

	_, d1, ok := it.Next()
	g.Expect(ok).To(BeTrue(), "delay resets back to the first-attempt zero-delay case after a success")
	g.Expect(d1).To(BeZero())
}

func TestIterator_exhaustsBudgetAfterSteadyStateMaxReconnectAttempts(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:tcp://a:1?initialReconnectDelay=10&maxReconnectAttempts=1")
	g.Expect(err).NotTo(HaveOccurred())

	it := NewIterator(cfg)
	it.NoteSuccess() // end the unlimited startup phase

	_, _, ok := it.Next()
	g.Expect(ok).To(BeTrue(), "first attempt after reset is always free")

	_, _, ok = it.Next()
	g.Expect(ok).To(BeTrue(), "one retry is allowed by maxReconnectAttempts=1")

	_, _, ok = it.Next()
	g.Expect(ok).To(BeFalse(), "budget of 1 retry is now exhausted")
}

func TestIterator_priorityBackupOrdersLocalBrokersFirst(t *testing.T) {
	g := NewGomegaWithT(t)

	cfg, err := Parse("failover:(tcp://remote-host:1,tcp://local-host:2)?randomize=false&priorityBackup=true")
	g.Expect(err).NotTo(HaveOccurred())

	it := NewIterator(cfg, WithLocalHostDetector(func(host string) bool {
		return host == "local-host"
	}))

	ep, _, ok := it.Next()
	g.Expect(ok).To(BeTrue())
	g.Expect(ep.Host).To(Equal("local-host"), "priorityBackup moves the local broker to the front of the pass")
}
