package activemq

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestGetDestination_topic(t *testing.T) {
	g := NewGomegaWithT(t)

	a := &ActiveMq{cfg: Config{Topic: "test_topic"}}

	got := a.getDestination()
	g.Expect(got).To(Equal("/topic/test_topic"))
}

func TestGetDestination_queue(t *testing.T) {
	g := NewGomegaWithT(t)

	a := &ActiveMq{cfg: Config{Queue: "TestQueue"}}

	got := a.getDestination()
	g.Expect(got).To(Equal("TestQueue"))
}

func TestValidateConfig(t *testing.T) {
	g := NewGomegaWithT(t)

	g.Expect(validateConfig(Config{})).To(HaveOccurred())
	g.Expect(validateConfig(Config{Address: "localhost:61613"})).To(HaveOccurred())
	g.Expect(validateConfig(Config{Address: "localhost:61613", Queue: "q"})).ToNot(HaveOccurred())
}

func TestHostOf(t *testing.T) {
	g := NewGomegaWithT(t)

	g.Expect(hostOf("localhost:61613")).To(Equal("localhost"))
	g.Expect(hostOf("not-a-host-port")).To(Equal("not-a-host-port"))
}
