package codec

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/batchcorp/stompcore/frame"
)

func TestReader_parsesNulTerminatedFrame(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("CONNECTED\nversion:1.2\nserver:test/1.0\n\n\x00"))

	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Err).To(BeNil())
	g.Expect(events[0].Frame.Command).To(Equal(frame.CONNECTED))
	g.Expect(events[0].Frame.Header.Get(frame.VersionHeader)).To(Equal("1.2"))
}

func TestReader_parsesContentLengthFramedBody(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	body := "hello\x00world"
	r.Feed([]byte("MESSAGE\ndestination:/q/a\nmessage-id:m-1\nsubscription:sub-0\ncontent-length:11\n\n" + body + "\x00"))

	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Frame.Body).To(Equal([]byte(body)))
}

func TestReader_incrementalFeedAcrossCalls(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	whole := []byte("RECEIPT\nreceipt-id:r-1\n\n\x00")

	r.Feed(whole[:5])
	g.Expect(r.Drain()).To(BeEmpty(), "not enough bytes yet")

	r.Feed(whole[5:])
	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Frame.Command).To(Equal(frame.RECEIPT))
}

func TestReader_coalescesHeartbeatRunIntoOneEvent(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("\n\n\n"))

	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Heartbeat).To(BeTrue())
}

func TestReader_v12BareCarriageReturnInHeaderLineIsFatal(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("SEND\ndestination:/q\rbroken:x\n\nbody\x00"))

	events := r.Drain()
	g.Expect(events).NotTo(BeEmpty())
	last := events[len(events)-1]
	g.Expect(last.Err).NotTo(BeNil())
	g.Expect(last.Err.Kind).To(Equal(frame.KindBadHeaderLine))

	g.Expect(r.Drain()).To(BeEmpty(), "reader is permanently fatal after a framing error")
}

func TestReader_v10NeverSplitsOnBareCarriageReturn(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V10)
	r.Feed([]byte("SEND\ndestination:/q\n\nbody\rwith\rcr\x00"))

	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Err).To(BeNil())
	g.Expect(events[0].Frame.Body).To(Equal([]byte("body\rwith\rcr")))
}

func TestReader_malformedCommandIsFatal(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("NOTACOMMAND\n\n\x00"))

	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Err).NotTo(BeNil())
	g.Expect(events[0].Err.Kind).To(Equal(frame.KindMalformedCommand))
}

func TestReader_finishReportsMissingNullForPartialFrame(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("SEND\ndestination:/q\n\nbody-with-no-terminator"))
	g.Expect(r.Drain()).To(BeEmpty())

	err := r.Finish()
	g.Expect(err).NotTo(BeNil())
	g.Expect(err.Kind).To(Equal(frame.KindMissingNull))
}

func TestReader_finishIsCleanOnTrailingHeartbeats(t *testing.T) {
	g := NewGomegaWithT(t)

	r := NewReader(frame.V12)
	r.Feed([]byte("\n\n"))
	g.Expect(r.Drain()).To(HaveLen(1))
	g.Expect(r.Finish()).To(BeNil())
}

func TestWriter_encodeRoundTripsThroughReader(t *testing.T) {
	g := NewGomegaWithT(t)

	f := frame.New(frame.SEND, frame.Destination, "/q/a")
	f.Body = []byte("payload")

	w := NewWriter(frame.V12)
	encoded, err := w.Encode(f)
	g.Expect(err).NotTo(HaveOccurred())

	r := NewReader(frame.V12)
	r.Feed(encoded)
	events := r.Drain()
	g.Expect(events).To(HaveLen(1))
	g.Expect(events[0].Frame.Command).To(Equal(frame.SEND))
	g.Expect(events[0].Frame.Body).To(Equal([]byte("payload")))
}

func TestWriter_rejectsBodyOnBodylessCommand(t *testing.T) {
	g := NewGomegaWithT(t)

	f := frame.New(frame.SUBSCRIBE, frame.Destination, "/q/a")
	f.Body = []byte("not allowed")

	_, err := NewWriter(frame.V12).Encode(f)
	g.Expect(err).To(HaveOccurred())
}

func TestWriter_encodeHeartbeat(t *testing.T) {
	g := NewGomegaWithT(t)

	g.Expect(NewWriter(frame.V12).EncodeHeartbeat()).To(Equal([]byte{'\n'}))
}
