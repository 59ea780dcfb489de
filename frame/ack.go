package frame

// AckMode is the acknowledgement mode of a subscription, sent as the
// "ack" header on SUBSCRIBE.
type AckMode string

const (
	AckAuto             AckMode = "auto"
	AckClient           AckMode = "client"
	AckClientIndividual AckMode = "client-individual"
)

// Valid reports whether a is one of the three recognized ack modes.
func (a AckMode) Valid() bool {
	switch a {
	case AckAuto, AckClient, AckClientIndividual:
		return true
	}
	return false
}
