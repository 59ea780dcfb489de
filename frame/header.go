package frame

import "strconv"

// STOMP header names. Commands use an upper-case naming convention
// (see command.go); header names use their own lower-case, hyphenated
// wire form here.
const (
	ContentLength = "content-length"
	ContentType   = "content-type"
	Receipt       = "receipt"
	ReceiptId     = "receipt-id"
	AcceptVersion = "accept-version"
	Host          = "host"
	VersionHeader = "version"
	Login         = "login"
	Passcode      = "passcode"
	HeartBeat     = "heart-beat"
	Session       = "session"
	Server        = "server"
	Destination   = "destination"
	Id            = "id"
	Ack           = "ack"
	Transaction   = "transaction"
	Subscription  = "subscription"
	MessageId     = "message-id"
	Message       = "message"
)

// Header represents the header section of a STOMP frame: an ordered
// sequence of name/value entries. The STOMP spec permits more than one
// entry with the same name; the first occurrence wins for semantic
// lookups (Get, Contains), but every occurrence is preserved so that
// frames such as ERROR can be round-tripped faithfully.
type Header struct {
	slice []string
}

// NewHeader builds a Header from an even number of alternating
// name/value strings.
func NewHeader(entries ...string) *Header {
	h := &Header{}
	h.slice = append(h.slice, entries...)
	if len(h.slice)%2 != 0 {
		h.slice = append(h.slice, "")
	}
	return h
}

// Add appends a new name/value entry, even if name is already present.
func (h *Header) Add(name, value string) {
	h.slice = append(h.slice, name, value)
}

// AddHeader appends every entry of other to h, in order.
func (h *Header) AddHeader(other *Header) {
	if other == nil {
		return
	}
	for i := 0; i < other.Len(); i++ {
		name, value := other.GetAt(i)
		h.Add(name, value)
	}
}

// Set replaces the value of the first entry with the given name, or
// appends a new entry if name is not present.
func (h *Header) Set(name, value string) {
	if i, ok := h.index(name); ok {
		h.slice[i+1] = value
		return
	}
	h.slice = append(h.slice, name, value)
}

// Get returns the value of the first entry with the given name, or ""
// if there is no such entry.
func (h *Header) Get(name string) string {
	value, _ := h.Contains(name)
	return value
}

// GetAll returns the values of every entry with the given name, in
// insertion order.
func (h *Header) GetAll(name string) []string {
	var values []string
	for i := 0; i < len(h.slice); i += 2 {
		if h.slice[i] == name {
			values = append(values, h.slice[i+1])
		}
	}
	return values
}

// GetAt returns the name/value pair at the given zero-based entry
// index. It panics if index is out of range.
func (h *Header) GetAt(index int) (name, value string) {
	index *= 2
	return h.slice[index], h.slice[index+1]
}

// Contains returns the value of the first entry with the given name,
// and whether such an entry exists.
func (h *Header) Contains(name string) (value string, ok bool) {
	var i int
	if i, ok = h.index(name); ok {
		value = h.slice[i+1]
	}
	return
}

// Del removes every entry with the given name.
func (h *Header) Del(name string) {
	for i, ok := h.index(name); ok; i, ok = h.index(name) {
		h.slice = append(h.slice[:i], h.slice[i+2:]...)
	}
}

// Len returns the number of entries in the header.
func (h *Header) Len() int {
	return len(h.slice) / 2
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	if h == nil {
		return NewHeader()
	}
	c := &Header{slice: make([]string, len(h.slice))}
	copy(c.slice, h.slice)
	return c
}

// ContentLength parses the "content-length" entry, if present. ok is
// false if the header is absent; err is non-nil if present but not a
// valid non-negative integer.
func (h *Header) ContentLength() (value int, ok bool, err error) {
	text, present := h.Contains(ContentLength)
	if !present {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, true, err
	}
	return int(n), true, nil
}

func (h *Header) index(name string) (int, bool) {
	for i := 0; i < len(h.slice); i += 2 {
		if h.slice[i] == name {
			return i, true
		}
	}
	return -1, false
}
