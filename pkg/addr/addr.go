package addr

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidSegment reports a segment whose value does not parse as the
// type its kind requires. A corrupted segment is terminal; callers must
// not retry the cast.
var ErrInvalidSegment = errors.New("invalid address segment")

// Kind identifies the protocol of a single address segment.
type Kind string

const (
	KindNode    Kind = "node"    // local alias of a node, resolved via the directory
	KindProject Kind = "project" // remote project alias, resolved via the directory
	KindDNS     Kind = "dnsaddr" // DNS host name
	KindIP4     Kind = "ip4"
	KindIP6     Kind = "ip6"
	KindTCP     Kind = "tcp"
	KindService Kind = "service" // worker service name on the terminal node
)

// Segment is one typed element of a multi-protocol address. Kinds outside
// the constants above are carried opaquely and re-emitted verbatim.
type Segment struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// IP4 casts the segment value to an IPv4 address.
func (s Segment) IP4() (net.IP, error) {
	ip := net.ParseIP(s.Value)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("%w: %q is not an ip4 value", ErrInvalidSegment, s.Value)
	}
	return ip.To4(), nil
}

// IP6 casts the segment value to an IPv6 address.
func (s Segment) IP6() (net.IP, error) {
	ip := net.ParseIP(s.Value)
	if ip == nil || ip.To4() != nil {
		return nil, fmt.Errorf("%w: %q is not an ip6 value", ErrInvalidSegment, s.Value)
	}
	return ip, nil
}

// TCPPort casts the segment value to a port number.
func (s Segment) TCPPort() (uint16, error) {
	p, err := strconv.ParseUint(s.Value, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a tcp port", ErrInvalidSegment, s.Value)
	}
	return uint16(p), nil
}

// Address is an ordered sequence of segments. It is immutable once built;
// every mutating-looking method returns a new value and the backing slice
// is never shared with callers.
type Address struct {
	segs []Segment
}

// New builds an address from segments, copying the input.
func New(segs ...Segment) Address {
	return Address{segs: append([]Segment(nil), segs...)}
}

// Parse reads the textual form `/kind/value/kind/value/...`. The empty
// string and "/" both denote the empty address ("self").
func Parse(s string) (Address, error) {
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return Address{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Address{}, fmt.Errorf("address %q must start with '/'", s)
	}
	parts := strings.Split(trimmed, "/")
	if len(parts)%2 != 0 {
		return Address{}, fmt.Errorf("address %q has a kind without a value", s)
	}
	segs := make([]Segment, 0, len(parts)/2)
	for i := 0; i < len(parts); i += 2 {
		if parts[i] == "" {
			return Address{}, fmt.Errorf("address %q has an empty kind", s)
		}
		segs = append(segs, Segment{Kind: Kind(parts[i]), Value: parts[i+1]})
	}
	return Address{segs: segs}, nil
}

// MustParse is Parse for trusted literals; it panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	if len(a.segs) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range a.segs {
		b.WriteByte('/')
		b.WriteString(string(s.Kind))
		b.WriteByte('/')
		b.WriteString(s.Value)
	}
	return b.String()
}

// Segments returns a copy of the segment sequence in traversal order.
func (a Address) Segments() []Segment {
	return append([]Segment(nil), a.segs...)
}

func (a Address) Len() int { return len(a.segs) }

func (a Address) Empty() bool { return len(a.segs) == 0 }

// First returns the leading segment, if any.
func (a Address) First() (Segment, bool) {
	if len(a.segs) == 0 {
		return Segment{}, false
	}
	return a.segs[0], true
}

// PopFirst returns the leading segment and the remainder of the address.
func (a Address) PopFirst() (Segment, Address) {
	if len(a.segs) == 0 {
		return Segment{}, Address{}
	}
	return a.segs[0], New(a.segs[1:]...)
}

// Append returns a new address with segs added at the end.
func (a Address) Append(segs ...Segment) Address {
	out := make([]Segment, 0, len(a.segs)+len(segs))
	out = append(out, a.segs...)
	out = append(out, segs...)
	return Address{segs: out}
}

// Concat returns a new address with all of b's segments appended.
func (a Address) Concat(b Address) Address {
	return a.Append(b.segs...)
}

// Equal reports whether two addresses have identical segment sequences.
func (a Address) Equal(b Address) bool {
	if len(a.segs) != len(b.segs) {
		return false
	}
	for i := range a.segs {
		if a.segs[i] != b.segs[i] {
			return false
		}
	}
	return true
}

// MarshalText emits the canonical textual form; addresses embed in JSON
// as strings.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsLocalNode reports whether an unresolved address targets a node the
// issuing process hosts locally. This is a syntactic property of the
// original address, decided before resolution: the empty address denotes
// self, and an address opening with a node alias stays within the local
// node namespace. Anything else (project, host, ip) is a remote target.
func IsLocalNode(a Address) bool {
	first, ok := a.First()
	if !ok {
		return true
	}
	return first.Kind == KindNode
}
