// Package netstack implements the layered network processing core (C7):
// device/interface abstraction, ARP, IPv4 with fragmentation and
// reassembly, ICMP, UDP and TCP socket delivery, and a routing table.
package netstack

// Kind identifies the framing of a Packet's payload.
type Kind int

const (
	KindEthernet Kind = iota
	KindArp
	KindIPv4
	KindICMP
	KindUDP
	KindTCP
)

func (k Kind) String() string {
	switch k {
	case KindEthernet:
		return "ethernet"
	case KindArp:
		return "arp"
	case KindIPv4:
		return "ipv4"
	case KindICMP:
		return "icmp"
	case KindUDP:
		return "udp"
	case KindTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// Packet is the typed envelope passed between pipeline stages.
type Packet struct {
	Kind  Kind
	Bytes []byte
}

// Result reports the outcome of processing a packet through the
// pipeline: either an Emit (a packet the caller must hand back to a
// device), a Deliver (data arrived at a local socket), or neither
// (silently dropped, consumed, or forwarded).
type Result struct {
	Emit     *Packet
	Deliver  *Delivery
	Dropped  bool
	DropKind string
}

// Delivery is a payload that reached a bound socket's receive queue.
type Delivery struct {
	Proto   Protocol
	LocalIP IPv4
	Port    uint16
	PeerIP  IPv4
	PeerPort uint16
	Payload []byte
}

// Protocol is an IPv4 protocol number (IANA assigned).
type Protocol uint8

const (
	ProtoICMP Protocol = 1
	ProtoTCP  Protocol = 6
	ProtoUDP  Protocol = 17
)
