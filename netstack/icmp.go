package netstack

import "encoding/binary"

// ICMP message types used by this pipeline.
const (
	ICMPEchoReply         = 0
	ICMPDestUnreachable   = 3
	ICMPEchoRequest       = 8
	ICMPTimeExceeded      = 11
)

// ICMP codes.
const (
	ICMPCodePortUnreachable = 3
	ICMPCodeTTLExceeded     = 0
)

// icmpHeaderLen is the fixed ICMP header (type, code, checksum, rest-of-header).
const icmpHeaderLen = 8

// offendingPacketBytes is how much of the triggering IPv4 datagram is
// echoed back in an error message (spec.md §4.6: "first 28 bytes").
const offendingPacketBytes = 28

// ICMPMessage is a parsed ICMP header plus its data.
type ICMPMessage struct {
	Type uint8
	Code uint8
	ID   uint16 // echo identifier, when Type is Echo Request/Reply
	Seq  uint16
	Data []byte
}

// DecodeICMP parses b into an ICMPMessage.
func DecodeICMP(b []byte) (ICMPMessage, bool) {
	if len(b) < icmpHeaderLen {
		return ICMPMessage{}, false
	}
	var m ICMPMessage
	m.Type = b[0]
	m.Code = b[1]
	m.ID = binary.BigEndian.Uint16(b[4:6])
	m.Seq = binary.BigEndian.Uint16(b[6:8])
	m.Data = b[icmpHeaderLen:]
	return m, true
}

// EncodeICMP serialises m. The checksum field is left zero: this
// pipeline operates purely in-process and never puts the packet on a
// real wire that would validate it.
func EncodeICMP(m ICMPMessage) []byte {
	b := make([]byte, icmpHeaderLen+len(m.Data))
	b[0] = m.Type
	b[1] = m.Code
	binary.BigEndian.PutUint16(b[4:6], m.ID)
	binary.BigEndian.PutUint16(b[6:8], m.Seq)
	copy(b[icmpHeaderLen:], m.Data)
	return b
}

// ProcessICMP implements the ICMP stage (spec.md §4.6): Echo Request
// produces an Echo Reply with the same payload; other types are not
// handled here (error messages are built by EmitTimeExceeded on the IPv4
// forward path and EmitPortUnreachable in the UDP stage, not by this
// function).
func ProcessICMP(payload []byte) Result {
	msg, ok := DecodeICMP(payload)
	if !ok {
		return Result{Dropped: true, DropKind: "malformed_icmp"}
	}
	if msg.Type != ICMPEchoRequest {
		return Result{Dropped: true, DropKind: "unhandled_icmp_type"}
	}
	reply := EncodeICMP(ICMPMessage{Type: ICMPEchoReply, Code: 0, ID: msg.ID, Seq: msg.Seq, Data: msg.Data})
	return Result{Emit: &Packet{Kind: KindICMP, Bytes: reply}}
}

// truncateOffending returns up to the first offendingPacketBytes bytes
// of the datagram that triggered an ICMP error.
func truncateOffending(datagram []byte) []byte {
	n := len(datagram)
	if n > offendingPacketBytes {
		n = offendingPacketBytes
	}
	out := make([]byte, n)
	copy(out, datagram[:n])
	return out
}

// EmitTimeExceeded builds the ICMP Time Exceeded advisory for a datagram
// whose TTL was exhausted in transit.
func EmitTimeExceeded(datagram []byte) *Packet {
	msg := EncodeICMP(ICMPMessage{Type: ICMPTimeExceeded, Code: ICMPCodeTTLExceeded, Data: truncateOffending(datagram)})
	return &Packet{Kind: KindICMP, Bytes: msg}
}

// EmitPortUnreachable builds the ICMP Destination Unreachable (port
// unreachable) advisory for a UDP datagram with no bound socket.
func EmitPortUnreachable(datagram []byte) *Packet {
	msg := EncodeICMP(ICMPMessage{Type: ICMPDestUnreachable, Code: ICMPCodePortUnreachable, Data: truncateOffending(datagram)})
	return &Packet{Kind: KindICMP, Bytes: msg}
}
