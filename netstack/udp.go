package netstack

import "encoding/binary"

const udpHeaderLen = 8

// DecodeUDP parses a UDP header and returns (srcPort, dstPort, payload).
func DecodeUDP(b []byte) (uint16, uint16, []byte, bool) {
	if len(b) < udpHeaderLen {
		return 0, 0, nil, false
	}
	srcPort := binary.BigEndian.Uint16(b[0:2])
	dstPort := binary.BigEndian.Uint16(b[2:4])
	length := binary.BigEndian.Uint16(b[4:6])
	end := int(length)
	if end < udpHeaderLen || end > len(b) {
		end = len(b)
	}
	return srcPort, dstPort, b[udpHeaderLen:end], true
}

// EncodeUDP serialises a UDP datagram. The checksum is left zero (see
// EncodeICMP's note: no real wire validates it here).
func EncodeUDP(srcPort, dstPort uint16, payload []byte) []byte {
	b := make([]byte, udpHeaderLen+len(payload))
	binary.BigEndian.PutUint16(b[0:2], srcPort)
	binary.BigEndian.PutUint16(b[2:4], dstPort)
	binary.BigEndian.PutUint16(b[4:6], uint16(udpHeaderLen+len(payload)))
	copy(b[udpHeaderLen:], payload)
	return b
}

// ProcessUDP implements the UDP delivery stage (spec.md §4.6): looks up
// the bound socket by (dst_ip|ANY, dst_port); delivers on a hit, emits
// ICMP Port Unreachable on a miss.
func ProcessUDP(table *UdpTable, srcIP, dstIP IPv4, datagram, udpPayload []byte, srcPort, dstPort uint16) Result {
	sock, ok := table.Lookup(dstIP, dstPort)
	if !ok {
		return Result{Emit: EmitPortUnreachable(datagram)}
	}
	sock.deliver(udpPayload)
	return Result{Deliver: &Delivery{
		Proto: ProtoUDP, LocalIP: dstIP, Port: dstPort,
		PeerIP: srcIP, PeerPort: srcPort, Payload: udpPayload,
	}}
}
