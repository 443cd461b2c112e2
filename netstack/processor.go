package netstack

import (
	"time"

	kerrors "nanokernel/errors"
)

// Stats counts packets processed and dropped, for diagnostics (spec.md
// §4.6: "invalid packets are dropped and counted; never surfaced as
// crashes").
type Stats struct {
	Processed uint64
	Dropped   uint64
	Forwarded uint64
}

// Processor is the layered packet pipeline: device -> Ethernet ->
// ARP/IPv4 -> ICMP/UDP/TCP, with reassembly and routing. Grounded on
// original_source/kernel/src/net/processor.rs's NetworkProcessor.
type Processor struct {
	Interfaces *InterfaceTable
	Routes     *Table
	Reasm      *ReassemblyTable
	UDP        *UdpTable
	TCP        *TcpTable
	Stats      Stats
}

// NewProcessor wires a fresh, empty pipeline.
func NewProcessor() *Processor {
	return &Processor{
		Interfaces: NewInterfaceTable(),
		Routes:     NewTable(),
		Reasm:      NewReassemblyTable(),
		UDP:        NewUdpTable(),
		TCP:        NewTcpTable(),
	}
}

// ProcessIncoming handles a packet arriving on iface, returning the
// pipeline's Result (an Emit to hand back to the device, a Deliver
// reaching a local socket, or a silent Drop/forward).
func (p *Processor) ProcessIncoming(iface *Interface, pkt Packet, now time.Time) Result {
	if !iface.IsUp() {
		p.Stats.Dropped++
		return Result{Dropped: true, DropKind: "interface_down"}
	}

	switch pkt.Kind {
	case KindArp:
		res := ProcessArp(iface, pkt.Bytes, now)
		p.account(res)
		return res
	case KindIPv4:
		res := p.processIPv4(iface, pkt.Bytes, now)
		p.account(res)
		return res
	default:
		p.Stats.Dropped++
		return Result{Dropped: true, DropKind: kerrors.ErrUnsupportedPacketType.Error()}
	}
}

func (p *Processor) account(res Result) {
	if res.Dropped {
		p.Stats.Dropped++
		return
	}
	p.Stats.Processed++
}

// processIPv4 implements spec.md §4.6's IPv4 stage: local delivery
// (with reassembly) dispatches by protocol number; otherwise the
// datagram is forwarded with TTL decrement or dropped with an ICMP Time
// Exceeded.
func (p *Processor) processIPv4(iface *Interface, raw []byte, now time.Time) Result {
	hdr, payload, ok := DecodeIPv4(raw)
	if !ok {
		return Result{Dropped: true, DropKind: "malformed_ipv4"}
	}

	if _, local := p.Interfaces.ByIPv4(hdr.Dst); !local {
		return p.forward(hdr, raw, payload)
	}

	if hdr.MF || hdr.FragOffset != 0 {
		full, complete := p.Reasm.Insert(hdr, payload, now)
		if !complete {
			return Result{}
		}
		payload = full
	}

	return p.dispatchProto(hdr, raw, payload)
}

// forward re-emits a transiting datagram with TTL decremented, or drops
// it with an advisory ICMP Time Exceeded once TTL would reach zero.
func (p *Processor) forward(hdr IPv4Header, raw, payload []byte) Result {
	if hdr.TTL <= 1 {
		return Result{Emit: EmitTimeExceeded(raw)}
	}
	if _, err := p.Routes.Lookup(hdr.Dst); err != nil {
		return Result{Dropped: true, DropKind: "no_route"}
	}
	hdr.TTL--
	p.Stats.Forwarded++
	return Result{Emit: &Packet{Kind: KindIPv4, Bytes: EncodeIPv4(hdr, payload)}}
}

func (p *Processor) dispatchProto(hdr IPv4Header, datagram, payload []byte) Result {
	switch hdr.Proto {
	case ProtoICMP:
		return ProcessICMP(payload)
	case ProtoUDP:
		srcPort, dstPort, udpPayload, ok := DecodeUDP(payload)
		if !ok {
			return Result{Dropped: true, DropKind: "malformed_udp"}
		}
		return ProcessUDP(p.UDP, hdr.Src, hdr.Dst, datagram, udpPayload, srcPort, dstPort)
	case ProtoTCP:
		return p.dispatchTCP(hdr, payload)
	default:
		return Result{Dropped: true, DropKind: "unsupported_protocol"}
	}
}

func (p *Processor) dispatchTCP(hdr IPv4Header, payload []byte) Result {
	seg, ok := DecodeTCP(payload)
	if !ok {
		return Result{Dropped: true, DropKind: "malformed_tcp"}
	}
	sock, ok := p.TCP.Lookup(hdr.Dst, seg.DstPort)
	if !ok {
		return Result{Dropped: true, DropKind: "no_tcp_socket"}
	}
	sock.PeerIP = hdr.Src
	reply, err := sock.Accept(seg)
	if err != nil {
		return Result{Dropped: true, DropKind: err.Error()}
	}
	if reply == nil {
		return Result{}
	}
	return Result{Emit: &Packet{Kind: KindTCP, Bytes: EncodeTCP(*reply)}}
}

// SendUDP routes and emits a UDP datagram originating locally, per
// spec.md §4.6's routing rule (longest-prefix match, lowest-metric
// tiebreak; NoRoute otherwise).
func (p *Processor) SendUDP(srcIP IPv4, srcPort uint16, dstIP IPv4, dstPort uint16, payload []byte) (*Packet, error) {
	if _, err := p.Routes.Lookup(dstIP); err != nil {
		return nil, err
	}
	udp := EncodeUDP(srcPort, dstPort, payload)
	ip := EncodeIPv4(IPv4Header{TTL: 64, Proto: ProtoUDP, Src: srcIP, Dst: dstIP}, udp)
	return &Packet{Kind: KindIPv4, Bytes: ip}, nil
}
