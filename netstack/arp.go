package netstack

import (
	"encoding/binary"
	"time"
)

// ARP operation codes.
const (
	ArpRequest uint16 = 1
	ArpReply   uint16 = 2
)

// ArpFrame is the on-wire ARP payload for Ethernet/IPv4 (htype=1,
// ptype=0x0800, hlen=6, plen=4).
type ArpFrame struct {
	Op       uint16
	SenderHW MacAddr
	SenderIP IPv4
	TargetHW MacAddr
	TargetIP IPv4
}

// arpFrameLen is the wire length of ArpFrame once htype/ptype/hlen/plen
// are included.
const arpFrameLen = 28

// EncodeArp serialises f to its wire form.
func EncodeArp(f ArpFrame) []byte {
	b := make([]byte, arpFrameLen)
	binary.BigEndian.PutUint16(b[0:2], 1)      // htype: ethernet
	binary.BigEndian.PutUint16(b[2:4], 0x0800) // ptype: ipv4
	b[4] = 6
	b[5] = 4
	binary.BigEndian.PutUint16(b[6:8], f.Op)
	copy(b[8:14], f.SenderHW[:])
	copy(b[14:18], f.SenderIP[:])
	copy(b[18:24], f.TargetHW[:])
	copy(b[24:28], f.TargetIP[:])
	return b
}

// DecodeArp parses an ARP frame, returning ok=false for a malformed or
// unsupported (non-ethernet/ipv4) frame.
func DecodeArp(b []byte) (ArpFrame, bool) {
	if len(b) < arpFrameLen {
		return ArpFrame{}, false
	}
	if binary.BigEndian.Uint16(b[0:2]) != 1 || binary.BigEndian.Uint16(b[2:4]) != 0x0800 {
		return ArpFrame{}, false
	}
	if b[4] != 6 || b[5] != 4 {
		return ArpFrame{}, false
	}
	var f ArpFrame
	f.Op = binary.BigEndian.Uint16(b[6:8])
	copy(f.SenderHW[:], b[8:14])
	copy(f.SenderIP[:], b[14:18])
	copy(f.TargetHW[:], b[18:24])
	copy(f.TargetIP[:], b[24:28])
	return f, true
}

// ProcessArp implements the ARP stage of the pipeline (spec.md §4.6): a
// request for our IP yields a synthesised reply; a reply updates the
// cache.
func ProcessArp(iface *Interface, raw []byte, now time.Time) Result {
	frame, ok := DecodeArp(raw)
	if !ok {
		return Result{Dropped: true, DropKind: "malformed_arp"}
	}

	switch frame.Op {
	case ArpReply:
		iface.ArpLearn(frame.SenderIP, frame.SenderHW, now)
		return Result{}
	case ArpRequest:
		iface.ArpLearn(frame.SenderIP, frame.SenderHW, now)
		if frame.TargetIP != iface.IPv4 {
			return Result{}
		}
		reply := EncodeArp(ArpFrame{
			Op:       ArpReply,
			SenderHW: iface.MAC,
			SenderIP: iface.IPv4,
			TargetHW: frame.SenderHW,
			TargetIP: frame.SenderIP,
		})
		return Result{Emit: &Packet{Kind: KindArp, Bytes: reply}}
	default:
		return Result{Dropped: true, DropKind: "unknown_arp_op"}
	}
}
