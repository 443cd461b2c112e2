package netstack

import (
	"encoding/binary"
)

// ipv4HeaderLen is the fixed (no-options) IPv4 header length.
const ipv4HeaderLen = 20

// flag bits within the combined flags+fragment-offset field.
const (
	flagDF = 1 << 14
	flagMF = 1 << 13
)

// IPv4Header is a parsed IPv4 header (options are not represented; the
// pipeline never emits or expects them).
type IPv4Header struct {
	TotalLength uint16
	Ident       uint16
	DF          bool
	MF          bool
	FragOffset  uint16 // in 8-byte units, per the wire field
	TTL         uint8
	Proto       Protocol
	Src         IPv4
	Dst         IPv4
}

// DecodeIPv4 parses b's IPv4 header and returns the header plus the
// payload slice following it.
func DecodeIPv4(b []byte) (IPv4Header, []byte, bool) {
	if len(b) < ipv4HeaderLen {
		return IPv4Header{}, nil, false
	}
	if b[0]>>4 != 4 {
		return IPv4Header{}, nil, false
	}
	ihl := int(b[0]&0x0f) * 4
	if ihl < ipv4HeaderLen || len(b) < ihl {
		return IPv4Header{}, nil, false
	}
	total := binary.BigEndian.Uint16(b[2:4])
	ident := binary.BigEndian.Uint16(b[4:6])
	flagsFrag := binary.BigEndian.Uint16(b[6:8])

	var h IPv4Header
	h.TotalLength = total
	h.Ident = ident
	h.DF = flagsFrag&flagDF != 0
	h.MF = flagsFrag&flagMF != 0
	h.FragOffset = flagsFrag & 0x1fff
	h.TTL = b[8]
	h.Proto = Protocol(b[9])
	copy(h.Src[:], b[12:16])
	copy(h.Dst[:], b[16:20])

	end := int(total)
	if end > len(b) || end < ihl {
		end = len(b)
	}
	return h, b[ihl:end], true
}

// EncodeIPv4 serialises h with payload appended.
func EncodeIPv4(h IPv4Header, payload []byte) []byte {
	total := ipv4HeaderLen + len(payload)
	b := make([]byte, total)
	b[0] = 0x45
	b[1] = 0
	binary.BigEndian.PutUint16(b[2:4], uint16(total))
	binary.BigEndian.PutUint16(b[4:6], h.Ident)

	flagsFrag := h.FragOffset & 0x1fff
	if h.DF {
		flagsFrag |= flagDF
	}
	if h.MF {
		flagsFrag |= flagMF
	}
	binary.BigEndian.PutUint16(b[6:8], flagsFrag)

	b[8] = h.TTL
	b[9] = byte(h.Proto)
	copy(b[12:16], h.Src[:])
	copy(b[16:20], h.Dst[:])
	copy(b[ipv4HeaderLen:], payload)
	return b
}

// offsetBytes returns the fragment's byte offset into the original
// datagram.
func (h IPv4Header) offsetBytes() int {
	return int(h.FragOffset) * 8
}
