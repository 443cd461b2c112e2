package netstack

import (
	"encoding/binary"
	"sync"
	"time"

	kerrors "nanokernel/errors"
)

// TCP flag bits.
const (
	flagFIN = 1 << 0
	flagSYN = 1 << 1
	flagRST = 1 << 2
	flagPSH = 1 << 3
	flagACK = 1 << 4
)

const tcpHeaderLen = 20

// TcpSegment is a parsed TCP header plus payload.
type TcpSegment struct {
	SrcPort uint16
	DstPort uint16
	Seq     uint32
	Ack     uint32
	Flags   uint8
	Window  uint16
	Payload []byte
}

// DecodeTCP parses a no-options TCP segment.
func DecodeTCP(b []byte) (TcpSegment, bool) {
	if len(b) < tcpHeaderLen {
		return TcpSegment{}, false
	}
	dataOffset := int(b[12]>>4) * 4
	if dataOffset < tcpHeaderLen || dataOffset > len(b) {
		dataOffset = tcpHeaderLen
	}
	return TcpSegment{
		SrcPort: binary.BigEndian.Uint16(b[0:2]),
		DstPort: binary.BigEndian.Uint16(b[2:4]),
		Seq:     binary.BigEndian.Uint32(b[4:8]),
		Ack:     binary.BigEndian.Uint32(b[8:12]),
		Flags:   b[13],
		Window:  binary.BigEndian.Uint16(b[14:16]),
		Payload: b[dataOffset:],
	}, true
}

// EncodeTCP serialises seg to wire form (fixed 20-byte header, no options).
func EncodeTCP(seg TcpSegment) []byte {
	b := make([]byte, tcpHeaderLen+len(seg.Payload))
	binary.BigEndian.PutUint16(b[0:2], seg.SrcPort)
	binary.BigEndian.PutUint16(b[2:4], seg.DstPort)
	binary.BigEndian.PutUint32(b[4:8], seg.Seq)
	binary.BigEndian.PutUint32(b[8:12], seg.Ack)
	b[12] = 5 << 4 // data offset: 5 32-bit words
	b[13] = seg.Flags
	binary.BigEndian.PutUint16(b[14:16], seg.Window)
	copy(b[tcpHeaderLen:], seg.Payload)
	return b
}

// TcpState is a connection's position in the standard TCP state machine
// (spec.md §3).
type TcpState int

const (
	TcpClosed TcpState = iota
	TcpListen
	TcpSynSent
	TcpSynReceived
	TcpEstablished
	TcpFinWait1
	TcpFinWait2
	TcpCloseWait
	TcpClosing
	TcpLastAck
	TcpTimeWait
)

func (s TcpState) String() string {
	switch s {
	case TcpClosed:
		return "CLOSED"
	case TcpListen:
		return "LISTEN"
	case TcpSynSent:
		return "SYN_SENT"
	case TcpSynReceived:
		return "SYN_RECEIVED"
	case TcpEstablished:
		return "ESTABLISHED"
	case TcpFinWait1:
		return "FIN_WAIT_1"
	case TcpFinWait2:
		return "FIN_WAIT_2"
	case TcpCloseWait:
		return "CLOSE_WAIT"
	case TcpClosing:
		return "CLOSING"
	case TcpLastAck:
		return "LAST_ACK"
	case TcpTimeWait:
		return "TIME_WAIT"
	default:
		return "UNKNOWN"
	}
}

// pendingSegment is an unacknowledged outbound segment awaiting
// retransmission.
type pendingSegment struct {
	seg     TcpSegment
	sentAt  time.Time
	retries int
}

// RetransmitTimeout is how long an unacked segment waits before resend.
const RetransmitTimeout = 200 * time.Millisecond

// MaxRetransmits bounds retransmission attempts before the connection
// times out (spec.md §4.6(iii): "retransmission until the peer ACKs or
// the connection times out").
const MaxRetransmits = 5

// TcpSocket holds one TCP connection's state (spec.md §3).
type TcpSocket struct {
	mu sync.Mutex

	LocalIP   IPv4
	LocalPort uint16
	PeerIP    IPv4
	PeerPort  uint16
	State     TcpState

	sndNext uint32 // next sequence number this side will send
	sndUna  uint32 // oldest unacknowledged sequence number
	rcvNext uint32 // next sequence number expected from the peer

	recvQueue  []byte
	outOfOrder map[uint32][]byte
	unacked    []pendingSegment
}

// NewTcpSocket returns a socket in the given initial state (Listen for a
// passive open, Closed otherwise).
func NewTcpSocket(localIP IPv4, localPort uint16, state TcpState) *TcpSocket {
	return &TcpSocket{
		LocalIP: localIP, LocalPort: localPort, State: state,
		outOfOrder: make(map[uint32][]byte),
	}
}

// Recv pops the contiguous received bytes accumulated so far.
func (s *TcpSocket) Recv() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.recvQueue
	s.recvQueue = nil
	return b
}

// Accept processes an inbound segment against the connection's state
// machine, returning a reply segment to send (if any). It preserves
// ordered, gap-free delivery: bytes are appended to the receive queue
// only once every preceding offset has arrived.
func (s *TcpSocket) Accept(seg TcpSegment) (*TcpSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.State {
	case TcpListen:
		if seg.Flags&flagSYN == 0 {
			return nil, kerrors.New(kerrors.ErrKindNetwork, "tcp.accept", "expected SYN in LISTEN")
		}
		s.PeerPort = seg.SrcPort
		s.rcvNext = seg.Seq + 1
		s.State = TcpSynReceived
		reply := TcpSegment{
			SrcPort: s.LocalPort, DstPort: s.PeerPort,
			Seq: s.sndNext, Ack: s.rcvNext, Flags: flagSYN | flagACK,
		}
		s.sndNext++
		return &reply, nil

	case TcpSynReceived:
		if seg.Flags&flagACK == 0 {
			return nil, kerrors.New(kerrors.ErrKindNetwork, "tcp.accept", "expected ACK to complete handshake")
		}
		s.sndUna = seg.Ack
		s.State = TcpEstablished
		return nil, nil

	case TcpEstablished:
		return s.acceptEstablished(seg)

	case TcpFinWait1:
		if seg.Flags&flagACK != 0 {
			s.sndUna = seg.Ack
			s.State = TcpFinWait2
		}
		return nil, nil

	case TcpFinWait2:
		if seg.Flags&flagFIN != 0 {
			s.rcvNext = seg.Seq + 1
			s.State = TcpTimeWait
			reply := TcpSegment{SrcPort: s.LocalPort, DstPort: s.PeerPort, Seq: s.sndNext, Ack: s.rcvNext, Flags: flagACK}
			return &reply, nil
		}
		return nil, nil

	case TcpCloseWait:
		return nil, nil

	case TcpLastAck:
		if seg.Flags&flagACK != 0 {
			s.State = TcpClosed
		}
		return nil, nil

	default:
		return nil, kerrors.New(kerrors.ErrKindNetwork, "tcp.accept", "segment received in state "+s.State.String())
	}
}

// acceptEstablished handles data and FIN segments while connected,
// buffering out-of-order arrivals and flushing them to recvQueue once
// the gap closes.
func (s *TcpSocket) acceptEstablished(seg TcpSegment) (*TcpSegment, error) {
	if seg.Flags&flagFIN != 0 {
		s.rcvNext = seg.Seq + 1
		s.State = TcpCloseWait
		reply := TcpSegment{SrcPort: s.LocalPort, DstPort: s.PeerPort, Seq: s.sndNext, Ack: s.rcvNext, Flags: flagACK}
		return &reply, nil
	}

	if seg.Flags&flagACK != 0 {
		s.sndUna = seg.Ack
		s.pruneAcked()
	}

	if len(seg.Payload) == 0 {
		return nil, nil
	}

	if seg.Seq == s.rcvNext {
		s.recvQueue = append(s.recvQueue, seg.Payload...)
		s.rcvNext += uint32(len(seg.Payload))
		for {
			key := s.rcvNext
			next, ok := s.outOfOrder[key]
			if !ok {
				break
			}
			delete(s.outOfOrder, key)
			s.recvQueue = append(s.recvQueue, next...)
			s.rcvNext += uint32(len(next))
		}
	} else if seg.Seq > s.rcvNext {
		s.outOfOrder[seg.Seq] = seg.Payload
	}
	// seg.Seq < s.rcvNext: already-delivered bytes, silently ACKed again.

	reply := TcpSegment{SrcPort: s.LocalPort, DstPort: s.PeerPort, Seq: s.sndNext, Ack: s.rcvNext, Flags: flagACK}
	return &reply, nil
}

// Send queues payload for transmission, returning the segment to emit.
func (s *TcpSocket) Send(payload []byte) (TcpSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.State != TcpEstablished {
		return TcpSegment{}, kerrors.Wrap(kerrors.ErrConnectionClosed, kerrors.ErrKindNetwork, "tcp.send")
	}
	seg := TcpSegment{
		SrcPort: s.LocalPort, DstPort: s.PeerPort,
		Seq: s.sndNext, Flags: flagACK | flagPSH, Payload: payload,
	}
	s.unacked = append(s.unacked, pendingSegment{seg: seg, sentAt: time.Now()})
	s.sndNext += uint32(len(payload))
	return seg, nil
}

// pruneAcked drops unacked entries fully covered by sndUna. Callers must
// hold s.mu.
func (s *TcpSocket) pruneAcked() {
	kept := s.unacked[:0]
	for _, p := range s.unacked {
		if p.seg.Seq+uint32(len(p.seg.Payload)) > s.sndUna {
			kept = append(kept, p)
		}
	}
	s.unacked = kept
}

// Retransmittable returns unacked segments whose retransmit timeout has
// elapsed as of now, advancing their retry counters. A segment that
// exceeds MaxRetransmits is reported via the returned error instead of
// being retransmitted again (spec.md §4.6(iii): connection times out).
func (s *TcpSocket) Retransmittable(now time.Time) ([]TcpSegment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []TcpSegment
	for i := range s.unacked {
		p := &s.unacked[i]
		if now.Sub(p.sentAt) < RetransmitTimeout {
			continue
		}
		if p.retries >= MaxRetransmits {
			return nil, kerrors.Wrap(kerrors.ErrConnectionClosed, kerrors.ErrKindNetwork, "tcp.retransmit")
		}
		p.retries++
		p.sentAt = now
		due = append(due, p.seg)
	}
	return due, nil
}

// TcpTable is the global TCP connection bind table, keyed by
// (local_ip, local_port) per spec.md §4.6.
type TcpTable struct {
	mu      sync.RWMutex
	sockets map[uint16]*TcpSocket
}

// NewTcpTable returns an empty TCP table.
func NewTcpTable() *TcpTable {
	return &TcpTable{sockets: make(map[uint16]*TcpSocket)}
}

// Listen registers a passive-open socket on localIP:localPort.
func (t *TcpTable) Listen(localIP IPv4, localPort uint16) (*TcpSocket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sockets[localPort]; exists {
		return nil, kerrors.Wrap(kerrors.ErrPortInUse, kerrors.ErrKindNetwork, "tcp.listen")
	}
	s := NewTcpSocket(localIP, localPort, TcpListen)
	t.sockets[localPort] = s
	return s, nil
}

// Lookup finds the socket bound to (localIP, localPort).
func (t *TcpTable) Lookup(localIP IPv4, localPort uint16) (*TcpSocket, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sockets[localPort]
	if !ok {
		return nil, false
	}
	if s.LocalIP != Any && s.LocalIP != localIP {
		return nil, false
	}
	return s, true
}

// Remove deletes the socket bound to localPort.
func (t *TcpTable) Remove(localPort uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sockets, localPort)
}
