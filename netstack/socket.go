package netstack

import (
	"sync"

	kerrors "nanokernel/errors"
)

// Any is the wildcard bind address (INADDR_ANY).
var Any = IPv4{0, 0, 0, 0}

// UdpSocket is a bound UDP endpoint with an inbound delivery queue
// (spec.md §3: {local_ip, local_port, peer_ip?, peer_port?}).
type UdpSocket struct {
	LocalIP   IPv4
	LocalPort uint16
	PeerIP    IPv4
	PeerPort  uint16
	hasPeer   bool

	mu    sync.Mutex
	queue [][]byte
}

// Recv pops the oldest queued datagram, if any.
func (s *UdpSocket) Recv() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	b := s.queue[0]
	s.queue = s.queue[1:]
	return b, true
}

func (s *UdpSocket) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, payload)
}

// UdpTable is the global UDP socket bind table.
type UdpTable struct {
	mu      sync.RWMutex
	sockets map[uint16]*UdpSocket // keyed by local port; local_ip matched on lookup
}

// NewUdpTable returns an empty UDP socket table.
func NewUdpTable() *UdpTable {
	return &UdpTable{sockets: make(map[uint16]*UdpSocket)}
}

// Bind registers a UDP socket on localIP:localPort. localIP may be Any.
func (t *UdpTable) Bind(localIP IPv4, localPort uint16) (*UdpSocket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.sockets[localPort]; exists {
		return nil, kerrors.Wrap(kerrors.ErrPortInUse, kerrors.ErrKindNetwork, "udp.bind")
	}
	s := &UdpSocket{LocalIP: localIP, LocalPort: localPort}
	t.sockets[localPort] = s
	return s, nil
}

// Unbind removes the socket bound to localPort.
func (t *UdpTable) Unbind(localPort uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sockets, localPort)
}

// Lookup finds the socket matching (dstIP|ANY, dstPort) per spec.md
// §4.6's UDP delivery rule.
func (t *UdpTable) Lookup(dstIP IPv4, dstPort uint16) (*UdpSocket, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sockets[dstPort]
	if !ok {
		return nil, false
	}
	if s.LocalIP != Any && s.LocalIP != dstIP {
		return nil, false
	}
	return s, true
}
