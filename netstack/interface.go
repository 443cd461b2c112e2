package netstack

import (
	"fmt"
	"sync"
	"time"

	kerrors "nanokernel/errors"
)

// MacAddr is a 48-bit Ethernet hardware address (grounded on
// original_source/kernel/src/net/device.rs's MacAddr).
type MacAddr [6]byte

func (m MacAddr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// BroadcastMAC is the Ethernet broadcast address.
var BroadcastMAC = MacAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// IPv4 is a 32-bit address in network byte order (big-endian octets).
type IPv4 [4]byte

func (a IPv4) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// Uint32 returns a's big-endian integer representation, used for prefix
// arithmetic in routing lookups.
func (a IPv4) Uint32() uint32 {
	return uint32(a[0])<<24 | uint32(a[1])<<16 | uint32(a[2])<<8 | uint32(a[3])
}

// IPv4FromUint32 is the inverse of IPv4.Uint32.
func IPv4FromUint32(v uint32) IPv4 {
	return IPv4{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// ArpCacheEntry maps an IPv4 address to a hardware address with expiry.
type ArpCacheEntry struct {
	IP        IPv4
	MAC       MacAddr
	ExpiresAt time.Time
}

// DefaultArpTTL is how long a resolved ARP entry remains valid.
const DefaultArpTTL = 5 * time.Minute

// Interface is a single network attachment point (spec.md §3's
// Interface: {id, mac, ipv4, mtu, up, arp_cache}).
type Interface struct {
	mu sync.Mutex

	ID   int
	MAC  MacAddr
	IPv4 IPv4
	Mask IPv4
	MTU  int
	Up   bool

	arp map[IPv4]ArpCacheEntry
}

// NewInterface returns a down interface with an empty ARP cache.
func NewInterface(id int, mac MacAddr, ip, mask IPv4, mtu int) *Interface {
	return &Interface{
		ID: id, MAC: mac, IPv4: ip, Mask: mask, MTU: mtu,
		arp: make(map[IPv4]ArpCacheEntry),
	}
}

// SetUp marks the interface up or down.
func (iface *Interface) SetUp(up bool) {
	iface.mu.Lock()
	defer iface.mu.Unlock()
	iface.Up = up
}

// IsUp reports whether the interface is administratively up.
func (iface *Interface) IsUp() bool {
	iface.mu.Lock()
	defer iface.mu.Unlock()
	return iface.Up
}

// ArpLookup returns the cached MAC for ip, if present and unexpired.
func (iface *Interface) ArpLookup(ip IPv4, now time.Time) (MacAddr, bool) {
	iface.mu.Lock()
	defer iface.mu.Unlock()
	entry, ok := iface.arp[ip]
	if !ok || now.After(entry.ExpiresAt) {
		return MacAddr{}, false
	}
	return entry.MAC, true
}

// ArpLearn inserts or refreshes an ARP cache entry.
func (iface *Interface) ArpLearn(ip IPv4, mac MacAddr, now time.Time) {
	iface.mu.Lock()
	defer iface.mu.Unlock()
	iface.arp[ip] = ArpCacheEntry{IP: ip, MAC: mac, ExpiresAt: now.Add(DefaultArpTTL)}
}

// OnSubnet reports whether ip shares this interface's network prefix.
func (iface *Interface) OnSubnet(ip IPv4) bool {
	for i := range iface.IPv4 {
		if iface.IPv4[i]&iface.Mask[i] != ip[i]&iface.Mask[i] {
			return false
		}
	}
	return true
}

// InterfaceTable is a registered set of interfaces keyed by id.
type InterfaceTable struct {
	mu   sync.RWMutex
	byID map[int]*Interface
}

// NewInterfaceTable returns an empty interface table.
func NewInterfaceTable() *InterfaceTable {
	return &InterfaceTable{byID: make(map[int]*Interface)}
}

// Add registers iface, failing if its id is already taken.
func (t *InterfaceTable) Add(iface *Interface) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byID[iface.ID]; exists {
		return kerrors.New(kerrors.ErrKindNetwork, "interface.add", "interface id already registered")
	}
	t.byID[iface.ID] = iface
	return nil
}

// Get returns the interface registered under id.
func (t *InterfaceTable) Get(id int) (*Interface, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	iface, ok := t.byID[id]
	if !ok {
		return nil, kerrors.Wrap(kerrors.ErrInterfaceNotFound, kerrors.ErrKindNetwork, "interface.get")
	}
	return iface, nil
}

// ForEach invokes fn for every registered interface. fn must not mutate
// the table.
func (t *InterfaceTable) ForEach(fn func(*Interface)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, iface := range t.byID {
		fn(iface)
	}
}

// ByIPv4 returns the interface owning ip, if any.
func (t *InterfaceTable) ByIPv4(ip IPv4) (*Interface, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, iface := range t.byID {
		if iface.IPv4 == ip {
			return iface, true
		}
	}
	return nil, false
}
