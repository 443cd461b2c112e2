package netstack

import (
	"sort"
	"sync"
	"time"
)

// ReassemblyTimeout is how long an incomplete datagram's fragments are
// held before being dropped (spec.md §4.6: "default 60 s").
const ReassemblyTimeout = 60 * time.Second

// reassemblyKey identifies one in-flight datagram (spec.md §3:
// "keyed by (src, dst, proto, ident)").
type reassemblyKey struct {
	Src   IPv4
	Dst   IPv4
	Proto Protocol
	Ident uint16
}

type fragment struct {
	offset  int
	payload []byte
	last    bool // MF=0
}

type reassemblyEntry struct {
	fragments []fragment
	total     int // known final length, once the last fragment has arrived
	haveTotal bool
	createdAt time.Time
}

// ReassemblyTable tracks in-flight fragmented datagrams.
type ReassemblyTable struct {
	mu      sync.Mutex
	entries map[reassemblyKey]*reassemblyEntry
}

// NewReassemblyTable returns an empty reassembly table.
func NewReassemblyTable() *ReassemblyTable {
	return &ReassemblyTable{entries: make(map[reassemblyKey]*reassemblyEntry)}
}

// Insert adds a fragment from header h carrying payload, at time now.
// It returns the reassembled payload and true once every offset in
// [0, total) is covered contiguously.
func (t *ReassemblyTable) Insert(h IPv4Header, payload []byte, now time.Time) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := reassemblyKey{Src: h.Src, Dst: h.Dst, Proto: h.Proto, Ident: h.Ident}
	entry, ok := t.entries[key]
	if !ok {
		entry = &reassemblyEntry{createdAt: now}
		t.entries[key] = entry
	}

	entry.fragments = append(entry.fragments, fragment{
		offset: h.offsetBytes(), payload: payload, last: !h.MF,
	})
	if !h.MF {
		entry.total = h.offsetBytes() + len(payload)
		entry.haveTotal = true
	}

	if !entry.haveTotal {
		return nil, false
	}

	sort.Slice(entry.fragments, func(i, j int) bool {
		return entry.fragments[i].offset < entry.fragments[j].offset
	})

	assembled := make([]byte, entry.total)
	covered := 0
	for _, f := range entry.fragments {
		if f.offset > covered {
			// gap: not yet contiguous
			return nil, false
		}
		end := f.offset + len(f.payload)
		if end > covered {
			copy(assembled[f.offset:end], f.payload)
			covered = end
		}
	}
	if covered < entry.total {
		return nil, false
	}

	delete(t.entries, key)
	return assembled, true
}

// ExpireOlderThan drops every incomplete entry older than
// ReassemblyTimeout as of now, returning the count dropped.
func (t *ReassemblyTable) ExpireOlderThan(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	dropped := 0
	for key, entry := range t.entries {
		if now.Sub(entry.createdAt) >= ReassemblyTimeout {
			delete(t.entries, key)
			dropped++
		}
	}
	return dropped
}

// Pending reports the number of in-flight reassembly entries.
func (t *ReassemblyTable) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
