package netstack

import "testing"

func TestTable_LongestPrefixMatch(t *testing.T) {
	// Property: "Longest-prefix match" (spec.md §8 universal invariant 10).
	rt := NewTable()
	rt.Add(Route{Prefix: IPv4{10, 0, 0, 0}, PrefixLen: 8, InterfaceID: 1, Metric: 5})
	rt.Add(Route{Prefix: IPv4{10, 1, 0, 0}, PrefixLen: 16, InterfaceID: 2, Metric: 5})

	got, err := rt.Lookup(IPv4{10, 1, 2, 3})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.InterfaceID != 2 {
		t.Errorf("Lookup() matched interface %d, want 2 (longer prefix)", got.InterfaceID)
	}
}

func TestTable_TieBreakByLowestMetric(t *testing.T) {
	rt := NewTable()
	rt.Add(Route{Prefix: IPv4{10, 0, 0, 0}, PrefixLen: 8, InterfaceID: 1, Metric: 10})
	rt.Add(Route{Prefix: IPv4{10, 0, 0, 0}, PrefixLen: 8, InterfaceID: 2, Metric: 1})

	got, err := rt.Lookup(IPv4{10, 5, 5, 5})
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got.InterfaceID != 2 {
		t.Errorf("Lookup() matched interface %d, want 2 (lowest metric)", got.InterfaceID)
	}
}

func TestTable_NoMatchReturnsNoRoute(t *testing.T) {
	rt := NewTable()
	rt.Add(Route{Prefix: IPv4{10, 0, 0, 0}, PrefixLen: 8, Metric: 1})

	if _, err := rt.Lookup(IPv4{192, 168, 1, 1}); err == nil {
		t.Fatal("Lookup() error = nil, want ErrNoRoute")
	}
}
