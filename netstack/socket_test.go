package netstack

import "testing"

func TestUdpTable_LookupRejectsMismatchedSpecificIP(t *testing.T) {
	table := NewUdpTable()
	table.Bind(IPv4{2, 2, 2, 2}, 5000)

	if _, ok := table.Lookup(IPv4{3, 3, 3, 3}, 5000); ok {
		t.Error("Lookup() ok = true for a socket bound to a different specific address")
	}
	if _, ok := table.Lookup(IPv4{2, 2, 2, 2}, 5000); !ok {
		t.Error("Lookup() ok = false for a matching specific address")
	}
}

func TestUdpTable_UnbindRemovesSocket(t *testing.T) {
	table := NewUdpTable()
	table.Bind(Any, 5000)
	table.Unbind(5000)

	if _, ok := table.Lookup(Any, 5000); ok {
		t.Error("Lookup() ok = true after Unbind()")
	}
	if _, err := table.Bind(Any, 5000); err != nil {
		t.Errorf("Bind() after Unbind() error = %v, want nil", err)
	}
}

func TestUdpSocket_RecvIsFIFO(t *testing.T) {
	s := &UdpSocket{LocalIP: Any, LocalPort: 5000}
	s.deliver([]byte("first"))
	s.deliver([]byte("second"))

	got, ok := s.Recv()
	if !ok || string(got) != "first" {
		t.Fatalf("first Recv() = (%q, %v), want (\"first\", true)", got, ok)
	}
	got, ok = s.Recv()
	if !ok || string(got) != "second" {
		t.Fatalf("second Recv() = (%q, %v), want (\"second\", true)", got, ok)
	}
	if _, ok := s.Recv(); ok {
		t.Error("Recv() ok = true on an empty queue")
	}
}
