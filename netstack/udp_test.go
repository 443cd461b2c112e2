package netstack

import "testing"

func TestProcessUDP_DeliversToBoundSocket(t *testing.T) {
	table := NewUdpTable()
	sock, err := table.Bind(Any, 5000)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	res := ProcessUDP(table, IPv4{1, 1, 1, 1}, IPv4{2, 2, 2, 2}, nil, []byte("payload"), 4000, 5000)
	if res.Deliver == nil {
		t.Fatal("ProcessUDP() Deliver = nil, want delivery")
	}
	got, ok := sock.Recv()
	if !ok || string(got) != "payload" {
		t.Errorf("Recv() = (%q, %v), want (\"payload\", true)", got, ok)
	}
}

func TestProcessUDP_NoSocketEmitsPortUnreachable(t *testing.T) {
	table := NewUdpTable()
	res := ProcessUDP(table, IPv4{1, 1, 1, 1}, IPv4{2, 2, 2, 2}, make([]byte, 20), nil, 4000, 5000)
	if res.Emit == nil {
		t.Fatal("ProcessUDP() Emit = nil, want ICMP Port Unreachable")
	}
	msg, ok := DecodeICMP(res.Emit.Bytes)
	if !ok || msg.Type != ICMPDestUnreachable {
		t.Fatalf("message = %+v, want Dest Unreachable", msg)
	}
}

func TestUdpTable_BindRejectsDuplicatePort(t *testing.T) {
	table := NewUdpTable()
	table.Bind(Any, 100)
	if _, err := table.Bind(Any, 100); err == nil {
		t.Fatal("Bind() error = nil, want ErrPortInUse")
	}
}
