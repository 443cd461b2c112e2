package netstack

import "testing"

func TestProcessICMP_EchoRequestYieldsEchoReply(t *testing.T) {
	req := EncodeICMP(ICMPMessage{Type: ICMPEchoRequest, ID: 1, Seq: 2, Data: []byte("ping")})
	res := ProcessICMP(req)
	if res.Emit == nil {
		t.Fatal("ProcessICMP() Emit = nil, want an echo reply")
	}
	reply, ok := DecodeICMP(res.Emit.Bytes)
	if !ok || reply.Type != ICMPEchoReply {
		t.Fatalf("reply = %+v, want Echo Reply", reply)
	}
	if string(reply.Data) != "ping" {
		t.Errorf("reply.Data = %q, want original payload echoed back", reply.Data)
	}
}

func TestEmitTimeExceeded_TruncatesTo28Bytes(t *testing.T) {
	datagram := make([]byte, 100)
	for i := range datagram {
		datagram[i] = byte(i)
	}
	pkt := EmitTimeExceeded(datagram)
	msg, ok := DecodeICMP(pkt.Bytes)
	if !ok || msg.Type != ICMPTimeExceeded {
		t.Fatalf("message = %+v, want Time Exceeded", msg)
	}
	if len(msg.Data) != offendingPacketBytes {
		t.Errorf("len(Data) = %d, want %d", len(msg.Data), offendingPacketBytes)
	}
}

func TestEmitPortUnreachable_IsDestUnreachableWithPortCode(t *testing.T) {
	pkt := EmitPortUnreachable(make([]byte, 40))
	msg, ok := DecodeICMP(pkt.Bytes)
	if !ok || msg.Type != ICMPDestUnreachable || msg.Code != ICMPCodePortUnreachable {
		t.Fatalf("message = %+v, want Dest Unreachable/Port Unreachable", msg)
	}
}
