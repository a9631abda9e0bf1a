package dhcp

import (
	"encoding/binary"
	"testing"
)

func buildDiscover(xid uint32, mac [6]byte, msgType uint8) []byte {
	buf := make([]byte, 240)
	buf[0] = opBootRequest
	buf[1] = htypeEthernet
	buf[2] = hlenEthernet
	binary.BigEndian.PutUint32(buf[4:8], xid)
	copy(buf[28:34], mac[:])
	binary.BigEndian.PutUint32(buf[236:240], magicCookie)
	buf = appendOpt(buf, optMsgType, []byte{msgType})
	buf = append(buf, optEnd)
	return buf
}

func TestDiscoverYieldsOffer(t *testing.T) {
	s := New(DefaultConfig())
	mac := [6]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}

	reply, ok := s.Recv(buildDiscover(42, mac, msgDiscover))
	if !ok {
		t.Fatalf("expected a reply to DISCOVER")
	}
	got, err := decodeMsg(reply)
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if got.msgType != msgOffer {
		t.Fatalf("msgType = %d, want OFFER", got.msgType)
	}
	if got.op != opBootReply {
		t.Fatalf("op = %d, want BOOTREPLY", got.op)
	}
}

func TestRequestReusesOfferedLease(t *testing.T) {
	s := New(DefaultConfig())
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}

	offerBuf, _ := s.Recv(buildDiscover(1, mac, msgDiscover))
	offerYiaddr := offerBuf[16:20]

	ackBuf, ok := s.Recv(buildDiscover(2, mac, msgRequest))
	if !ok {
		t.Fatalf("expected a reply to REQUEST")
	}
	if string(ackBuf[16:20]) != string(offerYiaddr) {
		t.Fatalf("REQUEST ack yiaddr differs from the earlier OFFER")
	}
}

func TestLeaseAddressesStayWithinConfiguredRange(t *testing.T) {
	cfg := DefaultConfig()
	s := New(cfg)
	start := binary.BigEndian.Uint32(cfg.RangeStart[:])
	end := binary.BigEndian.Uint32(cfg.RangeEnd[:])

	for i := 0; i < 5; i++ {
		mac := [6]byte{0, 0, 0, 0, 0, byte(i)}
		reply, ok := s.Recv(buildDiscover(uint32(i), mac, msgDiscover))
		if !ok {
			t.Fatalf("lease %d: expected a reply", i)
		}
		addr := binary.BigEndian.Uint32(reply[16:20])
		if addr < start || addr > end {
			t.Fatalf("lease %d address out of range: %d", i, addr)
		}
	}
}

func TestIgnoresNonBootRequest(t *testing.T) {
	s := New(DefaultConfig())
	buf := buildDiscover(1, [6]byte{1, 2, 3, 4, 5, 6}, msgDiscover)
	buf[0] = opBootReply
	if _, ok := s.Recv(buf); ok {
		t.Fatalf("should ignore a non-BOOTREQUEST message")
	}
}
