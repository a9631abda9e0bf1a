package netncm

import (
	"bytes"
	"testing"

	"github.com/usbarmory/ncmgadget/usb/ncm"
)

// buildNTB constructs a single NTB containing the given datagrams, for
// feeding into the RX FSM in tests (mirrors what a host would send).
func buildNTB(sequence uint16, frames [][]byte) []byte {
	var entries []ndpEntry
	off := nthLen + ndpHeaderLen + (len(frames)+1)*entrySize
	payload := new(bytes.Buffer)
	for _, f := range frames {
		entries = append(entries, ndpEntry{Index: uint16(off), Length: uint16(len(f))})
		payload.Write(f)
		off += len(f)
	}

	h := nth16{HeaderLength: nthLen, Sequence: sequence, BlockLength: uint16(off), NdpIndex: nthLen}
	copy(h.Signature[:], nthSignature)

	n := ndp16{Entries: entries}
	copy(n.Signature[:], ndpSignature)

	buf := new(bytes.Buffer)
	buf.Write(encodeNTH16(h))
	buf.Write(encodeNDP16(n))
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

func chunk(buf []byte, size int) [][]byte {
	var out [][]byte
	for i := 0; i < len(buf); i += size {
		end := i + size
		if end > len(buf) {
			end = len(buf)
		}
		out = append(out, buf[i:end])
	}
	return out
}

func TestRxSplitAcrossTwoPackets(t *testing.T) {
	frame := makeFrame(100)
	ntb := buildNTB(1, [][]byte{frame})

	r := newRX()
	var delivered [][]byte
	for _, pkt := range chunk(ntb, ncm.PacketSize) {
		r.feed(pkt, func(f []byte) { delivered = append(delivered, append([]byte(nil), f...)) })
	}

	if len(delivered) != 1 {
		t.Fatalf("got %d frames, want 1", len(delivered))
	}
	if !bytes.Equal(delivered[0], frame) {
		t.Fatalf("delivered frame mismatch")
	}
	if r.state != rxAwaitHeader {
		t.Fatalf("RX FSM should return to AwaitHeader after a completed NTB")
	}
}

func TestRxSingleFrameFitsFirstPacket(t *testing.T) {
	frame := makeFrame(32)
	ntb := buildNTB(1, [][]byte{frame})
	if len(ntb) > ncm.PacketSize {
		t.Fatalf("test setup: NTB of %d bytes does not fit in one %d-byte packet", len(ntb), ncm.PacketSize)
	}

	r := newRX()
	var delivered [][]byte
	r.feed(ntb, func(f []byte) { delivered = append(delivered, append([]byte(nil), f...)) })

	if len(delivered) != 1 {
		t.Fatalf("got %d frames, want 1", len(delivered))
	}
	if !bytes.Equal(delivered[0], frame) {
		t.Fatalf("delivered frame mismatch")
	}
	if r.state != rxAwaitHeader {
		t.Fatalf("RX FSM should return to AwaitHeader after a completed NTB")
	}
}

func TestRxMultiDatagramNTB(t *testing.T) {
	f1 := makeFrame(60)
	f2 := makeFrame(80)
	ntb := buildNTB(1, [][]byte{f1, f2})

	r := newRX()
	var delivered [][]byte
	for _, pkt := range chunk(ntb, ncm.PacketSize) {
		r.feed(pkt, func(f []byte) { delivered = append(delivered, append([]byte(nil), f...)) })
	}

	if len(delivered) != 2 {
		t.Fatalf("got %d frames, want 2", len(delivered))
	}
	if !bytes.Equal(delivered[0], f1) || !bytes.Equal(delivered[1], f2) {
		t.Fatalf("frames delivered out of order or corrupted")
	}
}

func TestRxDropsOnBadSignature(t *testing.T) {
	ntb := buildNTB(1, [][]byte{makeFrame(20)})
	ntb[0] = 'X' // corrupt NTH16 signature

	r := newRX()
	delivered := 0
	for _, pkt := range chunk(ntb, ncm.PacketSize) {
		r.feed(pkt, func([]byte) { delivered++ })
	}
	if delivered != 0 {
		t.Fatalf("corrupted NTB should deliver nothing, got %d", delivered)
	}
	if r.state != rxAwaitHeader {
		t.Fatalf("RX FSM should recover to AwaitHeader after a bad signature")
	}
}

func TestRxDropsOversizedBlockLen(t *testing.T) {
	r := newRX()
	pkt := encodeNTH16(nth16{
		HeaderLength: nthLen,
		BlockLength:  ncm.MaxInSize + 1,
		NdpIndex:     nthLen,
	})
	copy(pkt[0:4], nthSignature)

	r.feed(pkt, func([]byte) { t.Fatalf("should not deliver for an oversized block") })
	if r.state != rxAwaitHeader {
		t.Fatalf("RX FSM should stay/return to AwaitHeader on oversized block_len")
	}
}
