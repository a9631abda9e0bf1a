package netncm

import (
	"testing"

	"github.com/usbarmory/ncmgadget/usb/ncm"
)

func makeFrame(n int) []byte {
	f := make([]byte, n)
	for i := range f {
		f[i] = byte(i)
	}
	return f
}

func TestTxArpReplySplitsIntoTwoPackets(t *testing.T) {
	frame := makeFrame(42)
	tr := newTX()
	if !tr.start(frame, ncm.MaxOutSize) {
		t.Fatalf("start rejected frame")
	}

	var packets [][]byte
	for i := 0; i < 4 && !tr.idle(); i++ {
		tr.step(func(pkt []byte) bool {
			packets = append(packets, append([]byte(nil), pkt...))
			return true
		})
	}

	if len(packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(packets))
	}
	if len(packets[0]) != 64 {
		t.Fatalf("packet 1 length = %d, want 64", len(packets[0]))
	}
	if len(packets[1]) != 6 {
		t.Fatalf("packet 2 length = %d, want 6", len(packets[1]))
	}
	// 70 total bytes is not a multiple of 64: no ZLP, FSM returns to Ready
	// directly after packet 2.
	if !tr.idle() {
		t.Fatalf("tx FSM should be idle (Ready) after a non-64-aligned transfer")
	}
}

func TestTxEmitsZlpWhenTotalIsPacketMultiple(t *testing.T) {
	// headerBlockLen(28) + frame must be a multiple of 64: frame = 36
	// gives exactly 64 bytes.
	frame := makeFrame(ncm.PacketSize - headerBlockLen)
	tr := newTX()
	if !tr.start(frame, ncm.MaxOutSize) {
		t.Fatalf("start rejected frame")
	}

	var packets [][]byte
	for i := 0; i < 4 && !tr.idle(); i++ {
		tr.step(func(pkt []byte) bool {
			packets = append(packets, append([]byte(nil), pkt...))
			return true
		})
	}

	if len(packets) != 2 {
		t.Fatalf("got %d packets, want 2 (data + ZLP)", len(packets))
	}
	if len(packets[0]) != 64 {
		t.Fatalf("first packet length = %d, want 64", len(packets[0]))
	}
	if len(packets[1]) != 0 {
		t.Fatalf("second packet should be a ZLP, got %d bytes", len(packets[1]))
	}
}

func TestTxSequenceIncrementsPerTransfer(t *testing.T) {
	tr := newTX()
	drain := func() {
		for !tr.idle() {
			tr.step(func([]byte) bool { return true })
		}
	}

	tr.start(makeFrame(10), ncm.MaxOutSize)
	drain()
	first := tr.sequence

	tr.start(makeFrame(10), ncm.MaxOutSize)
	drain()
	second := tr.sequence

	if second != first+1 {
		t.Fatalf("sequence did not increment monotonically: %d then %d", first, second)
	}
}

func TestTxBackpressureRetriesSameChunk(t *testing.T) {
	tr := newTX()
	tr.start(makeFrame(42), ncm.MaxOutSize)

	calls := 0
	tr.step(func(pkt []byte) bool {
		calls++
		return false // simulate usb_tx_q full
	})
	if calls != 1 {
		t.Fatalf("expected exactly one push attempt, got %d", calls)
	}
	if tr.idle() {
		t.Fatalf("FSM should not advance past a failed push")
	}
	if tr.sent != 0 {
		t.Fatalf("sent = %d, want 0 after a rejected push", tr.sent)
	}
}

func TestTxRejectsFrameExceedingNegotiatedCap(t *testing.T) {
	tr := newTX()
	if tr.start(makeFrame(100), 50) {
		t.Fatalf("start should reject a frame that overflows the negotiated NTB cap")
	}
	if !tr.idle() {
		t.Fatalf("FSM should remain Ready after a rejected frame")
	}
}
