package netncm

import (
	"log"

	"github.com/usbarmory/ncmgadget/usb/ncm"
)

type txState int

const (
	txReady txState = iota
	txHeader
	txSending
	txZlp
)

// tx holds the TX segmentation state machine. Ready waits for an
// Ethernet frame; Header/Sending emit the built NTB in <=64-byte USB
// packets; Zlp emits a terminating zero-length packet when the final
// chunk was itself a full 64 bytes.
type tx struct {
	state    txState
	sequence uint16

	scratch  [ncm.MaxOutSize]byte
	totalLen int
	sent     int
}

func newTX() *tx {
	return &tx{state: txReady}
}

// start begins segmenting frame into the TX scratch buffer, honoring the
// host-negotiated NTB input size cap. Returns false (frame dropped,
// logged) if the frame plus NTB overhead would exceed that cap — this
// should not happen for any MTU-bounded Ethernet frame against a
// reasonably negotiated cap, but the engine must not silently overrun
// the host's advertised buffer.
func (t *tx) start(frame []byte, inputCap uint32) bool {
	total := headerBlockLen + len(frame)
	if total > int(inputCap) || total > ncm.MaxOutSize {
		log.Printf("netncm: tx: frame of %d bytes exceeds negotiated NTB cap %d, dropping", len(frame), inputCap)
		return false
	}

	t.sequence++ // wraps via uint16 overflow, incremented before emission

	h := nth16{
		HeaderLength: nthLen,
		Sequence:     t.sequence,
		BlockLength:  uint16(total),
		NdpIndex:     nthLen,
	}
	copy(h.Signature[:], nthSignature)

	n := ndp16{
		NextNdpIndex: 0,
		Entries:      []ndpEntry{{Index: uint16(headerBlockLen), Length: uint16(len(frame))}},
	}
	copy(n.Signature[:], ndpSignature)

	off := copy(t.scratch[:], encodeNTH16(h))
	off += copy(t.scratch[off:], encodeNDP16(n))
	off += copy(t.scratch[off:], frame)

	t.totalLen = off
	t.sent = 0

	if t.totalLen <= ncm.PacketSize {
		t.state = txHeader
	} else {
		t.state = txSending
	}
	return true
}

// step advances the TX FSM by at most one USB packet push. push must
// attempt a non-blocking enqueue onto usb_tx_q and report whether it
// succeeded; on failure the FSM is left unchanged so the caller retries
// next tick.
func (t *tx) step(push func(pkt []byte) bool) {
	switch t.state {
	case txReady:
		// nothing to send
	case txHeader, txSending:
		t.sendChunk(push)
	case txZlp:
		t.sendZlp(push)
	default:
		panic("netncm: tx: impossible FSM state")
	}
}

func (t *tx) sendChunk(push func(pkt []byte) bool) {
	remaining := t.totalLen - t.sent
	n := remaining
	if n > ncm.PacketSize {
		n = ncm.PacketSize
	}
	chunk := append([]byte(nil), t.scratch[t.sent:t.sent+n]...)
	if !push(chunk) {
		return // retry same chunk next tick
	}
	t.sent += n

	if t.sent >= t.totalLen {
		if t.totalLen%ncm.PacketSize == 0 {
			t.state = txZlp
		} else {
			t.state = txReady
		}
	} else {
		t.state = txSending
	}
}

func (t *tx) sendZlp(push func(pkt []byte) bool) {
	if !push(nil) {
		return
	}
	t.state = txReady
}

// idle reports whether the FSM is waiting for a new frame (Ready).
func (t *tx) idle() bool {
	return t.state == txReady
}
