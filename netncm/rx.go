package netncm

import (
	"log"

	"github.com/usbarmory/ncmgadget/usb/ncm"
)

type rxState int

const (
	rxAwaitHeader rxState = iota
	rxCopyEntireMsg
)

// rx holds the RX reassembly state machine: AwaitHeader accumulates a
// fresh NTH16 from the first USB packet of a transfer; CopyEntireMsg
// accumulates subsequent packets into scratch until block_len bytes have
// arrived, then the NDP is parsed and each datagram is delivered.
type rx struct {
	state   rxState
	header  nth16
	scratch [ncm.MaxOutSize]byte
	copied  int
}

func newRX() *rx {
	return &rx{state: rxAwaitHeader}
}

func (r *rx) reset() {
	r.state = rxAwaitHeader
	r.copied = 0
}

// feed consumes one USB packet, advancing the RX FSM, and delivers any
// completed datagrams to deliver. Errors are never returned to the
// caller: framing problems are logged and recovered by resetting to
// AwaitHeader, per SPEC_FULL.md's REDESIGN FLAGS (drop-and-log
// supersedes the original source's panic on a bad signature or an
// oversized block).
func (r *rx) feed(pkt []byte, deliver func(frame []byte)) {
	switch r.state {
	case rxAwaitHeader:
		r.awaitHeader(pkt, deliver)
	case rxCopyEntireMsg:
		r.copyEntireMsg(pkt, deliver)
	default:
		panic("netncm: rx: impossible FSM state")
	}
}

func (r *rx) awaitHeader(pkt []byte, deliver func(frame []byte)) {
	if len(pkt) < nthLen {
		log.Printf("netncm: rx: short packet (%d bytes) while awaiting header, dropping", len(pkt))
		return
	}
	h, err := decodeNTH16(pkt)
	if err != nil {
		log.Printf("netncm: rx: %v, dropping packet", err)
		return
	}
	if int(h.BlockLength) > ncm.MaxInSize {
		log.Printf("netncm: rx: block_len %d exceeds max %d, dropping", h.BlockLength, ncm.MaxInSize)
		return
	}
	r.header = h
	r.copied = copy(r.scratch[:], pkt)
	if r.copied >= int(h.BlockLength) {
		r.finish(deliver)
		return
	}
	r.state = rxCopyEntireMsg
}

func (r *rx) copyEntireMsg(pkt []byte, deliver func(frame []byte)) {
	remaining := int(r.header.BlockLength) - r.copied
	n := len(pkt)
	if n > remaining {
		n = remaining
	}
	copy(r.scratch[r.copied:r.copied+n], pkt[:n])
	r.copied += n

	if r.copied >= int(r.header.BlockLength) {
		r.finish(deliver)
	}
}

// finish parses the NDP at header.NdpIndex and hands every valid
// datagram to deliver, then resets to AwaitHeader.
func (r *rx) finish(deliver func(frame []byte)) {
	defer r.reset()

	ndpOff := int(r.header.NdpIndex)
	blockLen := int(r.header.BlockLength)
	if ndpOff < 0 || ndpOff >= blockLen || deliver == nil {
		return
	}

	n, err := decodeNDP16(r.scratch[ndpOff:blockLen])
	if err != nil {
		log.Printf("netncm: rx: ndp16 %v, dropping NTB", err)
		return
	}

	for _, e := range n.Entries {
		if e.Length == 0 {
			continue // sentinel, shouldn't normally reach here
		}
		if int(e.Length) > ncm.MaxInSize {
			log.Printf("netncm: rx: datagram length %d exceeds max, dropping entry", e.Length)
			continue
		}
		start, end := int(e.Index), int(e.Index)+int(e.Length)
		if start < 0 || end > blockLen {
			log.Printf("netncm: rx: datagram entry out of bounds, dropping")
			continue
		}
		deliver(r.scratch[start:end])
	}
}
