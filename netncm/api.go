package netncm

import (
	"log"

	"github.com/usbarmory/ncmgadget/ring"
	"github.com/usbarmory/ncmgadget/usb/ncm"
)

// Queue capacities (spec.md §3).
const (
	usbRxCap = 4
	usbTxCap = 8
	ethRxCap = 2
	ethTxCap = 2
)

// Api is the wire engine: it owns the four bounded queues and the RX/TX
// state machines, and exposes exactly the operations usbip.Manager (USB
// side) and ethphy.EthPhy (Ethernet side) need to drive it. Neither side
// holds a reference to the other; the queues are the only coupling.
type Api struct {
	class *ncm.Class

	usbRxQ *ring.Queue[[]byte]
	usbTxQ *ring.Queue[[]byte]
	ethRxQ *ring.Queue[[]byte]
	ethTxQ *ring.Queue[[]byte]

	rx *rx
	tx *tx
}

// New wires an Api on top of the given CDC-NCM class device.
func New(class *ncm.Class) *Api {
	return &Api{
		class:  class,
		usbRxQ: ring.New[[]byte](usbRxCap),
		usbTxQ: ring.New[[]byte](usbTxCap),
		ethRxQ: ring.New[[]byte](ethRxCap),
		ethTxQ: ring.New[[]byte](ethTxCap),
		rx:     newRX(),
		tx:     newTX(),
	}
}

// --- usbip.Manager-facing surface ---

// PushUsbRx enqueues one USB bulk-OUT packet read off the wire.
func (a *Api) PushUsbRx(pkt []byte) bool { return a.usbRxQ.Push(pkt) }

// UsbRxFull reports whether usb_rx_q is at capacity.
func (a *Api) UsbRxFull() bool { return a.usbRxQ.Full() }

// DrainUsbRx discards every queued usb_rx_q packet, returning the count
// dropped — the documented recovery when the host has outpaced
// reassembly (spec.md §4.5).
func (a *Api) DrainUsbRx() int { return a.usbRxQ.Drain() }

// PopUsbTx dequeues the next USB packet ready to write to the bulk-IN
// endpoint.
func (a *Api) PopUsbTx() ([]byte, bool) { return a.usbTxQ.Pop() }

// --- ethphy.EthPhy-facing surface ---

// PopEthRx dequeues the next reassembled Ethernet frame for delivery to
// the IP stack.
func (a *Api) PopEthRx() ([]byte, bool) { return a.ethRxQ.Pop() }

// PushEthTx enqueues an Ethernet frame written by the IP stack for
// segmentation onto the wire. Returns false if eth_tx_q is full
// (backpressure).
func (a *Api) PushEthTx(frame []byte) bool { return a.ethTxQ.Push(frame) }

// Pump advances both the RX reassembly and TX segmentation state
// machines by at most one step each. Called once per cooperative loop
// tick, after usbip.Manager has moved any new USB packets into
// usb_rx_q/out of usb_tx_q.
func (a *Api) Pump() {
	a.pumpRX()
	a.pumpTX()
}

func (a *Api) pumpRX() {
	pkt, ok := a.usbRxQ.Pop()
	if !ok {
		return
	}
	a.rx.feed(pkt, func(frame []byte) {
		cp := append([]byte(nil), frame...)
		if !a.ethRxQ.Push(cp) {
			log.Printf("netncm: eth_rx_q full, dropping %d-byte datagram", len(cp))
		}
	})
}

func (a *Api) pumpTX() {
	if a.tx.idle() {
		frame, ok := a.ethTxQ.Pop()
		if !ok {
			return
		}
		a.tx.start(frame, a.class.NtbInputCap())
	}
	a.tx.step(a.usbTxQ.Push)
}
