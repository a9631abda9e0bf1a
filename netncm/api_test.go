package netncm

import (
	"bytes"
	"testing"

	"github.com/usbarmory/ncmgadget/usb"
	"github.com/usbarmory/ncmgadget/usb/ncm"
)

func newTestApi() *Api {
	bus := usb.NewFakeBus()
	dev := &usb.Device{Descriptor: &usb.DeviceDescriptor{}}
	dev.Descriptor.SetDefaults()
	class := ncm.New(bus, dev, [6]byte{0x00, 0x80, 0xe1, 0x00, 0x00, 0x01})
	return New(class)
}

func TestApiRxRoundTripThroughQueues(t *testing.T) {
	a := newTestApi()
	frame := makeFrame(50)
	ntb := buildNTB(1, [][]byte{frame})

	for _, pkt := range chunk(ntb, ncm.PacketSize) {
		if !a.PushUsbRx(pkt) {
			t.Fatalf("usb_rx_q rejected a packet")
		}
	}
	for i := 0; i < len(chunk(ntb, ncm.PacketSize)); i++ {
		a.Pump()
	}

	got, ok := a.PopEthRx()
	if !ok {
		t.Fatalf("expected a reassembled frame on eth_rx_q")
	}
	if !bytes.Equal(got, frame) {
		t.Fatalf("reassembled frame mismatch")
	}
}

func TestApiEthRxQFullDropsExtraDatagrams(t *testing.T) {
	a := newTestApi()
	// eth_rx_q capacity is 2; pre-fill it, then feed an NTB carrying two
	// more datagrams. Both must be dropped without wedging the RX FSM.
	a.ethRxQ.Push([]byte{0})
	a.ethRxQ.Push([]byte{0})

	f1 := makeFrame(60)
	f2 := makeFrame(80)
	ntb := buildNTB(1, [][]byte{f1, f2})
	for _, pkt := range chunk(ntb, ncm.PacketSize) {
		a.PushUsbRx(pkt)
	}
	for i := 0; i < len(chunk(ntb, ncm.PacketSize)); i++ {
		a.Pump()
	}

	if a.rx.state != rxAwaitHeader {
		t.Fatalf("RX FSM should not stall when eth_rx_q is full")
	}
	// Queue still holds only the two pre-filled placeholders; nothing new fit.
	if a.ethRxQ.Len() != 2 {
		t.Fatalf("eth_rx_q length = %d, want 2 (unchanged, full)", a.ethRxQ.Len())
	}
}

func TestApiTxRoundTripThroughQueues(t *testing.T) {
	a := newTestApi()
	frame := makeFrame(42)
	if !a.PushEthTx(frame) {
		t.Fatalf("eth_tx_q rejected a frame")
	}

	var usbPackets [][]byte
	for i := 0; i < 4; i++ {
		a.Pump()
		for {
			pkt, ok := a.PopUsbTx()
			if !ok {
				break
			}
			usbPackets = append(usbPackets, pkt)
		}
	}

	if len(usbPackets) != 2 {
		t.Fatalf("got %d USB packets, want 2", len(usbPackets))
	}

	r := newRX()
	var delivered [][]byte
	for _, pkt := range usbPackets {
		r.feed(pkt, func(f []byte) { delivered = append(delivered, append([]byte(nil), f...)) })
	}
	if len(delivered) != 1 || !bytes.Equal(delivered[0], frame) {
		t.Fatalf("round trip through TX then RX did not reproduce the original frame")
	}
}
