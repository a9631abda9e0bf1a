// Package ethphy bridges the NCM wire engine's Ethernet-frame queues to
// gVisor's tcpip stack: a single-interface MAC layer, exactly as much as
// the stack needs and no more (no ARP/filtering logic of its own — that
// lives in the stack's own network/arp protocol).
package ethphy

import (
	"log"

	"gvisor.dev/gvisor/pkg/buffer"
	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/link/channel"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
)

// Capabilities fixed by spec.md: plain Ethernet framing, 576-byte MTU
// (IPv4 minimum — not the 1460 the original source's stub used), no
// jumbo frames, no hardware checksum offload.
const (
	MTU      = 576
	NICID    = tcpip.NICID(1)
	queueCap = 2 // matches eth_rx_q/eth_tx_q capacity from spec.md §3
)

// ethQueues is the subset of netncm.Api's surface EthPhy needs, named
// locally so this package does not import netncm (the dependency runs
// the other way: netncm is the engine, ethphy is one of its two
// attachment points).
type ethQueues interface {
	PopEthRx() ([]byte, bool)
	PushEthTx(frame []byte) bool
}

// EthPhy embeds gVisor's channel.Endpoint, which already implements
// stack.LinkEndpoint's full contract (Attach/WritePackets/MTU/
// LinkAddress/Capabilities) with exactly the bounded, non-blocking
// queueing semantics this engine needs on the stack-facing side —
// the same type the teacher's own imx6/usb/ethernet/cdc_ecm.go wires
// into its NIC.Link field. Pump bridges that internal queue to the
// wire engine's own eth_rx_q/eth_tx_q.
type EthPhy struct {
	*channel.Endpoint
	mac tcpip.LinkAddress
}

// New constructs an EthPhy for the given MAC address.
func New(mac [6]byte) *EthPhy {
	addr := tcpip.LinkAddress(mac[:])
	return &EthPhy{
		Endpoint: channel.New(queueCap, MTU, addr),
		mac:      addr,
	}
}

// Pump moves at most one reassembled frame from q (eth_rx_q) into the
// attached stack, and at most one frame the stack has written back out
// into q (eth_tx_q). If eth_tx_q is full, that outbound frame is dropped
// and logged. Called once per cooperative loop tick, independent of the
// USB side's own tick.
func (e *EthPhy) Pump(q ethQueues) {
	e.pumpRX(q)
	e.pumpTX(q)
}

func (e *EthPhy) pumpRX(q ethQueues) {
	frame, ok := q.PopEthRx()
	if !ok {
		return
	}
	if len(frame) < header.EthernetMinimumSize {
		log.Printf("ethphy: dropping short frame (%d bytes)", len(frame))
		return
	}

	eth := header.Ethernet(frame)
	pkt := stack.NewPacketBuffer(stack.PacketBufferOptions{
		Payload: buffer.MakeWithData(append([]byte(nil), frame[header.EthernetMinimumSize:]...)),
	})
	defer pkt.DecRef()

	e.InjectInbound(eth.Type(), pkt)
}

func (e *EthPhy) pumpTX(q ethQueues) {
	pkt := e.Read()
	if pkt.IsNil() {
		return
	}
	defer pkt.DecRef()

	frame := make([]byte, 0, header.EthernetMinimumSize+pkt.Size())
	eth := header.Ethernet(make([]byte, header.EthernetMinimumSize))
	eth.Encode(&header.EthernetFields{
		SrcAddr: e.mac,
		DstAddr: header.EthernetBroadcastAddress,
		Type:    pkt.NetworkProtocolNumber,
	})
	frame = append(frame, eth...)
	for _, v := range pkt.AsSlices() {
		frame = append(frame, v...)
	}

	if !q.PushEthTx(frame) {
		log.Printf("ethphy: eth_tx_q full, dropping outbound frame")
	}
}
