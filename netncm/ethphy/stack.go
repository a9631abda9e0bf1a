package ethphy

import (
	"fmt"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/header"
	"gvisor.dev/gvisor/pkg/tcpip/network/arp"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"
	"gvisor.dev/gvisor/pkg/tcpip/transport/icmp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/tcp"
	"gvisor.dev/gvisor/pkg/tcpip/transport/udp"
)

// NewStack builds the single-NIC gVisor tcpip.Stack this device runs:
// ARP+IPv4 network protocols, TCP/UDP/ICMP transport protocols, one NIC
// wrapping the given EthPhy, and a default route via gateway. Grounded
// on the teacher's example/usb_ethernet.go configureNetworkStack, scoped
// down to IPv4-only per spec.md's Non-goals (no IPv6).
func NewStack(ep *EthPhy, ip [4]byte, prefixLen int, gateway [4]byte) (*stack.Stack, error) {
	s := stack.New(stack.Options{
		NetworkProtocols:   []stack.NetworkProtocolFactory{ipv4.NewProtocol, arp.NewProtocol},
		TransportProtocols: []stack.TransportProtocolFactory{tcp.NewProtocol, udp.NewProtocol, icmp.NewProtocol4},
	})

	if err := s.CreateNIC(NICID, ep); err != nil {
		return nil, fmt.Errorf("ethphy: create NIC: %s", err)
	}

	addr := tcpip.AddrFromSlice(ip[:])
	protoAddr := tcpip.ProtocolAddress{
		Protocol: ipv4.ProtocolNumber,
		AddressWithPrefix: tcpip.AddressWithPrefix{
			Address:   addr,
			PrefixLen: prefixLen,
		},
	}
	if err := s.AddProtocolAddress(NICID, protoAddr, stack.AddressProperties{}); err != nil {
		return nil, fmt.Errorf("ethphy: add address: %s", err)
	}

	s.SetRouteTable([]tcpip.Route{
		{
			Destination: header.IPv4EmptySubnet,
			Gateway:     tcpip.AddrFromSlice(gateway[:]),
			NIC:         NICID,
		},
	})

	s.SetSpoofing(NICID, true)
	s.SetPromiscuousMode(NICID, true)

	return s, nil
}
