// Command ncmgadget is the top-level wiring for the IP-over-USB gadget:
// a CDC-NCM class device, the NCM wire engine, a single-NIC IPv4 stack,
// and the DHCP/HTTP/RGB application surface riding on top of it. The
// cooperative main loop mirrors the original source's main(): one pass
// of USB I/O, one pass of engine pumping, one pass of the perf counter,
// repeated forever.
package main

import (
	"log"
	"time"

	"gvisor.dev/gvisor/pkg/tcpip"
	"gvisor.dev/gvisor/pkg/tcpip/adapters/gonet"
	"gvisor.dev/gvisor/pkg/tcpip/network/ipv4"
	"gvisor.dev/gvisor/pkg/tcpip/stack"

	"github.com/usbarmory/ncmgadget/dhcp"
	"github.com/usbarmory/ncmgadget/httpapp"
	"github.com/usbarmory/ncmgadget/netncm"
	"github.com/usbarmory/ncmgadget/netncm/ethphy"
	"github.com/usbarmory/ncmgadget/netncm/usbip"
	"github.com/usbarmory/ncmgadget/platform"
	"github.com/usbarmory/ncmgadget/rgbled"
	"github.com/usbarmory/ncmgadget/usb"
	usbncm "github.com/usbarmory/ncmgadget/usb/ncm"
)

// Addressing fixed by spec.md §6.
var (
	deviceMAC = [6]byte{0x00, 0x80, 0xe1, 0x00, 0x00, 0x01}
	deviceIP  = [4]byte{192, 168, 69, 1}
	gatewayIP = [4]byte{192, 168, 69, 100}
)

func buildDescriptors() *usb.Device {
	dev := &usb.Device{Descriptor: &usb.DeviceDescriptor{VendorId: 0x0483, ProductId: 0xffff}}
	dev.Descriptor.SetDefaults()
	dev.Qualifier = &usb.DeviceQualifierDescriptor{}
	dev.Qualifier.SetDefaults()
	dev.AddString("ncmgadget")
	return dev
}

// noopPWM is the default RGB channel used until a board-specific build
// wires real PWM hardware in via rgbled.NewController.
type noopPWM struct{}

func (noopPWM) SetDuty(percent uint8) error { return nil }

func main() {
	if platform.NewUSBBus == nil {
		log.Fatal("ncmgadget: no usb.Bus registered for this board (platform.NewUSBBus is nil)")
	}
	bus := platform.NewUSBBus()

	dev := buildDescriptors()
	class := usbncm.New(bus, dev, deviceMAC)
	engine := netncm.New(class)
	usbMgr := usbip.New(bus, class, engine)

	phy := ethphy.New(deviceMAC)
	ipStack, err := ethphy.NewStack(phy, deviceIP, 24, gatewayIP)
	if err != nil {
		log.Fatalf("ncmgadget: %v", err)
	}

	ticker := &platform.Ticker{}
	go func() {
		for range time.Tick(time.Millisecond) {
			ticker.Tick()
		}
	}()
	perf := platform.NewPerfCounter(ticker)

	leds := rgbled.NewController(noopPWM{}, noopPWM{}, noopPWM{})

	httpSrv := httpapp.New(leds, perf)
	go serveHTTP(ipStack, httpSrv)

	dhcpSrv := dhcp.New(dhcp.DefaultConfig())
	go serveDHCP(ipStack, dhcpSrv)

	log.Printf("ncmgadget: starting main loop")
	for {
		usbMgr.Poll()
		engine.Pump()
		phy.Pump(engine)
		perf.Tick()
	}
}

// serveHTTP listens on TCP port 80 of the gVisor stack and serves srv
// until the listener errs, following the teacher's example/web_server.go
// pairing of net/http with a gonet.Listener.
func serveHTTP(s *stack.Stack, srv *httpapp.Server) {
	addr := tcpip.FullAddress{NIC: ethphy.NICID, Port: 80}
	l, err := gonet.ListenTCP(s, addr, ipv4.ProtocolNumber)
	if err != nil {
		log.Printf("ncmgadget: http listen: %v", err)
		return
	}
	if err := srv.Serve(l); err != nil {
		log.Printf("ncmgadget: http serve: %v", err)
	}
}

// serveDHCP binds UDP port 67 on the gVisor stack and answers DHCP
// requests, following the teacher's startUDPListener/gonet.DialUDP
// pattern for UDP sockets atop its stack.
func serveDHCP(s *stack.Stack, srv *dhcp.Server) {
	local := tcpip.FullAddress{NIC: ethphy.NICID, Port: dhcp.ServerPort}
	conn, err := gonet.DialUDP(s, &local, nil, ipv4.ProtocolNumber)
	if err != nil {
		log.Printf("ncmgadget: dhcp listen: %v", err)
		return
	}
	defer conn.Close()

	buf := make([]byte, 2048)
	for {
		n, raddr, err := conn.ReadFrom(buf)
		if err != nil {
			log.Printf("ncmgadget: dhcp read: %v", err)
			return
		}
		reply, ok := srv.Recv(buf[:n])
		if !ok {
			continue
		}
		if _, err := conn.WriteTo(reply, raddr); err != nil {
			log.Printf("ncmgadget: dhcp write: %v", err)
		}
	}
}
