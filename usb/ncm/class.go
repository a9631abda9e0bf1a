// Package ncm implements the USB CDC-NCM class device: descriptor
// assembly, control-request handling, and the notification/bulk endpoint
// surface the wire engine (package netncm) drives.
package ncm

import (
	"log"
	"sync"

	"github.com/usbarmory/ncmgadget/usb"
)

// Wire-format limits (spec.md §3). NTB32 and larger NTBs are out of
// scope; these two constants bound every buffer this engine allocates
// for NCM transfer blocks.
const (
	MaxInSize  = 2048 // NCM_MAX_IN_SIZE: largest NTB this device accepts from the host
	MaxOutSize = 2048 // NCM_MAX_OUT_SIZE: largest NTB this device sends to the host
)

// CDC-NCM class requests (USB CDC NCM subclass spec, and cdc_ncm.rs).
const (
	ReqGetNtbParameters        = 0x80
	ReqGetNtbInputSize         = 0x85
	ReqSetNtbInputSize         = 0x86
	ReqSetEthernetPacketFilter = 0x43
)

const (
	classCDC    = 0x02
	subclassNCM = 0x0d
)

// Endpoint addresses. Notification is an interrupt-IN; data is a bulk
// pair, both on the same endpoint number (IN bit distinguishes them).
const (
	NotifyEndpoint  = 0x82
	DataInEndpoint  = 0x81
	DataOutEndpoint = 0x01

	PacketSize = 64 // bulk max packet size this engine frames around
)

// Class is the CDC-NCM class device. It owns no network semantics of its
// own: framing and reassembly live in package netncm, which only reads
// NtbInputCap. usbip.Manager drives Class through ReadPacket,
// WritePacket, SendSpeedChange and SendNetworkConnection.
type Class struct {
	bus usb.Bus
	mac [6]byte

	commIface uint8
	dataIface uint8

	mu          sync.Mutex
	ntbInputCap uint32 // host-negotiated cap via SetNtbInputSize, clamped to MaxInSize
}

// New builds the descriptor set, registers the class-request handler, and
// returns a Class ready to be driven by usbip.Manager.
func New(bus usb.Bus, dev *usb.Device, mac [6]byte) *Class {
	c := &Class{bus: bus, mac: mac, ntbInputCap: MaxInSize}

	macIdx := dev.AddString(macHexString(mac))

	commIface := &usb.InterfaceDescriptor{
		InterfaceClass:    classCDC,
		InterfaceSubClass: subclassNCM,
	}
	commIface.SetDefaults()

	iad := &usb.InterfaceAssociationDescriptor{
		FunctionClass:    classCDC,
		FunctionSubClass: subclassNCM,
	}
	iad.SetDefaults()
	commIface.IAD = iad

	header := &usb.CDCHeaderDescriptor{}
	header.SetDefaults()

	union := &usb.CDCUnionDescriptor{}
	union.SetDefaults()

	ethernet := &usb.CDCEthernetDescriptor{MacAddress: macIdx}
	ethernet.SetDefaults()

	ncmFn := &usb.CDCNCMDescriptor{}
	ncmFn.SetDefaults()

	commIface.ClassDescriptors = [][]byte{
		header.Bytes(),
		union.Bytes(), // SubordinateInterface0 filled in once dataIface is known, below
		ethernet.Bytes(),
		ncmFn.Bytes(),
	}
	commIface.Endpoints = []*usb.EndpointDescriptor{notifyEndpoint()}

	dataIfaceAlt0 := &usb.InterfaceDescriptor{}
	dataIfaceAlt0.SetDefaults()

	dataIfaceAlt1 := &usb.InterfaceDescriptor{AlternateSetting: 1}
	dataIfaceAlt1.SetDefaults()
	dataIfaceAlt1.Endpoints = []*usb.EndpointDescriptor{bulkOut(), bulkIn()}

	conf := &usb.ConfigurationDescriptor{}
	conf.SetDefaults()
	conf.AddInterface(commIface)
	conf.AddInterface(dataIfaceAlt0)
	conf.AddAlternateSetting(dataIfaceAlt0.InterfaceNumber, dataIfaceAlt1)

	c.commIface = commIface.InterfaceNumber
	c.dataIface = dataIfaceAlt0.InterfaceNumber

	union.ControlInterface = c.commIface
	union.SubordinateInterface0 = c.dataIface
	commIface.ClassDescriptors[1] = union.Bytes()

	dev.AddConfiguration(conf)

	bus.SetClassHandler(c.commIface, c.handleControl)

	return c
}

func notifyEndpoint() *usb.EndpointDescriptor {
	e := &usb.EndpointDescriptor{
		EndpointAddress: NotifyEndpoint,
		Attributes:      usb.EndpointTypeInterrupt,
		MaxPacketSize:   32,
		Interval:        255,
	}
	e.SetDefaults()
	return e
}

func bulkIn() *usb.EndpointDescriptor {
	e := &usb.EndpointDescriptor{
		EndpointAddress: DataInEndpoint,
		Attributes:      usb.EndpointTypeBulk,
		MaxPacketSize:   PacketSize,
	}
	e.SetDefaults()
	return e
}

func bulkOut() *usb.EndpointDescriptor {
	e := &usb.EndpointDescriptor{
		EndpointAddress: DataOutEndpoint,
		Attributes:      usb.EndpointTypeBulk,
		MaxPacketSize:   PacketSize,
	}
	e.SetDefaults()
	return e
}

func macHexString(mac [6]byte) string {
	const hex = "0123456789ABCDEF"
	out := make([]byte, 12)
	for i, b := range mac {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0xf]
	}
	return string(out)
}

// DataInterface returns the data interface number, used by the bus core
// to route SET_INTERFACE/GET_INTERFACE requests here.
func (c *Class) DataInterface() uint8 { return c.dataIface }

// DataAltSettingActive reports whether the host has switched the data
// interface to alt setting 1 (the only one carrying bulk endpoints).
func (c *Class) DataAltSettingActive() bool {
	return c.bus.AlternateSetting(c.dataIface) == 1
}

// NtbInputCap returns the current host-negotiated NTB input size cap,
// clamped to MaxInSize. package netncm's TX segmentation consults this
// before building each outbound NTB (see SetNtbInputSize's REDESIGN FLAG
// in SPEC_FULL.md).
func (c *Class) NtbInputCap() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ntbInputCap
}

// ReadPacket reads one bulk-OUT packet. Returns usb.ErrWouldBlock if none
// is queued.
func (c *Class) ReadPacket(buf []byte) (int, error) {
	return c.bus.ReadBulkOut(DataOutEndpoint, buf)
}

// WritePacket writes one bulk-IN packet (including ZLPs, len(buf)==0).
// Returns usb.ErrWouldBlock if the endpoint is still busy.
func (c *Class) WritePacket(buf []byte) error {
	return c.bus.WriteBulkIn(DataInEndpoint, buf)
}

func (c *Class) logf(format string, args ...any) {
	log.Printf("ncm: "+format, args...)
}
