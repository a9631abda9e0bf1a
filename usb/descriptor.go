// Package usb provides the USB device-core scaffolding consumed by the
// CDC-NCM class driver: descriptor types, an interface-number
// allocator, and a Bus abstraction around the actual USB peripheral.
//
// Descriptor types follow the standard USB layout and encode themselves
// with encoding/binary, little-endian, exactly as a real USB device must
// put these structures on the wire.
package usb

import (
	"bytes"
	"encoding/binary"
)

// Standard descriptor type codes (USB 2.0 spec table 9-5).
const (
	DescriptorTypeDevice               = 1
	DescriptorTypeConfiguration        = 2
	DescriptorTypeString               = 3
	DescriptorTypeInterface            = 4
	DescriptorTypeEndpoint             = 5
	DescriptorTypeDeviceQualifier      = 6
	DescriptorTypeInterfaceAssociation = 11
	DescriptorTypeCSInterface          = 0x24 // CDC-class functional descriptor
)

// DeviceDescriptor is the standard 18-byte USB device descriptor.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BCDUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	VendorId          uint16
	ProductId         uint16
	BCDDevice         uint16
	Manufacturer      uint8
	Product           uint8
	SerialNumber      uint8
	NumConfigurations uint8
}

func (d *DeviceDescriptor) SetDefaults() {
	d.Length = 18
	d.DescriptorType = DescriptorTypeDevice
	d.BCDUSB = 0x0200
	d.MaxPacketSize = 64
	d.NumConfigurations = 1
}

func (d *DeviceDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// DeviceQualifierDescriptor lets a full-speed-only device answer a
// GetDescriptor(DEVICE_QUALIFIER) request without stalling.
type DeviceQualifierDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	BCDUSB            uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize     uint8
	NumConfigurations uint8
	Reserved          uint8
}

func (d *DeviceQualifierDescriptor) SetDefaults() {
	d.Length = 10
	d.DescriptorType = DescriptorTypeDeviceQualifier
	d.BCDUSB = 0x0200
	d.MaxPacketSize = 64
	d.NumConfigurations = 1
}

func (d *DeviceQualifierDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// ConfigurationDescriptor is the standard 9-byte configuration descriptor,
// extended with an in-memory list of interfaces whose serialized bytes are
// appended after it by Bytes(). TotalLength is computed, not set by hand.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	Configuration      uint8
	Attributes         uint8
	MaxPower           uint8

	numDistinctInterfaces int

	interfaces []*InterfaceDescriptor
}

func (c *ConfigurationDescriptor) SetDefaults() {
	c.Length = 9
	c.DescriptorType = DescriptorTypeConfiguration
	c.ConfigurationValue = 1
	c.Attributes = 0xc0 // self-powered, no remote wakeup
	c.MaxPower = 0x32   // 100 mA
}

// AddInterface appends iface, auto-assigning its interface number in
// arrival order and, if it belongs to an IAD whose FirstInterface is
// still unassigned, setting that FirstInterface. The IAD's
// InterfaceCount is not updated here; it keeps the value SetDefaults
// gave it.
func (c *ConfigurationDescriptor) AddInterface(iface *InterfaceDescriptor) {
	iface.InterfaceNumber = uint8(c.numDistinctInterfaces)
	c.interfaces = append(c.interfaces, iface)
	c.numDistinctInterfaces++
	c.NumInterfaces = uint8(c.numDistinctInterfaces)

	if iface.IAD != nil && iface.IAD.FirstInterface == 0xff {
		iface.IAD.FirstInterface = iface.InterfaceNumber
	}
}

// AddAlternateSetting appends iface as another alternate setting of an
// interface number already assigned by a prior AddInterface/
// AddAlternateSetting call. Alternate settings do not consume a new
// interface number and are not counted in NumInterfaces — only
// iface.AlternateSetting distinguishes them on the wire.
func (c *ConfigurationDescriptor) AddAlternateSetting(ifaceNumber uint8, iface *InterfaceDescriptor) {
	iface.InterfaceNumber = ifaceNumber
	c.interfaces = append(c.interfaces, iface)
}

// Bytes serializes the configuration descriptor followed by every
// interface (and, for each, its class descriptors, endpoints, and any
// alternate settings), computing TotalLength along the way.
func (c *ConfigurationDescriptor) Bytes() []byte {
	body := new(bytes.Buffer)

	emittedIAD := map[*InterfaceAssociationDescriptor]bool{}
	for _, iface := range c.interfaces {
		if iface.IAD != nil && !emittedIAD[iface.IAD] {
			body.Write(iface.IAD.Bytes())
			emittedIAD[iface.IAD] = true
		}
		body.Write(iface.Bytes())
	}

	c.TotalLength = uint16(c.Length) + uint16(body.Len())

	out := new(bytes.Buffer)
	binary.Write(out, binary.LittleEndian, &c.Length)
	binary.Write(out, binary.LittleEndian, &c.DescriptorType)
	binary.Write(out, binary.LittleEndian, &c.TotalLength)
	binary.Write(out, binary.LittleEndian, &c.NumInterfaces)
	binary.Write(out, binary.LittleEndian, &c.ConfigurationValue)
	binary.Write(out, binary.LittleEndian, &c.Configuration)
	binary.Write(out, binary.LittleEndian, &c.Attributes)
	binary.Write(out, binary.LittleEndian, &c.MaxPower)
	out.Write(body.Bytes())
	return out.Bytes()
}

// InterfaceAssociationDescriptor groups the CDC-NCM communication and data
// interfaces so the host's composite-device driver binds them together.
type InterfaceAssociationDescriptor struct {
	Length           uint8
	DescriptorType   uint8
	FirstInterface   uint8
	InterfaceCount   uint8
	FunctionClass    uint8
	FunctionSubClass uint8
	FunctionProtocol uint8
	Function         uint8
}

func (i *InterfaceAssociationDescriptor) SetDefaults() {
	i.Length = 8
	i.DescriptorType = DescriptorTypeInterfaceAssociation
	i.FirstInterface = 0xff // sentinel: auto-assigned by AddInterface
	i.InterfaceCount = 2
}

func (i *InterfaceAssociationDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, i)
	return buf.Bytes()
}

// InterfaceDescriptor is the standard 9-byte interface descriptor. Class
// descriptors (ClassDescriptors) and endpoints are appended after it by
// Bytes(). An interface belonging to an InterfaceAssociationDescriptor
// carries a pointer to it so the owning configuration can emit the IAD
// once, ahead of the interface, and keep its bookkeeping in sync.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	Interface         uint8

	IAD              *InterfaceAssociationDescriptor
	ClassDescriptors [][]byte
	Endpoints        []*EndpointDescriptor
}

func (i *InterfaceDescriptor) SetDefaults() {
	i.Length = 9
	i.DescriptorType = DescriptorTypeInterface
}

func (i *InterfaceDescriptor) Bytes() []byte {
	i.NumEndpoints = uint8(len(i.Endpoints))

	out := new(bytes.Buffer)
	binary.Write(out, binary.LittleEndian, &i.Length)
	binary.Write(out, binary.LittleEndian, &i.DescriptorType)
	binary.Write(out, binary.LittleEndian, &i.InterfaceNumber)
	binary.Write(out, binary.LittleEndian, &i.AlternateSetting)
	binary.Write(out, binary.LittleEndian, &i.NumEndpoints)
	binary.Write(out, binary.LittleEndian, &i.InterfaceClass)
	binary.Write(out, binary.LittleEndian, &i.InterfaceSubClass)
	binary.Write(out, binary.LittleEndian, &i.InterfaceProtocol)
	binary.Write(out, binary.LittleEndian, &i.Interface)

	for _, cd := range i.ClassDescriptors {
		out.Write(cd)
	}
	for _, ep := range i.Endpoints {
		out.Write(ep.Bytes())
	}
	return out.Bytes()
}

// EndpointDescriptor is the standard 7-byte endpoint descriptor.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8
	MaxPacketSize   uint16
	Interval        uint8
}

func (e *EndpointDescriptor) SetDefaults() {
	e.Length = 7
	e.DescriptorType = DescriptorTypeEndpoint
}

func (e *EndpointDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

// Endpoint direction/transfer-type bits.
const (
	EndpointDirIn  = 0x80
	EndpointDirOut = 0x00

	EndpointTypeControl     = 0x00
	EndpointTypeIsochronous = 0x01
	EndpointTypeBulk        = 0x02
	EndpointTypeInterrupt   = 0x03
)

// StringDescriptor wraps a UTF-16LE string table entry.
type StringDescriptor struct {
	Length         uint8
	DescriptorType uint8
	data           []byte
}

func NewStringDescriptor(s string) *StringDescriptor {
	sd := &StringDescriptor{DescriptorType: DescriptorTypeString}
	for _, r := range s {
		sd.data = append(sd.data, byte(r), 0x00)
	}
	sd.Length = uint8(2 + len(sd.data))
	return sd
}

func (s *StringDescriptor) Bytes() []byte {
	return append([]byte{s.Length, s.DescriptorType}, s.data...)
}
