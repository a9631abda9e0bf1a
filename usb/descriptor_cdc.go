package usb

import (
	"bytes"
	"encoding/binary"
)

// CDC functional descriptor subtypes (USB CDC 1.20 table 25, plus the NCM
// subclass specification for CDCNCMDescriptor).
const (
	CDCSubtypeHeader         = 0x00
	CDCSubtypeUnion          = 0x06
	CDCSubtypeEthernet       = 0x0f
	CDCSubtypeNCM            = 0x1a
)

// CDCHeaderDescriptor identifies the CDC specification release the device
// implements.
type CDCHeaderDescriptor struct {
	Length         uint8
	DescriptorType uint8
	DescriptorSubType uint8
	BCDCDC         uint16
}

func (d *CDCHeaderDescriptor) SetDefaults() {
	d.Length = 5
	d.DescriptorType = DescriptorTypeCSInterface
	d.DescriptorSubType = CDCSubtypeHeader
	d.BCDCDC = 0x0110
}

func (d *CDCHeaderDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// CDCUnionDescriptor associates the communication interface with the data
// interface it controls.
type CDCUnionDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	DescriptorSubType uint8
	ControlInterface  uint8
	SubordinateInterface0 uint8
}

func (d *CDCUnionDescriptor) SetDefaults() {
	d.Length = 5
	d.DescriptorType = DescriptorTypeCSInterface
	d.DescriptorSubType = CDCSubtypeUnion
}

func (d *CDCUnionDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// CDCEthernetDescriptor advertises the MAC address string index and
// maximum Ethernet segment size to the host.
type CDCEthernetDescriptor struct {
	Length              uint8
	DescriptorType      uint8
	DescriptorSubType   uint8
	MacAddress          uint8
	EthernetStatistics  uint32
	MaxSegmentSize      uint16
	NumberMCFilters     uint16
	NumberPowerFilters  uint8
}

func (d *CDCEthernetDescriptor) SetDefaults() {
	d.Length = 13
	d.DescriptorType = DescriptorTypeCSInterface
	d.DescriptorSubType = CDCSubtypeEthernet
	d.MaxSegmentSize = 1514
}

func (d *CDCEthernetDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}

// CDCNCMDescriptor is the NCM-specific functional descriptor (absent from
// the teacher's CDC-ECM-only descriptor set; added here following its
// exact SetDefaults/Bytes idiom). bcdNcmVersion 0x0100 is NCM 1.0, the
// only version this engine implements (NTB32 and the newer revisions are
// out of scope).
type CDCNCMDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	DescriptorSubType uint8
	BCDNCMVersion     uint16
	NetworkCapabilities uint8
}

func (d *CDCNCMDescriptor) SetDefaults() {
	d.Length = 6
	d.DescriptorType = DescriptorTypeCSInterface
	d.DescriptorSubType = CDCSubtypeNCM
	d.BCDNCMVersion = 0x0100
}

func (d *CDCNCMDescriptor) Bytes() []byte {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, d)
	return buf.Bytes()
}
