package ncm

import (
	"bytes"
	"encoding/binary"

	"github.com/usbarmory/ncmgadget/usb"
)

// ntbParameters is the CDC-NCM GetNtbParameters response structure
// (USB CDC NCM subclass spec table 6.2). Field values here are fixed by
// this engine's design: 16-bit NTB only, max_dgrams=1 on the OUT side
// even though the RX reassembly path tolerates more (see package
// netncm's rx.go) because that tolerance is a robustness matter, not a
// capability this device advertises.
type ntbParameters struct {
	Length                  uint16
	NtbFormatsSupported     uint16
	NtbInMaxSize            uint32
	NdpInDivisor            uint16
	NdpInPayloadRemainder   uint16
	NdpInAlignment          uint16
	Reserved                uint16
	NtbOutMaxSize           uint32
	NdpOutDivisor           uint16
	NdpOutPayloadRemainder  uint16
	NdpOutAlignment         uint16
	NtbOutMaxDatagrams      uint16
}

func (c *Class) getNtbParameters() []byte {
	p := ntbParameters{
		Length:                 28,
		NtbFormatsSupported:    0x0001,
		NtbInMaxSize:           MaxInSize,
		NdpInDivisor:           4,
		NdpInPayloadRemainder:  0,
		NdpInAlignment:         4,
		Reserved:               0,
		NtbOutMaxSize:          MaxOutSize,
		NdpOutDivisor:          4,
		NdpOutPayloadRemainder: 4,
		NdpOutAlignment:        4,
		NtbOutMaxDatagrams:     1,
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, &p)
	return buf.Bytes()
}

func (c *Class) getNtbInputSize() []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, c.NtbInputCap())
	return buf
}

func (c *Class) setNtbInputSize(out []byte) error {
	if len(out) < 4 {
		return usb.ErrStall
	}
	v := binary.LittleEndian.Uint32(out)
	if v > MaxInSize {
		v = MaxInSize
	}
	c.mu.Lock()
	c.ntbInputCap = v
	c.mu.Unlock()
	c.logf("set NTB input size to %d", v)
	return nil
}

// handleControl is the SetupFunction registered with the bus core for
// this class device's communication interface.
func (c *Class) handleControl(setup *usb.SetupData, out []byte) ([]byte, error) {
	switch setup.BRequest {
	case ReqGetNtbParameters:
		return c.getNtbParameters(), nil
	case ReqGetNtbInputSize:
		return c.getNtbInputSize(), nil
	case ReqSetNtbInputSize:
		return nil, c.setNtbInputSize(out)
	case ReqSetEthernetPacketFilter:
		return nil, nil
	default:
		c.logf("stalling unsupported control request 0x%02x", setup.BRequest)
		return nil, usb.ErrStall
	}
}
