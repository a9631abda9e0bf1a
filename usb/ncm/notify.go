package ncm

import (
	"bytes"
	"encoding/binary"
)

// notifyHeader is the CDC notification envelope (USB CDC 1.20 table 22),
// carried on the interrupt-IN endpoint ahead of any notification-specific
// body.
type notifyHeader struct {
	RequestType      uint8
	NotificationType uint8
	Value            uint16
	Index            uint16
	Length           uint16
}

const (
	notifyRequestType = 0xa1

	notifyTypeNetworkConnection = 0x00
	notifyTypeSpeedChange       = 0x2a
)

// speedChangeBody carries the CDC NOTIFY_SPEED_CHANGE payload: downlink
// and uplink bitrates in bits per second.
type speedChangeBody struct {
	DLBitRate uint32
	ULBitRate uint32
}

// SendSpeedChange emits the 16-byte NOTIFY_SPEED_CHANGE notification
// (a fixed 10 Mbps full-duplex link speed; this engine does not
// negotiate real PHY speed). Returns usb.ErrWouldBlock if the
// notification endpoint is still busy with a prior transfer.
func (c *Class) SendSpeedChange() error {
	hdr := notifyHeader{
		RequestType:      notifyRequestType,
		NotificationType: notifyTypeSpeedChange,
		Value:            1,
		Index:            uint16(c.commIface) + 1,
		Length:           8,
	}
	body := speedChangeBody{DLBitRate: 10_000_000, ULBitRate: 10_000_000}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, &hdr)
	binary.Write(buf, binary.LittleEndian, &body)
	return c.bus.WriteInterruptIn(NotifyEndpoint, buf.Bytes())
}

// SendNetworkConnection emits the 8-byte NOTIFY_NETWORK_CONNECTION
// notification announcing the link is up. Returns usb.ErrWouldBlock if
// the notification endpoint is still busy.
func (c *Class) SendNetworkConnection() error {
	hdr := notifyHeader{
		RequestType:      notifyRequestType,
		NotificationType: notifyTypeNetworkConnection,
		Value:            1,
		Index:            uint16(c.commIface) + 1,
		Length:           0,
	}
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, &hdr)
	return c.bus.WriteInterruptIn(NotifyEndpoint, buf.Bytes())
}
