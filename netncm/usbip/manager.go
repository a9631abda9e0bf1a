// Package usbip couples the USB bus poll to the wire engine's byte
// queues: it advances the boot handshake (speed/connection notifications)
// and then, once Normal, drains/fills usb_tx_q and usb_rx_q each tick.
package usbip

import (
	"log"

	"github.com/usbarmory/ncmgadget/usb"
	"github.com/usbarmory/ncmgadget/usb/ncm"
)

type bootState int

const (
	bootSpeed bootState = iota
	bootNotify
	bootNormal
)

// queues is the minimal view of netncm.Api the Manager needs: pushing
// inbound USB packets and popping outbound ones. Defined here (rather
// than importing package netncm directly) so usbip has no dependency on
// the engine's internal RX/TX machinery, only on the queue contract it
// drives.
type queues interface {
	PushUsbRx(pkt []byte) bool
	UsbRxFull() bool
	DrainUsbRx() int
	PopUsbTx() ([]byte, bool)
}

// Manager drives Class and Api together once per cooperative loop tick.
type Manager struct {
	bus   usb.Bus
	class *ncm.Class
	q     queues

	boot bootState

	txInFlight bool
	txPending  []byte
}

// New returns a Manager in the initial Boot.Speed state.
func New(bus usb.Bus, class *ncm.Class, q queues) *Manager {
	return &Manager{bus: bus, class: class, q: q, boot: bootSpeed}
}

// Poll runs one tick: the boot handshake while not yet Normal, otherwise
// the TX-before-RX USB byte-queue bridge (spec.md §4.2 — TX is attempted
// ahead of RX within a single poll).
func (m *Manager) Poll() {
	if !m.bus.Poll() {
		return
	}

	if m.boot != bootNormal {
		m.advanceBoot()
		return
	}

	if !m.class.DataAltSettingActive() {
		// host has not yet switched to the data alt setting; nothing
		// to move until it does, but notifications still flow.
		return
	}

	m.driveTX()
	m.driveRX()
}

func (m *Manager) advanceBoot() {
	switch m.boot {
	case bootSpeed:
		if err := m.class.SendSpeedChange(); err == nil {
			m.boot = bootNotify
		}
	case bootNotify:
		if err := m.class.SendNetworkConnection(); err == nil {
			m.boot = bootNormal
			log.Printf("usbip: link up")
		}
	}
}

// Reset returns the Manager to Boot.Speed, e.g. on a USB bus reset.
func (m *Manager) Reset() {
	m.boot = bootSpeed
	m.txInFlight = false
	m.txPending = nil
}

func (m *Manager) driveTX() {
	if !m.txInFlight {
		if pkt, ok := m.q.PopUsbTx(); ok {
			m.txPending = pkt
			m.txInFlight = true
		}
	}
	if !m.txInFlight {
		return
	}
	if err := m.class.WritePacket(m.txPending); err == nil {
		m.txInFlight = false
		m.txPending = nil
	}
	// usb.ErrWouldBlock: leave txPending in place, retry next tick.
}

func (m *Manager) driveRX() {
	if m.q.UsbRxFull() {
		n := m.q.DrainUsbRx()
		log.Printf("usbip: usb_rx_q full, dropped %d packets", n)
	}

	buf := make([]byte, ncm.PacketSize)
	n, err := m.class.ReadPacket(buf)
	if err != nil {
		return // usb.ErrWouldBlock: nothing queued this tick
	}
	m.q.PushUsbRx(buf[:n])
}
