package usb

// FakeBus is an in-memory Bus used by package tests and by other packages'
// tests that need a USB peripheral double without real hardware.
// Bulk-OUT reads return ErrWouldBlock when no packet is queued. Bulk-IN
// and interrupt-IN writes are always accepted and recorded: the busy
// flags that would make them return ErrWouldBlock are never set.
type FakeBus struct {
	OutQueue [][]byte // packets waiting to be read via ReadBulkOut
	InSent   [][]byte // packets accepted via WriteBulkIn, in order
	IntSent  [][]byte // notifications accepted via WriteInterruptIn

	inBusy  bool // simulates one in-flight bulk-IN transfer
	intBusy bool

	classHandlers map[uint8]SetupFunction
	altSettings   map[uint8]uint8

	PollResult bool
}

func NewFakeBus() *FakeBus {
	return &FakeBus{
		classHandlers: make(map[uint8]SetupFunction),
		altSettings:   make(map[uint8]uint8),
		PollResult:    true,
	}
}

func (b *FakeBus) Poll() bool { return b.PollResult }

func (b *FakeBus) ReadBulkOut(endpoint uint8, buf []byte) (int, error) {
	if len(b.OutQueue) == 0 {
		return 0, ErrWouldBlock
	}
	pkt := b.OutQueue[0]
	b.OutQueue = b.OutQueue[1:]
	n := copy(buf, pkt)
	return n, nil
}

func (b *FakeBus) WriteBulkIn(endpoint uint8, buf []byte) error {
	if b.inBusy {
		return ErrWouldBlock
	}
	cp := append([]byte(nil), buf...)
	b.InSent = append(b.InSent, cp)
	return nil
}

func (b *FakeBus) WriteInterruptIn(endpoint uint8, buf []byte) error {
	if b.intBusy {
		return ErrWouldBlock
	}
	cp := append([]byte(nil), buf...)
	b.IntSent = append(b.IntSent, cp)
	return nil
}

func (b *FakeBus) SetClassHandler(interfaceNumber uint8, fn SetupFunction) {
	b.classHandlers[interfaceNumber] = fn
}

func (b *FakeBus) AlternateSetting(interfaceNumber uint8) uint8 {
	return b.altSettings[interfaceNumber]
}

func (b *FakeBus) SetAlternateSetting(interfaceNumber, altSetting uint8) bool {
	b.altSettings[interfaceNumber] = altSetting
	return true
}

// Dispatch simulates the bus core routing a control transfer to whichever
// SetupFunction was registered for the setup packet's target interface,
// for use by tests driving a class device end-to-end.
func (b *FakeBus) Dispatch(interfaceNumber uint8, setup *SetupData, out []byte) ([]byte, error) {
	fn, ok := b.classHandlers[interfaceNumber]
	if !ok {
		return nil, ErrStall
	}
	return fn(setup, out)
}

// Enqueue adds a bulk-OUT packet for the device side to read back.
func (b *FakeBus) Enqueue(pkt []byte) {
	b.OutQueue = append(b.OutQueue, append([]byte(nil), pkt...))
}
