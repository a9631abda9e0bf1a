package platform

import "github.com/usbarmory/ncmgadget/usb"

// NewUSBBus constructs the real usb.Bus for the target board. The USB
// hardware core (register-level enumeration, endpoint FIFOs, interrupt
// wiring) is an external collaborator this module consumes only through
// the usb.Bus interface — spec.md scopes register-level programming out
// of the engine entirely. A board-specific build registers its
// implementation here during init(); cmd/ncmgadget's main refuses to
// start without one.
var NewUSBBus func() usb.Bus
