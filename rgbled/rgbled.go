// Package rgbled drives a 3-channel PWM RGB LED, the device's one
// physical control surface reachable from POST /rgb.
package rgbled

import (
	"fmt"
	"strconv"
)

// Color is an RGB triple, each channel 0-255.
type Color struct {
	R, G, B uint8
}

// ParseHexColor parses a "#RRGGBB" string as POSTed to /rgb.
func ParseHexColor(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("rgbled: malformed color %q, want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("rgbled: malformed color %q: %w", s, err)
	}
	return Color{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}, nil
}

// PWMChannel is one duty-cycle-controlled output, generalized from the
// teacher's GPIO on/off driver (usbarmory/mark-two/led.go) to a 0-100%
// duty cycle since this device drives three analog channels, not a
// single digital one.
type PWMChannel interface {
	SetDuty(percent uint8) error
}

// Controller owns the three PWM channels backing one RGB LED, mirroring
// the original source's RgbControl (one TIM channel per color).
type Controller struct {
	red, green, blue PWMChannel
}

// NewController wires a Controller to the three platform PWM channels.
func NewController(red, green, blue PWMChannel) *Controller {
	return &Controller{red: red, green: green, blue: blue}
}

// Set drives all three channels to the given color, converting each
// 0-255 channel value to a 0-100% duty cycle.
func (c *Controller) Set(rgb Color) {
	c.red.SetDuty(toDuty(rgb.R))
	c.green.SetDuty(toDuty(rgb.G))
	c.blue.SetDuty(toDuty(rgb.B))
}

func toDuty(channel uint8) uint8 {
	return uint8((uint16(channel) * 100) / 255)
}
