package rpi

import (
	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/stianeikeland/go-rpio/v4"
)

// pins routed to the PWM peripheral, both channels are driven by the same clock
var pwmClockPins = []hardware.Pin{12, 13, 18, 19}

// rpioPwmMode maps a PWM mode to the algorithm flag expected by go-rpio
func rpioPwmMode(mode hardware.PwmMode) bool {
	switch mode {
	case hardware.PwmModeMarkSpace:
		return rpio.MarkSpace
	default:
		return rpio.Balanced
	}
}

// clockPin returns the pin the PWM clock is programmed through.
// The clock is shared, so a pin that has already left PWM mode still reaches it.
func clockPin(pwmPins map[hardware.Pin]bool, lastPwmPin *hardware.Pin) hardware.Pin {
	for _, pin := range pwmClockPins {
		if pwmPins[pin] {
			return pin
		}
	}
	if lastPwmPin != nil {
		return *lastPwmPin
	}
	return pwmClockPins[0]
}
