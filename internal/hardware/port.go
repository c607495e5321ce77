// Package hardware describes the GPIO/PWM access a fan needs.
//
// Pins are always BCM GPIO numbers, see ToBcm for converting other numbering schemes.
package hardware

import (
	"fmt"
	"time"
)

// Pin is a BCM GPIO number
type Pin int

func (p Pin) String() string {
	return fmt.Sprintf("GPIO%d", int(p))
}

type PinMode int

const (
	PinModeInput PinMode = iota
	PinModeOutput
	PinModePwmOutput
)

type Pull int

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

type Level int

const (
	Low Level = iota
	High
)

type PwmMode int

const (
	// PwmModeBalanced spreads the "on" time of a period over the whole period
	PwmModeBalanced PwmMode = iota
	// PwmModeMarkSpace produces a classic pulse train with a fixed period
	PwmModeMarkSpace
)

type Edge int

const (
	EdgeNone Edge = iota
	EdgeBoth
)

type WaitOutcome int

const (
	EdgeDetected WaitOutcome = iota
	TimedOut
)

func (o WaitOutcome) String() string {
	switch o {
	case EdgeDetected:
		return "edge"
	case TimedOut:
		return "timeout"
	}
	return "unknown"
}

// WaitResult is the result of a single WaitForEdge call
type WaitResult struct {
	Outcome WaitOutcome
	// Elapsed is the wall clock time the call was blocked
	Elapsed time.Duration
}

// Port is the hardware access layer used by fans.
// Only WaitForEdge can fail, all other calls are fire-and-forget.
type Port interface {
	SetPinMode(pin Pin, mode PinMode)
	SetPullResistor(pin Pin, pull Pull)
	WriteDigital(pin Pin, level Level)

	SetPwmMode(mode PwmMode)
	SetPwmRange(pwmRange uint32)
	SetPwmClockDivisor(divisor uint32)
	WritePwmDuty(pin Pin, duty uint32)

	// SetEdgeDetection enables (or disables) latching of edges on the given pin,
	// which is required for WaitForEdge to observe anything.
	SetEdgeDetection(pin Pin, edge Edge)
	// WaitForEdge blocks until the next latched edge on the given pin, or until the timeout elapsed.
	// A timeout of zero only consumes an already latched edge.
	WaitForEdge(pin Pin, timeout time.Duration) (WaitResult, error)
}

// Default values of the PWM peripheral after a reset
const (
	DefaultPwmMode         = PwmModeBalanced
	DefaultPwmRange        = 1024
	DefaultPwmClockDivisor = 32
)
