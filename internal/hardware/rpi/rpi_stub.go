//go:build !linux

package rpi

import (
	"errors"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
)

const DefaultChip = "gpiochip0"

var errUnsupported = errors.New("raspberry pi gpio is only supported on linux")

type Port struct{}

func Open(chip string) (*Port, error) {
	return nil, errUnsupported
}

func (p *Port) Close() error                                          { return nil }
func (p *Port) SetPinMode(pin hardware.Pin, mode hardware.PinMode)    {}
func (p *Port) SetPullResistor(pin hardware.Pin, pull hardware.Pull)  {}
func (p *Port) WriteDigital(pin hardware.Pin, level hardware.Level)   {}
func (p *Port) SetPwmMode(mode hardware.PwmMode)                      {}
func (p *Port) SetPwmRange(pwmRange uint32)                           {}
func (p *Port) SetPwmClockDivisor(divisor uint32)                     {}
func (p *Port) WritePwmDuty(pin hardware.Pin, duty uint32)            {}
func (p *Port) SetEdgeDetection(pin hardware.Pin, edge hardware.Edge) {}
func (p *Port) WaitForEdge(pin hardware.Pin, timeout time.Duration) (hardware.WaitResult, error) {
	return hardware.WaitResult{}, errUnsupported
}
