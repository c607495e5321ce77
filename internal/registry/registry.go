// Package registry keeps track of the pins claimed by fans.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/exp/slices"
)

type Usage string

const (
	UsagePwm  Usage = "pwm"
	UsageTach Usage = "tach"
)

var ErrNotPwmCapable = errors.New("not a hardware PWM capable pin, use one of: channel 0 (GPIO12, GPIO18), channel 1 (GPIO13, GPIO19)")

// pwmChannels lists the BCM pins wired to each hardware PWM channel
var pwmChannels = [][]hardware.Pin{
	{12, 18},
	{13, 19},
}

// ConflictError is returned when a pin is already claimed
type ConflictError struct {
	Pin    hardware.Pin
	Holder string
	Usage  Usage
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already in use as %s pin by %s", e.Pin, e.Usage, e.Holder)
}

// ChannelBusyError is returned when the PWM channel of a pin is already driven by another pin
type ChannelBusyError struct {
	Pin      hardware.Pin
	Channel  int
	Occupant hardware.Pin
	Holder   string
}

func (e *ChannelBusyError) Error() string {
	return fmt.Sprintf("%s cannot be used, PWM channel %d is occupied by %s of %s", e.Pin, e.Channel, e.Occupant, e.Holder)
}

type claim struct {
	Holder string
	Usage  Usage
}

// Registry tracks which pins are claimed by whom.
// It is safe for concurrent use.
type Registry struct {
	// serializes the check-then-claim sequences
	mu     sync.Mutex
	claims cmap.ConcurrentMap[hardware.Pin, claim]
}

func New() *Registry {
	return &Registry{
		claims: cmap.NewStringer[hardware.Pin, claim](),
	}
}

// PwmChannel returns the hardware PWM channel of the given pin, or -1
func PwmChannel(pin hardware.Pin) int {
	for channel, pins := range pwmChannels {
		if slices.Contains(pins, pin) {
			return channel
		}
	}
	return -1
}

// ClaimPwm claims a pin for PWM output
func (r *Registry) ClaimPwm(holder string, pin hardware.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel := PwmChannel(pin)
	if channel < 0 {
		return fmt.Errorf("%s: %w", pin, ErrNotPwmCapable)
	}
	if err := r.checkFree(pin); err != nil {
		return err
	}
	for _, other := range pwmChannels[channel] {
		if other == pin {
			continue
		}
		if c, ok := r.claims.Get(other); ok && c.Usage == UsagePwm {
			return &ChannelBusyError{Pin: pin, Channel: channel, Occupant: other, Holder: c.Holder}
		}
	}

	r.claims.Set(pin, claim{Holder: holder, Usage: UsagePwm})
	return nil
}

// ClaimTach claims a pin for tachometer input
func (r *Registry) ClaimTach(holder string, pin hardware.Pin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkFree(pin); err != nil {
		return err
	}
	r.claims.Set(pin, claim{Holder: holder, Usage: UsageTach})
	return nil
}

func (r *Registry) checkFree(pin hardware.Pin) error {
	if c, ok := r.claims.Get(pin); ok {
		return &ConflictError{Pin: pin, Holder: c.Holder, Usage: c.Usage}
	}
	return nil
}

// Release frees the given pin, if it is held by holder
func (r *Registry) Release(holder string, pin hardware.Pin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.claims.RemoveCb(pin, func(key hardware.Pin, c claim, exists bool) bool {
		return exists && c.Holder == holder
	})
}

// Transfer moves all claims of one holder to another
func (r *Registry) Transfer(from string, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for item := range r.claims.IterBuffered() {
		if item.Val.Holder == from {
			r.claims.Set(item.Key, claim{Holder: to, Usage: item.Val.Usage})
		}
	}
}

// Holder returns the holder of the given pin
func (r *Registry) Holder(pin hardware.Pin) (string, bool) {
	c, ok := r.claims.Get(pin)
	return c.Holder, ok
}

// Count returns the number of claimed pins
func (r *Registry) Count() int {
	return r.claims.Count()
}
