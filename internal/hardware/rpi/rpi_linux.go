//go:build linux

// Package rpi implements hardware.Port for the Raspberry Pi.
//
// Pin modes, pull resistors, digital writes and the PWM peripheral are driven through
// the memory mapped GPIO registers (go-rpio), edges are received from the
// GPIO character device (go-gpiocdev).
package rpi

import (
	"fmt"
	"sync"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/stianeikeland/go-rpio/v4"
	"github.com/warthog618/go-gpiocdev"
)

const (
	DefaultChip = "gpiochip0"

	// frequency of the oscillator feeding the PWM clock manager, the clock divisor is relative to this
	oscillatorFrequency = 19_200_000

	consumer = "fanspeedctl"
)

type Port struct {
	chip string

	mu       sync.Mutex
	pwmMode  hardware.PwmMode
	pwmRange uint32
	divisor  uint32
	pwmPins  map[hardware.Pin]bool
	// last pin put into PWM mode, kept after it leaves PWM mode
	lastPwmPin *hardware.Pin
	edges      map[hardware.Pin]*edgeWatcher
}

type edgeWatcher struct {
	line *gpiocdev.Line
	// latches a single edge, just like the interrupt flag of the hardware
	events chan struct{}
}

// Open maps the GPIO registers into memory, this requires root permissions
func Open(chip string) (*Port, error) {
	if len(chip) <= 0 {
		chip = DefaultChip
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("unable to open gpio memory range: %w", err)
	}
	return &Port{
		chip:     chip,
		pwmMode:  hardware.DefaultPwmMode,
		pwmRange: hardware.DefaultPwmRange,
		divisor:  hardware.DefaultPwmClockDivisor,
		pwmPins:  map[hardware.Pin]bool{},
		edges:    map[hardware.Pin]*edgeWatcher{},
	}, nil
}

// Close releases all requested lines and unmaps the GPIO registers
func (p *Port) Close() error {
	p.mu.Lock()
	for pin, watcher := range p.edges {
		_ = watcher.line.Close()
		delete(p.edges, pin)
	}
	p.mu.Unlock()
	return rpio.Close()
}

func (p *Port) SetPinMode(pin hardware.Pin, mode hardware.PinMode) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gpio := rpio.Pin(pin)
	switch mode {
	case hardware.PinModeInput:
		delete(p.pwmPins, pin)
		gpio.Input()
	case hardware.PinModeOutput:
		delete(p.pwmPins, pin)
		gpio.Output()
	case hardware.PinModePwmOutput:
		p.pwmPins[pin] = true
		p.lastPwmPin = &pin
		gpio.Mode(rpio.Pwm)
	}
}

func (p *Port) SetPullResistor(pin hardware.Pin, pull hardware.Pull) {
	gpio := rpio.Pin(pin)
	switch pull {
	case hardware.PullOff:
		gpio.PullOff()
	case hardware.PullDown:
		gpio.PullDown()
	case hardware.PullUp:
		gpio.PullUp()
	}
}

func (p *Port) WriteDigital(pin hardware.Pin, level hardware.Level) {
	if level == hardware.High {
		rpio.Pin(pin).High()
	} else {
		rpio.Pin(pin).Low()
	}
}

// SetPwmMode takes effect with the next duty write
func (p *Port) SetPwmMode(mode hardware.PwmMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwmMode = mode
}

// SetPwmRange takes effect with the next duty write
func (p *Port) SetPwmRange(pwmRange uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwmRange = pwmRange
}

func (p *Port) SetPwmClockDivisor(divisor uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if divisor < 1 {
		divisor = 1
	}
	p.divisor = divisor
	pin := clockPin(p.pwmPins, p.lastPwmPin)
	rpio.Pin(pin).Freq(oscillatorFrequency / int(divisor))
}

func (p *Port) WritePwmDuty(pin hardware.Pin, duty uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rpio.Pin(pin).DutyCycleWithPwmMode(duty, p.pwmRange, rpioPwmMode(p.pwmMode))
}

func (p *Port) SetEdgeDetection(pin hardware.Pin, edge hardware.Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if watcher, ok := p.edges[pin]; ok {
		_ = watcher.line.Close()
		delete(p.edges, pin)
	}
	if edge == hardware.EdgeNone {
		return
	}

	events := make(chan struct{}, 1)
	line, err := gpiocdev.RequestLine(p.chip, int(pin),
		gpiocdev.WithConsumer(consumer),
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			select {
			case events <- struct{}{}:
			default:
				// an edge is already latched
			}
		}),
	)
	if err != nil {
		ui.Warning("Unable to enable edge detection on %s (%s): %v", pin, p.chip, err)
		return
	}
	p.edges[pin] = &edgeWatcher{line: line, events: events}
}

func (p *Port) WaitForEdge(pin hardware.Pin, timeout time.Duration) (hardware.WaitResult, error) {
	p.mu.Lock()
	watcher, ok := p.edges[pin]
	p.mu.Unlock()
	if !ok {
		return hardware.WaitResult{}, fmt.Errorf("edge detection is not enabled on %s", pin)
	}

	start := time.Now()
	if timeout <= 0 {
		select {
		case <-watcher.events:
			return hardware.WaitResult{Outcome: hardware.EdgeDetected, Elapsed: time.Since(start)}, nil
		default:
			return hardware.WaitResult{Outcome: hardware.TimedOut}, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-watcher.events:
		return hardware.WaitResult{Outcome: hardware.EdgeDetected, Elapsed: time.Since(start)}, nil
	case <-timer.C:
		return hardware.WaitResult{Outcome: hardware.TimedOut, Elapsed: time.Since(start)}, nil
	}
}
