// Package sim implements a hardware.Port backed by simulated fans,
// which allows running every command on machines without GPIO access.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
)

const (
	// DefaultStallDelay is how long a wait blocks before reporting a timeout for a stalled fan
	DefaultStallDelay = 1 * time.Second

	edgesPerRevolution = 4
)

// Fan is a simulated fan, its RPM scales linearly with the duty cycle
type Fan struct {
	PwmPin  hardware.Pin
	TachPin hardware.Pin
	MinRpm  int64
	MaxRpm  int64
	// GlitchEvery inserts a short bounce edge before every n-th regular edge, 0 disables glitches
	GlitchEvery int
}

type fanState struct {
	Fan
	duty        uint32
	edgeEnabled bool
	edgeCount   int
}

type Port struct {
	mu         sync.Mutex
	pwmRange   uint32
	divisor    uint32
	fans       []*fanState
	stallDelay time.Duration
	sleep      func(d time.Duration)
}

type Option func(p *Port)

// WithStallDelay limits the time a wait blocks for a fan that does not rotate
func WithStallDelay(d time.Duration) Option {
	return func(p *Port) {
		p.stallDelay = d
	}
}

// WithSleep replaces the function used to pass time
func WithSleep(sleep func(d time.Duration)) Option {
	return func(p *Port) {
		p.sleep = sleep
	}
}

func New(fans []Fan, opts ...Option) *Port {
	p := &Port{
		pwmRange:   hardware.DefaultPwmRange,
		divisor:    hardware.DefaultPwmClockDivisor,
		stallDelay: DefaultStallDelay,
		sleep:      time.Sleep,
	}
	for _, fan := range fans {
		p.fans = append(p.fans, &fanState{Fan: fan})
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rpm returns the current simulated speed of the fan connected to the given tachometer pin
func (p *Port) Rpm(tachPin hardware.Pin) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fan := range p.fans {
		if fan.TachPin == tachPin {
			return p.rpm(fan)
		}
	}
	return 0
}

// ClockDivisor returns the last clock divisor written
func (p *Port) ClockDivisor() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.divisor
}

func (p *Port) rpm(fan *fanState) int64 {
	if fan.duty == 0 || p.pwmRange == 0 {
		return 0
	}
	percent := int64(fan.duty) * 100 / int64(p.pwmRange)
	if percent > 100 {
		percent = 100
	}
	return fan.MinRpm + (fan.MaxRpm-fan.MinRpm)*percent/100
}

func (p *Port) SetPinMode(pin hardware.Pin, mode hardware.PinMode) {
	if mode == hardware.PinModePwmOutput {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fan := range p.fans {
		if fan.PwmPin == pin {
			fan.duty = 0
		}
	}
}

func (p *Port) SetPullResistor(pin hardware.Pin, pull hardware.Pull) {}

func (p *Port) WriteDigital(pin hardware.Pin, level hardware.Level) {}

func (p *Port) SetPwmMode(mode hardware.PwmMode) {}

func (p *Port) SetPwmRange(pwmRange uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pwmRange = pwmRange
}

func (p *Port) SetPwmClockDivisor(divisor uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.divisor = divisor
}

func (p *Port) WritePwmDuty(pin hardware.Pin, duty uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fan := range p.fans {
		if fan.PwmPin == pin {
			fan.duty = duty
		}
	}
}

func (p *Port) SetEdgeDetection(pin hardware.Pin, edge hardware.Edge) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fan := range p.fans {
		if fan.TachPin == pin {
			fan.edgeEnabled = edge != hardware.EdgeNone
		}
	}
}

func (p *Port) WaitForEdge(pin hardware.Pin, timeout time.Duration) (hardware.WaitResult, error) {
	p.mu.Lock()
	var fan *fanState
	for _, f := range p.fans {
		if f.TachPin == pin {
			fan = f
		}
	}
	if fan == nil || !fan.edgeEnabled {
		p.mu.Unlock()
		return hardware.WaitResult{}, fmt.Errorf("edge detection is not enabled on %s", pin)
	}
	rpm := p.rpm(fan)
	fan.edgeCount++
	glitch := fan.GlitchEvery > 0 && fan.edgeCount%fan.GlitchEvery == 0
	p.mu.Unlock()

	if timeout <= 0 {
		// edges are generated on demand, nothing is ever latched
		return hardware.WaitResult{Outcome: hardware.TimedOut}, nil
	}

	if rpm <= 0 {
		delay := min(timeout, p.stallDelay)
		p.sleep(delay)
		return hardware.WaitResult{Outcome: hardware.TimedOut, Elapsed: delay}, nil
	}

	period := time.Duration(60_000_000/(rpm*edgesPerRevolution)) * time.Microsecond
	if glitch {
		period = 50 * time.Microsecond
	}
	if period > timeout {
		p.sleep(timeout)
		return hardware.WaitResult{Outcome: hardware.TimedOut, Elapsed: timeout}, nil
	}
	p.sleep(period)
	return hardware.WaitResult{Outcome: hardware.EdgeDetected, Elapsed: period}, nil
}
