// Package tachometer measures the speed of a fan by timing the edges of its tachometer signal.
//
// The tachometer of a PC fan produces two pulses per revolution. Both edges of
// each pulse are latched, which results in four edges per revolution.
package tachometer

import (
	"fmt"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ui"
)

const (
	DefaultSamples = 20
	// DefaultTimeout is the time after which a fan without any edge is considered stalled
	DefaultTimeout = 1 * time.Minute
	// DefaultDebounce is the minimum time between two edges, shorter intervals are electrical noise
	DefaultDebounce = 375 * time.Microsecond

	EdgesPerRevolution = 4

	// number of already latched edges dropped before measuring
	staleEdges = 2
)

// HardwareWaitError is returned when the edge-wait primitive of the hardware fails
type HardwareWaitError struct {
	Pin hardware.Pin
	Err error
}

func (e *HardwareWaitError) Error() string {
	return fmt.Sprintf("error while waiting for an edge on %s: %v", e.Pin, e.Err)
}

func (e *HardwareWaitError) Unwrap() error {
	return e.Err
}

type Sampler struct {
	port     hardware.Port
	pin      hardware.Pin
	samples  int
	timeout  time.Duration
	debounce time.Duration
	listener func(rpm int64)
}

type Option func(s *Sampler)

// WithSamples sets the number of single measurements averaged by Average
func WithSamples(samples int) Option {
	return func(s *Sampler) {
		if samples > 0 {
			s.samples = samples
		}
	}
}

// WithTimeout sets the time after which a missing edge counts as a stalled fan
func WithTimeout(timeout time.Duration) Option {
	return func(s *Sampler) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithDebounce sets the minimum accepted time between two edges
func WithDebounce(debounce time.Duration) Option {
	return func(s *Sampler) {
		if debounce > 0 {
			s.debounce = debounce
		}
	}
}

// WithSampleListener registers a function that is called with each single measurement
func WithSampleListener(listener func(rpm int64)) Option {
	return func(s *Sampler) {
		s.listener = listener
	}
}

func NewSampler(port hardware.Port, pin hardware.Pin, opts ...Option) *Sampler {
	s := &Sampler{
		port:     port,
		pin:      pin,
		samples:  DefaultSamples,
		timeout:  DefaultTimeout,
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RpmFromPeriod converts the time between two tachometer edges into RPM
func RpmFromPeriod(period time.Duration) int64 {
	micros := period.Microseconds()
	if micros <= 0 {
		return 0
	}
	return time.Minute.Microseconds() / (micros * EdgesPerRevolution)
}

// Average takes the configured number of single measurements and returns their
// mean, truncated to an integer. Stalled samples count as 0 RPM.
func (s *Sampler) Average() (int64, error) {
	var total int64
	for i := 0; i < s.samples; i++ {
		rpm, err := s.Measure()
		if err != nil {
			return 0, err
		}
		ui.Debug("RPM now: %d", rpm)
		if s.listener != nil {
			s.listener(rpm)
		}
		total += rpm
	}
	return total / int64(s.samples), nil
}

// Measure takes a single measurement. A fan that produces no edge within the timeout
// is stalled and results in 0 RPM, not in an error.
func (s *Sampler) Measure() (int64, error) {
	for i := 0; i < staleEdges; i++ {
		result, err := s.wait(0)
		if err != nil {
			return 0, err
		}
		if result.Outcome == hardware.TimedOut {
			break
		}
	}

	// start timing right after an edge, so the next wait spans one full interval
	result, err := s.wait(s.timeout)
	if err != nil {
		return 0, err
	}
	if result.Outcome == hardware.TimedOut {
		return 0, nil
	}

	for {
		result, err = s.wait(s.timeout)
		if err != nil {
			return 0, err
		}
		if result.Outcome == hardware.TimedOut {
			return 0, nil
		}
		if result.Elapsed >= s.debounce {
			break
		}
		ui.Debug("Ignoring edge on %s after only %v", s.pin, result.Elapsed)
	}

	return RpmFromPeriod(result.Elapsed), nil
}

func (s *Sampler) wait(timeout time.Duration) (hardware.WaitResult, error) {
	result, err := s.port.WaitForEdge(s.pin, timeout)
	if err != nil {
		return result, &HardwareWaitError{Pin: s.pin, Err: err}
	}
	return result, nil
}
