// Package hardwaretest provides a recording hardware.Port for tests.
package hardwaretest

import (
	"sync"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
)

const (
	OpSetPinMode         = "pinMode"
	OpSetPullResistor    = "pull"
	OpWriteDigital       = "digitalWrite"
	OpSetPwmMode         = "pwmMode"
	OpSetPwmRange        = "pwmRange"
	OpSetPwmClockDivisor = "pwmClock"
	OpWritePwmDuty       = "pwmWrite"
	OpSetEdgeDetection   = "edgeDetection"
	OpWaitForEdge        = "waitForEdge"
)

// Call is a single recorded call on the Port
type Call struct {
	Op  string
	Pin hardware.Pin
	// Value holds the mode, level, range, divisor or duty depending on Op
	Value int64
}

// Port records every call and answers WaitForEdge from a script.
//
// Blocking waits (timeout > 0) consume Waits in order. Once the script is exhausted,
// WaitErr is returned if set, otherwise the wait times out.
// Non-blocking waits (timeout == 0) consume one of the Pending stale edges.
type Port struct {
	mu sync.Mutex

	Calls []Call

	Pending int
	Waits   []hardware.WaitResult
	WaitErr error
}

func NewPort() *Port {
	return &Port{}
}

// Period returns a WaitResult describing an edge after the given time
func Period(d time.Duration) hardware.WaitResult {
	return hardware.WaitResult{Outcome: hardware.EdgeDetected, Elapsed: d}
}

// PeriodForRpm returns the time between two tachometer edges of a fan rotating with the given rpm
func PeriodForRpm(rpm int64) time.Duration {
	return time.Duration(60_000_000/(rpm*4)) * time.Microsecond
}

func (p *Port) record(op string, pin hardware.Pin, value int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, Call{Op: op, Pin: pin, Value: value})
}

func (p *Port) SetPinMode(pin hardware.Pin, mode hardware.PinMode) {
	p.record(OpSetPinMode, pin, int64(mode))
}

func (p *Port) SetPullResistor(pin hardware.Pin, pull hardware.Pull) {
	p.record(OpSetPullResistor, pin, int64(pull))
}

func (p *Port) WriteDigital(pin hardware.Pin, level hardware.Level) {
	p.record(OpWriteDigital, pin, int64(level))
}

func (p *Port) SetPwmMode(mode hardware.PwmMode) {
	p.record(OpSetPwmMode, -1, int64(mode))
}

func (p *Port) SetPwmRange(pwmRange uint32) {
	p.record(OpSetPwmRange, -1, int64(pwmRange))
}

func (p *Port) SetPwmClockDivisor(divisor uint32) {
	p.record(OpSetPwmClockDivisor, -1, int64(divisor))
}

func (p *Port) WritePwmDuty(pin hardware.Pin, duty uint32) {
	p.record(OpWritePwmDuty, pin, int64(duty))
}

func (p *Port) SetEdgeDetection(pin hardware.Pin, edge hardware.Edge) {
	p.record(OpSetEdgeDetection, pin, int64(edge))
}

func (p *Port) WaitForEdge(pin hardware.Pin, timeout time.Duration) (hardware.WaitResult, error) {
	p.record(OpWaitForEdge, pin, int64(timeout))

	p.mu.Lock()
	defer p.mu.Unlock()

	if timeout <= 0 {
		if p.Pending > 0 {
			p.Pending--
			return Period(0), nil
		}
		return hardware.WaitResult{Outcome: hardware.TimedOut}, nil
	}

	if len(p.Waits) > 0 {
		result := p.Waits[0]
		p.Waits = p.Waits[1:]
		return result, nil
	}
	if p.WaitErr != nil {
		return hardware.WaitResult{}, p.WaitErr
	}
	return hardware.WaitResult{Outcome: hardware.TimedOut, Elapsed: timeout}, nil
}

// Reset forgets all recorded calls
func (p *Port) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}

// CallsOf returns all recorded calls of the given operation
func (p *Port) CallsOf(op string) []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	var result []Call
	for _, call := range p.Calls {
		if call.Op == op {
			result = append(result, call)
		}
	}
	return result
}

// Values returns the values of all recorded calls of the given operation
func (p *Port) Values(op string) []int64 {
	var result []int64
	for _, call := range p.CallsOf(op) {
		result = append(result, call.Value)
	}
	return result
}

// Count returns how often the given operation was called
func (p *Port) Count(op string) int {
	return len(p.CallsOf(op))
}
