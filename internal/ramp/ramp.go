// Package ramp changes the duty cycle of a PWM pin in small steps, while moving the
// PWM clock divisor along with it, so that neither loudness nor pitch of the fan jump.
package ramp

import (
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ui"
)

const (
	// MinStepDuration is the shortest time a full 0..100% ramp may take
	MinStepDuration = 12 * time.Second
	// SubSteps is the number of sub-steps the step duration is divided into, one per percent
	SubSteps = 100

	// MaxClockDivisor is reached at 50% duty (~24kHz PWM frequency)
	MaxClockDivisor = 400
	// MinClockDivisor is the smallest divisor the PWM clock manager accepts
	MinClockDivisor = 2

	PwmRange = 100

	midpoint = 50
)

// State is the PWM state after a ramp
type State struct {
	Duty         int
	ClockDivisor uint32
}

type Engine struct {
	port         hardware.Port
	stepDuration time.Duration
	sleep        func(d time.Duration)
}

type Option func(e *Engine)

// WithStepDuration sets the duration of a full 0..100% ramp, values below MinStepDuration are raised to it
func WithStepDuration(d time.Duration) Option {
	return func(e *Engine) {
		e.stepDuration = d
	}
}

// WithSleep replaces the function used to wait between two sub-steps
func WithSleep(sleep func(d time.Duration)) Option {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

func NewEngine(port hardware.Port, opts ...Option) *Engine {
	e := &Engine{
		port:         port,
		stepDuration: MinStepDuration,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stepDuration < MinStepDuration {
		e.stepDuration = MinStepDuration
	}
	return e
}

func (e *Engine) StepDuration() time.Duration {
	return e.stepDuration
}

// SubStepDelay is the time waited after each one-percent step
func (e *Engine) SubStepDelay() time.Duration {
	return e.stepDuration / SubSteps
}

// ClockDivisor returns the divisor used at the given duty. It rises linearly
// up to MaxClockDivisor at 50% and falls back down towards 100%.
func ClockDivisor(duty int) uint32 {
	step := MaxClockDivisor / midpoint
	if duty > midpoint {
		return clampDivisor((100 - duty) * step)
	}
	return clampDivisor(duty * step)
}

func clampDivisor(divisor int) uint32 {
	if divisor < MinClockDivisor {
		return MinClockDivisor
	}
	return uint32(divisor)
}

// Ramp moves the duty of the given pin from "from" to "to" (both in [0..100]), one percent per sub-step.
// Each sub-step writes the clock divisor and the duty, followed by SubStepDelay.
// The call blocks until "to" has been written and cannot be interrupted.
// If from equals to, nothing is written.
func (e *Engine) Ramp(pin hardware.Pin, from int, to int) State {
	if from == to {
		return State{Duty: to, ClockDivisor: ClockDivisor(to)}
	}

	divisorStep := MaxClockDivisor / midpoint
	dutyStep := 1
	if to < from {
		divisorStep = -divisorStep
		dutyStep = -1
	}

	// the divisor falls again above the midpoint
	divisor := from * abs(divisorStep)
	if from > midpoint || (from == midpoint && dutyStep > 0) {
		divisor -= (from - midpoint) * abs(divisorStep) * 2
		divisorStep = -divisorStep
	}

	delay := e.SubStepDelay()
	ui.Debug("Ramping %s from %d%% to %d%% (%v per step)", pin, from, to, delay)

	duty := from
	for duty != to {
		duty += dutyStep
		divisor += divisorStep

		e.port.SetPwmClockDivisor(clampDivisor(divisor))
		e.port.WritePwmDuty(pin, uint32(duty))

		if duty == midpoint {
			divisorStep = -divisorStep
		}
		e.sleep(delay)
	}

	return State{Duty: to, ClockDivisor: clampDivisor(divisor)}
}

// Settle writes a single step to bring a pin of unknown state to the given duty
func (e *Engine) Settle(pin hardware.Pin, duty int) State {
	divisor := ClockDivisor(duty)
	e.port.SetPwmClockDivisor(divisor)
	e.port.WritePwmDuty(pin, uint32(duty))
	return State{Duty: duty, ClockDivisor: divisor}
}

func abs(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
