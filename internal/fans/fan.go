// Package fans controls 4-wire PC fans through a hardware.Port.
package fans

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ramp"
	"github.com/markusressel/fanspeedctl/internal/registry"
	"github.com/markusressel/fanspeedctl/internal/tachometer"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"golang.org/x/exp/slices"
)

// Fan owns a PWM pin and/or a tachometer pin.
// All operations block the caller and are serialized.
type Fan struct {
	mu sync.Mutex

	id          string
	spec        Specification
	port        hardware.Port
	registry    *registry.Registry
	ramp        *ramp.Engine
	sampler     *tachometer.Sampler
	samplerOpts []tachometer.Option

	state ramp.State

	// the fields below are read without holding mu, so snapshots never wait for a running ramp
	binding        atomic.Pointer[PinBinding]
	duty           atomic.Int64
	lastRpm        atomic.Int64
	rampCount      atomic.Int64
	stalledSamples atomic.Int64
	waitErrors     atomic.Int64
}

// Snapshot is a point in time view of a fan, safe to share
type Snapshot struct {
	Id             string `json:"id"`
	PwmPin         *int   `json:"pwmPin,omitempty"`
	TachPin        *int   `json:"tachPin,omitempty"`
	MinRpm         int64  `json:"minRpm"`
	MaxRpm         int64  `json:"maxRpm"`
	Speed          int    `json:"speed"`
	Rpm            int64  `json:"rpm"`
	RampCount      int64  `json:"rampCount"`
	StalledSamples int64  `json:"stalledSamples"`
	WaitErrors     int64  `json:"waitErrors"`
}

func (f *Fan) GetId() string {
	return f.id
}

func (f *Fan) GetSpecification() Specification {
	return f.spec
}

// GetPwmPin returns the bound PWM pin, if any
func (f *Fan) GetPwmPin() (hardware.Pin, bool) {
	binding := f.binding.Load()
	if binding.PwmPin == nil {
		return 0, false
	}
	return *binding.PwmPin, true
}

// GetTachPin returns the bound tachometer pin, if any
func (f *Fan) GetTachPin() (hardware.Pin, bool) {
	binding := f.binding.Load()
	if binding.TachPin == nil {
		return 0, false
	}
	return *binding.TachPin, true
}

// IsBound returns true if the fan still owns at least one pin
func (f *Fan) IsBound() bool {
	binding := f.binding.Load()
	return binding.PwmPin != nil || binding.TachPin != nil
}

// GetSpeed returns the last commanded duty in percent
func (f *Fan) GetSpeed() int {
	return int(f.duty.Load())
}

// GetLastRpm returns the result of the last successful GetRpm call
func (f *Fan) GetLastRpm() int64 {
	return f.lastRpm.Load()
}

// SetSpeed ramps the fan to the given duty in percent.
// Setting the current speed again does not touch the hardware.
func (f *Fan) SetSpeed(percent int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	pin, ok := f.GetPwmPin()
	if !ok {
		return &PreconditionError{FanId: f.id, Op: "set speed", Usage: string(registry.UsagePwm)}
	}
	if percent == f.state.Duty {
		return nil
	}
	if percent < MinSpeed || percent > MaxSpeed {
		return &RangeError{Value: percent}
	}

	ui.Debug("Setting speed of fan %s from %d%% to %d%%", f.id, f.state.Duty, percent)
	f.state = f.ramp.Ramp(pin, f.state.Duty, percent)
	f.duty.Store(int64(f.state.Duty))
	f.rampCount.Add(1)
	return nil
}

// GetRpm measures the current speed of the fan.
// A stalled or disconnected fan reports 0 RPM.
func (f *Fan) GetRpm() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.GetTachPin(); !ok {
		return 0, &PreconditionError{FanId: f.id, Op: "measure rpm", Usage: string(registry.UsageTach)}
	}

	rpm, err := f.sampler.Average()
	if err != nil {
		var waitErr *tachometer.HardwareWaitError
		if errors.As(err, &waitErr) {
			f.waitErrors.Add(1)
		}
		return 0, err
	}
	f.lastRpm.Store(rpm)
	return rpm, nil
}

// Close resets all bound pins to a safe idle state and releases them.
// Calling Close more than once, or on a transferred Fan, does nothing.
func (f *Fan) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pin, ok := f.GetTachPin(); ok {
		f.port.SetEdgeDetection(pin, hardware.EdgeNone)
		f.port.SetPullResistor(pin, hardware.PullOff)
		f.port.SetPinMode(pin, hardware.PinModeOutput)
		f.port.WriteDigital(pin, hardware.Low)
		f.registry.Release(f.id, pin)
	}

	if pin, ok := f.GetPwmPin(); ok {
		f.ramp.Ramp(pin, f.state.Duty, 0)
		f.port.SetPinMode(pin, hardware.PinModeOutput)
		f.port.WriteDigital(pin, hardware.Low)
		f.port.SetPwmMode(hardware.DefaultPwmMode)
		f.port.SetPwmRange(hardware.DefaultPwmRange)
		f.port.SetPwmClockDivisor(hardware.DefaultPwmClockDivisor)
		f.registry.Release(f.id, pin)
	}

	f.unbind()
	f.duty.Store(0)
}

// Transfer hands the pins of this fan over to a new Fan with the given id,
// without touching the hardware. This fan is unbound afterwards.
func (f *Fan) Transfer(id string) *Fan {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := newFan(id, f.spec, f.port, f.registry, f.ramp, *f.binding.Load(), f.samplerOpts)
	target.state = f.state
	target.duty.Store(int64(f.state.Duty))
	target.lastRpm.Store(f.lastRpm.Load())

	if f.IsBound() {
		f.registry.Transfer(f.id, id)
	}
	ui.Debug("Transferred pins of fan %s to %s", f.id, id)

	f.unbind()
	return target
}

func newFan(
	id string,
	spec Specification,
	port hardware.Port,
	reg *registry.Registry,
	engine *ramp.Engine,
	binding PinBinding,
	samplerOpts []tachometer.Option,
) *Fan {
	f := &Fan{
		id:          id,
		spec:        spec,
		port:        port,
		registry:    reg,
		ramp:        engine,
		samplerOpts: samplerOpts,
	}
	f.binding.Store(&binding)
	if binding.TachPin != nil {
		opts := append(slices.Clone(samplerOpts), tachometer.WithSampleListener(f.onSample))
		f.sampler = tachometer.NewSampler(port, *binding.TachPin, opts...)
	}
	return f
}

func (f *Fan) unbind() {
	f.binding.Store(&PinBinding{})
	f.sampler = nil
	f.state = ramp.State{}
}

// Snapshot returns the current statistics of this fan
func (f *Fan) Snapshot() Snapshot {
	snapshot := Snapshot{
		Id:             f.id,
		MinRpm:         f.spec.GetMinRpm(),
		MaxRpm:         f.spec.GetMaxRpm(),
		Speed:          f.GetSpeed(),
		Rpm:            f.GetLastRpm(),
		RampCount:      f.rampCount.Load(),
		StalledSamples: f.stalledSamples.Load(),
		WaitErrors:     f.waitErrors.Load(),
	}
	if pin, ok := f.GetPwmPin(); ok {
		value := int(pin)
		snapshot.PwmPin = &value
	}
	if pin, ok := f.GetTachPin(); ok {
		value := int(pin)
		snapshot.TachPin = &value
	}
	return snapshot
}

func (f *Fan) onSample(rpm int64) {
	if rpm == 0 {
		f.stalledSamples.Add(1)
	}
}
