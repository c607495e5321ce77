package fans

import (
	"fmt"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ramp"
	"github.com/markusressel/fanspeedctl/internal/registry"
	"github.com/markusressel/fanspeedctl/internal/tachometer"
	"github.com/markusressel/fanspeedctl/internal/ui"
)

// PinBinding lists the pins a fan is connected to, either may be nil
type PinBinding struct {
	PwmPin  *hardware.Pin
	TachPin *hardware.Pin
}

// Bind is a shorthand for a PinBinding with both pins set
func Bind(pwmPin hardware.Pin, tachPin hardware.Pin) PinBinding {
	return PinBinding{PwmPin: &pwmPin, TachPin: &tachPin}
}

// Factory creates fans that share a hardware.Port and a pin registry
type Factory struct {
	port        hardware.Port
	registry    *registry.Registry
	ramp        *ramp.Engine
	samplerOpts []tachometer.Option
}

type FactoryOption func(f *Factory)

func WithRampOptions(opts ...ramp.Option) FactoryOption {
	return func(f *Factory) {
		f.ramp = ramp.NewEngine(f.port, opts...)
	}
}

func WithSamplerOptions(opts ...tachometer.Option) FactoryOption {
	return func(f *Factory) {
		f.samplerOpts = append(f.samplerOpts, opts...)
	}
}

func NewFactory(port hardware.Port, reg *registry.Registry, opts ...FactoryOption) *Factory {
	f := &Factory{
		port:     port,
		registry: reg,
		ramp:     ramp.NewEngine(port),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Factory) Registry() *registry.Registry {
	return f.registry
}

// NewFan claims the bound pins, initializes them and silently ramps the fan to 0%.
func (f *Factory) NewFan(id string, binding PinBinding, spec Specification) (*Fan, error) {
	if binding.PwmPin != nil {
		if err := f.registry.ClaimPwm(id, *binding.PwmPin); err != nil {
			return nil, fmt.Errorf("fan %s: %w", id, err)
		}
	}
	if binding.TachPin != nil {
		if err := f.registry.ClaimTach(id, *binding.TachPin); err != nil {
			if binding.PwmPin != nil {
				f.registry.Release(id, *binding.PwmPin)
			}
			return nil, fmt.Errorf("fan %s: %w", id, err)
		}
	}

	fan := newFan(id, spec, f.port, f.registry, f.ramp, binding, f.samplerOpts)

	if binding.TachPin != nil {
		pin := *binding.TachPin
		f.port.SetPinMode(pin, hardware.PinModeInput)
		f.port.SetPullResistor(pin, hardware.PullUp)
		f.port.SetEdgeDetection(pin, hardware.EdgeBoth)
	}
	if binding.PwmPin != nil {
		pin := *binding.PwmPin
		f.port.SetPinMode(pin, hardware.PinModePwmOutput)
		f.port.SetPwmMode(hardware.PwmModeBalanced)
		f.port.SetPwmRange(ramp.PwmRange)
		fan.state = f.ramp.Settle(pin, 0)
	}

	ui.Debug("Created fan %s (pwm: %v, tach: %v, %s)", id, pinString(binding.PwmPin), pinString(binding.TachPin), spec)
	return fan, nil
}

func pinString(pin *hardware.Pin) string {
	if pin == nil {
		return "-"
	}
	return pin.String()
}
