package cmd

import (
	"github.com/markusressel/fanspeedctl/cmd/global"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/hardware"
)

// fixed wiring of the test bench, in wiringPi numbering
const (
	diagnosticsPwmPin  = 26
	diagnosticsTachPin = 27

	diagnosticsFanId = "test"
)

// diagnosticsConfig describes the test bench fan, the diagnostic commands do not read a config file
func diagnosticsConfig() configuration.Configuration {
	return configuration.Configuration{
		PinNumbering: string(hardware.NumberingWiringPi),
		Simulate:     global.Simulate,
		Fans: []configuration.FanConfig{
			{
				ID:      diagnosticsFanId,
				PwmPin:  &configuration.PinRef{Number: diagnosticsPwmPin},
				TachPin: &configuration.PinRef{Number: diagnosticsTachPin},
				MinRpm:  900,
				MaxRpm:  1900,
			},
		},
	}
}
