package configuration

import (
	"fmt"

	"github.com/markusressel/fanspeedctl/internal/hardware"
)

type FanConfig struct {
	ID      string  `json:"id"`
	PwmPin  *PinRef `json:"pwmPin,omitempty"`
	TachPin *PinRef `json:"tachPin,omitempty"`
	MinRpm  int64   `json:"minRpm"`
	MaxRpm  int64   `json:"maxRpm"`
}

// FindFanConfig returns the configuration of the fan with the given id
func FindFanConfig(id string) (FanConfig, bool) {
	for _, fanConfig := range CurrentConfig.Fans {
		if fanConfig.ID == id {
			return fanConfig, true
		}
	}
	return FanConfig{}, false
}

// ResolvePins returns the BCM pins of this fan, nil for pins that are not configured
func (c FanConfig) ResolvePins(numbering hardware.Numbering) (pwmPin *hardware.Pin, tachPin *hardware.Pin, err error) {
	if c.PwmPin != nil {
		pin, err := c.PwmPin.Resolve(numbering)
		if err != nil {
			return nil, nil, fmt.Errorf("pwmPin: %w", err)
		}
		pwmPin = &pin
	}
	if c.TachPin != nil {
		pin, err := c.TachPin.Resolve(numbering)
		if err != nil {
			return nil, nil, fmt.Errorf("tachPin: %w", err)
		}
		tachPin = &pin
	}
	return pwmPin, tachPin, nil
}
