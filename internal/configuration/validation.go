package configuration

import (
	"errors"
	"fmt"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/ramp"
	"github.com/markusressel/fanspeedctl/internal/registry"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"golang.org/x/exp/slices"
)

func Validate() error {
	return validateConfig(&CurrentConfig)
}

func validateConfig(config *Configuration) error {
	numbering, err := hardware.ParseNumbering(config.PinNumbering)
	if err != nil {
		return err
	}
	err = validateTimings(config)
	if err != nil {
		return err
	}
	err = validateFans(config, numbering)
	if err != nil {
		return err
	}
	return validateMqtt(config)
}

func validateTimings(config *Configuration) error {
	if config.RampStepDuration < 0 {
		return errors.New("rampStepDuration must not be negative")
	}
	if config.RampStepDuration > 0 && config.RampStepDuration < ramp.MinStepDuration {
		ui.Warning("rampStepDuration %v is below the minimum, %v will be used", config.RampStepDuration, ramp.MinStepDuration)
	}
	if config.InitializationStepSize < 1 || config.InitializationStepSize > 100 {
		return fmt.Errorf("initializationStepSize must be in range [1..100], got %d", config.InitializationStepSize)
	}
	if config.Tachometer.Samples < 1 {
		return fmt.Errorf("tachometer.samples must be >= 1, got %d", config.Tachometer.Samples)
	}
	if config.Tachometer.Timeout <= 0 {
		return errors.New("tachometer.timeout must be positive")
	}
	if config.Tachometer.Debounce <= 0 {
		return errors.New("tachometer.debounce must be positive")
	}
	if config.Monitor.PollingRate <= 0 {
		return errors.New("monitor.pollingRate must be positive")
	}
	if config.Monitor.RollingWindowSize < 1 {
		return fmt.Errorf("monitor.rollingWindowSize must be >= 1, got %d", config.Monitor.RollingWindowSize)
	}
	return nil
}

func validateFans(config *Configuration, numbering hardware.Numbering) error {
	var fanIds []string
	// dry run of the pin claims done at startup
	pins := registry.New()

	for idx, fanConfig := range config.Fans {
		if fanConfig.ID == "" {
			return fmt.Errorf("fan at index %d: id is missing", idx)
		}
		if slices.Contains(fanIds, fanConfig.ID) {
			return fmt.Errorf("duplicate fan id detected: %s", fanConfig.ID)
		}
		fanIds = append(fanIds, fanConfig.ID)

		if fanConfig.PwmPin == nil && fanConfig.TachPin == nil {
			return fmt.Errorf("fan %s: no pins configured, use at least one of: pwmPin | tachPin", fanConfig.ID)
		}
		if fanConfig.MinRpm < 0 || fanConfig.MaxRpm < 0 {
			return fmt.Errorf("fan %s: minRpm and maxRpm must not be negative", fanConfig.ID)
		}
		if fanConfig.MaxRpm > 0 && fanConfig.MinRpm > fanConfig.MaxRpm {
			return fmt.Errorf("fan %s: minRpm (%d) must not be greater than maxRpm (%d)", fanConfig.ID, fanConfig.MinRpm, fanConfig.MaxRpm)
		}

		pwmPin, tachPin, err := fanConfig.ResolvePins(numbering)
		if err != nil {
			return fmt.Errorf("fan %s: %w", fanConfig.ID, err)
		}
		if pwmPin != nil {
			if err := pins.ClaimPwm(fanConfig.ID, *pwmPin); err != nil {
				return fmt.Errorf("fan %s: %w", fanConfig.ID, err)
			}
		}
		if tachPin != nil {
			if err := pins.ClaimTach(fanConfig.ID, *tachPin); err != nil {
				return fmt.Errorf("fan %s: %w", fanConfig.ID, err)
			}
		}
	}

	return nil
}

func validateMqtt(config *Configuration) error {
	if !config.Mqtt.Enabled {
		return nil
	}
	if config.Mqtt.Broker == "" {
		return errors.New("mqtt: broker is missing")
	}
	if config.Mqtt.TopicPrefix == "" {
		return errors.New("mqtt: topicPrefix is missing")
	}
	return nil
}
