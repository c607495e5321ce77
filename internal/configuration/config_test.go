package configuration

import (
	"strings"
	"testing"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYaml(t *testing.T, content string) Configuration {
	viper.Reset()
	setDefaultValues()
	viper.SetConfigType("yaml")
	require.NoError(t, viper.ReadConfig(strings.NewReader(content)))
	require.NoError(t, LoadConfig())
	return CurrentConfig
}

func TestLoadConfig_Defaults(t *testing.T) {
	// WHEN
	config := loadYaml(t, "fans: []\n")

	// THEN
	assert.Equal(t, "/etc/fanspeedctl/fanspeedctl.db", config.DbPath)
	assert.Equal(t, "wiringpi", config.PinNumbering)
	assert.Equal(t, 12*time.Second, config.RampStepDuration)
	assert.Equal(t, 20, config.Tachometer.Samples)
	assert.Equal(t, time.Minute, config.Tachometer.Timeout)
	assert.Equal(t, 375*time.Microsecond, config.Tachometer.Debounce)
	assert.Equal(t, 10, config.Monitor.RollingWindowSize)
	assert.Equal(t, 10, config.InitializationStepSize)
	assert.False(t, config.Api.Enabled)
	assert.Equal(t, "fanspeedctl", config.Mqtt.TopicPrefix)
	assert.NoError(t, validateConfig(&config))
}

func TestLoadConfig_Fans(t *testing.T) {
	// GIVEN
	content := `
pinNumbering: bcm
rampStepDuration: 20s
tachometer:
  samples: 5
  timeout: 10s
fans:
  - id: case
    pwmPin: 18
    tachPin: "wpi:27"
    minRpm: 900
    maxRpm: 1900
  - id: cpu
    tachPin: "phys:38"
`

	// WHEN
	config := loadYaml(t, content)

	// THEN
	assert.Equal(t, 20*time.Second, config.RampStepDuration)
	assert.Equal(t, 5, config.Tachometer.Samples)
	assert.Equal(t, 10*time.Second, config.Tachometer.Timeout)
	assert.Len(t, config.Fans, 2)

	caseFan := config.Fans[0]
	assert.Equal(t, "case", caseFan.ID)
	assert.Equal(t, &PinRef{Number: 18}, caseFan.PwmPin)
	assert.Equal(t, &PinRef{Numbering: hardware.NumberingWiringPi, Number: 27}, caseFan.TachPin)
	assert.Equal(t, int64(900), caseFan.MinRpm)
	assert.Equal(t, int64(1900), caseFan.MaxRpm)

	cpuFan, ok := FindFanConfig("cpu")
	assert.True(t, ok)
	assert.Nil(t, cpuFan.PwmPin)

	pwmPin, tachPin, err := caseFan.ResolvePins(hardware.NumberingBcm)
	assert.NoError(t, err)
	assert.Equal(t, hardware.Pin(18), *pwmPin)
	assert.Equal(t, hardware.Pin(16), *tachPin)

	assert.NoError(t, validateConfig(&config))
}

func TestFindFanConfig_Unknown(t *testing.T) {
	loadYaml(t, "fans: []\n")
	_, ok := FindFanConfig("nope")
	assert.False(t, ok)
}
