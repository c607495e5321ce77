package configuration

import (
	"fmt"
	"os"
	"time"

	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Configuration struct {
	DbPath string `json:"dbPath"`

	// PinNumbering is used for pin references without an explicit scheme
	PinNumbering string `json:"pinNumbering"`
	Simulate     bool   `json:"simulate"`

	RampStepDuration time.Duration `json:"rampStepDuration"`

	// InitializationStepSize is the duty increment used when measuring the fan curve
	InitializationStepSize  int     `json:"initializationStepSize"`
	MaxRpmDiffForSettledFan float64 `json:"maxRpmDiffForSettledFan"`

	Tachometer TachometerConfig `json:"tachometer"`
	Monitor    MonitorConfig    `json:"monitor"`

	Fans []FanConfig `json:"fans"`

	Statistics StatisticsConfig `json:"statistics"`
	Api        ApiConfig        `json:"api"`
	Mqtt       MqttConfig       `json:"mqtt"`
	Profiling  ProfilingConfig  `json:"profiling"`
}

var CurrentConfig Configuration

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	viper.SetConfigName("fanspeedctl")

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			ui.Error("Couldn't detect home directory: %v", err)
			os.Exit(1)
		}

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.AddConfigPath("/etc/fanspeedctl/")
	}

	viper.SetEnvPrefix("FANSPEEDCTL")
	viper.AutomaticEnv() // read in environment variables that match

	setDefaultValues()
}

func setDefaultValues() {
	viper.SetDefault("dbpath", "/etc/fanspeedctl/fanspeedctl.db")
	viper.SetDefault("PinNumbering", "wiringpi")
	viper.SetDefault("Simulate", false)
	viper.SetDefault("RampStepDuration", 12*time.Second)
	viper.SetDefault("InitializationStepSize", 10)
	viper.SetDefault("MaxRpmDiffForSettledFan", 10.0)

	viper.SetDefault("tachometer.samples", 20)
	viper.SetDefault("tachometer.timeout", 1*time.Minute)
	viper.SetDefault("tachometer.debounce", 375*time.Microsecond)

	viper.SetDefault("monitor.pollingRate", 30*time.Second)
	viper.SetDefault("monitor.rollingWindowSize", 10)
	viper.SetDefault("monitor.statusDir", "")

	viper.SetDefault("statistics.enabled", false)
	viper.SetDefault("statistics.port", 9000)

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.host", "localhost")
	viper.SetDefault("api.port", 9001)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.clientId", "fanspeedctl")
	viper.SetDefault("mqtt.topicPrefix", "fanspeedctl")

	viper.SetDefault("profiling.enabled", false)
	viper.SetDefault("profiling.host", "localhost")
	viper.SetDefault("profiling.port", 6060)

	viper.SetDefault("fans", []FanConfig{})
}

func ReadConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		// config file is required, so we fail here
		ui.Fatal("Error reading config file, %s", err)
	}
	// this is only populated _after_ ReadInConfig()
	ui.Info("Using configuration file at: %s", viper.ConfigFileUsed())

	if err := LoadConfig(); err != nil {
		ui.Fatal("%v", err)
	}
}

// LoadConfig decodes the current viper state into CurrentConfig
func LoadConfig() error {
	err := viper.Unmarshal(&CurrentConfig, viper.DecodeHook(decodeHook()))
	if err != nil {
		return fmt.Errorf("unable to decode into struct, %v", err)
	}
	return nil
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		PinRefHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}
