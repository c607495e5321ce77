package fan

import (
	"fmt"

	"github.com/markusressel/fanspeedctl/internal"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/persistence"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/spf13/cobra"
)

var fanId string

var Command = &cobra.Command{
	Use:              "fan",
	Short:            "Fan related commands",
	Long:             ``,
	TraverseChildren: true,
}

func init() {
	Command.PersistentFlags().StringVarP(
		&fanId,
		"id", "i",
		"",
		"Fan ID as specified in the config",
	)
	_ = Command.MarkPersistentFlagRequired("id")
}

type pinUsage int

const (
	usePwm pinUsage = 1 << iota
	useTach
)

// loadFanConfig reads and validates the config file and returns the configuration of the given fan
func loadFanConfig(id string) (configuration.FanConfig, error) {
	configuration.ReadConfigFile()
	if err := configuration.Validate(); err != nil {
		return configuration.FanConfig{}, err
	}

	fanConfig, ok := configuration.FindFanConfig(id)
	if !ok {
		return configuration.FanConfig{}, fmt.Errorf("no fan with id found: %s", id)
	}
	return fanConfig, nil
}

// getFan creates the fan with the given id, bound only to the pins of the given usage.
// The returned function releases the hardware without resetting the fan.
func getFan(id string, usage pinUsage) (*fans.Fan, func(), error) {
	fanConfig, err := loadFanConfig(id)
	if err != nil {
		return nil, nil, err
	}
	if usage&usePwm == 0 {
		fanConfig.PwmPin = nil
	}
	if usage&useTach == 0 {
		fanConfig.TachPin = nil
	}

	config := configuration.CurrentConfig
	config.Fans = []configuration.FanConfig{fanConfig}

	port, closePort, err := internal.OpenPort(config)
	if err != nil {
		return nil, nil, err
	}
	fanList, err := internal.InitializeObjects(port, config)
	if err != nil {
		closePort()
		return nil, nil, err
	}
	return fanList[0], closePort, nil
}

func openPersistence() (persistence.Persistence, error) {
	dbPath := configuration.CurrentConfig.DbPath
	ui.Info("Using persistence at: %s", dbPath)

	p := persistence.NewPersistence(dbPath)
	if err := p.Init(); err != nil {
		return nil, err
	}
	return p, nil
}
