package fan

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var speedCmd = &cobra.Command{
	Use:   "speed",
	Short: "Get/Set the current speed setting of a fan to the given value ([0..100])",
	Long: `Without an argument, the last speed recorded by the daemon is printed.
With an argument, the fan is ramped from 0 to the given speed and keeps running after the command exits.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pterm.DisableOutput()

		if len(args) == 0 {
			if _, err := loadFanConfig(fanId); err != nil {
				return err
			}
			p, err := openPersistence()
			if err != nil {
				return err
			}
			state, err := p.LoadFanState(fanId)
			if err != nil {
				return fmt.Errorf("no recorded state for fan %s: %w", fanId, err)
			}
			fmt.Printf("%d", state.Speed)
			return nil
		}

		speed, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}

		fan, closePort, err := getFan(fanId, usePwm)
		if err != nil {
			return err
		}
		defer closePort()

		if err = fan.SetSpeed(speed); err != nil {
			return err
		}

		p, err := openPersistence()
		if err != nil {
			return err
		}
		state, _ := p.LoadFanState(fanId)
		state.Speed = fan.GetSpeed()
		state.UpdatedAt = time.Now()
		return p.SaveFanState(fanId, state)
	},
}

func init() {
	Command.AddCommand(speedCmd)
}
