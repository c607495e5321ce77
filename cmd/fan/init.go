package fan

import (
	"github.com/markusressel/fanspeedctl/cmd/global"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/controller"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Runs the initialization sequence for a fan",
	Long:  `Measures the RPM of the fan for every duty step and stores the resulting curve. The fan is reset afterwards.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fan, closePort, err := getFan(fanId, usePwm|useTach)
		if err != nil {
			return err
		}
		defer closePort()
		defer fan.Close()

		p, err := openPersistence()
		if err != nil {
			return err
		}

		ui.Info("Deleting existing data for fan '%s'...", fan.GetId())
		if err = p.DeleteFanCurve(fan.GetId()); err != nil {
			return err
		}

		characterization := controller.NewCharacterization(
			p,
			controller.WithStepSize(configuration.CurrentConfig.InitializationStepSize),
			controller.WithMaxRpmDiff(configuration.CurrentConfig.MaxRpmDiffForSettledFan),
		)
		curve, err := characterization.RunInitializationSequence(fan)
		if err != nil {
			return err
		}

		ui.Success("Done!")
		return printCurve(cmd.OutOrStdout(), fan.GetId(), fan.GetSpecification(), curve, !global.NoColor)
	},
}

func init() {
	Command.AddCommand(initCmd)
}
