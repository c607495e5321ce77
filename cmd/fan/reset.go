package fan

import (
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset all data associated with a given fan",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadFanConfig(fanId); err != nil {
			return err
		}

		p, err := openPersistence()
		if err != nil {
			return err
		}
		err = p.DeleteFanCurve(fanId)
		if err != nil {
			return err
		}
		err = p.DeleteFanState(fanId)

		if err == nil {
			ui.Success("Done!")
		}

		return err
	},
}

func init() {
	Command.AddCommand(resetCmd)
}
