package cmd

import (
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of fanspeedctl",
	Long:  `All software has versions. This is fanspeedctl's`,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
