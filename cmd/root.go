package cmd

import (
	"fmt"
	"os"

	"github.com/markusressel/fanspeedctl/cmd/config"
	"github.com/markusressel/fanspeedctl/cmd/fan"
	"github.com/markusressel/fanspeedctl/cmd/global"
	"github.com/markusressel/fanspeedctl/internal"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fanspeedctl",
	Short: "A daemon to control 4-wire PC fans attached to a Raspberry Pi.",
	Long: `fanspeedctl drives the PWM input of 4-wire PC fans
and measures their speed using the tachometer signal.`,
	// this is the default command to run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		printHeader()

		configuration.ReadConfigFile()
		err := configuration.Validate()
		if err != nil {
			ui.ErrorAndNotify("Config Validation Error", "%v", err)
			return
		}

		internal.RunDaemon()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&global.CfgFile, "config", "c", "", "config file (default is $HOME/fanspeedctl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&global.NoColor, "no-color", "", false, "Disable all terminal output coloration")
	rootCmd.PersistentFlags().BoolVarP(&global.NoStyle, "no-style", "", false, "Disable all terminal output styling")
	rootCmd.PersistentFlags().BoolVarP(&global.Verbose, "verbose", "v", false, "More verbose output")
	rootCmd.PersistentFlags().BoolVarP(&global.Simulate, "simulate", "", false, "Use simulated fans instead of the GPIO")
	// the flag overrides the "simulate" value of the config file when set
	_ = viper.BindPFlag("simulate", rootCmd.PersistentFlags().Lookup("simulate"))

	rootCmd.AddCommand(config.Command)
	rootCmd.AddCommand(fan.Command)
}

func setupUi() {
	ui.SetDebugEnabled(global.Verbose)

	if global.NoColor {
		pterm.DisableColor()
	}
	if global.NoStyle {
		pterm.DisableStyling()
	}
}

// Print a large text with the LetterStyle from the standard theme.
func printHeader() {
	err := pterm.DefaultBigText.WithLetters(
		pterm.NewLettersFromStringWithStyle("fan", pterm.NewStyle(pterm.FgLightBlue)),
		pterm.NewLettersFromStringWithStyle("speed", pterm.NewStyle(pterm.FgWhite)),
		pterm.NewLettersFromStringWithStyle("ctl", pterm.NewStyle(pterm.FgLightBlue)),
	).Render()
	if err != nil {
		fmt.Println("fanspeedctl")
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.OnInitialize(func() {
		setupUi()
		configuration.InitConfig(global.CfgFile)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
