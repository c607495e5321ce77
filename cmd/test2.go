package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/markusressel/fanspeedctl/internal"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/spf13/cobra"
)

var test2Cmd = &cobra.Command{
	Use:   "test2 <percent>",
	Short: "Set the speed of the test bench fan and measure its RPM",
	Long: `Ramps the test bench fan (wiringPi 26/27, 900-1900 RPM) to the given speed,
prints the measured RPM and resets the fan once enter is pressed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		percent, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid speed %q: %w", args[0], err)
		}

		config := diagnosticsConfig()
		port, closePort, err := internal.OpenPort(config)
		if err != nil {
			return err
		}
		defer closePort()

		fanList, err := internal.InitializeObjects(port, config)
		if err != nil {
			return err
		}
		fan := fanList[0]
		defer fan.Close()

		return runTest2(fan, percent, cmd.OutOrStdout(), cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(test2Cmd)
}

func runTest2(fan *fans.Fan, percent int, out io.Writer, in io.Reader) error {
	if err := fan.SetSpeed(percent); err != nil {
		return err
	}
	rpm, err := fan.GetRpm()
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Result RPM: %d\n", rpm)

	// the fan keeps running until enter is pressed
	_, _ = bufio.NewReader(in).ReadString('\n')
	return nil
}
