package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/markusressel/fanspeedctl/internal"
	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/tachometer"
	"github.com/spf13/cobra"
)

const (
	test1Iterations = 250
	test1Duty       = 25
	test1Range      = 100
	test1Divisor    = 100
)

var test1Cmd = &cobra.Command{
	Use:   "test1",
	Short: "Print the raw time between tachometer edges of the test bench fan",
	Long: `Drives the test bench fan (wiringPi 26/27) at a fixed duty of 25%
and prints the time between two tachometer edges 250 times.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := diagnosticsConfig()
		port, closePort, err := internal.OpenPort(config)
		if err != nil {
			return err
		}
		defer closePort()

		pwmPin, err := hardware.ToBcm(hardware.NumberingWiringPi, diagnosticsPwmPin)
		if err != nil {
			return err
		}
		tachPin, err := hardware.ToBcm(hardware.NumberingWiringPi, diagnosticsTachPin)
		if err != nil {
			return err
		}

		return runTest1(port, pwmPin, tachPin, test1Iterations, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(test1Cmd)
}

func runTest1(port hardware.Port, pwmPin hardware.Pin, tachPin hardware.Pin, iterations int, out io.Writer) error {
	port.SetEdgeDetection(tachPin, hardware.EdgeBoth)
	port.SetPullResistor(tachPin, hardware.PullUp)

	port.SetPinMode(pwmPin, hardware.PinModePwmOutput)
	port.SetPwmRange(test1Range)
	port.SetPwmClockDivisor(test1Divisor)
	port.WritePwmDuty(pwmPin, test1Duty)

	if _, err := waitForEdge(port, tachPin); err != nil {
		return err
	}

	for i := 1; i <= iterations; i++ {
		var elapsed time.Duration
		// every third interval is printed
		for j := 0; j < 3; j++ {
			result, err := waitForEdge(port, tachPin)
			if err != nil {
				return err
			}
			elapsed = result.Elapsed
		}
		_, _ = fmt.Fprintf(out, "%d. %d\n", i, elapsed.Microseconds())
	}
	return nil
}

func waitForEdge(port hardware.Port, pin hardware.Pin) (hardware.WaitResult, error) {
	result, err := port.WaitForEdge(pin, tachometer.DefaultTimeout)
	if err != nil {
		return result, &tachometer.HardwareWaitError{Pin: pin, Err: err}
	}
	if result.Outcome == hardware.TimedOut {
		return result, fmt.Errorf("no edge on %s within %v", pin, tachometer.DefaultTimeout)
	}
	return result, nil
}
