package fan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/guptarohit/asciigraph"
	"github.com/markusressel/fanspeedctl/cmd/global"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/util"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the measured fan curve to console",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fanConfig, err := loadFanConfig(fanId)
		if err != nil {
			return err
		}
		spec, err := fans.NewSpecification(fanConfig.MinRpm, fanConfig.MaxRpm)
		if err != nil {
			return err
		}

		p, err := openPersistence()
		if err != nil {
			return err
		}
		curve, err := p.LoadFanCurve(fanId)
		if errors.Is(err, os.ErrNotExist) {
			curve = nil
		} else if err != nil {
			return err
		}

		return printCurve(cmd.OutOrStdout(), fanId, spec, curve, !global.NoColor)
	},
}

func init() {
	Command.AddCommand(curveCmd)
}

func printCurve(out io.Writer, id string, spec fans.Specification, curve map[int]int64, color bool) error {
	duties := util.SortedKeys(curve)

	startDuty := "-"
	var minRpm, maxRpm int64 = -1, -1
	for _, duty := range duties {
		rpm := curve[duty]
		if rpm > 0 && startDuty == "-" {
			startDuty = strconv.Itoa(duty) + "%"
		}
		if minRpm < 0 || rpm < minRpm {
			minRpm = rpm
		}
		if rpm > maxRpm {
			maxRpm = rpm
		}
	}

	// print table
	_, _ = fmt.Fprintln(out, id)
	tab := table.Table{
		Headers: []string{"", ""},
		Rows: [][]string{
			{"Specification", spec.String()},
			{"Start Duty", startDuty},
			{"Min RPM", rpmString(minRpm)},
			{"Max RPM", rpmString(maxRpm)},
		},
	}
	var buf bytes.Buffer
	err := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           color,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, buf.String())

	// print graph
	if len(duties) == 0 {
		_, _ = fmt.Fprintln(out, "No fan curve data yet...")
		return nil
	}

	values := make([]float64, 0, len(duties))
	for _, duty := range duties {
		values = append(values, float64(curve[duty]))
	}

	caption := "RPM / Duty"
	graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
	_, _ = fmt.Fprintln(out, graph)
	return nil
}

func rpmString(rpm int64) string {
	if rpm < 0 {
		return "-"
	}
	return strconv.FormatInt(rpm, 10)
}
