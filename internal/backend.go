package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/markusressel/fanspeedctl/internal/api"
	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/hardware/rpi"
	"github.com/markusressel/fanspeedctl/internal/hardware/sim"
	"github.com/markusressel/fanspeedctl/internal/mqtt"
	"github.com/markusressel/fanspeedctl/internal/persistence"
	"github.com/markusressel/fanspeedctl/internal/ramp"
	"github.com/markusressel/fanspeedctl/internal/registry"
	"github.com/markusressel/fanspeedctl/internal/statistics"
	"github.com/markusressel/fanspeedctl/internal/tachometer"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/oklog/run"
)

const shutdownTimeout = 5 * time.Second

func RunDaemon() {
	config := configuration.CurrentConfig
	if !config.Simulate && getProcessOwner() != "root" {
		ui.Fatal("Fan control requires root permissions to be able to access the GPIO registers, please run fanspeedctl as root")
	}

	pers := persistence.NewPersistence(config.DbPath)
	if err := pers.Init(); err != nil {
		ui.Fatal("Unable to initialize persistence: %v", err)
	}

	port, closePort, err := OpenPort(config)
	if err != nil {
		ui.Fatal("%v", err)
	}

	fanList, err := InitializeObjects(port, config)
	if err != nil {
		closePort()
		ui.Fatal("%v", err)
	}
	if len(fanList) == 0 {
		closePort()
		ui.Fatal("No valid fan configurations, exiting.")
	}
	statistics.Register(statistics.NewFanCollector(fanList))

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		if config.Statistics.Enabled {
			// === Prometheus Exporter
			statisticsPort := config.Statistics.Port
			if statisticsPort <= 0 || statisticsPort >= 65535 {
				statisticsPort = 9000
			}
			addWebserver(&g, "statistics", api.CreateMetricsService(), fmt.Sprintf(":%d", statisticsPort))
		}
	}
	{
		if config.Api.Enabled {
			// === REST api
			addr := fmt.Sprintf("%s:%d", config.Api.Host, config.Api.Port)
			addWebserver(&g, "api", api.CreateRestService(), addr)
		}
	}
	{
		if config.Profiling.Enabled {
			addr := fmt.Sprintf("%s:%d", config.Profiling.Host, config.Profiling.Port)
			addWebserver(&g, "profiling", api.CreateProfilingService(), addr)
		}
	}
	{
		if config.Mqtt.Enabled {
			// === MQTT bridge
			var bridgeFans []mqtt.Fan
			for _, fan := range fanList {
				bridgeFans = append(bridgeFans, fan)
			}

			g.Add(func() error {
				client, err := mqtt.Connect(config.Mqtt)
				if err != nil {
					return err
				}
				bridge := mqtt.NewBridge(client, config.Mqtt.TopicPrefix, bridgeFans)
				defer bridge.Close()
				ui.Info("Connected to mqtt broker %s", config.Mqtt.Broker)
				return bridge.Run(ctx, config.Monitor.PollingRate)
			}, func(err error) {
				if err != nil {
					ui.Warning("Error in mqtt bridge: %v", err)
				}
				cancel()
			})
		}
	}
	{
		// === fan monitoring
		for _, fan := range fanList {
			f := fan
			if _, ok := f.GetTachPin(); !ok {
				ui.Info("Fan %s has no tachometer, skipping monitor", f.GetId())
				continue
			}
			mon := NewFanMonitor(pers, f, config.Monitor)

			g.Add(func() error {
				err := mon.Run(ctx)
				ui.Info("Fan monitor for fan %s stopped.", f.GetId())
				return err
			}, func(err error) {
				if err != nil {
					ui.Warning("Error monitoring fan: %v", err)
				}
				cancel()
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

		g.Add(func() error {
			select {
			case <-sig:
				ui.Info("Received SIGTERM signal, exiting...")
			case <-ctx.Done():
			}
			return nil
		}, func(err error) {
			signal.Stop(sig)
			cancel()
		})
	}

	err = g.Run()

	ui.Info("Resetting fans...")
	for _, fan := range fanList {
		fan.Close()
		fans.FanMap.Remove(fan.GetId())
	}
	closePort()

	if err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	} else {
		ui.Info("Done.")
		os.Exit(0)
	}
}

func addWebserver(g *run.Group, name string, server *echo.Echo, addr string) {
	g.Add(func() error {
		ui.Info("Starting %s server on %s", name, addr)
		err := server.Start(addr)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot start %s server: %w", name, err)
		}
		return nil
	}, func(err error) {
		ui.Info("Stopping %s server...", name)
		timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer timeoutCancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			ui.Warning("Error stopping %s server: %v", name, err)
		} else {
			ui.Info("%s server stopped.", name)
		}
	})
}

// OpenPort returns the hardware access for the given configuration, either the GPIO of a
// Raspberry Pi or simulated fans. The returned function releases the port.
func OpenPort(config configuration.Configuration) (hardware.Port, func(), error) {
	if !config.Simulate {
		port, err := rpi.Open(rpi.DefaultChip)
		if err != nil {
			return nil, nil, err
		}
		return port, func() {
			if err := port.Close(); err != nil {
				ui.Warning("Error closing gpio: %v", err)
			}
		}, nil
	}

	numbering, err := hardware.ParseNumbering(config.PinNumbering)
	if err != nil {
		return nil, nil, err
	}

	var simFans []sim.Fan
	for _, fanConfig := range config.Fans {
		pwmPin, tachPin, err := fanConfig.ResolvePins(numbering)
		if err != nil {
			return nil, nil, fmt.Errorf("fan %s: %w", fanConfig.ID, err)
		}
		if pwmPin == nil || tachPin == nil {
			continue
		}
		simFans = append(simFans, sim.Fan{
			PwmPin:  *pwmPin,
			TachPin: *tachPin,
			MinRpm:  fanConfig.MinRpm,
			MaxRpm:  fanConfig.MaxRpm,
		})
	}
	ui.Warning("Using simulated fans, no GPIO will be accessed")
	return sim.New(simFans), func() {}, nil
}

// InitializeObjects creates all configured fans and registers them in fans.FanMap.
// On error, all fans created so far are closed again.
func InitializeObjects(port hardware.Port, config configuration.Configuration) (result []*fans.Fan, err error) {
	numbering, err := hardware.ParseNumbering(config.PinNumbering)
	if err != nil {
		return nil, err
	}

	factory := fans.NewFactory(
		port,
		registry.New(),
		fans.WithRampOptions(ramp.WithStepDuration(config.RampStepDuration)),
		fans.WithSamplerOptions(
			tachometer.WithSamples(config.Tachometer.Samples),
			tachometer.WithTimeout(config.Tachometer.Timeout),
			tachometer.WithDebounce(config.Tachometer.Debounce),
		),
	)

	defer func() {
		if err != nil {
			for _, fan := range result {
				fan.Close()
				fans.FanMap.Remove(fan.GetId())
			}
			result = nil
		}
	}()

	for _, fanConfig := range config.Fans {
		pwmPin, tachPin, err := fanConfig.ResolvePins(numbering)
		if err != nil {
			return result, fmt.Errorf("fan %s: %w", fanConfig.ID, err)
		}
		spec, err := fans.NewSpecification(fanConfig.MinRpm, fanConfig.MaxRpm)
		if err != nil {
			return result, fmt.Errorf("fan %s: %w", fanConfig.ID, err)
		}

		fan, err := factory.NewFan(fanConfig.ID, fans.PinBinding{PwmPin: pwmPin, TachPin: tachPin}, spec)
		if err != nil {
			return result, err
		}
		fans.FanMap.Set(fan.GetId(), fan)
		result = append(result, fan)
	}

	return result, nil
}

func getProcessOwner() string {
	stdout, err := exec.Command("ps", "-o", "user=", "-p", strconv.Itoa(os.Getpid())).Output()
	if err != nil {
		ui.Fatal("Error checking process owner: %v", err)
	}
	return strings.TrimSpace(string(stdout))
}
