package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/persistence"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/markusressel/fanspeedctl/internal/util"
)

type MonitoredFan interface {
	GetId() string
	GetSpeed() int
	GetRpm() (int64, error)
}

// FanMonitor periodically measures the speed of a fan
type FanMonitor struct {
	fan         MonitoredFan
	persistence persistence.Persistence
	pollingRate time.Duration
	windowSize  int
	statusDir   string

	movingAvg float64
	stalled   bool

	notify func(title, text string)
	now    func() time.Time
}

func NewFanMonitor(p persistence.Persistence, fan MonitoredFan, config configuration.MonitorConfig) *FanMonitor {
	return &FanMonitor{
		fan:         fan,
		persistence: p,
		pollingRate: config.PollingRate,
		windowSize:  config.RollingWindowSize,
		statusDir:   config.StatusDir,
		movingAvg:   -1,
		notify:      ui.NotifyWarn,
		now:         time.Now,
	}
}

func (m *FanMonitor) Run(ctx context.Context) error {
	tick := time.NewTicker(m.pollingRate)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			err := m.Update()
			if errors.Is(err, fans.ErrPrecondition) {
				return err
			}
			if err != nil {
				ui.Warning("Error monitoring fan %s: %v", m.fan.GetId(), err)
			}
		}
	}
}

// Update measures the current rpm of the fan and records it
func (m *FanMonitor) Update() error {
	rpm, err := m.fan.GetRpm()
	if err != nil {
		return err
	}

	if m.movingAvg < 0 {
		m.movingAvg = float64(rpm)
	} else {
		m.movingAvg = util.UpdateSimpleMovingAvg(m.movingAvg, m.windowSize, float64(rpm))
	}
	ui.Debug("Fan %s: %d RPM (avg: %.1f)", m.fan.GetId(), rpm, m.movingAvg)

	speed := m.fan.GetSpeed()
	m.checkStall(speed, rpm)

	state := persistence.FanState{
		Speed:     speed,
		Rpm:       rpm,
		UpdatedAt: m.now(),
	}
	if err = m.persistence.SaveFanState(m.fan.GetId(), state); err != nil {
		ui.Warning("Unable to persist state of fan %s: %v", m.fan.GetId(), err)
	}

	if len(m.statusDir) > 0 {
		path := filepath.Join(m.statusDir, fmt.Sprintf("%s_rpm", m.fan.GetId()))
		if err = util.WriteIntToFileAtomic(rpm, path); err != nil {
			return fmt.Errorf("unable to write status file %s: %w", path, err)
		}
	}

	return nil
}

// a fan that is driven but does not turn is reported once per stall
func (m *FanMonitor) checkStall(speed int, rpm int64) {
	stalled := speed > 0 && rpm <= 0
	if stalled && !m.stalled {
		ui.Warning("Fan %s is stalled at %d%%", m.fan.GetId(), speed)
		m.notify("Fan stalled", fmt.Sprintf("Fan %s does not turn at %d%%", m.fan.GetId(), speed))
	} else if !stalled && m.stalled {
		ui.Info("Fan %s is turning again (%d RPM)", m.fan.GetId(), rpm)
	}
	m.stalled = stalled
}

func (m *FanMonitor) GetMovingAvg() float64 {
	return m.movingAvg
}

func (m *FanMonitor) IsStalled() bool {
	return m.stalled
}
