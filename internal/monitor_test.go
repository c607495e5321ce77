package internal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/markusressel/fanspeedctl/internal/configuration"
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/persistence"
	"github.com/markusressel/fanspeedctl/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockFan struct {
	ID    string
	Speed int
	Rpms  []int64
	Err   error
}

func (fan *MockFan) GetId() string {
	return fan.ID
}

func (fan *MockFan) GetSpeed() int {
	return fan.Speed
}

func (fan *MockFan) GetRpm() (int64, error) {
	if fan.Err != nil {
		return 0, fan.Err
	}
	rpm := fan.Rpms[0]
	if len(fan.Rpms) > 1 {
		fan.Rpms = fan.Rpms[1:]
	}
	return rpm, nil
}

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func createMonitor(t *testing.T, fan *MockFan, statusDir string) (*FanMonitor, persistence.Persistence, *[]string) {
	p := persistence.NewPersistence(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, p.Init())

	config := configuration.MonitorConfig{
		PollingRate:       time.Second,
		RollingWindowSize: 10,
		StatusDir:         statusDir,
	}
	monitor := NewFanMonitor(p, fan, config)

	var notifications []string
	monitor.notify = func(title, text string) {
		notifications = append(notifications, text)
	}
	monitor.now = func() time.Time {
		return testTime
	}
	return monitor, p, &notifications
}

func TestFanMonitor_Update(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Speed: 40, Rpms: []int64{1000, 2000}}
	monitor, p, _ := createMonitor(t, fan, "")

	// WHEN
	err1 := monitor.Update()
	avg1 := monitor.GetMovingAvg()
	err2 := monitor.Update()

	// THEN
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.Equal(t, 1000.0, avg1)
	assert.InDelta(t, 1100.0, monitor.GetMovingAvg(), 0.001)

	state, err := p.LoadFanState("case")
	assert.NoError(t, err)
	assert.Equal(t, 40, state.Speed)
	assert.Equal(t, int64(2000), state.Rpm)
	assert.True(t, testTime.Equal(state.UpdatedAt))
}

func TestFanMonitor_Update_WritesStatusFile(t *testing.T) {
	// GIVEN
	statusDir := t.TempDir()
	fan := &MockFan{ID: "case", Speed: 40, Rpms: []int64{1234}}
	monitor, _, _ := createMonitor(t, fan, statusDir)

	// WHEN
	err := monitor.Update()

	// THEN
	assert.NoError(t, err)
	value, err := util.ReadIntFromFile(filepath.Join(statusDir, "case_rpm"))
	assert.NoError(t, err)
	assert.Equal(t, 1234, value)
}

func TestFanMonitor_Update_MissingStatusDir(t *testing.T) {
	// GIVEN
	statusDir := filepath.Join(t.TempDir(), "missing")
	fan := &MockFan{ID: "case", Speed: 40, Rpms: []int64{1234}}
	monitor, _, _ := createMonitor(t, fan, statusDir)

	// WHEN
	err := monitor.Update()

	// THEN
	assert.Error(t, err)
}

func TestFanMonitor_Update_Stall(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Speed: 40, Rpms: []int64{1200, 0, 0, 1200}}
	monitor, _, notifications := createMonitor(t, fan, "")

	// WHEN
	_ = monitor.Update()
	assert.False(t, monitor.IsStalled())
	_ = monitor.Update()
	_ = monitor.Update()
	assert.True(t, monitor.IsStalled())
	_ = monitor.Update()

	// THEN
	assert.False(t, monitor.IsStalled())
	assert.Equal(t, []string{"Fan case does not turn at 40%"}, *notifications)
}

func TestFanMonitor_Update_StoppedFanIsNotStalled(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Speed: 0, Rpms: []int64{0}}
	monitor, _, notifications := createMonitor(t, fan, "")

	// WHEN
	err := monitor.Update()

	// THEN
	assert.NoError(t, err)
	assert.False(t, monitor.IsStalled())
	assert.Empty(t, *notifications)
}

func TestFanMonitor_Update_Error(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Err: errors.New("EINTR")}
	monitor, p, _ := createMonitor(t, fan, "")

	// WHEN
	err := monitor.Update()

	// THEN
	assert.EqualError(t, err, "EINTR")
	_, err = p.LoadFanState("case")
	assert.Error(t, err)
}

func TestFanMonitor_Run_StopsOnContext(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Rpms: []int64{0}}
	monitor, _, _ := createMonitor(t, fan, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN
	err := monitor.Run(ctx)

	// THEN
	assert.NoError(t, err)
}

func TestFanMonitor_Run_StopsWithoutTachPin(t *testing.T) {
	// GIVEN
	fan := &MockFan{ID: "case", Err: &fans.PreconditionError{FanId: "case", Op: "measure rpm", Usage: "tach"}}
	monitor, _, _ := createMonitor(t, fan, "")
	monitor.pollingRate = time.Millisecond

	// WHEN
	err := monitor.Run(context.Background())

	// THEN
	assert.ErrorIs(t, err, fans.ErrPrecondition)
}
