package controller

import (
	"math"
	"sync"
	"time"

	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/persistence"
	"github.com/markusressel/fanspeedctl/internal/ui"
	"github.com/markusressel/fanspeedctl/internal/util"
)

const (
	settleWindowSize         = 10
	defaultMaxSettleAttempts = 60
)

// InitializationSequenceMutex prevents two fans from being characterized at the same time
var InitializationSequenceMutex sync.Mutex

// Fan is the part of fans.Fan used to measure a fan curve
type Fan interface {
	GetId() string
	GetSpeed() int
	SetSpeed(percent int) error
	GetRpm() (int64, error)
}

type Option func(c *Characterization)

// WithStepSize sets the duty increment between two measurements
func WithStepSize(stepSize int) Option {
	return func(c *Characterization) {
		if stepSize > 0 {
			c.stepSize = stepSize
		}
	}
}

// WithMaxRpmDiff sets the maximum RPM difference between consecutive measurements of a settled fan
func WithMaxRpmDiff(diff float64) Option {
	return func(c *Characterization) {
		c.maxRpmDiff = diff
	}
}

func WithMaxSettleAttempts(attempts int) Option {
	return func(c *Characterization) {
		c.maxSettleAttempts = attempts
	}
}

func WithSleep(sleep func(d time.Duration)) Option {
	return func(c *Characterization) {
		c.sleep = sleep
	}
}

// Characterization measures the duty -> RPM curve of a fan
type Characterization struct {
	persistence       persistence.Persistence
	stepSize          int
	maxRpmDiff        float64
	maxSettleAttempts int
	sleep             func(d time.Duration)
}

func NewCharacterization(persistence persistence.Persistence, opts ...Option) *Characterization {
	c := &Characterization{
		persistence:       persistence,
		stepSize:          10,
		maxRpmDiff:        10,
		maxSettleAttempts: defaultMaxSettleAttempts,
		sleep:             time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Duties returns the duty values visited by the initialization sequence, always including 0 and 100
func (c *Characterization) Duties() []int {
	var result []int
	for duty := fans.MinSpeed; duty < fans.MaxSpeed; duty += c.stepSize {
		result = append(result, duty)
	}
	return append(result, fans.MaxSpeed)
}

// RunInitializationSequence runs an initialization sequence for the given fan
// to determine an estimation of its fan curve. The previous speed is restored afterwards.
func (c *Characterization) RunInitializationSequence(fan Fan) (curve map[int]int64, err error) {
	InitializationSequenceMutex.Lock()
	defer InitializationSequenceMutex.Unlock()

	originalSpeed := fan.GetSpeed()
	defer func() {
		if restoreErr := fan.SetSpeed(originalSpeed); restoreErr != nil {
			ui.Warning("Unable to restore speed of fan %s: %v", fan.GetId(), restoreErr)
		}
	}()

	curve = map[int]int64{}
	initialMeasurement := true
	for _, duty := range c.Duties() {
		err = fan.SetSpeed(duty)
		if err != nil {
			ui.Error("Unable to run initialization sequence on %s: %v", fan.GetId(), err)
			return nil, err
		}

		var rpm int64
		if initialMeasurement {
			initialMeasurement = false
			rpm, err = c.waitForFanToSettle(fan)
		} else {
			rpm, err = fan.GetRpm()
		}
		if err != nil {
			ui.Error("Unable to measure RPM of %s at %d%%: %v", fan.GetId(), duty, err)
			return nil, err
		}

		curve[duty] = rpm
		ui.Debug("Measured RPM of %d at %d%% for fan %s", rpm, duty, fan.GetId())
	}

	// save to database to restore it on restarts
	err = c.persistence.SaveFanCurve(fan.GetId(), curve)
	if err != nil {
		ui.Error("Failed to save fan curve of %s: %v", fan.GetId(), err)
		return curve, err
	}
	return curve, nil
}

// waitForFanToSettle measures the RPM of the fan until consecutive measurements
// stay within maxRpmDiff of each other and returns the last measurement
func (c *Characterization) waitForFanToSettle(fan Fan) (int64, error) {
	diffThreshold := c.maxRpmDiff

	measuredRpmDiffWindow := util.CreateRollingWindow(settleWindowSize)
	util.FillWindow(measuredRpmDiffWindow, settleWindowSize, 2*diffThreshold)
	measuredRpmDiffMax := 2 * diffThreshold
	var oldRpm int64
	var currentRpm int64
	for attempt := 0; !(measuredRpmDiffMax < diffThreshold); attempt++ {
		if attempt >= c.maxSettleAttempts {
			ui.Warning("Fan %s did not settle after %d measurements, continuing anyway", fan.GetId(), attempt)
			break
		}
		ui.Debug("Waiting for fan %s to settle (current RPM max diff: %f)...", fan.GetId(), measuredRpmDiffMax)
		rpm, err := fan.GetRpm()
		if err != nil {
			return 0, err
		}
		currentRpm = rpm
		measuredRpmDiffWindow.Append(math.Abs(float64(currentRpm - oldRpm)))
		oldRpm = currentRpm
		measuredRpmDiffMax = math.Ceil(util.GetWindowMax(measuredRpmDiffWindow))
		c.sleep(1 * time.Second)
	}
	ui.Debug("Fan %s has settled (current RPM max diff: %f)", fan.GetId(), measuredRpmDiffMax)
	return currentRpm, nil
}
