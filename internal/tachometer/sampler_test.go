package tachometer

import (
	"errors"
	"testing"
	"time"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/hardware/hardwaretest"
	"github.com/stretchr/testify/assert"
)

const tachPin = hardware.Pin(16)

var alignEdge = hardwaretest.Period(3 * time.Millisecond)

func blockingWaits(port *hardwaretest.Port) int {
	count := 0
	for _, call := range port.CallsOf(hardwaretest.OpWaitForEdge) {
		if call.Value > 0 {
			count++
		}
	}
	return count
}

func TestRpmFromPeriod(t *testing.T) {
	assert.Equal(t, int64(1200), RpmFromPeriod(12500*time.Microsecond))
	assert.Equal(t, int64(3000), RpmFromPeriod(5*time.Millisecond))
	assert.Equal(t, int64(0), RpmFromPeriod(0))
	// sub-microsecond fractions are truncated
	assert.Equal(t, int64(1200), RpmFromPeriod(12500*time.Microsecond+999*time.Nanosecond))
}

func TestSampler_Measure(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(12500 * time.Microsecond)}
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(1200), rpm)
	for _, call := range port.CallsOf(hardwaretest.OpWaitForEdge) {
		assert.Equal(t, tachPin, call.Pin)
	}
}

func TestSampler_Measure_UsesLongTimeout(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(10 * time.Millisecond)}
	sampler := NewSampler(port, tachPin)

	// WHEN
	_, _ = sampler.Measure()

	// THEN
	values := port.Values(hardwaretest.OpWaitForEdge)
	assert.Equal(t, []int64{0, int64(time.Minute), int64(time.Minute)}, values)
}

func TestSampler_Measure_DropsStaleEdges(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Pending = 5
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(10 * time.Millisecond)}
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(1500), rpm)
	assert.Equal(t, 3, port.Pending)
}

func TestSampler_Measure_Debounce(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{
		alignEdge,
		hardwaretest.Period(100 * time.Microsecond),
		hardwaretest.Period(374 * time.Microsecond),
		hardwaretest.Period(12500 * time.Microsecond),
	}
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(1200), rpm)
	assert.Equal(t, 4, blockingWaits(port))
}

func TestSampler_Measure_DebounceThresholdIsInclusive(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(375 * time.Microsecond)}
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(40000), rpm)
}

func TestSampler_Measure_OnlyNoiseUntilTimeout(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{
		alignEdge,
		hardwaretest.Period(50 * time.Microsecond),
		hardwaretest.Period(80 * time.Microsecond),
	}
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rpm)
}

func TestSampler_Measure_Stalled(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Measure()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rpm)
	assert.Equal(t, 1, blockingWaits(port))
}

func TestSampler_Measure_WaitError(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	driverErr := errors.New("EINTR")
	port.WaitErr = driverErr
	sampler := NewSampler(port, tachPin)

	// WHEN
	_, err := sampler.Measure()

	// THEN
	var waitErr *HardwareWaitError
	assert.True(t, errors.As(err, &waitErr))
	assert.Equal(t, tachPin, waitErr.Pin)
	assert.True(t, errors.Is(err, driverErr))
	assert.EqualError(t, err, "error while waiting for an edge on GPIO16: EINTR")
}

func TestSampler_Average(t *testing.T) {
	// GIVEN
	values := []int64{
		1000, 1200, 1250, 1500, 960, 800, 750, 600, 1875, 2000,
		2500, 625, 500, 400, 480, 1600, 3000, 1000, 1200, 1250,
	}
	port := hardwaretest.NewPort()
	for _, rpm := range values {
		port.Waits = append(port.Waits, alignEdge, hardwaretest.Period(hardwaretest.PeriodForRpm(rpm)))
	}
	var samples []int64
	sampler := NewSampler(port, tachPin, WithSampleListener(func(rpm int64) {
		samples = append(samples, rpm)
	}))

	// WHEN
	rpm, err := sampler.Average()

	// THEN
	assert.NoError(t, err)
	// 24490 / 20 = 1224.5
	assert.Equal(t, int64(1224), rpm)
	assert.Equal(t, values, samples)
	assert.Empty(t, port.Waits)
}

func TestSampler_Average_Stalled(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Average()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(0), rpm)
	assert.Equal(t, DefaultSamples, blockingWaits(port))
}

func TestSampler_Average_PartiallyStalled(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{
		alignEdge, hardwaretest.Period(hardwaretest.PeriodForRpm(1500)),
		{Outcome: hardware.TimedOut, Elapsed: time.Minute},
		alignEdge, hardwaretest.Period(hardwaretest.PeriodForRpm(1500)),
	}
	sampler := NewSampler(port, tachPin, WithSamples(4))

	// WHEN
	rpm, err := sampler.Average()

	// THEN
	assert.NoError(t, err)
	// 1500 + 0 + 1500 + 0 (script exhausted, stalled)
	assert.Equal(t, int64(750), rpm)
}

func TestSampler_Average_ErrorAborts(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(10 * time.Millisecond)}
	port.WaitErr = errors.New("driver failure")
	sampler := NewSampler(port, tachPin)

	// WHEN
	rpm, err := sampler.Average()

	// THEN
	assert.Error(t, err)
	assert.Equal(t, int64(0), rpm)
}

func TestSampler_Options(t *testing.T) {
	// GIVEN
	port := hardwaretest.NewPort()
	port.Waits = []hardware.WaitResult{alignEdge, hardwaretest.Period(900 * time.Microsecond), hardwaretest.Period(2 * time.Millisecond)}

	// WHEN
	sampler := NewSampler(port, tachPin, WithSamples(1), WithTimeout(5*time.Second), WithDebounce(time.Millisecond))
	rpm, err := sampler.Average()

	// THEN
	assert.NoError(t, err)
	assert.Equal(t, int64(7500), rpm)
	assert.Contains(t, port.Values(hardwaretest.OpWaitForEdge), int64(5*time.Second))
}
