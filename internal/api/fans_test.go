package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/markusressel/fanspeedctl/internal/hardware/hardwaretest"
	"github.com/markusressel/fanspeedctl/internal/ramp"
	"github.com/markusressel/fanspeedctl/internal/registry"
	"github.com/markusressel/fanspeedctl/internal/tachometer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registers fan1 (pwm + tach) and fan2 (tach only)
func setupFans(t *testing.T) *hardwaretest.Port {
	fans.FanMap.Clear()
	t.Cleanup(fans.FanMap.Clear)

	port := hardwaretest.NewPort()
	factory := fans.NewFactory(
		port,
		registry.New(),
		fans.WithRampOptions(ramp.WithSleep(func(d time.Duration) {})),
		fans.WithSamplerOptions(tachometer.WithSamples(2)),
	)
	spec, _ := fans.NewSpecification(900, 1900)

	fan1, err := factory.NewFan("fan1", fans.Bind(hardware.Pin(18), hardware.Pin(16)), spec)
	require.NoError(t, err)
	fans.FanMap.Set(fan1.GetId(), fan1)

	tachPin := hardware.Pin(20)
	fan2, err := factory.NewFan("fan2", fans.PinBinding{TachPin: &tachPin}, spec)
	require.NoError(t, err)
	fans.FanMap.Set(fan2.GetId(), fan2)

	port.Reset()
	return port
}

func request(method string, path string, body string) *httptest.ResponseRecorder {
	rest := CreateRestService()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	rest.ServeHTTP(rec, req)
	return rec
}

func TestIsAlive(t *testing.T) {
	// WHEN
	rec := request(http.MethodGet, "/alive", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetFans(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodGet, "/fan/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var result []fans.Snapshot
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Len(t, result, 2)
	assert.Equal(t, "fan1", result[0].Id)
	assert.Equal(t, 18, *result[0].PwmPin)
	assert.Equal(t, "fan2", result[1].Id)
	assert.Nil(t, result[1].PwmPin)
}

func TestGetFan(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodGet, "/fan/fan1", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var result fans.Snapshot
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "fan1", result.Id)
	assert.Equal(t, int64(1900), result.MaxRpm)
}

func TestGetFan_NotFound(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodGet, "/fan/nope/", "")

	// THEN
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "No item with id 'nope' found")
}

func TestSetFanSpeed(t *testing.T) {
	// GIVEN
	port := setupFans(t)

	// WHEN
	rec := request(http.MethodPost, "/fan/fan1/speed/", `{"percent": 5}`)

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var result fans.Snapshot
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 5, result.Speed)
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, port.Values(hardwaretest.OpWritePwmDuty))
}

func TestSetFanSpeed_OutOfRange(t *testing.T) {
	// GIVEN
	port := setupFans(t)

	// WHEN
	rec := request(http.MethodPost, "/fan/fan1/speed/", `{"percent": 101}`)

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "speed must be in range [0..100], got 101")
	assert.Empty(t, port.Calls)
}

func TestSetFanSpeed_MissingPercent(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodPost, "/fan/fan1/speed/", `{}`)

	// THEN
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetFanSpeed_NoPwmPin(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodPost, "/fan/fan2/speed/", `{"percent": 50}`)

	// THEN
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSetFanSpeed_NotFound(t *testing.T) {
	// GIVEN
	setupFans(t)

	// WHEN
	rec := request(http.MethodPost, "/fan/nope/speed/", `{"percent": 50}`)

	// THEN
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFanRpm(t *testing.T) {
	// GIVEN
	port := setupFans(t)
	for i := 0; i < 2; i++ {
		port.Waits = append(port.Waits,
			hardwaretest.Period(time.Millisecond),
			hardwaretest.Period(hardwaretest.PeriodForRpm(1500)),
		)
	}

	// WHEN
	rec := request(http.MethodGet, "/fan/fan2/rpm/", "")

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	var result RpmResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(1500), result.Rpm)
}

func TestGetFanRpm_WaitError(t *testing.T) {
	// GIVEN
	port := setupFans(t)
	port.WaitErr = errors.New("EINTR")

	// WHEN
	rec := request(http.MethodGet, "/fan/fan1/rpm/", "")

	// THEN
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "EINTR")
}

func TestCreateMetricsService(t *testing.T) {
	// GIVEN
	webserver := CreateMetricsService()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	// WHEN
	webserver.ServeHTTP(rec, req)

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCreateProfilingService(t *testing.T) {
	// GIVEN
	webserver := CreateProfilingService()
	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil)
	rec := httptest.NewRecorder()

	// WHEN
	webserver.ServeHTTP(rec, req)

	// THEN
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "goroutine")
}
