package fan

import (
	"bytes"
	"testing"

	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/stretchr/testify/assert"
)

func TestPrintCurve(t *testing.T) {
	// GIVEN
	spec, _ := fans.NewSpecification(900, 1900)
	curve := map[int]int64{
		0:   0,
		10:  0,
		20:  850,
		50:  1400,
		100: 1900,
	}
	var out bytes.Buffer

	// WHEN
	err := printCurve(&out, "case", spec, curve, false)

	// THEN
	assert.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "case")
	assert.Contains(t, text, "900-1900 RPM")
	assert.Contains(t, text, "20%")
	assert.Contains(t, text, "1900")
	assert.Contains(t, text, "RPM / Duty")
	assert.NotContains(t, text, "No fan curve data yet...")
}

func TestPrintCurve_NoData(t *testing.T) {
	// GIVEN
	spec, _ := fans.NewSpecification(900, 1900)
	var out bytes.Buffer

	// WHEN
	err := printCurve(&out, "case", spec, nil, false)

	// THEN
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "No fan curve data yet...")
	assert.NotContains(t, out.String(), "RPM / Duty")
}

func TestRpmString(t *testing.T) {
	assert.Equal(t, "-", rpmString(-1))
	assert.Equal(t, "0", rpmString(0))
	assert.Equal(t, "1200", rpmString(1200))
}
