package fans

import "fmt"

// Specification describes the speed range a fan is rated for.
// The values are informational, nothing enforces them at runtime.
type Specification struct {
	minRpm int64
	maxRpm int64
}

func NewSpecification(minRpm int64, maxRpm int64) (Specification, error) {
	if minRpm < 0 || maxRpm < 0 {
		return Specification{}, fmt.Errorf("rpm values must not be negative, got min=%d max=%d", minRpm, maxRpm)
	}
	return Specification{minRpm: minRpm, maxRpm: maxRpm}, nil
}

// GetMinRpm returns the lowest rated speed of the fan
func (s Specification) GetMinRpm() int64 {
	return s.minRpm
}

// GetMaxRpm returns the highest rated speed of the fan
func (s Specification) GetMaxRpm() int64 {
	return s.maxRpm
}

func (s Specification) String() string {
	return fmt.Sprintf("%d-%d RPM", s.minRpm, s.maxRpm)
}
