package fans

import (
	"errors"
	"fmt"
)

var (
	ErrPrecondition = errors.New("precondition failed")
	ErrRange        = errors.New("value out of range")
)

// PreconditionError is returned when an operation needs a pin the fan is not bound to
type PreconditionError struct {
	FanId string
	Op    string
	// Usage of the missing pin, "pwm" or "tach"
	Usage string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("fan %s: cannot %s, no %s pin bound", e.FanId, e.Op, e.Usage)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// RangeError is returned for a speed outside of [0..100]
type RangeError struct {
	Value int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("speed must be in range [%d..%d], got %d", MinSpeed, MaxSpeed, e.Value)
}

func (e *RangeError) Is(target error) bool {
	return target == ErrRange
}
