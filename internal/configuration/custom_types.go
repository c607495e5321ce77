package configuration

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/markusressel/fanspeedctl/internal/hardware"
	"github.com/mitchellh/mapstructure"
)

// PinRef references a pin in a given numbering scheme, like "bcm:18" or simply 26.
type PinRef struct {
	// Numbering is empty if the configured default numbering should be used
	Numbering hardware.Numbering `json:"numbering,omitempty"`
	Number    int                `json:"number"`
}

// ParsePinRef parses a pin reference of the form "[<numbering>:]<number>"
func ParsePinRef(value string) (PinRef, error) {
	value = strings.TrimSpace(value)
	number := value
	var numbering hardware.Numbering
	if prefix, rest, found := strings.Cut(value, ":"); found {
		parsed, err := hardware.ParseNumbering(prefix)
		if err != nil {
			return PinRef{}, err
		}
		numbering = parsed
		number = rest
	}

	n, err := strconv.Atoi(strings.TrimSpace(number))
	if err != nil {
		return PinRef{}, fmt.Errorf("invalid pin reference %q: %w", value, err)
	}
	if n < 0 {
		return PinRef{}, fmt.Errorf("invalid pin reference %q: must not be negative", value)
	}
	return PinRef{Numbering: numbering, Number: n}, nil
}

// Resolve returns the BCM pin this reference points to
func (p PinRef) Resolve(defaultNumbering hardware.Numbering) (hardware.Pin, error) {
	numbering := p.Numbering
	if numbering == "" {
		numbering = defaultNumbering
	}
	return hardware.ToBcm(numbering, p.Number)
}

func (p PinRef) String() string {
	if p.Numbering == "" {
		return strconv.Itoa(p.Number)
	}
	return fmt.Sprintf("%s:%d", p.Numbering, p.Number)
}

// PinRefHookFunc returns a mapstructure decode hook that parses plain numbers
// and "<numbering>:<number>" strings into a PinRef.
func PinRefHookFunc() mapstructure.DecodeHookFuncType {
	pinRefType := reflect.TypeOf(PinRef{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{}) (interface{}, error) {

		if t != pinRefType {
			return data, nil
		}

		switch v := data.(type) {
		case int:
			return ParsePinRef(strconv.Itoa(v))
		case int64:
			return ParsePinRef(strconv.FormatInt(v, 10))
		case float64:
			if v != float64(int(v)) {
				return nil, fmt.Errorf("invalid pin reference %v: must be an integer", v)
			}
			return ParsePinRef(strconv.Itoa(int(v)))
		case string:
			return ParsePinRef(v)
		default:
			return data, nil
		}
	}
}
