package hardware

import (
	"fmt"
	"strings"
)

// Numbering is a pin numbering scheme
type Numbering string

const (
	NumberingWiringPi Numbering = "wiringpi"
	NumberingBcm      Numbering = "bcm"
	NumberingPhysical Numbering = "physical"
)

// wiringPi pin -> BCM GPIO (board revision 2 and later)
var wiringPiToBcm = []int{
	17, 18, 27, 22, 23, 24, 25, 4, // 0..7
	2, 3, // 8..9
	8, 7, // 10..11
	10, 9, 11, // 12..14
	14, 15, // 15..16
	28, 29, 30, 31, // 17..20
	5, 6, 13, 19, 26, 12, 16, 20, 21, // 21..29
	0, 1, // 30..31
}

// physical 40-pin header position -> BCM GPIO, -1 for power and ground pins
var physicalToBcm = []int{
	-1,     // there is no pin 0
	-1, -1, // 1, 2
	2, -1,
	3, -1,
	4, 14,
	-1, 15,
	17, 18,
	27, -1,
	22, 23,
	-1, 24,
	10, -1,
	9, 25,
	11, 8,
	-1, 7,
	0, 1,
	5, -1,
	6, 12,
	13, -1,
	19, 16,
	26, 20,
	-1, 21, // 39, 40
}

const maxBcmPin = 53

// ParseNumbering parses the name of a numbering scheme, an empty string results in NumberingWiringPi
func ParseNumbering(value string) (Numbering, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "wiringpi", "wpi":
		return NumberingWiringPi, nil
	case "bcm", "gpio":
		return NumberingBcm, nil
	case "physical", "phys":
		return NumberingPhysical, nil
	}
	return "", fmt.Errorf("unknown pin numbering: %s, use one of: wiringpi | bcm | physical", value)
}

// ToBcm converts a pin number in the given numbering scheme to a BCM GPIO number
func ToBcm(numbering Numbering, pin int) (Pin, error) {
	switch numbering {
	case NumberingWiringPi:
		if pin < 0 || pin >= len(wiringPiToBcm) {
			return -1, fmt.Errorf("invalid wiringPi pin: %d", pin)
		}
		return Pin(wiringPiToBcm[pin]), nil
	case NumberingBcm:
		if pin < 0 || pin > maxBcmPin {
			return -1, fmt.Errorf("invalid BCM pin: %d", pin)
		}
		return Pin(pin), nil
	case NumberingPhysical:
		if pin <= 0 || pin >= len(physicalToBcm) || physicalToBcm[pin] < 0 {
			return -1, fmt.Errorf("physical pin %d is not a GPIO", pin)
		}
		return Pin(physicalToBcm[pin]), nil
	}
	return -1, fmt.Errorf("unsupported pin numbering: %s", numbering)
}
