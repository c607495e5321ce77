package configuration

import "time"

type TachometerConfig struct {
	// Samples is the number of single measurements averaged into one RPM value
	Samples int `json:"samples"`
	// Timeout after which a fan without tachometer edges is considered stalled
	Timeout  time.Duration `json:"timeout"`
	Debounce time.Duration `json:"debounce"`
}

type MonitorConfig struct {
	PollingRate       time.Duration `json:"pollingRate"`
	RollingWindowSize int           `json:"rollingWindowSize"`
	// StatusDir receives one "<id>_rpm" file per fan, disabled if empty
	StatusDir string `json:"statusDir"`
}
