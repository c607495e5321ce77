package statistics

import (
	"github.com/markusressel/fanspeedctl/internal/fans"
	"github.com/prometheus/client_golang/prometheus"
)

const fanSubsystem = "fan"

type FanCollector struct {
	fans           []*fans.Fan
	duty           *prometheus.Desc
	rpm            *prometheus.Desc
	rampCount      *prometheus.Desc
	stalledSamples *prometheus.Desc
	waitErrors     *prometheus.Desc
}

func NewFanCollector(fans []*fans.Fan) *FanCollector {
	return &FanCollector{
		fans: fans,
		duty: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "duty"),
			"Last commanded duty of the fan in percent",
			[]string{"id"}, nil,
		),
		rpm: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "rpm"),
			"Last measured RPM value of the fan",
			[]string{"id"}, nil,
		),
		rampCount: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "ramp_count"),
			"Number of speed ramps performed",
			[]string{"id"}, nil,
		),
		stalledSamples: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "stalled_sample_count"),
			"Number of RPM samples without any tachometer edge",
			[]string{"id"}, nil,
		),
		waitErrors: prometheus.NewDesc(prometheus.BuildFQName(namespace, fanSubsystem, "wait_error_count"),
			"Number of failed waits for a tachometer edge",
			[]string{"id"}, nil,
		),
	}
}

func (collector *FanCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- collector.duty
	ch <- collector.rpm
	ch <- collector.rampCount
	ch <- collector.stalledSamples
	ch <- collector.waitErrors
}

// Collect implements required collect function for all prometheus collectors
func (collector *FanCollector) Collect(ch chan<- prometheus.Metric) {
	for _, fan := range collector.fans {
		s := fan.Snapshot()
		ch <- prometheus.MustNewConstMetric(collector.duty, prometheus.GaugeValue, float64(s.Speed), s.Id)
		ch <- prometheus.MustNewConstMetric(collector.rpm, prometheus.GaugeValue, float64(s.Rpm), s.Id)
		ch <- prometheus.MustNewConstMetric(collector.rampCount, prometheus.CounterValue, float64(s.RampCount), s.Id)
		ch <- prometheus.MustNewConstMetric(collector.stalledSamples, prometheus.CounterValue, float64(s.StalledSamples), s.Id)
		ch <- prometheus.MustNewConstMetric(collector.waitErrors, prometheus.CounterValue, float64(s.WaitErrors), s.Id)
	}
}
