package statistics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "fanspeedctl"
)

func Register(collector prometheus.Collector) {
	prometheus.MustRegister(collector)
}
