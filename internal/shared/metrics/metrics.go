// Package metrics 定义代理池的 prometheus 指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxypool",
		Name:      "probes_total",
		Help:      "Completed proxy probes by result.",
	}, []string{"result"})

	RefillCyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxypool",
		Name:      "refill_cycles_total",
		Help:      "Scheduler iterations, split into backlog waits and real refills.",
	}, []string{"kind"})

	CandidatesEnqueuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proxypool",
		Name:      "candidates_enqueued_total",
		Help:      "Candidates put on the queue by origin.",
	}, []string{"origin"})

	SourceErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "proxypool",
		Name:      "source_errors_total",
		Help:      "Proxy list sources that failed to download or parse.",
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "proxypool",
		Name:      "checker_batch_size",
		Help:      "Number of candidates drained per checker batch.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
	})
)

// RegisterPoolGauges exposes the live queue and store sizes. It must be called
// at most once per registerer.
func RegisterPoolGauges(reg prometheus.Registerer, queueSize, proxiesOk func() float64) error {
	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "proxypool",
			Name:      "queue_size",
			Help:      "Candidates waiting to be probed.",
		}, queueSize),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "proxypool",
			Name:      "proxies_ok",
			Help:      "Proxies whose latest probe succeeded.",
		}, proxiesOk),
	}
	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
