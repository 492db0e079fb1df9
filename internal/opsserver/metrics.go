// Package opsserver implements the internal ops HTTP listener (spec §5,
// "added"): /healthz and /metrics on a private bind address, distinct from
// and never substituting for the out-of-scope REST/WebSocket front-end.
// Metric naming and registration follow
// controller/pkg/metrics/metrics.go's prometheus.NewGaugeVec/CounterVec +
// MustRegister shape, generalized from Kubernetes session metrics to scan
// cycle timing metrics.
package opsserver

import "github.com/prometheus/client_golang/prometheus"

var (
	scanCountTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plc_runtime_scan_count_total",
		Help: "Total number of scan cycles completed.",
	})

	overrunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plc_runtime_overruns_total",
		Help: "Total number of scan cycles that exceeded their period.",
	})

	scanTimeMeanUs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plc_runtime_scan_time_mean_microseconds",
		Help: "Mean scan-body execution time, in microseconds.",
	})

	cycleTimeMeanUs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "plc_runtime_cycle_time_mean_microseconds",
		Help: "Mean full-cycle time, in microseconds.",
	})

	lifecycleStateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plc_runtime_lifecycle_state",
		Help: "1 for the current lifecycle state, 0 for all others.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(scanCountTotal, overrunsTotal, scanTimeMeanUs, cycleTimeMeanUs, lifecycleStateGauge)
}

// recordSnapshot pushes a statistics snapshot into the registered gauges.
// Counters only move forward: callers must pass cumulative totals, not
// deltas, since prometheus counters do not support Set semantics for
// anything but tests.
func recordSnapshot(scanCount, overruns uint64, hasTiming bool, scanTimeMeanNs, cycleTimeMeanNs float64) {
	addCounterTo(scanCountTotal, scanCount)
	addCounterTo(overrunsTotal, overruns)
	if hasTiming {
		scanTimeMeanUs.Set(scanTimeMeanNs / 1000)
		cycleTimeMeanUs.Set(cycleTimeMeanNs / 1000)
	}
}

// lastScanCount and lastOverruns track the last cumulative value pushed into each
// monotonic counter so recordSnapshot can add only the delta — prometheus
// counters expose Add, not Set.
var lastScanCount, lastOverruns uint64

func addCounterTo(counter prometheus.Counter, cumulative uint64) {
	var last *uint64
	switch counter {
	case scanCountTotal:
		last = &lastScanCount
	case overrunsTotal:
		last = &lastOverruns
	default:
		return
	}
	if cumulative > *last {
		counter.Add(float64(cumulative - *last))
	}
	*last = cumulative
}

func recordLifecycleState(current string, all []string) {
	for _, s := range all {
		value := 0.0
		if s == current {
			value = 1.0
		}
		lifecycleStateGauge.WithLabelValues(s).Set(value)
	}
}
