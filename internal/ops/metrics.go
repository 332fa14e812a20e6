package ops

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	handlesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nnue_handles_opened_total",
		Help: "Device handles whose kernel catalog resolved.",
	}, []string{"device"})

	handlesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nnue_handles_failed_total",
		Help: "Device handles that failed to resolve their kernel catalog.",
	}, []string{"device"})

	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nnue_dispatch_total",
		Help: "Kernel dispatches by operation.",
	}, []string{"op"})

	dispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nnue_dispatch_failures_total",
		Help: "Kernel dispatches that returned a device error.",
	}, []string{"op"})

	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nnue_dispatch_duration_seconds",
		Help:    "Wall time of a dispatch including staging and copy-back.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
	}, []string{"op"})

	stagedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nnue_staged_bytes_total",
		Help: "Bytes copied between host and device.",
	}, []string{"direction"})
)
