// Package metrics exposes Prometheus counters for the metadata dispatch
// layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metatensor_dispatch_total",
		Help: "Total number of intercepted operations, by operation name",
	}, []string{"op"})

	DemotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metatensor_demotions_total",
		Help: "Results demoted to plain tensors because tracking is disabled",
	})

	BatchNarrowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metatensor_batch_narrow_total",
		Help: "Batch metadata narrowings, by kind (single, subset, unbind)",
	}, []string{"kind"})

	DecollateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metatensor_decollate_total",
		Help: "Batch metadata decollations performed during dispatch",
	})

	CollationErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "metatensor_collation_errors_total",
		Help: "Structurally incompatible batch metadata encountered",
	})
)

// RecordDispatch counts one intercepted operation.
func RecordDispatch(op string) {
	DispatchTotal.WithLabelValues(op).Inc()
}

// RecordDemotion counts one tracking-disabled demotion.
func RecordDemotion() {
	DemotionsTotal.Inc()
}

// RecordBatchNarrow counts one batch metadata narrowing.
func RecordBatchNarrow(kind string) {
	BatchNarrowTotal.WithLabelValues(kind).Inc()
}

// RecordDecollate counts one decollation pass.
func RecordDecollate() {
	DecollateTotal.Inc()
}

// RecordCollationError counts one collation failure.
func RecordCollationError() {
	CollationErrorsTotal.Inc()
}
