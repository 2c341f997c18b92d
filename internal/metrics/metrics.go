// Package metrics provides Prometheus metrics for the explorer core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tree store metrics
	treeCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_tree_commands_total",
			Help: "Total number of structural commands applied to trees",
		},
		[]string{"command"},
	)

	treeNodesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_tree_children_resolutions_total",
			Help: "Total number of lazy child resolutions",
		},
		[]string{"status"},
	)

	// Remote call metrics
	remoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_remote_requests_total",
			Help: "Total number of tree-service requests",
		},
		[]string{"operation", "status"},
	)

	remoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skydesk_remote_request_duration_seconds",
			Help:    "Tree-service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Reconciler metrics
	pendingOperations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "skydesk_pending_operations",
			Help: "Number of in-flight optimistic mutations awaiting confirmation",
		},
	)

	reconcileDispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skydesk_reconcile_dispatches_total",
			Help: "Total number of tree updates dispatched to remote operations",
		},
		[]string{"handler"},
	)

	// Action pipeline metrics
	actionEvaluationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "skydesk_action_evaluations_total",
			Help: "Total number of action-list computations",
		},
	)
)

// RecordTreeCommand increments the counter for an applied structural command.
func RecordTreeCommand(command string) {
	treeCommandsTotal.WithLabelValues(command).Inc()
}

// RecordChildResolution records a lazy child resolution outcome ("ok" or "error").
func RecordChildResolution(status string) {
	treeNodesResolved.WithLabelValues(status).Inc()
}

// RecordRemoteRequest records a tree-service request outcome.
func RecordRemoteRequest(operation, status string, seconds float64) {
	remoteRequestsTotal.WithLabelValues(operation, status).Inc()
	remoteRequestDuration.WithLabelValues(operation).Observe(seconds)
}

// PendingOperationStarted increments the in-flight operation gauge.
func PendingOperationStarted() {
	pendingOperations.Inc()
}

// PendingOperationDone decrements the in-flight operation gauge.
func PendingOperationDone() {
	pendingOperations.Dec()
}

// RecordReconcileDispatch records a reconciler dispatch to a named handler.
func RecordReconcileDispatch(handler string) {
	reconcileDispatchesTotal.WithLabelValues(handler).Inc()
}

// RecordActionEvaluation records one action-list computation.
func RecordActionEvaluation() {
	actionEvaluationsTotal.Inc()
}
