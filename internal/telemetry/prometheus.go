package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PrometheusTracker counts signals in a private registry. When a Pushgateway
// URL is set, Flush pushes the counters under the configured job.
type PrometheusTracker struct {
	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	pusher   *push.Pusher
}

// NewPrometheusTracker registers the task counter. pushURL may be empty.
func NewPrometheusTracker(pushURL, job string) *PrometheusTracker {
	registry := prometheus.NewRegistry()
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grantcloser",
		Name:      "tasks_total",
		Help:      "Workflow tasks completed by the grant closure robot.",
	}, []string{"process", "kind"})
	registry.MustRegister(tasks)

	tracker := &PrometheusTracker{registry: registry, tasks: tasks}
	if pushURL != "" {
		tracker.pusher = push.New(pushURL, job).Gatherer(registry)
	}
	return tracker
}

func (t *PrometheusTracker) TrackTask(_ context.Context, processName string) {
	t.tasks.WithLabelValues(processName, string(KindTask)).Inc()
}

func (t *PrometheusTracker) TrackPartialTask(_ context.Context, processName string) {
	t.tasks.WithLabelValues(processName, string(KindPartialTask)).Inc()
}

// Registry exposes the gatherer for inspection.
func (t *PrometheusTracker) Registry() *prometheus.Registry {
	return t.registry
}

// Flush pushes the counters to the Pushgateway when one is configured.
func (t *PrometheusTracker) Flush(ctx context.Context) error {
	if t.pusher == nil {
		return nil
	}
	if err := t.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
