// Package metrics collects per-run counters and exports them as a
// node-exporter textfile. Every run owns its registry; nothing is registered
// with the Prometheus default registerer.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "webtlo"

// Run holds the collectors for one job invocation.
type Run struct {
	registry *prometheus.Registry

	clientTasks    *prometheus.GaugeVec
	clientFailures *prometheus.CounterVec
	resolved       *prometheus.CounterVec
	keeperChanges  *prometheus.CounterVec
	runDuration    *prometheus.GaugeVec
	lastSuccess    *prometheus.GaugeVec
	runFailed      *prometheus.GaugeVec
}

// NewRun creates an empty metric set.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Run{
		registry: reg,
		clientTasks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "client_tasks",
			Help:      "Tasks reported by a torrent client in the last run, by status",
		}, []string{"client", "status"}),
		clientFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_failures_total",
			Help:      "Torrent client calls that failed during the run",
		}, []string{"client"}),
		resolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identity_resolved_total",
			Help:      "Task hashes resolved to releases, by lookup tier",
		}, []string{"tier"}),
		keeperChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keeper_changes_total",
			Help:      "Keeper roster rows inserted or deleted",
		}, []string{"change"}),
		runDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run",
		}, []string{"job"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_last_success_timestamp_seconds",
			Help:      "Unix time the job last finished without error",
		}, []string{"job"}),
		runFailed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_failed",
			Help:      "1 when the last run ended with an error",
		}, []string{"job"}),
	}
}

// SetClientTasks records the per-status task counts of one client.
func (m *Run) SetClientTasks(client string, byStatus map[string]int) {
	for status, n := range byStatus {
		m.clientTasks.WithLabelValues(client, status).Set(float64(n))
	}
}

// IncClientFailure counts a failed client call.
func (m *Run) IncClientFailure(client string) {
	m.clientFailures.WithLabelValues(client).Inc()
}

// AddResolved counts hashes resolved by the named tier.
func (m *Run) AddResolved(tier string, n int) {
	if n <= 0 {
		return
	}
	m.resolved.WithLabelValues(tier).Add(float64(n))
}

// AddKeeperChanges counts roster rows written by a reconciliation.
func (m *Run) AddKeeperChanges(inserted, deleted int64) {
	m.keeperChanges.WithLabelValues("inserted").Add(float64(inserted))
	m.keeperChanges.WithLabelValues("deleted").Add(float64(deleted))
}

// Finish records the outcome of a job.
func (m *Run) Finish(job string, duration time.Duration, err error, now time.Time) {
	m.runDuration.WithLabelValues(job).Set(duration.Seconds())
	if err != nil {
		m.runFailed.WithLabelValues(job).Set(1)
		return
	}
	m.runFailed.WithLabelValues(job).Set(0)
	m.lastSuccess.WithLabelValues(job).Set(float64(now.Unix()))
}

// Registry exposes the underlying gatherer.
func (m *Run) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile atomically writes the metric set in text exposition format.
// An empty path is a no-op.
func (m *Run) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
