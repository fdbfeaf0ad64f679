// Package metrics records per-run pipeline metrics and writes them in the
// node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yorozuya-cybersecurity/yoro-recon/internal/schema"
)

// Recorder holds the metrics of one pipeline run. A nil *Recorder records
// nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.GaugeVec
	toolExitCode  *prometheus.GaugeVec
	findingsTotal *prometheus.CounterVec
	liveHosts     prometheus.Gauge
	runSuccess    prometheus.Gauge
}

// NewRecorder registers the run metrics on a private registry, labelled
// with the target domain.
func NewRecorder(domain string) *Recorder {
	labels := prometheus.Labels{"domain": domain}

	r := &Recorder{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "recon_stage_duration_seconds",
			Help:        "Wall time spent in each pipeline stage",
			ConstLabels: labels,
		}, []string{"stage"}),
		toolExitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "recon_tool_exit_code",
			Help:        "Exit status of each external tool, -1 when it did not run to completion",
			ConstLabels: labels,
		}, []string{"tool"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "recon_findings_total",
			Help:        "Findings ingested, by severity",
			ConstLabels: labels,
		}, []string{"severity"}),
		liveHosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "recon_live_hosts",
			Help:        "Live web services found by the probe stage",
			ConstLabels: labels,
		}),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "recon_run_success",
			Help:        "1 when the last run reached the done state",
			ConstLabels: labels,
		}),
	}

	r.registry.MustRegister(r.stageDuration, r.toolExitCode, r.findingsTotal, r.liveHosts, r.runSuccess)

	for _, sev := range schema.Severities {
		r.findingsTotal.WithLabelValues(sev.String())
	}
	return r
}

// ObserveStage records how long stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

func (r *Recorder) ToolExit(tool string, code int) {
	if r == nil {
		return
	}
	r.toolExitCode.WithLabelValues(tool).Set(float64(code))
}

// Findings adds the counts of a severity tally.
func (r *Recorder) Findings(t schema.SeverityTally) {
	if r == nil {
		return
	}
	for _, sev := range schema.Severities {
		r.findingsTotal.WithLabelValues(sev.String()).Add(float64(t.Count(sev)))
	}
}

func (r *Recorder) LiveHosts(n int) {
	if r == nil {
		return
	}
	r.liveHosts.Set(float64(n))
}

func (r *Recorder) RunSucceeded(ok bool) {
	if r == nil {
		return
	}
	if ok {
		r.runSuccess.Set(1)
		return
	}
	r.runSuccess.Set(0)
}

// WriteTextfile writes all metrics to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
