package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/opsgate/slb-mcp-gateway/internal/audit"
)

// snapshotCollector adapts audit.Registry's point-in-time Snapshot into
// Prometheus gauges on every scrape, rather than mirroring counters into a
// second set of prometheus.Counter instruments that could drift from the
// registry's own numbers.
type snapshotCollector struct {
	registry *audit.Registry

	attempts                 *prometheus.Desc
	executions                *prometheus.Desc
	blocked                   *prometheus.Desc
	truncated                 *prometheus.Desc
	timeouts                  *prometheus.Desc
	confirmationRequired      *prometheus.Desc
	confirmationConversions   *prometheus.Desc
	byTier                    *prometheus.Desc
	avgDurationMs             *prometheus.Desc
	p95DurationMs             *prometheus.Desc
	attemptToExecutionRatio   *prometheus.Desc
	processCPUPercent         *prometheus.Desc
	processRSSBytes           *prometheus.Desc
}

func newSnapshotCollector(registry *audit.Registry) *snapshotCollector {
	ns := "slb_mcp_gateway"
	return &snapshotCollector{
		registry:                registry,
		attempts:                prometheus.NewDesc(ns+"_attempts_total", "Total classified command attempts.", nil, nil),
		executions:              prometheus.NewDesc(ns+"_executions_total", "Total commands actually executed.", nil, nil),
		blocked:                 prometheus.NewDesc(ns+"_blocked_total", "Total attempts blocked by the gate.", nil, nil),
		truncated:               prometheus.NewDesc(ns+"_truncated_total", "Total executions whose output was truncated.", nil, nil),
		timeouts:                prometheus.NewDesc(ns+"_timeouts_total", "Total executions that timed out.", nil, nil),
		confirmationRequired:    prometheus.NewDesc(ns+"_confirmation_required_total", "Total attempts that required confirmation.", nil, nil),
		confirmationConversions: prometheus.NewDesc(ns+"_confirmation_conversions_total", "Total confirmation-required attempts later confirmed.", nil, nil),
		byTier:                  prometheus.NewDesc(ns+"_attempts_by_tier_total", "Total attempts by security tier.", []string{"tier"}, nil),
		avgDurationMs:           prometheus.NewDesc(ns+"_execution_duration_ms_avg", "Average execution duration in milliseconds.", nil, nil),
		p95DurationMs:           prometheus.NewDesc(ns+"_execution_duration_ms_p95", "P95 execution duration in milliseconds.", nil, nil),
		attemptToExecutionRatio: prometheus.NewDesc(ns+"_attempt_to_execution_ratio", "Ratio of executions to attempts.", nil, nil),
		processCPUPercent:       prometheus.NewDesc(ns+"_process_cpu_percent_avg", "Average sampled process CPU percent (approximate).", nil, nil),
		processRSSBytes:         prometheus.NewDesc(ns+"_process_rss_bytes_avg", "Average sampled process resident set size in bytes.", nil, nil),
	}
}

func (c *snapshotCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.attempts
	ch <- c.executions
	ch <- c.blocked
	ch <- c.truncated
	ch <- c.timeouts
	ch <- c.confirmationRequired
	ch <- c.confirmationConversions
	ch <- c.byTier
	ch <- c.avgDurationMs
	ch <- c.p95DurationMs
	ch <- c.attemptToExecutionRatio
	ch <- c.processCPUPercent
	ch <- c.processRSSBytes
}

func (c *snapshotCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.registry.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.attempts, prometheus.CounterValue, float64(snap.Attempts))
	ch <- prometheus.MustNewConstMetric(c.executions, prometheus.CounterValue, float64(snap.Executions))
	ch <- prometheus.MustNewConstMetric(c.blocked, prometheus.CounterValue, float64(snap.Blocked))
	ch <- prometheus.MustNewConstMetric(c.truncated, prometheus.CounterValue, float64(snap.Truncated))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(snap.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.confirmationRequired, prometheus.CounterValue, float64(snap.ConfirmationRequired))
	ch <- prometheus.MustNewConstMetric(c.confirmationConversions, prometheus.CounterValue, float64(snap.ConfirmationConversions))
	for tier, count := range snap.ByTier {
		ch <- prometheus.MustNewConstMetric(c.byTier, prometheus.CounterValue, float64(count), string(tier))
	}
	ch <- prometheus.MustNewConstMetric(c.avgDurationMs, prometheus.GaugeValue, snap.AverageDurationMs)
	ch <- prometheus.MustNewConstMetric(c.p95DurationMs, prometheus.GaugeValue, snap.P95DurationMs)
	ch <- prometheus.MustNewConstMetric(c.attemptToExecutionRatio, prometheus.GaugeValue, snap.AttemptToExecutionRatio)
	ch <- prometheus.MustNewConstMetric(c.processCPUPercent, prometheus.GaugeValue, snap.ProcessCPUPercentAvg)
	ch <- prometheus.MustNewConstMetric(c.processRSSBytes, prometheus.GaugeValue, snap.ProcessRSSBytesAvg)
}

// newPrometheusRegistry builds a registry scoped to this process: the
// snapshot collector plus (optionally) the standard Go/process collectors.
func newPrometheusRegistry(registry *audit.Registry, enableRuntimeCollectors bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(newSnapshotCollector(registry))
	if enableRuntimeCollectors {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return reg
}
