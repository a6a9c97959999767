package audit

import (
	"math"
	"sort"
	"sync"

	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
)

// maxDurationSamples bounds the per-process duration sample window used for
// percentile computation; old samples are dropped FIFO.
const maxDurationSamples = 2048

// Registry is the metrics half of C8: monotonic counters plus a duration
// histogram, guarded by one mutex whose critical sections are limited to
// increments and slice pushes (§5 "single mutex with critical sections
// limited to counter increments and duration-vector pushes").
type Registry struct {
	mu sync.Mutex

	byTier               map[patterns.Tier]int64
	blocked              int64
	truncated            int64
	timeouts             int64
	confirmationRequired int64
	attempts             int64
	executions           int64
	confirmationConversions int64

	durationsMs []float64

	cpuPercentSamples []float64
	rssBytesSamples   []uint64
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byTier: make(map[patterns.Tier]int64)}
}

// RecordAttempt bumps attempt-side counters. Always called before a
// completion, per the Publisher's ordering contract.
func (r *Registry) RecordAttempt(tier patterns.Tier, blocked, confirmationRequired bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTier[tier]++
	r.attempts++
	if blocked {
		r.blocked++
	}
	if confirmationRequired {
		r.confirmationRequired++
	}
}

// RecordConfirmationConversion bumps the counter for a RISKY/UNKNOWN
// command that was retried with confirmed=true and proceeded.
func (r *Registry) RecordConfirmationConversion() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmationConversions++
}

// RecordCompletion bumps execution-side counters and pushes a duration
// sample. durationMs must be the ≥1ms real-execution duration (§3 invariant
// 7) — zero-duration attempts must not be passed here.
func (r *Registry) RecordCompletion(durationMs int64, timedOut, overflow bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executions++
	if timedOut {
		r.timeouts++
	}
	if overflow {
		r.truncated++
	}
	r.durationsMs = append(r.durationsMs, float64(durationMs))
	if len(r.durationsMs) > maxDurationSamples {
		r.durationsMs = r.durationsMs[len(r.durationsMs)-maxDurationSamples:]
	}
}

// SampleProcess records an optional process-level CPU/working-set sample
// (§3 "optional process-sampled CPU/WS aggregates"), gated by
// MCP_CAPTURE_PS_METRICS at the call site.
func (r *Registry) SampleProcess(cpuPercent float64, rssBytes uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cpuPercentSamples = append(r.cpuPercentSamples, cpuPercent)
	if len(r.cpuPercentSamples) > maxDurationSamples {
		r.cpuPercentSamples = r.cpuPercentSamples[len(r.cpuPercentSamples)-maxDurationSamples:]
	}
	r.rssBytesSamples = append(r.rssBytesSamples, rssBytes)
	if len(r.rssBytesSamples) > maxDurationSamples {
		r.rssBytesSamples = r.rssBytesSamples[len(r.rssBytesSamples)-maxDurationSamples:]
	}
}

// Snapshot is the read-only view exposed over `/api/metrics` and `/metrics`.
type Snapshot struct {
	ByTier                  map[patterns.Tier]int64 `json:"byTier"`
	Blocked                 int64                    `json:"blocked"`
	Truncated               int64                    `json:"truncated"`
	Timeouts                int64                    `json:"timeouts"`
	ConfirmationRequired    int64                    `json:"confirmationRequired"`
	ConfirmationConversions int64                    `json:"confirmationConversions"`
	Attempts                int64                    `json:"attempts"`
	Executions              int64                    `json:"executions"`
	AverageDurationMs       float64                  `json:"averageDurationMs"`
	P95DurationMs           float64                  `json:"p95DurationMs"`
	AttemptToExecutionRatio float64                  `json:"attemptToExecutionRatio"`
	ProcessCPUPercentAvg    float64                  `json:"processCpuPercentAvg,omitempty"`
	ProcessRSSBytesAvg      uint64                   `json:"processRssBytesAvg,omitempty"`
}

// Snapshot copies the registry under lock (§5 "snapshots copy under lock").
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTier := make(map[patterns.Tier]int64, len(r.byTier))
	for k, v := range r.byTier {
		byTier[k] = v
	}

	avg, p95 := durationStats(r.durationsMs)

	var ratio float64
	if r.attempts > 0 {
		ratio = float64(r.executions) / float64(r.attempts)
	}

	snap := Snapshot{
		ByTier:                  byTier,
		Blocked:                 r.blocked,
		Truncated:               r.truncated,
		Timeouts:                r.timeouts,
		ConfirmationRequired:    r.confirmationRequired,
		ConfirmationConversions: r.confirmationConversions,
		Attempts:                r.attempts,
		Executions:              r.executions,
		AverageDurationMs:       avg,
		P95DurationMs:           p95,
		AttemptToExecutionRatio: ratio,
	}

	if n := len(r.cpuPercentSamples); n > 0 {
		var sum float64
		for _, v := range r.cpuPercentSamples {
			sum += v
		}
		snap.ProcessCPUPercentAvg = sum / float64(n)
	}
	if n := len(r.rssBytesSamples); n > 0 {
		var sum uint64
		for _, v := range r.rssBytesSamples {
			sum += v
		}
		snap.ProcessRSSBytesAvg = sum / uint64(n)
	}

	return snap
}

// durationStats computes the running average and a p95 via ceil index,
// per §3 "histograms for duration (running avg, p95 via ceil index)".
func durationStats(samples []float64) (avg, p95 float64) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	avg = sum / float64(len(samples))

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.95*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	p95 = sorted[idx]
	// §4.8 "Enforce p95 >= mean for display": a handful of extreme outliers
	// can push the ceil-index element below the mean (e.g. nineteen 1ms
	// samples and one 1,000,000ms sample), which would otherwise violate
	// the §8 invariant p95DurationMs >= averageDurationMs.
	if p95 < avg {
		p95 = avg
	}
	return avg, p95
}
