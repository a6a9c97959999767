package audit

import (
	"runtime"
	"time"
)

// ProcessSampler periodically pushes process-level CPU/working-set samples
// into a Registry when enabled via MCP_CAPTURE_PS_METRICS (§6.7). Sampling
// uses only `runtime`/`os` — no gopsutil-style dependency appears anywhere
// in the retrieved pack, so this stays on the standard library rather than
// introducing an unreferenced third-party dependency for a handful of
// gauge reads.
type ProcessSampler struct {
	registry *Registry
	interval time.Duration
}

// NewProcessSampler builds a sampler; call Run in a goroutine.
func NewProcessSampler(registry *Registry, interval time.Duration) *ProcessSampler {
	return &ProcessSampler{registry: registry, interval: interval}
}

// Run samples until ctx-like stop channel is closed.
func (s *ProcessSampler) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			cpuPercent := s.sampleCPUPercent()
			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			s.registry.SampleProcess(cpuPercent, mem.Sys)
		}
	}
}

// sampleCPUPercent is a coarse approximation: Go's runtime does not expose
// process CPU time portably without cgo, so this reports GC CPU fraction as
// a proxy rather than true process CPU percent. Good enough for a
// dashboard gauge, not for billing.
func (s *ProcessSampler) sampleCPUPercent() float64 {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return mem.GCCPUFraction * 100
}
