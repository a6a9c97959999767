package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	selfDestructMarginMs  = 300
	killVerificationDelay = 1500 * time.Millisecond
	adaptiveCheckInterval = 250 * time.Millisecond
)

// Supervisor implements C5.
type Supervisor struct {
	executor Executor
}

// New builds a Supervisor over the given process executor. Pass
// RealExecutor{} in production; tests inject a fake.
func New(executor Executor) *Supervisor {
	return &Supervisor{executor: executor}
}

// state is the mutable, mutex-guarded bookkeeping shared between the
// reader goroutines, the adaptive-extension ticker, and the main Execute
// goroutine. No suspension point ever happens while holding mu (§5 locking
// discipline).
type state struct {
	mu sync.Mutex

	stdoutChunks []string
	stderrChunks []string
	totalBytes   int64
	totalLines   int64
	overflow     bool
	truncated    bool

	lastActivity time.Time

	effectiveTimeoutMs int64
	adaptiveExtensions int

	reasonAssigned bool
	reason         TerminationReason
}

func (st *state) assignReasonOnce(r TerminationReason) (assigned bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.reasonAssigned {
		return false
	}
	st.reasonAssigned = true
	st.reason = r
	return true
}

// Execute implements the §4.5 contract.
func (s *Supervisor) Execute(ctx context.Context, req Request) Outcome {
	start := time.Now()

	configuredTimeoutMs := req.TimeoutSec * 1000
	maxTotalMs := req.Adaptive.ResolveMaxTotalSec(req.TimeoutSec) * 1000

	st := &state{
		effectiveTimeoutMs: configuredTimeoutMs,
		lastActivity:       start,
	}

	selfDestructMs := configuredTimeoutMs - selfDestructMarginMs
	args := buildArgs(req.CommandText, selfDestructMs, req.DisableSelfDestruct)

	proc, err := s.executor.Start(ctx, powershellBinary(), args, req.Cwd)
	if err != nil {
		log.Error("supervisor: spawn failed", "err", err)
		return Outcome{
			Success:             false,
			SpawnFailed:         true,
			FailureReason:       "spawn_failed",
			TerminationReason:   ReasonKilled,
			ConfiguredTimeoutMs: configuredTimeoutMs,
			EffectiveTimeoutMs:  configuredTimeoutMs,
			OverflowStrategy:    req.OverflowStrategy,
		}
	}

	overflowCh := make(chan struct{}, 1)
	var overflowOnce sync.Once
	signalOverflow := func() {
		overflowOnce.Do(func() { close(overflowCh) })
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go streamReader(&wg, proc.Stdout(), &st.stdoutChunks, st, req, signalOverflow, true)
	go streamReader(&wg, proc.Stderr(), &st.stderrChunks, st, req, signalOverflow, false)

	type waitResult struct {
		exitCode int
		err      error
	}
	waitCh := make(chan waitResult, 1)
	go func() {
		code, werr := proc.Wait()
		wg.Wait()
		waitCh <- waitResult{exitCode: code, err: werr}
	}()

	watchdog := time.NewTimer(time.Duration(configuredTimeoutMs) * time.Millisecond)
	defer watchdog.Stop()
	ticker := time.NewTicker(adaptiveCheckInterval)
	defer ticker.Stop()

	var (
		exitCode             int
		hadExit              bool
		timedOut             bool
		watchdogTriggered    bool
		internalSelfDestruct bool
		killEscalated        bool
	)

	// activeOverflowCh is nilled out after the overflow signal is handled
	// once, so a closed channel doesn't spin the select loop (a nil channel
	// case never becomes ready).
	activeOverflowCh := overflowCh

loop:
	for {
		select {
		case res := <-waitCh:
			exitCode = res.exitCode
			hadExit = true
			if exitCode == 124 {
				timedOut = true
				internalSelfDestruct = true
			}
			break loop

		case <-activeOverflowCh:
			activeOverflowCh = nil
			st.assignReasonOnce(ReasonOverflow)
			st.mu.Lock()
			st.overflow = true
			st.mu.Unlock()
			switch req.OverflowStrategy {
			case OverflowReturn:
				_ = proc.Signal()
				go func() {
					time.Sleep(killVerificationDelay)
					_ = proc.Kill()
				}()
				exitCode = 137
				hadExit = true
				break loop
			case OverflowTerminate:
				_ = proc.Signal()
				if req.HardKillOnOverflow {
					time.Sleep(killVerificationDelay)
					_ = proc.Kill()
				}
				// fall through to wait for the process to actually exit
			case OverflowTruncate:
				// stop consuming but let the child run to completion/timeout
			}

		case <-watchdog.C:
			timedOut = true
			watchdogTriggered = true
			_ = proc.Signal()

			select {
			case res := <-waitCh:
				exitCode = res.exitCode
				hadExit = true
			case <-time.After(killVerificationDelay):
				_ = proc.Kill()
				killEscalated = true
				select {
				case res := <-waitCh:
					exitCode = res.exitCode
					hadExit = true
				case <-time.After(killVerificationDelay):
					hadExit = false
				}
			}
			break loop

		case <-ticker.C:
			if !req.Adaptive.Enabled {
				continue
			}
			st.mu.Lock()
			remaining := st.effectiveTimeoutMs - time.Since(start).Milliseconds()
			sinceActivity := time.Since(st.lastActivity).Milliseconds()
			if remaining <= req.Adaptive.ExtendWindowMs && sinceActivity <= req.Adaptive.ExtendWindowMs {
				if st.effectiveTimeoutMs+req.Adaptive.ExtendStepMs <= maxTotalMs {
					st.effectiveTimeoutMs += req.Adaptive.ExtendStepMs
					st.adaptiveExtensions++
					newRemaining := st.effectiveTimeoutMs - time.Since(start).Milliseconds()
					watchdog.Reset(time.Duration(newRemaining) * time.Millisecond)
				}
			}
			st.mu.Unlock()
		}
	}

	durationMs := time.Since(start).Milliseconds()
	if durationMs < 1 {
		durationMs = 1
	}

	st.mu.Lock()
	outcome := Outcome{
		StdoutChunks:         append([]string(nil), st.stdoutChunks...),
		StderrChunks:         append([]string(nil), st.stderrChunks...),
		TotalBytes:           st.totalBytes,
		TotalLines:           st.totalLines,
		Overflow:             st.overflow,
		Truncated:            st.truncated,
		DurationMs:           durationMs,
		ConfiguredTimeoutMs:  configuredTimeoutMs,
		EffectiveTimeoutMs:   st.effectiveTimeoutMs,
		AdaptiveExtensions:   st.adaptiveExtensions,
		AdaptiveExtended:     st.adaptiveExtensions > 0,
		AdaptiveMaxTotalMs:   maxTotalMs,
		OverflowStrategy:     req.OverflowStrategy,
		TimedOut:             timedOut,
		InternalSelfDestruct: internalSelfDestruct,
		WatchdogTriggered:    watchdogTriggered,
		KillEscalated:        killEscalated,
	}
	st.mu.Unlock()

	if hadExit {
		ec := exitCode
		outcome.ExitCode = &ec
	}

	outcome.TerminationReason = classifyTermination(outcome, hadExit, exitCode, timedOut)
	outcome.Success = outcome.TerminationReason == ReasonCompleted

	return outcome
}

// classifyTermination implements §4.5's ordered classification rule. For the
// truncate strategy the output limit never stops the process, so overflow
// alone doesn't explain how it ended; termination falls through to the
// timeout/exit-code rules below instead.
func classifyTermination(o Outcome, hadExit bool, exitCode int, timedOut bool) TerminationReason {
	switch {
	case o.Overflow && o.OverflowStrategy != OverflowTruncate:
		return ReasonOverflow
	case timedOut || (hadExit && exitCode == 124):
		return ReasonTimeout
	case hadExit && exitCode == 0 && !timedOut && (!o.Overflow || o.OverflowStrategy == OverflowTruncate):
		return ReasonCompleted
	default:
		return ReasonKilled
	}
}

// streamReader reads from r in ChunkKB-sized chunks, appending to *chunks
// and updating shared counters, signalling overflow when either byte or
// line limits are exceeded (§4.5 streaming).
func streamReader(wg *sync.WaitGroup, r interface {
	Read(p []byte) (int, error)
}, chunks *[]string, st *state, req Request, signalOverflow func(), isStdout bool) {
	defer wg.Done()
	if r == nil {
		return
	}

	chunkSize := req.ChunkKB * 1024
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	maxBytes := req.MaxOutputKB * 1024
	maxLines := req.MaxLines

	buf := make([]byte, chunkSize)
	reader := bufio.NewReaderSize(r, int(chunkSize))

	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := string(buf[:n])
			lineCount := int64(bytes.Count(buf[:n], []byte{'\n'}))

			st.mu.Lock()
			if st.overflow && req.OverflowStrategy == OverflowTruncate {
				st.mu.Unlock()
				continue
			}
			*chunks = append(*chunks, chunk)
			st.totalBytes += int64(n)
			st.totalLines += lineCount
			st.lastActivity = time.Now()
			exceeded := (maxBytes > 0 && st.totalBytes > maxBytes) || (maxLines > 0 && st.totalLines > maxLines)
			if exceeded {
				st.truncated = true
			}
			st.mu.Unlock()

			if exceeded {
				signalOverflow()
			}
		}
		if err != nil {
			return
		}
	}
}
