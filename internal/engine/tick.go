package engine

import (
	"encoding/binary"
	"time"

	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
)

// Tick runs one cooperative pass of the state machine: up to
// constants.MaxStepsPerTick internal transitions, stopping early if no
// progress is made, exactly mirroring uart_engine_tick()'s step loop.
func (e *Engine) Tick() {
	if !e.enabled {
		return
	}

	for step := 0; step < constants.MaxStepsPerTick; step++ {
		nowMs := e.port.TickMs()
		e.maybeEnqueueHeartbeat(nowMs)

		if int32(nowMs-e.retryNotBefore) < 0 {
			return
		}

		if !e.step(nowMs) {
			return
		}
	}
}

// step performs one state transition and reports whether progress was
// made (false means the tick loop should stop early).
func (e *Engine) step(nowMs uint32) bool {
	switch e.state {
	case StateIdle:
		if e.queue.len() == 0 {
			return false
		}
		if !e.port.TryLock() {
			return false
		}
		j, ok := e.queue.pop()
		if !ok {
			e.port.Unlock()
			return false
		}
		e.active = j
		e.activeStart = time.Now()
		e.state = StateTxStart
		e.stateStartMs = nowMs
		if j.isHeartbeat {
			e.hbQueuedOrActive = true
		}
		return true

	case StateTxStart:
		e.jobStartTx(nowMs)
		return true

	case StateTxWait:
		if e.port.TxDone() {
			e.state = StateRxWait
			e.stateStartMs = nowMs
			e.rxGot = 0
			return true
		}
		if nowMs-e.stateStartMs >= uint32(constants.TxTimeout.Milliseconds()) {
			if e.logger != nil {
				e.logger.Debug("uart engine tx timeout", "cmd", e.active.desc.Cmd, "heartbeat", e.active.isHeartbeat)
			}
			e.jobFinishFailure(nowMs, "timeout")
			return true
		}
		return false

	case StateRxWait:
		return e.stepRxWait(nowMs)

	case StateProcess:
		e.stepProcess(nowMs)
		return true

	default:
		e.state = StateIdle
		e.clearActive()
		return true
	}
}

func (e *Engine) jobStartTx(nowMs uint32) {
	txBuf, ok := buildCmdBytes(e.active.desc.Cmd, e.active.desc.Width)
	if !ok {
		e.jobFinishFailure(nowMs, "bad_param")
		return
	}

	e.port.DiscardInput()
	e.port.TxDoneClear()

	if err := e.port.SendAsync(txBuf); err != nil {
		e.jobFinishFailure(nowMs, "tx_start_fail")
		return
	}

	e.state = StateTxWait
	e.stateStartMs = nowMs
}

// buildCmdBytes encodes the command id as 1 or 2 big-endian bytes.
func buildCmdBytes(cmd uint16, width reqtable.CmdWidth) ([]byte, bool) {
	switch width {
	case reqtable.CmdWidth8:
		return []byte{byte(cmd & 0xFF)}, true
	case reqtable.CmdWidth16:
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, cmd)
		return b, true
	default:
		return nil, false
	}
}

// rxCap mirrors uart_engine.c's request_rx_cap.
func rxCap(desc reqtable.RequestDescriptor) int {
	if !desc.Expect.Framed {
		return desc.Expect.FixedLen
	}
	if desc.Expect.FixedLen == 0 {
		return constants.MaxExpectedLen
	}
	return desc.Expect.FixedLen
}

// hasExpectedEnding mirrors uart_engine.c's rx_has_expected_ending.
func hasExpectedEnding(desc reqtable.RequestDescriptor, rx []byte) bool {
	if !desc.Expect.Framed {
		return false
	}
	endingLen := len(desc.Expect.Ending)
	if endingLen == 0 || endingLen > constants.MaxEndingLen || len(rx) < endingLen {
		return false
	}
	tail := rx[len(rx)-endingLen:]
	for i := range tail {
		if tail[i] != desc.Expect.Ending[i] {
			return false
		}
	}
	return true
}

func (e *Engine) stepRxWait(nowMs uint32) bool {
	cap := rxCap(e.active.desc)
	if cap == 0 {
		e.state = StateProcess
		return true
	}

	progressed := false
	if e.rxGot < cap {
		want := cap - e.rxGot
		n := e.port.Read(e.rxBuf[e.rxGot : e.rxGot+want])
		if n > 0 {
			e.rxGot += n
			progressed = true
		}
	}

	if e.active.desc.Expect.Framed {
		if hasExpectedEnding(e.active.desc, e.rxBuf[:e.rxGot]) {
			e.state = StateProcess
			return true
		}
		if e.rxGot >= cap {
			if e.logger != nil {
				e.logger.Debug("uart engine rx cap reached before ending", "cmd", e.active.desc.Cmd)
			}
			e.jobFinishFailure(nowMs, "rx_cap_before_ending")
			return true
		}
	} else if e.rxGot >= cap {
		e.state = StateProcess
		return true
	}

	if nowMs-e.stateStartMs >= e.active.desc.TimeoutMs {
		if e.logger != nil {
			e.logger.Debug("uart engine rx timeout", "cmd", e.active.desc.Cmd, "got", e.rxGot)
		}
		e.jobFinishFailure(nowMs, "rx_timeout")
		return true
	}

	return progressed
}

func (e *Engine) stepProcess(nowMs uint32) {
	ok := true
	if e.active.desc.Parser != nil {
		ok = e.active.desc.Parser(e.active.desc.Cmd, append([]byte(nil), e.rxBuf[:e.rxGot]...))
	}

	e.port.Unlock()
	latency := time.Since(e.activeStart)
	kind := e.active.desc.Name

	if ok {
		e.onJobSuccess()
		if e.active.isHeartbeat {
			e.hbQueuedOrActive = false
		}
		e.observer.ObserveJob(kind, "success", latency)
		e.state = StateIdle
		e.clearActive()
		return
	}

	e.observer.ObserveJob(kind, "parser_reject", latency)

	if e.active.retriesLeft > 0 {
		e.active.retriesLeft--
		if e.queue.push(e.active) {
			e.retryNotBefore = nowMs + uint32(constants.RetryCooldown.Milliseconds())
		} else {
			e.onJobFinalFailure()
			if e.active.isHeartbeat {
				e.hbQueuedOrActive = false
			}
		}
	} else {
		e.onJobFinalFailure()
		if e.active.isHeartbeat {
			e.hbQueuedOrActive = false
		}
	}

	e.state = StateIdle
	e.clearActive()
}

// jobFinishFailure mirrors uart_engine.c's job_finish_failure: release the
// lock, retry-or-final-fail, return to Idle.
func (e *Engine) jobFinishFailure(nowMs uint32, reason string) {
	e.port.Unlock()
	latency := time.Since(e.activeStart)
	kind := e.active.desc.Name

	if e.active.retriesLeft > 0 {
		e.active.retriesLeft--
		if e.queue.push(e.active) {
			e.retryNotBefore = nowMs + uint32(constants.RetryCooldown.Milliseconds())
			e.observer.ObserveJob(kind, "retry_"+reason, latency)
		} else {
			e.observer.ObserveJob(kind, "final_"+reason, latency)
			e.onJobFinalFailure()
			if e.active.isHeartbeat {
				e.hbQueuedOrActive = false
			}
		}
	} else {
		e.observer.ObserveJob(kind, "final_"+reason, latency)
		e.onJobFinalFailure()
		if e.active.isHeartbeat {
			e.hbQueuedOrActive = false
		}
	}

	e.state = StateIdle
	e.clearActive()
}

// onJobSuccess mirrors uart_engine.c's on_job_success: clears the
// heartbeat failure counter on a successful heartbeat.
func (e *Engine) onJobSuccess() {
	if e.active.isHeartbeat {
		e.hbConsecutiveFails = 0
	}
}

// onJobFinalFailure mirrors uart_engine.c's on_job_final_failure,
// including the deliberately surprising degraded-state values (see
// DESIGN.md's Open Question note): remaining_capacity and
// remaining_time_limit_s are forced to 1, not 0.
func (e *Engine) onJobFinalFailure() {
	if !e.active.isHeartbeat {
		return
	}
	if e.hbConsecutiveFails < constants.MaxHeartbeatFailures {
		e.hbConsecutiveFails++
	}
	e.observer.ObserveHeartbeatFailures(e.hbConsecutiveFails)

	threshold := e.hbCfg.FailureThreshold
	if threshold == 0 {
		threshold = constants.DefaultHeartbeatFailureThreshold
	}

	if e.hbConsecutiveFails >= threshold && e.telemetry != nil {
		e.telemetry.ApplyDegradedState()
	}
}

// maybeEnqueueHeartbeat mirrors uart_engine.c's maybe_enqueue_heartbeat:
// pushed at the tail, never preempting queued work.
func (e *Engine) maybeEnqueueHeartbeat(nowMs uint32) {
	if !e.hbEnabled || e.hbQueuedOrActive {
		return
	}
	if int32(nowMs-e.hbNextDueMs) < 0 {
		return
	}
	if e.queue.push(job{desc: e.hbCfg.Descriptor, retriesLeft: e.hbCfg.Descriptor.MaxRetries, isHeartbeat: true}) {
		e.hbQueuedOrActive = true
		interval := e.hbCfg.Interval
		if interval <= 0 {
			interval = constants.DefaultHeartbeatInterval
		}
		e.hbNextDueMs = nowMs + uint32(interval.Milliseconds())
	}
	e.observer.ObserveQueueDepth(e.queue.len())
}
