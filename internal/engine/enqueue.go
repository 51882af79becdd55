package engine

import (
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
)

// Enqueue validates desc and pushes a non-heartbeat job onto the queue.
func (e *Engine) Enqueue(desc reqtable.RequestDescriptor) error {
	if !e.enabled {
		return errEngine("Enqueue", codeDisabled, "engine is disabled")
	}
	if err := desc.Validate(); err != nil {
		return errEngine("Enqueue", codeBadParam, err.Error())
	}
	if !e.queue.push(job{desc: desc, retriesLeft: desc.MaxRetries}) {
		return errEngine("Enqueue", codeQueueFull, "queue at capacity")
	}
	e.observer.ObserveQueueDepth(e.queue.len())
	return nil
}

// SetHeartbeat installs or clears the heartbeat descriptor. Passing a nil
// cfg clears it and resets the failure counter.
//
// This method exists to satisfy the engine's full contract but is unused
// by the default bootstrap/refresh scheduler (see internal/scheduler's
// package doc and DESIGN.md's Open Question note): bootstrap submits its
// heartbeat check through Enqueue, and the engine heartbeat is never
// enabled.
func (e *Engine) SetHeartbeat(cfg *reqtable.HeartbeatConfig) {
	if !e.enabled {
		return
	}
	if cfg == nil {
		e.hbEnabled = false
		e.hbQueuedOrActive = false
		e.hbConsecutiveFails = 0
		return
	}

	normalized := cfg.Normalized()
	if err := normalized.Descriptor.Validate(); err != nil {
		e.hbEnabled = false
		return
	}

	e.hbCfg = normalized
	e.hbEnabled = true
	if e.port != nil {
		e.hbNextDueMs = e.port.TickMs()
	}
	e.hbConsecutiveFails = 0
	e.hbQueuedOrActive = false
}

type engineError struct {
	op   string
	code string
	msg  string
}

func (e *engineError) Error() string { return e.op + ": " + e.msg }

const (
	codeDisabled  = "disabled"
	codeBadParam  = "bad_param"
	codeQueueFull = "queue_full"
)

func errEngine(op, code, msg string) error {
	return &engineError{op: op, code: code, msg: msg}
}

// Code returns the engine error's category string, for callers that want
// to branch on it without depending on the root package's ErrorCode type.
func (e *engineError) Code() string { return e.code }
