// Package engine implements the UART transaction engine: a bounded FIFO
// job queue driven by a cooperative, single-threaded state machine with
// per-request timeout/retry/cooldown semantics, heartbeat injection, and
// degraded-state detection. It uses a Config+Logger+Observer+explicit-clock
// constructor shape so every dependency is injectable and the whole
// engine is testable without real serial hardware.
package engine

import (
	"time"

	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// State is the UART transaction engine's state machine position.
type State int

const (
	StateIdle State = iota
	StateTxStart
	StateTxWait
	StateRxWait
	StateProcess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTxStart:
		return "tx_start"
	case StateTxWait:
		return "tx_wait"
	case StateRxWait:
		return "rx_wait"
	case StateProcess:
		return "process"
	default:
		return "unknown"
	}
}

// job is a queued or in-flight request instance.
type job struct {
	desc        reqtable.RequestDescriptor
	retriesLeft int
	isHeartbeat bool
}

// ringQueue is a bounded FIFO, mirroring uart_engine.c's s_queue ring
// buffer exactly (fixed capacity, head/tail/count).
type ringQueue struct {
	buf   []job
	head  int
	tail  int
	count int
}

func newRingQueue(capacity int) *ringQueue {
	return &ringQueue{buf: make([]job, capacity)}
}

func (q *ringQueue) full() bool { return q.count >= len(q.buf) }
func (q *ringQueue) len() int   { return q.count }

func (q *ringQueue) push(j job) bool {
	if q.full() {
		return false
	}
	q.buf[q.tail] = j
	q.tail = (q.tail + 1) % len(q.buf)
	q.count++
	return true
}

func (q *ringQueue) pop() (job, bool) {
	if q.count == 0 {
		return job{}, false
	}
	j := q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return j, true
}

func (q *ringQueue) reset() {
	q.head, q.tail, q.count = 0, 0, 0
}

// Config configures a new Engine.
type Config struct {
	Port      interfaces.SerialPort
	Logger    interfaces.Logger
	Observer  interfaces.Observer
	Telemetry *telemetry.Snapshot
	// QueueCapacity defaults to constants.EngineQueueSize when 0.
	QueueCapacity int
}

// Engine is the cooperative UART transaction engine. It is not safe for
// concurrent use: all methods are intended to be called from a single
// main-loop goroutine.
type Engine struct {
	port      interfaces.SerialPort
	logger    interfaces.Logger
	observer  interfaces.Observer
	telemetry *telemetry.Snapshot

	queue *ringQueue

	enabled bool

	state          State
	stateStartMs   uint32
	retryNotBefore uint32

	active      job
	activeStart time.Time
	rxBuf       []byte
	rxGot       int

	hbEnabled           bool
	hbCfg               reqtable.HeartbeatConfig
	hbNextDueMs         uint32
	hbConsecutiveFails  uint8
	hbQueuedOrActive    bool
}

// New constructs a disabled Engine; call Init to enable it.
func New(cfg Config) *Engine {
	cap := cfg.QueueCapacity
	if cap <= 0 {
		cap = constants.EngineQueueSize
	}
	logger := cfg.Logger
	observer := cfg.Observer
	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}
	return &Engine{
		port:      cfg.Port,
		logger:    logger,
		observer:  observer,
		telemetry: cfg.Telemetry,
		queue:     newRingQueue(cap),
		rxBuf:     make([]byte, constants.MaxExpectedLen),
	}
}

// Init clears queue and state and enables the engine.
func (e *Engine) Init() {
	e.queue.reset()
	e.state = StateIdle
	e.stateStartMs = 0
	e.retryNotBefore = 0
	e.hbEnabled = false
	e.hbCfg = reqtable.HeartbeatConfig{}
	e.hbNextDueMs = 0
	e.hbConsecutiveFails = 0
	e.hbQueuedOrActive = false
	e.enabled = true
	e.clearActive()
}

// SetEnabled toggles the engine; disabling drops all queued/active state,
// releases the lock, and disables heartbeat.
func (e *Engine) SetEnabled(enable bool) {
	if enable == e.enabled {
		return
	}
	e.enabled = enable
	if !e.enabled {
		e.queue.reset()
		e.state = StateIdle
		e.stateStartMs = 0
		e.retryNotBefore = 0
		e.hbEnabled = false
		e.hbCfg = reqtable.HeartbeatConfig{}
		e.hbNextDueMs = 0
		e.hbConsecutiveFails = 0
		e.hbQueuedOrActive = false
		e.clearActive()
		if e.port != nil {
			e.port.Unlock()
		}
	}
}

// IsEnabled reports whether the engine is enabled.
func (e *Engine) IsEnabled() bool { return e.enabled }

// IsBusy is true iff state != Idle or the queue is non-empty.
func (e *Engine) IsBusy() bool {
	return e.state != StateIdle || e.queue.len() != 0
}

// QueueDepth returns the current number of queued (not active) jobs.
func (e *Engine) QueueDepth() int { return e.queue.len() }

// HeartbeatQueuedOrActive reports whether a heartbeat job currently exists
// in the queue or in flight — at most one may exist at a time.
func (e *Engine) HeartbeatQueuedOrActive() bool { return e.hbQueuedOrActive }

// HeartbeatConsecutiveFailures returns the saturating failure counter.
func (e *Engine) HeartbeatConsecutiveFailures() uint8 { return e.hbConsecutiveFails }

func (e *Engine) clearActive() {
	e.active = job{}
	e.rxGot = 0
}
