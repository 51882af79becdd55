// Package scheduler implements the bootstrap/refresh state machine that
// drives internal/engine: a one-shot heartbeat-gated bootstrap sequence
// followed by a periodic dynamic-table refresh cycle, expressed as a
// struct-held state machine taking a Config+Logger constructor.
//
// The heartbeat descriptor is consulted only during the
// EnqueueHeartbeat/WaitHeartbeatDrain/HeartbeatVerify steps below, where it
// is submitted through engine.Enqueue as an ordinary job with a capture
// parser. This scheduler never calls engine.SetHeartbeat, neither during
// bootstrap nor after Done. internal/engine.SetHeartbeat and its injection
// path remain fully implemented and tested in isolation (see DESIGN.md's
// Open Question note) but go unused by this scheduler.
package scheduler

import (
	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
)

// State is the bootstrap sequence's position, one of nine steps from
// EnqueueHeartbeat through Done.
type State int

const (
	StateEnqueueHeartbeat State = iota
	StateWaitHeartbeatDrain
	StateHeartbeatVerify
	StateWaitRetry
	StateEnqueueConstant
	StateEnqueueDynamic
	StateWaitDrain
	StateSanityCheck
	StateDone
)

func (s State) String() string {
	switch s {
	case StateEnqueueHeartbeat:
		return "enqueue_heartbeat"
	case StateWaitHeartbeatDrain:
		return "wait_heartbeat_drain"
	case StateHeartbeatVerify:
		return "heartbeat_verify"
	case StateWaitRetry:
		return "wait_retry"
	case StateEnqueueConstant:
		return "enqueue_constant"
	case StateEnqueueDynamic:
		return "enqueue_dynamic"
	case StateWaitDrain:
		return "wait_drain"
	case StateSanityCheck:
		return "sanity_check"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// engine is the subset of *engine.Engine the scheduler drives, declared
// locally so tests can drive the scheduler against a lightweight fake
// without constructing a real engine and serial port.
type engine interface {
	Enqueue(desc reqtable.RequestDescriptor) error
	SetHeartbeat(cfg *reqtable.HeartbeatConfig)
	IsBusy() bool
}

// telemetryReader is the read-only slice of *telemetry.Snapshot the
// sanity check needs.
type telemetryReader interface {
	RemainingCapacity() uint8
}

// Config configures a Scheduler.
type Config struct {
	Engine    engine
	Adapter   reqtable.Adapter
	Telemetry telemetryReader
	Logger    interfaces.Logger
	NowMs     func() uint32

	DynamicUpdatePeriodMs uint32 // defaults to constants.DynamicUpdatePeriod
	InitRetryPeriodMs     uint32 // defaults to constants.InitRetryPeriod
}

// Scheduler runs the bootstrap/refresh cycle. Like Engine, it is not safe
// for concurrent use and is intended to be ticked from a single
// main-loop goroutine.
type Scheduler struct {
	cfg Config

	state              State
	constantIdx        int
	dynamicIdx         int
	initRetryNotBefore uint32
	bootstrapStarted   bool
	bootstrapStartMs   uint32

	heartbeatRx   []byte
	heartbeatDone bool

	dynamicCycleActive bool
	dynamicUpdateIdx   int
	nextDynamicUpdate  uint32
}

// New constructs a Scheduler in its initial EnqueueHeartbeat state.
func New(cfg Config) *Scheduler {
	if cfg.DynamicUpdatePeriodMs == 0 {
		cfg.DynamicUpdatePeriodMs = uint32(constants.DynamicUpdatePeriod.Milliseconds())
	}
	if cfg.InitRetryPeriodMs == 0 {
		cfg.InitRetryPeriodMs = uint32(constants.InitRetryPeriod.Milliseconds())
	}
	return &Scheduler{cfg: cfg, state: StateEnqueueHeartbeat}
}

// State reports the scheduler's current bootstrap state.
func (s *Scheduler) State() State { return s.state }

// IsBootstrapped reports whether bootstrap has reached Done and the
// periodic dynamic refresh cycle is now driving updates.
func (s *Scheduler) IsBootstrapped() bool { return s.state == StateDone }

func (s *Scheduler) resetForRetry(nowMs uint32) {
	s.constantIdx = 0
	s.dynamicIdx = 0
	s.heartbeatRx = nil
	s.heartbeatDone = false
	s.initRetryNotBefore = nowMs + s.cfg.InitRetryPeriodMs
	s.state = StateWaitRetry
}

// enqueueLUTStep pushes up to constants.EnqueueBurstPerTick descriptors
// from lut starting at *idx, stopping early if the queue fills, matching
// ups_enqueue_full_lut_step's bounded burst exactly.
func (s *Scheduler) enqueueLUTStep(lut []reqtable.RequestDescriptor, idx *int) {
	if *idx >= len(lut) {
		return
	}
	burst := 0
	for *idx < len(lut) && burst < constants.EnqueueBurstPerTick {
		if err := s.cfg.Engine.Enqueue(lut[*idx]); err != nil {
			break
		}
		*idx++
		burst++
	}
}

// Tick advances the bootstrap state machine by one step, mirroring
// ups_bootstrap_task's switch. Call once per main-loop iteration.
func (s *Scheduler) Tick() {
	nowMs := s.cfg.NowMs()
	if !s.bootstrapStarted {
		s.bootstrapStarted = true
		s.bootstrapStartMs = nowMs
	}

	switch s.state {
	case StateEnqueueHeartbeat:
		s.stepEnqueueHeartbeat(nowMs)

	case StateWaitHeartbeatDrain:
		if !s.cfg.Engine.IsBusy() {
			s.state = StateHeartbeatVerify
		}

	case StateHeartbeatVerify:
		s.stepHeartbeatVerify(nowMs)

	case StateWaitRetry:
		if int32(nowMs-s.initRetryNotBefore) >= 0 {
			s.state = StateEnqueueHeartbeat
		}

	case StateEnqueueConstant:
		s.enqueueLUTStep(s.cfg.Adapter.ConstantTable(), &s.constantIdx)
		if s.constantIdx >= len(s.cfg.Adapter.ConstantTable()) {
			s.state = StateEnqueueDynamic
		}

	case StateEnqueueDynamic:
		s.enqueueLUTStep(s.cfg.Adapter.DynamicTable(), &s.dynamicIdx)
		if s.dynamicIdx >= len(s.cfg.Adapter.DynamicTable()) {
			s.state = StateWaitDrain
		}

	case StateWaitDrain:
		if !s.cfg.Engine.IsBusy() {
			s.state = StateSanityCheck
		}

	case StateSanityCheck:
		s.stepSanityCheck(nowMs)

	case StateDone:
		s.tickDynamicRefresh(nowMs)
	}
}

func (s *Scheduler) stepEnqueueHeartbeat(nowMs uint32) {
	hbDesc := s.cfg.Adapter.HeartbeatDescriptor()
	expected := s.cfg.Adapter.HeartbeatExpectedReply()
	hbDesc.Parser = func(cmd uint16, rx []byte) bool {
		s.heartbeatDone = false
		s.heartbeatRx = nil
		if len(rx) == 0 {
			return false
		}
		s.heartbeatRx = append([]byte(nil), rx...)
		s.heartbeatDone = true
		return bytesEqual(rx, expected)
	}

	if err := s.cfg.Engine.Enqueue(hbDesc); err == nil {
		s.heartbeatDone = false
		s.state = StateWaitHeartbeatDrain
	} else {
		s.resetForRetry(nowMs)
	}
}

func (s *Scheduler) stepHeartbeatVerify(nowMs uint32) {
	expected := s.cfg.Adapter.HeartbeatExpectedReply()
	if s.heartbeatDone && len(expected) > 0 && bytesEqual(s.heartbeatRx, expected) {
		s.state = StateEnqueueConstant
		return
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug("bootstrap heartbeat failed", "retry_ms", s.cfg.InitRetryPeriodMs)
	}
	s.resetForRetry(nowMs)
}

func (s *Scheduler) stepSanityCheck(nowMs uint32) {
	if s.cfg.Telemetry != nil && s.cfg.Telemetry.RemainingCapacity() > 0 {
		s.nextDynamicUpdate = nowMs + s.cfg.DynamicUpdatePeriodMs
		s.state = StateDone
		if s.cfg.Logger != nil {
			s.cfg.Logger.Info("bootstrap complete", "elapsed_ms", nowMs-s.bootstrapStartMs)
		}
		return
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug("bootstrap sanity check failed (remaining_capacity=0)", "retry_ms", s.cfg.InitRetryPeriodMs)
	}
	s.resetForRetry(nowMs)
}

// tickDynamicRefresh mirrors ups_dynamic_update_task exactly: once
// bootstrap is Done, periodically re-pump the adapter's dynamic table.
func (s *Scheduler) tickDynamicRefresh(nowMs uint32) {
	if !s.dynamicCycleActive {
		if int32(nowMs-s.nextDynamicUpdate) < 0 {
			return
		}
		s.dynamicCycleActive = true
		s.dynamicUpdateIdx = 0
	}

	table := s.cfg.Adapter.DynamicTable()
	if s.dynamicUpdateIdx < len(table) {
		s.enqueueLUTStep(table, &s.dynamicUpdateIdx)
		return
	}

	if s.cfg.Engine.IsBusy() {
		return
	}

	s.dynamicCycleActive = false
	s.nextDynamicUpdate = nowMs + s.cfg.DynamicUpdatePeriodMs
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug("dynamic refresh cycle complete")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
