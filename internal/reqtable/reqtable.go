// Package reqtable defines the per-adapter request descriptor catalog:
// RequestDescriptor, HeartbeatConfig, and a runtime-selected Adapter
// interface in place of a preprocessor-selected adapter. Adapter tables
// themselves hold device-specific request/response shapes treated as
// opaque data rather than core engine logic; GenericUPSAdapter in
// adapter.go is one representative, minimal table.
package reqtable

import (
	"time"

	"github.com/opsbridge/ups-snmpd/internal/constants"
)

// CmdWidth is the bit-width of a request's command byte(s).
type CmdWidth int

const (
	CmdWidth8 CmdWidth = 8
	CmdWidth16 CmdWidth = 16
)

// Expectation describes how a response is framed.
type Expectation struct {
	// FixedLen, when Framed is false, is the exact expected response
	// length. When Framed is true and FixedLen > 0 it is the capacity
	// cap; 0 means use constants.MaxExpectedLen.
	FixedLen int
	Framed   bool
	// Ending is the terminator byte sequence tested against the tail of
	// the accumulated receive buffer when Framed is true.
	Ending []byte
}

// Parser inspects a completed transaction's command and received bytes and
// reports success. Implementations that mutate telemetry do so directly
// through a typed closure rather than a function-pointer-plus-untyped-
// output-buffer pair.
type Parser func(cmd uint16, rx []byte) bool

// RequestDescriptor is an immutable description of one UART request/response
// exchange.
type RequestDescriptor struct {
	Name        string
	Cmd         uint16
	Width       CmdWidth
	Expect      Expectation
	TimeoutMs   uint32
	MaxRetries  int
	Parser      Parser
}

// Validate checks the descriptor's acceptance rules.
func (d RequestDescriptor) Validate() error {
	if d.Width != CmdWidth8 && d.Width != CmdWidth16 {
		return errBadParam("invalid command bit-width")
	}
	if d.Expect.FixedLen > constants.MaxExpectedLen {
		return errBadParam("fixed response length exceeds cap")
	}
	if d.Expect.Framed {
		if len(d.Expect.Ending) == 0 || len(d.Expect.Ending) > constants.MaxEndingLen {
			return errBadParam("framed ending length out of range")
		}
	}
	return nil
}

type badParamError string

func (e badParamError) Error() string { return string(e) }
func errBadParam(msg string) error    { return badParamError(msg) }

// HeartbeatConfig wraps a RequestDescriptor with liveness-probe timing.
type HeartbeatConfig struct {
	Descriptor       RequestDescriptor
	Interval         time.Duration
	FailureThreshold uint8
}

// Normalized returns a copy with zero Interval/FailureThreshold replaced by
// this package's documented defaults.
func (h HeartbeatConfig) Normalized() HeartbeatConfig {
	if h.Interval <= 0 {
		h.Interval = constants.DefaultHeartbeatInterval
	}
	if h.FailureThreshold == 0 {
		h.FailureThreshold = constants.DefaultHeartbeatFailureThreshold
	}
	return h
}

// Adapter exposes an adapter's constant table, dynamic table, and heartbeat
// descriptor/expected-reply pair. Concrete adapters hold opaque,
// device-specific data.
type Adapter interface {
	ConstantTable() []RequestDescriptor
	DynamicTable() []RequestDescriptor
	HeartbeatDescriptor() RequestDescriptor
	HeartbeatExpectedReply() []byte
}
