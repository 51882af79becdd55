package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
	"github.com/opsbridge/ups-snmpd/internal/serial"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

func pingDescriptor(parser reqtable.Parser) reqtable.RequestDescriptor {
	return reqtable.RequestDescriptor{
		Name:       "ping",
		Cmd:        0x01,
		Width:      reqtable.CmdWidth8,
		Expect:     reqtable.Expectation{FixedLen: 2},
		TimeoutMs:  uint32(constants.TxTimeout.Milliseconds()),
		MaxRetries: 0,
		Parser:     parser,
	}
}

func newTestEngine(t *testing.T, port *serial.MockPort) (*Engine, *telemetry.Snapshot) {
	t.Helper()
	snap := telemetry.DefaultSnapshot()
	e := New(Config{
		Port:      port,
		Observer:  interfaces.NoOpObserver{},
		Telemetry: snap,
	})
	e.Init()
	return e, snap
}

func runUntilIdle(e *Engine, maxTicks int) {
	for i := 0; i < maxTicks && e.IsBusy(); i++ {
		e.Tick()
	}
}

func TestEnqueueRejectsWhenDisabled(t *testing.T) {
	e, _ := newTestEngine(t, serial.NewMockPort(nil))
	e.SetEnabled(false)
	err := e.Enqueue(pingDescriptor(nil))
	assert.Error(t, err)
}

func TestEnqueueRejectsBadDescriptor(t *testing.T) {
	e, _ := newTestEngine(t, serial.NewMockPort(nil))
	bad := pingDescriptor(nil)
	bad.Width = 0
	err := e.Enqueue(bad)
	assert.Error(t, err)
}

func TestEnqueueFillsQueueToCapacity(t *testing.T) {
	small := New(Config{Port: serial.NewMockPort(nil), QueueCapacity: 2, Observer: interfaces.NoOpObserver{}})
	small.Init()
	require.NoError(t, small.Enqueue(pingDescriptor(nil)))
	require.NoError(t, small.Enqueue(pingDescriptor(nil)))
	assert.Error(t, small.Enqueue(pingDescriptor(nil)))
}

// TestSuccessfulTransactionDrainsQueue covers the golden-path scenario: a
// single request with a matching canned reply completes, clearing the queue.
func TestSuccessfulTransactionDrainsQueue(t *testing.T) {
	port := serial.NewMockPort(nil)
	e, _ := newTestEngine(t, port)

	port.QueueRx([]byte{0x4F, 0x4B})
	got := false
	desc := pingDescriptor(func(cmd uint16, rx []byte) bool {
		got = true
		return len(rx) == 2 && rx[0] == 0x4F && rx[1] == 0x4B
	})
	require.NoError(t, e.Enqueue(desc))

	runUntilIdle(e, 20)

	assert.True(t, got)
	assert.False(t, e.IsBusy())
	assert.Equal(t, 0, e.QueueDepth())
	assert.Len(t, port.SentFrames, 1)
}

// TestParserRejectionRetriesThenFails exercises the retry-with-cooldown
// path: a parser that always rejects exhausts its retries and finishes
// as a final failure without panicking or wedging the state machine.
func TestParserRejectionRetriesThenFails(t *testing.T) {
	base := time.Now()
	cur := base
	port := serial.NewMockPort(func() time.Time { return cur })
	e, _ := newTestEngine(t, port)

	desc := pingDescriptor(func(cmd uint16, rx []byte) bool { return false })
	desc.MaxRetries = 2
	port.QueueRx([]byte{0x00, 0x00})
	require.NoError(t, e.Enqueue(desc))

	for i := 0; i < 50 && e.IsBusy(); i++ {
		e.Tick()
		cur = cur.Add(30 * time.Millisecond)
		port.QueueRx([]byte{0x00, 0x00})
	}

	assert.False(t, e.IsBusy())
	assert.Equal(t, 0, e.QueueDepth())
}

// TestRxTimeoutIsTreatedAsFailure exercises the unresponsive-device
// scenario: no reply ever arrives, so the state machine must time out the
// RX wait rather than hang forever.
func TestRxTimeoutIsTreatedAsFailure(t *testing.T) {
	base := time.Now()
	cur := base
	port := serial.NewMockPort(func() time.Time { return cur })
	e, _ := newTestEngine(t, port)

	desc := pingDescriptor(func(cmd uint16, rx []byte) bool { return true })
	desc.TimeoutMs = 50
	desc.MaxRetries = 0
	require.NoError(t, e.Enqueue(desc))

	for i := 0; i < 200 && e.IsBusy(); i++ {
		e.Tick()
		cur = cur.Add(10 * time.Millisecond)
	}

	assert.False(t, e.IsBusy())
	assert.Equal(t, 0, e.QueueDepth())
}

// TestHeartbeatRepeatedFailureAppliesDegradedState covers the
// degraded-state scenario: a heartbeat that never gets the expected reply,
// repeated past the failure threshold, must apply the exact (not "fixed")
// degraded values documented in DESIGN.md's Open Question note.
func TestHeartbeatRepeatedFailureAppliesDegradedState(t *testing.T) {
	base := time.Now()
	cur := base
	port := serial.NewMockPort(func() time.Time { return cur })
	e, snap := newTestEngine(t, port)

	hbDesc := reqtable.RequestDescriptor{
		Name:       "heartbeat",
		Cmd:        0x00,
		Width:      reqtable.CmdWidth8,
		Expect:     reqtable.Expectation{Framed: true, Ending: []byte{0x0D, 0x0A}},
		TimeoutMs:  30,
		MaxRetries: 0,
	}
	hbDesc.Parser = func(cmd uint16, rx []byte) bool {
		return len(rx) == 4 && rx[0] == 0x48 && rx[1] == 0x49
	}

	e.SetHeartbeat(&reqtable.HeartbeatConfig{
		Descriptor:       hbDesc,
		Interval:         10 * time.Millisecond,
		FailureThreshold: 3,
	})

	for i := 0; i < 400; i++ {
		e.Tick()
		cur = cur.Add(10 * time.Millisecond)
	}

	view := snap.View()
	assert.EqualValues(t, 1, view.Battery.RemainingCapacity)
	assert.EqualValues(t, 1, view.Battery.RemainingTimeLimit)
	assert.GreaterOrEqual(t, e.HeartbeatConsecutiveFailures(), uint8(3))
}

// TestHeartbeatNeverPreemptsQueuedWork ensures the heartbeat is injected
// only at the tail and never displaces already-queued jobs.
func TestHeartbeatNeverPreemptsQueuedWork(t *testing.T) {
	port := serial.NewMockPort(nil)
	e, _ := newTestEngine(t, port)

	require.NoError(t, e.Enqueue(pingDescriptor(func(uint16, []byte) bool { return true })))
	depthBefore := e.QueueDepth()

	e.SetHeartbeat(&reqtable.HeartbeatConfig{
		Descriptor: reqtable.RequestDescriptor{
			Name:   "heartbeat",
			Cmd:    0x00,
			Width:  reqtable.CmdWidth8,
			Expect: reqtable.Expectation{Framed: true, Ending: []byte{0x0D, 0x0A}},
		},
		Interval:         0,
		FailureThreshold: 5,
	})
	e.maybeEnqueueHeartbeat(0)

	assert.Equal(t, depthBefore+1, e.QueueDepth())
}

func TestSetEnabledFalseReleasesPortLock(t *testing.T) {
	port := serial.NewMockPort(nil)
	e, _ := newTestEngine(t, port)
	require.True(t, port.TryLock())
	port.Unlock()

	require.NoError(t, e.Enqueue(pingDescriptor(func(uint16, []byte) bool { return true })))
	e.Tick()
	e.SetEnabled(false)

	assert.False(t, port.IsLocked())
	assert.False(t, e.IsBusy())
}

func TestBuildCmdBytesWidths(t *testing.T) {
	b8, ok := buildCmdBytes(0xAB, reqtable.CmdWidth8)
	require.True(t, ok)
	assert.Equal(t, []byte{0xAB}, b8)

	b16, ok := buildCmdBytes(0x1234, reqtable.CmdWidth16)
	require.True(t, ok)
	assert.Equal(t, []byte{0x12, 0x34}, b16)

	_, ok = buildCmdBytes(1, reqtable.CmdWidth(0))
	assert.False(t, ok)
}
