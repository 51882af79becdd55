package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbridge/ups-snmpd/internal/reqtable"
)

// fakeEngine is a minimal in-memory stand-in for *engine.Engine, enough
// to drive the scheduler's state transitions deterministically.
type fakeEngine struct {
	enqueued  []reqtable.RequestDescriptor
	busy      bool
	failNext  bool
	onEnqueue func(reqtable.RequestDescriptor)
}

func (f *fakeEngine) Enqueue(desc reqtable.RequestDescriptor) error {
	if f.failNext {
		f.failNext = false
		return assertError("enqueue failed")
	}
	f.enqueued = append(f.enqueued, desc)
	if f.onEnqueue != nil {
		f.onEnqueue(desc)
	}
	return nil
}

func (f *fakeEngine) SetHeartbeat(cfg *reqtable.HeartbeatConfig) {}
func (f *fakeEngine) IsBusy() bool                               { return f.busy }

type assertError string

func (e assertError) Error() string { return string(e) }

type fakeAdapter struct {
	constant  []reqtable.RequestDescriptor
	dynamic   []reqtable.RequestDescriptor
	heartbeat reqtable.RequestDescriptor
	expected  []byte
}

func (a *fakeAdapter) ConstantTable() []reqtable.RequestDescriptor  { return a.constant }
func (a *fakeAdapter) DynamicTable() []reqtable.RequestDescriptor   { return a.dynamic }
func (a *fakeAdapter) HeartbeatDescriptor() reqtable.RequestDescriptor { return a.heartbeat }
func (a *fakeAdapter) HeartbeatExpectedReply() []byte               { return a.expected }

type fakeTelemetry struct{ capacity uint8 }

func (f *fakeTelemetry) RemainingCapacity() uint8 { return f.capacity }

func newTestScheduler(t *testing.T, eng *fakeEngine, ad *fakeAdapter, telem *fakeTelemetry) (*Scheduler, *uint32) {
	t.Helper()
	var now uint32
	s := New(Config{
		Engine:    eng,
		Adapter:   ad,
		Telemetry: telem,
		NowMs:     func() uint32 { return now },
	})
	return s, &now
}

func driveHeartbeatToVerify(t *testing.T, s *Scheduler, eng *fakeEngine, reply []byte) {
	t.Helper()
	s.Tick() // EnqueueHeartbeat -> WaitHeartbeatDrain
	require.Equal(t, StateWaitHeartbeatDrain, s.State())
	require.Len(t, eng.enqueued, 1)

	eng.enqueued[0].Parser(0, reply)
	eng.busy = false
	s.Tick() // WaitHeartbeatDrain -> HeartbeatVerify
	require.Equal(t, StateHeartbeatVerify, s.State())
}

func TestBootstrapHappyPathReachesDone(t *testing.T) {
	eng := &fakeEngine{}
	ad := &fakeAdapter{
		constant:  []reqtable.RequestDescriptor{{Name: "c1"}},
		dynamic:   []reqtable.RequestDescriptor{{Name: "d1"}},
		heartbeat: reqtable.RequestDescriptor{Name: "hb"},
		expected:  []byte{0x48, 0x49},
	}
	telem := &fakeTelemetry{capacity: 80}
	s, _ := newTestScheduler(t, eng, ad, telem)

	driveHeartbeatToVerify(t, s, eng, []byte{0x48, 0x49})
	s.Tick() // HeartbeatVerify -> EnqueueConstant
	assert.Equal(t, StateEnqueueConstant, s.State())

	s.Tick() // enqueue c1, idx reaches len -> EnqueueDynamic
	assert.Equal(t, StateEnqueueDynamic, s.State())

	s.Tick() // enqueue d1, idx reaches len -> WaitDrain
	assert.Equal(t, StateWaitDrain, s.State())

	eng.busy = false
	s.Tick() // WaitDrain -> SanityCheck
	assert.Equal(t, StateSanityCheck, s.State())

	s.Tick() // SanityCheck -> Done (capacity > 0)
	assert.Equal(t, StateDone, s.State())
	assert.True(t, s.IsBootstrapped())
}

func TestHeartbeatMismatchRetriesAfterDelay(t *testing.T) {
	eng := &fakeEngine{}
	ad := &fakeAdapter{
		heartbeat: reqtable.RequestDescriptor{Name: "hb"},
		expected:  []byte{0x48, 0x49},
	}
	telem := &fakeTelemetry{capacity: 80}
	s, now := newTestScheduler(t, eng, ad, telem)

	driveHeartbeatToVerify(t, s, eng, []byte{0x00, 0x00})
	s.Tick() // HeartbeatVerify -> WaitRetry (mismatch)
	assert.Equal(t, StateWaitRetry, s.State())

	*now += s.cfg.InitRetryPeriodMs
	s.Tick() // WaitRetry -> EnqueueHeartbeat
	assert.Equal(t, StateEnqueueHeartbeat, s.State())
}

func TestSanityCheckFailureRetriesWhenCapacityStillZero(t *testing.T) {
	eng := &fakeEngine{}
	ad := &fakeAdapter{
		heartbeat: reqtable.RequestDescriptor{Name: "hb"},
		expected:  []byte{0x48, 0x49},
	}
	telem := &fakeTelemetry{capacity: 0}
	s, now := newTestScheduler(t, eng, ad, telem)

	driveHeartbeatToVerify(t, s, eng, []byte{0x48, 0x49})
	s.Tick() // HeartbeatVerify -> EnqueueConstant
	s.Tick() // -> EnqueueDynamic (no constant entries)
	eng.busy = false
	s.Tick() // -> WaitDrain (no dynamic entries)
	s.Tick() // WaitDrain -> SanityCheck
	require.Equal(t, StateSanityCheck, s.State())

	s.Tick() // SanityCheck fails (capacity==0) -> WaitRetry
	assert.Equal(t, StateWaitRetry, s.State())

	*now += s.cfg.InitRetryPeriodMs
	s.Tick()
	assert.Equal(t, StateEnqueueHeartbeat, s.State())
}

func TestDynamicRefreshRepumpsAfterPeriodOnceDone(t *testing.T) {
	eng := &fakeEngine{}
	ad := &fakeAdapter{
		dynamic:   []reqtable.RequestDescriptor{{Name: "d1"}},
		heartbeat: reqtable.RequestDescriptor{Name: "hb"},
		expected:  []byte{0x48, 0x49},
	}
	telem := &fakeTelemetry{capacity: 80}
	s, now := newTestScheduler(t, eng, ad, telem)

	driveHeartbeatToVerify(t, s, eng, []byte{0x48, 0x49})
	s.Tick() // -> EnqueueConstant
	s.Tick() // -> EnqueueDynamic (no constant entries)
	s.Tick() // enqueues d1 for bootstrap -> WaitDrain
	eng.busy = false
	s.Tick() // WaitDrain -> SanityCheck
	s.Tick() // -> Done

	require.Equal(t, StateDone, s.State())
	bootstrapEnqueues := len(eng.enqueued)

	s.Tick() // Done: not yet due, no-op
	assert.Len(t, eng.enqueued, bootstrapEnqueues)

	*now += s.cfg.DynamicUpdatePeriodMs
	s.Tick() // due: starts cycle, enqueues d1 again
	assert.Len(t, eng.enqueued, bootstrapEnqueues+1)

	eng.busy = false
	s.Tick() // drains, completes cycle
	assert.Equal(t, StateDone, s.State())
}
