package reqtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

func TestValidateRejectsBadWidth(t *testing.T) {
	d := RequestDescriptor{Width: 4, Expect: Expectation{FixedLen: 2}}
	require.Error(t, d.Validate())
}

func TestValidateRejectsOversizedFixedLen(t *testing.T) {
	d := RequestDescriptor{Width: CmdWidth8, Expect: Expectation{FixedLen: 257}}
	require.Error(t, d.Validate())
}

func TestValidateRejectsEmptyOrOversizedEnding(t *testing.T) {
	d := RequestDescriptor{Width: CmdWidth8, Expect: Expectation{Framed: true, Ending: nil}}
	require.Error(t, d.Validate())

	d2 := RequestDescriptor{Width: CmdWidth8, Expect: Expectation{Framed: true, Ending: make([]byte, 9)}}
	require.Error(t, d2.Validate())
}

func TestValidateAcceptsWellFormedDescriptor(t *testing.T) {
	d := RequestDescriptor{Width: CmdWidth16, Expect: Expectation{Framed: true, Ending: []byte{0x0D, 0x0A}}}
	require.NoError(t, d.Validate())
}

func TestHeartbeatConfigNormalizedDefaults(t *testing.T) {
	h := HeartbeatConfig{}.Normalized()
	assert.EqualValues(t, 1000_000_000, h.Interval)
	assert.EqualValues(t, 5, h.FailureThreshold)
}

func TestExpectExact(t *testing.T) {
	p := ExpectExact([]byte{0x48, 0x49, 0x0D, 0x0A})
	assert.True(t, p(0, []byte{0x48, 0x49, 0x0D, 0x0A}))
	assert.False(t, p(0, []byte{0x48, 0x49, 0x0D, 0x0B}))
	assert.False(t, p(0, []byte{0x48, 0x49}))
}

func TestGenericUPSAdapterParsesBattery(t *testing.T) {
	snap := telemetry.DefaultSnapshot()
	a := NewGenericUPSAdapter(snap)

	dyn := a.DynamicTable()
	require.Len(t, dyn, 3)

	rx := []byte{77, 0x00, 0x3C, 0x00, 0x05, 0x2E, 0xE0, 0x00, 0x0A, 28}
	ok := dyn[0].Parser(dyn[0].Cmd, rx)
	require.True(t, ok)

	view := snap.View()
	assert.EqualValues(t, 77, view.Battery.RemainingCapacity)
	assert.EqualValues(t, 60, view.Battery.RunTimeToEmptySec)
}

func TestGenericUPSAdapterHeartbeat(t *testing.T) {
	snap := telemetry.DefaultSnapshot()
	a := NewGenericUPSAdapter(snap)
	hb := a.HeartbeatDescriptor()
	assert.True(t, hb.Expect.Framed)
	assert.Equal(t, a.HeartbeatExpectedReply(), []byte{0x48, 0x49, 0x0D, 0x0A})
	assert.True(t, hb.Parser(hb.Cmd, a.HeartbeatExpectedReply()))
}
