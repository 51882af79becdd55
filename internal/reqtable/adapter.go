package reqtable

import (
	"encoding/binary"

	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// ExpectExact builds a parser that compares rx to a fixed reference buffer
// and reports success only on an exact match. Used by heartbeat
// verification and by adapter-constant requests whose reply is a fixed
// acknowledgement.
func ExpectExact(want []byte) Parser {
	return func(_ uint16, rx []byte) bool {
		if len(rx) != len(want) {
			return false
		}
		for i := range rx {
			if rx[i] != want[i] {
				return false
			}
		}
		return true
	}
}

// GenericUPSAdapter is a minimal, representative adapter table splitting
// requests into a constant (bootstrap-only) set and a dynamic (repeatedly
// refreshed) set, with the device's exact command bytes treated as
// adapter-specific data rather than reproduced verbatim. It targets a
// telemetry.Snapshot directly so its parsers can commit fields in place.
type GenericUPSAdapter struct {
	snap *telemetry.Snapshot
}

// NewGenericUPSAdapter builds an adapter wired to the given telemetry
// snapshot.
func NewGenericUPSAdapter(snap *telemetry.Snapshot) *GenericUPSAdapter {
	return &GenericUPSAdapter{snap: snap}
}

const (
	cmdHeartbeat     = 0x00
	cmdIdentAck      = 0x01
	cmdReadBattery   = 0x10
	cmdReadInput     = 0x11
	cmdReadOutput    = 0x12
)

var heartbeatExpectedReply = []byte{0x48, 0x49, 0x0D, 0x0A}

func (a *GenericUPSAdapter) ConstantTable() []RequestDescriptor {
	return []RequestDescriptor{
		{
			Name:       "ident_ack",
			Cmd:        cmdIdentAck,
			Width:      CmdWidth8,
			Expect:     Expectation{FixedLen: 2},
			TimeoutMs:  200,
			MaxRetries: 2,
			Parser:     ExpectExact([]byte{0x4F, 0x4B}),
		},
	}
}

func (a *GenericUPSAdapter) DynamicTable() []RequestDescriptor {
	return []RequestDescriptor{
		{
			Name:       "read_battery",
			Cmd:        cmdReadBattery,
			Width:      CmdWidth8,
			Expect:     Expectation{FixedLen: 10},
			TimeoutMs:  200,
			MaxRetries: 2,
			Parser:     a.parseBattery,
		},
		{
			Name:       "read_input",
			Cmd:        cmdReadInput,
			Width:      CmdWidth8,
			Expect:     Expectation{FixedLen: 8},
			TimeoutMs:  200,
			MaxRetries: 2,
			Parser:     a.parseInput,
		},
		{
			Name:       "read_output",
			Cmd:        cmdReadOutput,
			Width:      CmdWidth8,
			Expect:     Expectation{FixedLen: 10},
			TimeoutMs:  200,
			MaxRetries: 2,
			Parser:     a.parseOutput,
		},
	}
}

func (a *GenericUPSAdapter) HeartbeatDescriptor() RequestDescriptor {
	return RequestDescriptor{
		Name:       "heartbeat",
		Cmd:        cmdHeartbeat,
		Width:      CmdWidth8,
		Expect:     Expectation{Framed: true, Ending: []byte{0x0D, 0x0A}},
		TimeoutMs:  200,
		MaxRetries: 0,
		Parser:     ExpectExact(heartbeatExpectedReply),
	}
}

func (a *GenericUPSAdapter) HeartbeatExpectedReply() []byte {
	return heartbeatExpectedReply
}

// parseBattery decodes a fixed 10-byte battery telemetry frame:
// [capacity%][runtime_s be16][remaining_limit_s be16][voltage_mv be16][current_ca be16 signed][temp_K u8],
// with the one-byte kelvin temperature scaled by 10 into tenths of kelvin.
func (a *GenericUPSAdapter) parseBattery(_ uint16, rx []byte) bool {
	if len(rx) != 10 {
		return false
	}
	a.snap.MutateBattery(func(b *telemetry.Battery) {
		b.RemainingCapacity = rx[0]
		b.RunTimeToEmptySec = uint32(binary.BigEndian.Uint16(rx[1:3]))
		b.RemainingTimeLimit = uint32(binary.BigEndian.Uint16(rx[3:5]))
		b.VoltageMv = int32(binary.BigEndian.Uint16(rx[5:7]))
		b.CurrentCa = int32(int16(binary.BigEndian.Uint16(rx[7:9])))
		b.TemperatureTenthsK = uint32(rx[9]) * 10
	})
	return true
}

// parseInput decodes a fixed 8-byte input line telemetry frame:
// [voltage_mv be16][frequency_tenthsHz be16][config_voltage_mv be16][reserved be16].
func (a *GenericUPSAdapter) parseInput(_ uint16, rx []byte) bool {
	if len(rx) != 8 {
		return false
	}
	a.snap.MutateInput(func(in *telemetry.Input) {
		in.VoltageMv = uint32(binary.BigEndian.Uint16(rx[0:2]))
		in.FrequencyTenthsHz = uint32(binary.BigEndian.Uint16(rx[2:4]))
		in.ConfigVoltageMv = uint32(binary.BigEndian.Uint16(rx[4:6]))
	})
	return true
}

// parseOutput decodes a fixed 10-byte output line telemetry frame:
// [percent_load][config_power_w be16][voltage_mv be16][current_ca be16 signed][frequency_tenthsHz be16][reserved].
func (a *GenericUPSAdapter) parseOutput(_ uint16, rx []byte) bool {
	if len(rx) != 10 {
		return false
	}
	a.snap.MutateOutput(func(out *telemetry.Output) {
		out.PercentLoad = rx[0]
		out.ConfigActivePowerW = uint32(binary.BigEndian.Uint16(rx[1:3]))
		out.VoltageMv = uint32(binary.BigEndian.Uint16(rx[3:5]))
		out.CurrentCa = int32(int16(binary.BigEndian.Uint16(rx[5:7])))
		out.FrequencyTenthsHz = uint32(binary.BigEndian.Uint16(rx[7:9]))
	})
	return true
}
