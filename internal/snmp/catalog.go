package snmp

import (
	"bytes"
	"sort"

	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// entry is one static RFC 1628 UPS-MIB (plus SNMPv2-MIB system group) OID
// and its value projection, grounded exactly on snmp_agent.c's
// k_oid_table and snmp_get_value_by_index switch (32 entries, indices 0-31).
type entry struct {
	oid   []byte
	value func(v *telemetry.View) Value
}

// ValueKind distinguishes the two SNMPv1 types this catalog ever emits.
type ValueKind int

const (
	KindInt32 ValueKind = iota
	KindOctets
)

// Value is a catalog entry's projected value, ready for BER encoding.
type Value struct {
	Kind   ValueKind
	Int32  int32
	Octets []byte
}

// iso(1).org(3).dod(6).internet(1) = 1.3.6.1, encoded as literal OID byte
// arrays (0x2B 0x06 0x01 ...).
var (
	oidSysDescr                 = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x01, 0x01, 0x00}
	oidSysName                  = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00}
	oidIdentManufacturer        = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x01, 0x00}
	oidIdentModel                = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x02, 0x00}
	oidIdentUPSSWVer             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x03, 0x00}
	oidIdentAgentSWVer           = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x04, 0x00}
	oidIdentName                 = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x05, 0x00}
	oidIdentAttachedDevices      = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x01, 0x06, 0x00}
	oidBatteryStatus             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x01, 0x00}
	oidSecondsOnBattery          = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x02, 0x00}
	oidEstMinutesRemaining       = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x03, 0x00}
	oidEstChargeRemaining        = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x04, 0x00}
	oidBatteryVoltage            = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x05, 0x00}
	oidBatteryCurrent            = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x06, 0x00}
	oidBatteryTemp               = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x02, 0x07, 0x00}
	oidInputLineBads             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x03, 0x01, 0x00}
	oidInputNumLines             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x03, 0x02, 0x00}
	oidInputFrequency            = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x03, 0x03, 0x01, 0x02, 0x01}
	oidInputVoltage              = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x03, 0x03, 0x01, 0x03, 0x01}
	oidOutputSource              = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x01, 0x00}
	oidOutputFrequency           = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x02, 0x00}
	oidOutputNumLines            = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x03, 0x00}
	oidOutputVoltage             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x04, 0x01, 0x02, 0x01}
	oidOutputCurrent             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x04, 0x01, 0x03, 0x01}
	oidOutputPower               = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x04, 0x01, 0x04, 0x01}
	oidOutputPercentLoad         = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x04, 0x04, 0x01, 0x05, 0x01}
	oidConfigInputVoltage        = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x01, 0x00}
	oidConfigOutputVoltage       = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x03, 0x00}
	oidConfigOutputPower         = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x06, 0x00}
	oidConfigLowBattTime         = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x07, 0x00}
	oidConfigLowXfer             = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x09, 0x00}
	oidConfigHighXfer            = []byte{0x2B, 0x06, 0x01, 0x02, 0x01, 0x21, 0x01, 0x09, 0x0A, 0x00}
)

func intVal(v int32) Value       { return Value{Kind: KindInt32, Int32: v} }
func octetVal(s string) Value    { return Value{Kind: KindOctets, Octets: []byte(s)} }

// batteryStatus replicates snmp_get_value_by_index's case 8 exactly,
// including biasing toward low(3) rather than depleted(4) when only the
// degraded-state side effect (remaining_capacity forced to 1, not 0) has
// fired — see DESIGN.md's Open Question note; this must not be "fixed".
func batteryStatus(v *telemetry.View) int32 {
	if v.Battery.RemainingCapacity == 0 || v.PresentStatus.ShutdownImminent {
		return 4
	}
	if v.PresentStatus.NeedReplacement {
		return 4
	}
	if v.PresentStatus.BelowRemainingCapacityLim ||
		v.Battery.RemainingCapacity <= uint8(v.Summary.RemainingCapacityLimit) {
		return 3
	}
	return 2
}

func outputSource(v *telemetry.View) int32 {
	switch {
	case v.PresentStatus.ACPresent:
		return 3
	case v.PresentStatus.Discharging:
		return 5
	default:
		return 6
	}
}

func roundedTenths(mv uint32) int32 { return int32((mv + 50) / 100) }

// catalogEntries mirrors k_oid_table verbatim, in the same order (the
// table must stay lexicographically sorted by OID for snmp_lookup_next's
// linear scan to behave the same as Catalog.LookupNext's binary search).
var catalogEntries = []entry{
	{oidSysDescr, func(v *telemetry.View) Value { return octetVal("ESP32 UPS bridge") }},
	{oidSysName, func(v *telemetry.View) Value { return octetVal("esp32-ups") }},
	{oidIdentManufacturer, func(v *telemetry.View) Value { return octetVal("APC") }},
	{oidIdentModel, func(v *telemetry.View) Value { return octetVal("SPM2K") }},
	{oidIdentUPSSWVer, func(v *telemetry.View) Value { return octetVal("N/A") }},
	{oidIdentAgentSWVer, func(v *telemetry.View) Value { return octetVal("esp32-ups-snmp") }},
	{oidIdentName, func(v *telemetry.View) Value { return octetVal("ESP32-UPS") }},
	{oidIdentAttachedDevices, func(v *telemetry.View) Value { return octetVal("line1") }},
	{oidBatteryStatus, func(v *telemetry.View) Value { return intVal(batteryStatus(v)) }},
	{oidSecondsOnBattery, func(v *telemetry.View) Value {
		if v.PresentStatus.ACPresent {
			return intVal(0)
		}
		return intVal(int32(v.Battery.RunTimeToEmptySec))
	}},
	{oidEstMinutesRemaining, func(v *telemetry.View) Value {
		return intVal(int32(v.Battery.RunTimeToEmptySec / 60))
	}},
	{oidEstChargeRemaining, func(v *telemetry.View) Value { return intVal(int32(v.Battery.RemainingCapacity)) }},
	{oidBatteryVoltage, func(v *telemetry.View) Value { return intVal(v.Battery.VoltageMv / 10) }},
	{oidBatteryCurrent, func(v *telemetry.View) Value { return intVal(v.Battery.CurrentCa / 10) }},
	{oidBatteryTemp, func(v *telemetry.View) Value {
		if v.Battery.TemperatureTenthsK >= 2731 {
			return intVal(int32((v.Battery.TemperatureTenthsK - 2731) / 10))
		}
		return intVal(0)
	}},
	{oidInputLineBads, func(v *telemetry.View) Value { return intVal(0) }},
	{oidInputNumLines, func(v *telemetry.View) Value { return intVal(1) }},
	{oidInputFrequency, func(v *telemetry.View) Value { return intVal(int32(v.Input.FrequencyTenthsHz / 10)) }},
	{oidInputVoltage, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Input.VoltageMv)) }},
	{oidOutputSource, func(v *telemetry.View) Value { return intVal(outputSource(v)) }},
	{oidOutputFrequency, func(v *telemetry.View) Value { return intVal(int32(v.Output.FrequencyTenthsHz / 10)) }},
	{oidOutputNumLines, func(v *telemetry.View) Value { return intVal(1) }},
	{oidOutputVoltage, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Output.VoltageMv)) }},
	{oidOutputCurrent, func(v *telemetry.View) Value { return intVal(v.Output.CurrentCa / 10) }},
	{oidOutputPower, func(v *telemetry.View) Value {
		return intVal(int32((uint32(v.Output.ConfigActivePowerW) * uint32(v.Output.PercentLoad)) / 100))
	}},
	{oidOutputPercentLoad, func(v *telemetry.View) Value { return intVal(int32(v.Output.PercentLoad)) }},
	{oidConfigInputVoltage, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Input.ConfigVoltageMv)) }},
	{oidConfigOutputVoltage, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Output.ConfigVoltageMv)) }},
	{oidConfigOutputPower, func(v *telemetry.View) Value { return intVal(int32(v.Output.ConfigActivePowerW)) }},
	{oidConfigLowBattTime, func(v *telemetry.View) Value {
		return intVal(int32(v.Battery.RemainingTimeLimit / 60))
	}},
	{oidConfigLowXfer, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Input.LowVoltageXferMv)) }},
	{oidConfigHighXfer, func(v *telemetry.View) Value { return intVal(roundedTenths(v.Input.HighVoltageXferMv)) }},
}

// Catalog is the sorted, immutable OID table the responder consults for
// GET and GETNEXT.
type Catalog struct {
	entries []entry
}

// NewCatalog builds the catalog sorted lexicographically by OID bytes,
// the ordering LookupNext's linear scan relies on.
func NewCatalog() *Catalog {
	sorted := append([]entry(nil), catalogEntries...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].oid, sorted[j].oid) < 0
	})
	return &Catalog{entries: sorted}
}

// LookupExact finds the entry whose OID equals oid (for GET PDUs).
func (c *Catalog) LookupExact(oid []byte) (int, bool) {
	for i, e := range c.entries {
		if bytes.Equal(e.oid, oid) {
			return i, true
		}
	}
	return 0, false
}

// LookupNext finds the lexicographically smallest catalog OID strictly
// greater than oid (for GETNEXT PDUs) via a linear scan; the table is
// small enough that this costs nothing observable.
func (c *Catalog) LookupNext(oid []byte) (int, bool) {
	for i, e := range c.entries {
		if bytes.Compare(e.oid, oid) > 0 {
			return i, true
		}
	}
	return 0, false
}

// OID returns the catalog OID bytes at index.
func (c *Catalog) OID(index int) []byte { return c.entries[index].oid }

// Value projects the snapshot view through the entry at index.
func (c *Catalog) Value(index int, v *telemetry.View) Value {
	return c.entries[index].value(v)
}

// Len reports the catalog size (32 entries: sysDescr, sysName, 6 identity,
// 7 battery, 4 input, 7 output, 6 config).
func (c *Catalog) Len() int { return len(c.entries) }
