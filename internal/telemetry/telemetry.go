// Package telemetry holds the process-wide UPS state snapshot: the
// sub-records written by UART transaction engine parser callbacks and read
// by the SNMP responder, seeded at boot with the UPS's nameplate capacity
// constants (no third-party library models a flat read-mostly snapshot
// better than a guarded struct, so this stays on a plain sync.RWMutex).
package telemetry

import "sync"

// PresentStatus mirrors the UPS-MIB PowerSummary PresentStatus collection.
type PresentStatus struct {
	ACPresent                 bool
	Charging                  bool
	Discharging               bool
	FullyCharged              bool
	NeedReplacement           bool
	BelowRemainingCapacityLim bool
	BatteryPresent            bool
	Overload                  bool
	ShutdownImminent          bool
}

// Summary mirrors identification/capacity constants rarely mutated after
// boot.
type Summary struct {
	Rechargeable           bool
	CapacityMode           uint8
	DesignCapacity         uint16
	FullChargeCapacity     uint16
	WarningCapacityLimit   uint16
	RemainingCapacityLimit uint16
	DeviceChemistryCode    uint8
	CapacityGranularity1   uint8
	CapacityGranularity2   uint8
	IManufacturer2Bit      uint8
	IProduct2Bit           uint8
	ISerialNumber2Bit      uint8
	IName2Bit              uint8
}

// Battery holds the UPS battery telemetry sub-record.
type Battery struct {
	VoltageMv          int32 // signed millivolts
	CurrentCa          int32 // signed centiamps (10mA units)
	ConfigVoltageMv    uint32
	RunTimeToEmptySec  uint32
	RemainingTimeLimit uint32
	TemperatureTenthsK uint32
	ManufacturerDate   uint32
	RemainingCapacity  uint8 // percent
}

// Input holds the UPS input line telemetry sub-record.
type Input struct {
	VoltageMv          uint32
	FrequencyTenthsHz  uint32
	ConfigVoltageMv    uint32
	LowVoltageXferMv   uint32
	HighVoltageXferMv  uint32
}

// Output holds the UPS output line telemetry sub-record.
type Output struct {
	PercentLoad        uint8
	ConfigActivePowerW uint32
	ConfigVoltageMv    uint32
	VoltageMv          uint32
	CurrentCa          int32
	FrequencyTenthsHz  uint32
}

// Snapshot is the full process-wide UPS telemetry state, guarded by a
// single reader/writer lock. The SNMP responder reads it through a brief
// read-lock window per request rather than holding the lock across the
// whole response construction; torn reads of individual fields are
// tolerated because no field combination imposes a tighter consistency
// requirement.
type Snapshot struct {
	mu            sync.RWMutex
	PresentStatus PresentStatus
	Summary       Summary
	Battery       Battery
	Input         Input
	Output        Output
}

// DefaultSnapshot returns a Snapshot seeded with the UPS's nameplate
// boot-time defaults: PresentStatus entirely false, Summary populated with
// the nameplate capacity constants, Battery/Input/Output all zero. Without
// seeding these the SNMP responder would serve undefined zeros for fields
// a real device always reports at startup.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		Summary: Summary{
			Rechargeable:           true,
			CapacityMode:           2,
			DesignCapacity:         100,
			FullChargeCapacity:     100,
			WarningCapacityLimit:   20,
			RemainingCapacityLimit: 10,
			DeviceChemistryCode:    0x05,
			CapacityGranularity1:   1,
			CapacityGranularity2:   1,
			IManufacturer2Bit:      1,
			IProduct2Bit:           2,
			ISerialNumber2Bit:      3,
			IName2Bit:              2,
		},
	}
}

// View is a value snapshot of all five sub-records, taken under a single
// read lock so the SNMP responder sees a consistent-enough picture
// without holding the lock across I/O.
type View struct {
	PresentStatus PresentStatus
	Summary       Summary
	Battery       Battery
	Input         Input
	Output        Output
}

// View returns a value copy of the snapshot's sub-records under a brief
// read lock, for use by parser callbacks or the SNMP responder that need a
// consistent-enough read without holding the lock across I/O.
func (s *Snapshot) View() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &View{
		PresentStatus: s.PresentStatus,
		Summary:       s.Summary,
		Battery:       s.Battery,
		Input:         s.Input,
		Output:        s.Output,
	}
}

// MutatePresentStatus applies fn to the present-status sub-record under the
// write lock. Used by parser callbacks and by the engine's degraded-state
// side effect.
func (s *Snapshot) MutatePresentStatus(fn func(*PresentStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.PresentStatus)
}

// MutateBattery applies fn to the battery sub-record under the write lock.
func (s *Snapshot) MutateBattery(fn func(*Battery)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Battery)
}

// MutateInput applies fn to the input sub-record under the write lock.
func (s *Snapshot) MutateInput(fn func(*Input)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Input)
}

// MutateOutput applies fn to the output sub-record under the write lock.
func (s *Snapshot) MutateOutput(fn func(*Output)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Output)
}

// RemainingCapacity returns the battery's remaining-capacity percentage
// under a brief read lock, for the bootstrap scheduler's sanity check:
// bootstrap only completes once real battery data has arrived.
func (s *Snapshot) RemainingCapacity() uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Battery.RemainingCapacity
}

// MutateSummary applies fn to the summary sub-record under the write lock.
func (s *Snapshot) MutateSummary(fn func(*Summary)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.Summary)
}

// ApplyDegradedState forces the battery fields into their degraded-state
// values when the heartbeat consecutive-failure counter crosses its
// threshold. RemainingCapacity and RemainingTimeLimit are set to 1, not 0
// — a deliberate, surprising choice (see DESIGN.md's Open Question note)
// that must not be "corrected".
func (s *Snapshot) ApplyDegradedState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Battery.RemainingCapacity = 1
	s.Battery.RemainingTimeLimit = 1
	s.PresentStatus.FullyCharged = false
	s.PresentStatus.BelowRemainingCapacityLim = true
	s.PresentStatus.ShutdownImminent = true
	s.PresentStatus.Charging = false
	s.PresentStatus.Discharging = true
	s.PresentStatus.ACPresent = false
}
