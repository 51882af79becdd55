package scheduler

import (
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// StatusLogger periodically emits a debug-level structured log line
// with the present-status flags and selected battery, input and output
// fields, as a runtime-gated component using internal/logging instead of
// printf. The summary sub-record is not logged. Disabled by default.
type StatusLogger struct {
	enabled   bool
	periodMs  uint32
	telemetry *telemetry.Snapshot
	logger    interfaces.Logger

	nextPrintMs uint32
}

// StatusLoggerConfig configures a StatusLogger.
type StatusLoggerConfig struct {
	Enabled   bool
	PeriodMs  uint32 // defaults to 5000 when Enabled and 0
	Telemetry *telemetry.Snapshot
	Logger    interfaces.Logger
}

// NewStatusLogger constructs a StatusLogger from cfg.
func NewStatusLogger(cfg StatusLoggerConfig) *StatusLogger {
	period := cfg.PeriodMs
	if period == 0 {
		period = 5000
	}
	return &StatusLogger{
		enabled:   cfg.Enabled,
		periodMs:  period,
		telemetry: cfg.Telemetry,
		logger:    cfg.Logger,
	}
}

// Tick emits a status line if Enabled and the period has elapsed, using a
// wraparound-safe signed-difference comparison against nextPrintMs.
func (l *StatusLogger) Tick(nowMs uint32) {
	if !l.enabled || l.logger == nil || l.telemetry == nil {
		return
	}
	if int32(nowMs-l.nextPrintMs) < 0 {
		return
	}
	l.nextPrintMs = nowMs + l.periodMs

	view := l.telemetry.View()
	l.logger.Debug("ups status",
		"ac_present", view.PresentStatus.ACPresent,
		"charging", view.PresentStatus.Charging,
		"discharging", view.PresentStatus.Discharging,
		"fully_charged", view.PresentStatus.FullyCharged,
		"need_replacement", view.PresentStatus.NeedReplacement,
		"below_remaining_capacity_limit", view.PresentStatus.BelowRemainingCapacityLim,
		"battery_present", view.PresentStatus.BatteryPresent,
		"overload", view.PresentStatus.Overload,
		"shutdown_imminent", view.PresentStatus.ShutdownImminent,
		"remaining_capacity", view.Battery.RemainingCapacity,
		"run_time_to_empty_s", view.Battery.RunTimeToEmptySec,
		"remaining_time_limit_s", view.Battery.RemainingTimeLimit,
		"battery_voltage_mv", view.Battery.VoltageMv,
		"battery_current_ca", view.Battery.CurrentCa,
		"input_voltage_mv", view.Input.VoltageMv,
		"output_voltage_mv", view.Output.VoltageMv,
		"output_percent_load", view.Output.PercentLoad,
	)
}
