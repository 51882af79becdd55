// Package upsbridge wires the UART transaction engine, bootstrap/refresh
// scheduler, and SNMP responder into a single process: optional Wi-Fi
// station bring-up, then a conditional SNMP start (skipped entirely on
// Wi-Fi failure, logged, with the core loop continuing regardless), engine
// initialization and enable, adapter selection, and an infinite loop that
// ticks the bootstrap/dynamic-refresh scheduler and the engine every
// millisecond.
package upsbridge

import (
	"context"
	"time"

	"github.com/opsbridge/ups-snmpd/internal/config"
	"github.com/opsbridge/ups-snmpd/internal/constants"
	"github.com/opsbridge/ups-snmpd/internal/engine"
	"github.com/opsbridge/ups-snmpd/internal/interfaces"
	"github.com/opsbridge/ups-snmpd/internal/reqtable"
	"github.com/opsbridge/ups-snmpd/internal/scheduler"
	"github.com/opsbridge/ups-snmpd/internal/snmp"
	"github.com/opsbridge/ups-snmpd/internal/telemetry"
)

// Options configures a Supervisor. Only Port and Adapter are required;
// every other field has a documented default.
type Options struct {
	// Port is the serial facade driving the UPS's UART link. Required.
	Port interfaces.SerialPort

	// Adapter supplies the constant/dynamic request tables and heartbeat
	// descriptor. Required.
	Adapter reqtable.Adapter

	// Wifi starts the station connection before the SNMP responder binds.
	// If nil, the SNMP responder is started unconditionally (useful for
	// wired-only deployments and tests).
	Wifi interfaces.WifiStarter

	Config    *config.Config
	Logger    interfaces.Logger
	Observer  interfaces.Observer
	Telemetry *telemetry.Snapshot

	// SNMPAddr overrides the responder's bind address (default ":161").
	SNMPAddr string
}

// Supervisor owns the engine, scheduler, and SNMP responder for one
// running process.
type Supervisor struct {
	engine       *engine.Engine
	scheduler    *scheduler.Scheduler
	statusLogger *scheduler.StatusLogger
	responder    *snmp.Responder
	telemetry    *telemetry.Snapshot
	nowMs        func() uint32

	cancel context.CancelFunc
	done   chan struct{}
}

// CreateAndServe wires and starts a Supervisor: it initializes the engine,
// starts ticking the bootstrap/refresh scheduler, and — unless Wi-Fi
// bring-up is configured and fails — starts the SNMP responder. It returns
// once startup has either succeeded or logged the Wi-Fi failure; the main
// loop runs in a background goroutine until ctx is cancelled or
// StopAndDelete is called.
func CreateAndServe(ctx context.Context, opts Options) (*Supervisor, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, WrapError("CreateAndServe", err)
		}
		opts.Config = cfg
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.DefaultSnapshot()
	}
	if opts.Observer == nil {
		opts.Observer = NewObserver()
	}

	eng := engine.New(engine.Config{
		Port:          opts.Port,
		Logger:        opts.Logger,
		Observer:      opts.Observer,
		Telemetry:     opts.Telemetry,
		QueueCapacity: opts.Config.QueueSize,
	})
	eng.Init()
	eng.SetEnabled(true)

	sched := scheduler.New(scheduler.Config{
		Engine:                eng,
		Adapter:               opts.Adapter,
		Telemetry:             opts.Telemetry,
		Logger:                opts.Logger,
		NowMs:                 opts.Port.TickMs,
		DynamicUpdatePeriodMs: uint32(opts.Config.DynamicUpdatePeriod().Milliseconds()),
		InitRetryPeriodMs:     uint32(opts.Config.InitRetryPeriod().Milliseconds()),
	})

	statusLogger := scheduler.NewStatusLogger(scheduler.StatusLoggerConfig{
		Enabled:   opts.Config.DebugStatusLogEnabled,
		PeriodMs:  uint32(opts.Config.DebugStatusLogPeriodMs),
		Telemetry: opts.Telemetry,
		Logger:    opts.Logger,
	})

	s := &Supervisor{
		engine:       eng,
		scheduler:    sched,
		statusLogger: statusLogger,
		telemetry:    opts.Telemetry,
		nowMs:        opts.Port.TickMs,
		done:         make(chan struct{}),
	}

	wifiOK := true
	if opts.Wifi != nil {
		if err := opts.Wifi.Start(); err != nil {
			wifiOK = false
			if opts.Logger != nil {
				opts.Logger.Warn("wifi start failed, skipping snmp startup", "err", err.Error())
			}
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if wifiOK {
		s.responder = snmp.New(snmp.Config{
			Addr:      opts.SNMPAddr,
			Community: opts.Config.Community,
			Telemetry: opts.Telemetry,
			Logger:    opts.Logger,
			Observer:  opts.Observer,
		})
		go func() {
			if err := s.responder.ListenAndServe(runCtx); err != nil && opts.Logger != nil {
				opts.Logger.Warn("snmp responder stopped", "err", err.Error())
			}
		}()
	}

	go s.runLoop(runCtx)

	return s, nil
}

// runLoop mirrors app_main()'s infinite loop: tick the bootstrap/refresh
// scheduler, tick the engine, sleep constants.MainLoopDelay, repeat.
func (s *Supervisor) runLoop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(constants.MainLoopDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scheduler.Tick()
			s.engine.Tick()
			s.statusLogger.Tick(s.nowMs())
		}
	}
}

// IsBootstrapped reports whether the scheduler has completed the initial
// heartbeat-gated bootstrap sequence.
func (s *Supervisor) IsBootstrapped() bool { return s.scheduler.IsBootstrapped() }

// Telemetry returns the process-wide telemetry snapshot backing both the
// engine's parser callbacks and the SNMP responder.
func (s *Supervisor) Telemetry() *telemetry.Snapshot { return s.telemetry }

// StopAndDelete cancels the main loop and waits for it to exit, then
// disables the engine and releases the serial port lock.
func StopAndDelete(ctx context.Context, s *Supervisor) error {
	if s == nil {
		return NewError("StopAndDelete", ErrCodeBadParam, "nil supervisor")
	}
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.engine.SetEnabled(false)
	return nil
}
