package upsbridge

import "github.com/opsbridge/ups-snmpd/internal/constants"

// Re-export the tuning constants for the public API.
const (
	EngineQueueSize                  = constants.EngineQueueSize
	MaxExpectedLen                   = constants.MaxExpectedLen
	MaxEndingLen                     = constants.MaxEndingLen
	TxTimeout                        = constants.TxTimeout
	RetryCooldown                    = constants.RetryCooldown
	MaxStepsPerTick                  = constants.MaxStepsPerTick
	DefaultHeartbeatInterval         = constants.DefaultHeartbeatInterval
	DefaultHeartbeatFailureThreshold = constants.DefaultHeartbeatFailureThreshold
	MaxHeartbeatFailures             = constants.MaxHeartbeatFailures
	DynamicUpdatePeriod              = constants.DynamicUpdatePeriod
	InitRetryPeriod                  = constants.InitRetryPeriod
	EnqueueBurstPerTick              = constants.EnqueueBurstPerTick
	MainLoopDelay                    = constants.MainLoopDelay
	SNMPPort                         = constants.SNMPPort
	DefaultCommunity                 = constants.DefaultCommunity
	MaxSNMPMessageSize               = constants.MaxSNMPMessageSize
)
