package upsbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewObserverIsUsable(t *testing.T) {
	o := NewObserver()
	require.NotNil(t, o)

	o.ObserveJob("heartbeat", "success", 5*time.Millisecond)
	o.ObserveQueueDepth(2)
	o.ObserveHeartbeatFailures(0)
	o.ObserveSNMPRequest("GET", 0)

	families, err := o.Gatherer().Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestNoOpObserverSatisfiesInterface(t *testing.T) {
	var o Observer = NoOpObserver{}
	o.ObserveJob("x", "y", time.Second)
	o.ObserveQueueDepth(1)
	o.ObserveHeartbeatFailures(1)
	o.ObserveSNMPRequest("GET", 0)
}
