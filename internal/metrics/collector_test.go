package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledCollectorRecordsNothing(t *testing.T) {
	c := NewCollector(false, 0)
	// Must not panic when disabled, even though no registry was built.
	c.RecordRMICall("Arithmetic", "Divide", time.Millisecond, false)
	c.SetWorkerPoolSize("Arithmetic", 3)
	c.RecordNamingOp("createFile", false)
	assert.NoError(t, c.Start())
}

func TestEnabledCollectorGathersMetrics(t *testing.T) {
	c := NewCollector(true, 0)
	c.RecordRMICall("Arithmetic", "Divide", 5*time.Millisecond, false)
	c.RecordRMICall("Arithmetic", "Divide", 5*time.Millisecond, true)
	c.RecordNamingOp("createFile", false)

	families, err := c.registry.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}
