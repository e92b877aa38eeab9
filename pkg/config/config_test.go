package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesValidKeys(t *testing.T) {
	raw := []byte(`
BATCH_SCHEDULING_ALGORITHM: easy-backfill
BATCH_QUEUE_ORDERING_ALGORITHM: priority
HOST_SELECTION_ALGORITHM: BESTFIT
THREAD_STARTUP_OVERHEAD: 0.5
SIMULATE_COMPUTATION_AS_SLEEP: true
CACHING_BEHAVIOR: NONE
SCRATCH_SPACE_BUFFER_SIZE: 1048576
`)
	cfg, err := Load(raw)
	require.NoError(t, err)
	assert.Equal(t, "easy-backfill", cfg.BatchSchedulingAlgorithm)
	assert.Equal(t, "priority", cfg.BatchQueueOrderingAlgorithm)
	assert.Equal(t, "BESTFIT", cfg.HostSelectionAlgorithm)
	assert.Equal(t, 500*time.Millisecond, cfg.ThreadStartupOverhead)
	assert.True(t, cfg.SimulateComputationAsSleep)
	assert.Equal(t, "NONE", cfg.CachingBehavior)
	assert.Equal(t, int64(1048576), cfg.ScratchSpaceBufferSize)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	_, err := Load([]byte("NOT_A_REAL_KEY: 1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidEnumValue(t *testing.T) {
	_, err := Load([]byte("BATCH_SCHEDULING_ALGORITHM: round-robin-ish\n"))
	assert.Error(t, err)
}

func TestLoadRejectsNegativeDuration(t *testing.T) {
	_, err := Load([]byte("THREAD_STARTUP_OVERHEAD: -1\n"))
	assert.Error(t, err)
}

func TestLoadRejectsNonBoolForSleepFlag(t *testing.T) {
	_, err := Load([]byte("SIMULATE_COMPUTATION_AS_SLEEP: maybe\n"))
	assert.Error(t, err)
}

func TestDefaultsAppliedWhenKeyAbsent(t *testing.T) {
	cfg, err := Load([]byte("CACHING_BEHAVIOR: NONE\n"))
	require.NoError(t, err)
	assert.Equal(t, "fcfs", cfg.BatchSchedulingAlgorithm)
	assert.Equal(t, "FIRSTFIT", cfg.HostSelectionAlgorithm)
}
