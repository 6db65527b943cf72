package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGovernor_AcquireUpToSlots(t *testing.T) {
	governor := NewGovernor(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, governor.Acquire(ctx))
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, governor.Acquire(canceled))
}

func TestGovernor_ReleaseFreesSlot(t *testing.T) {
	governor := NewGovernor(1)
	ctx := context.Background()

	require.NoError(t, governor.Acquire(ctx))
	governor.Release()
	require.NoError(t, governor.Acquire(ctx))
}

func TestGovernor_NonPositiveSlotsFallBackToDefault(t *testing.T) {
	governor := NewGovernor(0)
	ctx := context.Background()

	for i := 0; i < DefaultRemoteConcurrency; i++ {
		require.NoError(t, governor.Acquire(ctx))
	}
}
