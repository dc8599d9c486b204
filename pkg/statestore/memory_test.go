package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetpilot/fleetpilot/pkg/models"
)

func TestMemoryStore_LoadMissing(t *testing.T) {
	store := NewMemoryStore()

	state, found, err := store.Load(context.Background(), "web-app")

	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, state)
}

func TestMemoryStore_SaveAndLoad(t *testing.T) {
	store := NewMemoryStore()

	now := time.Now().Truncate(time.Second)
	state := NewAgentState("web-app")
	state.LastScaleUpAt = &now
	state.Health["i-1"] = &models.InstanceHealthRecord{
		InstanceID:           "i-1",
		Status:               models.StatusDegraded,
		ConsecutiveUnhealthy: 2,
	}

	require.NoError(t, store.Save(context.Background(), state))

	loaded, found, err := store.Load(context.Background(), "web-app")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "web-app", loaded.ResourceID)
	require.NotNil(t, loaded.LastScaleUpAt)
	assert.True(t, now.Equal(*loaded.LastScaleUpAt))
	require.Contains(t, loaded.Health, "i-1")
	assert.Equal(t, 2, loaded.Health["i-1"].ConsecutiveUnhealthy)
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	store := NewMemoryStore()

	state := NewAgentState("web-app")
	state.Health["i-1"] = &models.InstanceHealthRecord{InstanceID: "i-1", ConsecutiveUnhealthy: 1}
	require.NoError(t, store.Save(context.Background(), state))

	first, _, err := store.Load(context.Background(), "web-app")
	require.NoError(t, err)
	first.Health["i-1"].ConsecutiveUnhealthy = 99

	second, _, err := store.Load(context.Background(), "web-app")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Health["i-1"].ConsecutiveUnhealthy)
}

func TestMemoryStore_SaveReplacesPrevious(t *testing.T) {
	store := NewMemoryStore()

	state := NewAgentState("web-app")
	state.Health["i-1"] = &models.InstanceHealthRecord{InstanceID: "i-1"}
	require.NoError(t, store.Save(context.Background(), state))

	replacement := NewAgentState("web-app")
	replacement.Health["i-2"] = &models.InstanceHealthRecord{InstanceID: "i-2"}
	require.NoError(t, store.Save(context.Background(), replacement))

	loaded, _, err := store.Load(context.Background(), "web-app")
	require.NoError(t, err)
	assert.NotContains(t, loaded.Health, "i-1")
	assert.Contains(t, loaded.Health, "i-2")
}
