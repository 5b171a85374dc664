package adventure

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCopiesChoices(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p := Progress{StepName: "step3", Choices: map[string]string{"step2": "kill"}}
	require.NoError(t, store.Save(ctx, "dragon", "l1", p))
	p.Choices["step2"] = "leave"

	got, err := store.Load(ctx, "dragon", "l1")
	require.NoError(t, err)
	assert.Equal(t, "kill", got.Choices["step2"])

	got.Choices["step2"] = "leave"
	again, err := store.Load(ctx, "dragon", "l1")
	require.NoError(t, err)
	assert.Equal(t, "kill", again.Choices["step2"])
}

func TestMemoryStoreKeysByAdventure(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "dragon", "l1", Progress{StepName: "step2"}))

	got, err := store.Load(ctx, "castle", "l1")
	require.NoError(t, err)
	assert.Equal(t, Progress{}, got)
}
