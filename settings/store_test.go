package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glyphic-ai/genflow/providers"
)

func TestStaticStore(t *testing.T) {
	store := NewStaticStore(Snapshot{
		Providers: []providers.ResolvedConfig{
			{ID: "a", Enabled: true},
			{ID: "b", Enabled: false},
			{ID: "c", Enabled: true},
		},
		Defaults: providers.Settings{Temperature: 0.7, MaxTokens: 256},
	})

	snap, err := store.Current(context.Background())
	require.NoError(t, err)

	t.Run("disabled configs are filtered", func(t *testing.T) {
		require.Len(t, snap.Providers, 2)
		assert.Equal(t, "a", snap.Providers[0].ID)
		assert.Equal(t, "c", snap.Providers[1].ID)
		assert.Equal(t, 0.7, snap.Defaults.Temperature)
	})

	t.Run("callers get an independent copy", func(t *testing.T) {
		snap.Providers[0].ID = "mutated"
		again, err := store.Current(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "a", again.Providers[0].ID)
	})
}
