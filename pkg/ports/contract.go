package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/form"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract. Adapter tests call this against
// their own backend.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := SessionKey{
		SessionID:  "contract-" + time.Now().Format("20060102150405"),
		FormStatus: "live",
		FormSlug:   "licence-application",
	}

	t.Run("GetState on a fresh session is empty", func(t *testing.T) {
		state, err := store.GetState(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("SetState then GetState round-trips", func(t *testing.T) {
		stored, err := store.SetState(ctx, key, form.State{
			"fullName": "Enid Blyton",
			"toppings": []any{"cheese", "ham"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Enid Blyton", stored["fullName"])

		state, err := store.GetState(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Enid Blyton", state["fullName"])
		// JSON persistence may not preserve concrete slice types, but the
		// values must survive
		assert.Len(t, state["toppings"], 2)
	})

	t.Run("states are isolated per form status", func(t *testing.T) {
		draft := key
		draft.FormStatus = "draft"
		state, err := store.GetState(ctx, draft)
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("ClearState removes answers but not confirmation", func(t *testing.T) {
		_, err := store.SetState(ctx, key, form.State{"fullName": "Enid Blyton"})
		require.NoError(t, err)
		require.NoError(t, store.SetConfirmationState(ctx, key, ConfirmationState{Confirmed: true}))

		require.NoError(t, store.ClearState(ctx, key))

		state, err := store.GetState(ctx, key)
		require.NoError(t, err)
		assert.Empty(t, state)

		confirmation, err := store.GetConfirmationState(ctx, key)
		require.NoError(t, err)
		assert.True(t, confirmation.Confirmed)
	})

	t.Run("confirmation defaults to unconfirmed", func(t *testing.T) {
		fresh := key
		fresh.SessionID += "-fresh"
		confirmation, err := store.GetConfirmationState(ctx, fresh)
		require.NoError(t, err)
		assert.False(t, confirmation.Confirmed)
	})
}
