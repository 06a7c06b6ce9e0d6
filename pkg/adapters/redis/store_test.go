package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStoreContract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunSessionStoreContract(t, store)
}

func TestStoreKeyPrefix(t *testing.T) {
	store, mr := newTestStore(t, WithPrefix("runner:"))
	ctx := context.Background()
	key := ports.SessionKey{SessionID: "abc", FormStatus: "live", FormSlug: "apply"}

	_, err := store.SetState(ctx, key, form.State{"field": "value"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("runner:abc:live:apply"))
}

func TestStoreTTL(t *testing.T) {
	store, mr := newTestStore(t, WithTTL(time.Minute))
	ctx := context.Background()
	key := ports.SessionKey{SessionID: "abc", FormStatus: "live", FormSlug: "apply"}

	_, err := store.SetState(ctx, key, form.State{"field": "value"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	state, err := store.GetState(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, state)
}
