package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/middleware"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func testKey() ports.SessionKey {
	return ports.SessionKey{SessionID: "abc", FormStatus: "live", FormSlug: "apply"}
}

func TestEncryptionRoundtrip(t *testing.T) {
	underlying := memory.New()
	secure := middleware.Chain(underlying, middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: generateKey(t),
	}))

	ctx := context.Background()
	key := testKey()
	original := form.State{"licenceType": "full", "applicantEmail": "pip@example.com"}

	stored, err := secure.SetState(ctx, key, original)
	require.NoError(t, err)
	assert.Equal(t, original, stored, "callers should see the logical state, not the envelope")

	// The backing store must only hold the opaque envelope.
	raw, err := underlying.GetState(ctx, key)
	require.NoError(t, err)
	assert.NotContains(t, raw, "licenceType")
	assert.Contains(t, raw, "__encrypted__")

	loaded, err := secure.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "full", loaded["licenceType"])
	assert.Equal(t, "pip@example.com", loaded["applicantEmail"])
}

func TestEncryptionEmptySession(t *testing.T) {
	secure := middleware.Chain(memory.New(), middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: generateKey(t),
	}))

	state, err := secure.GetState(context.Background(), testKey())
	require.NoError(t, err)
	assert.Empty(t, state)
}

func TestEncryptionKeyRotation(t *testing.T) {
	underlying := memory.New()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	ctx := context.Background()
	key := testKey()

	oldStore := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: oldKey})(underlying)
	_, err := oldStore.SetState(ctx, key, form.State{"data": "sealed-with-old-key"})
	require.NoError(t, err)

	// New active key, old key demoted to fallback: reads keep working.
	rotated := middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlying)

	state, err := rotated.GetState(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "sealed-with-old-key", state["data"])

	// Without the fallback the ciphertext is unreadable.
	strict := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: newKey})(underlying)
	_, err = strict.GetState(ctx, key)
	assert.Error(t, err)
}

func TestEncryptionRejectsPlainState(t *testing.T) {
	underlying := memory.New()
	ctx := context.Background()
	key := testKey()

	_, err := underlying.SetState(ctx, key, form.State{"licenceType": "full"})
	require.NoError(t, err)

	secure := middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlying)
	_, err = secure.GetState(ctx, key)
	assert.ErrorContains(t, err, "envelope")
}

func TestEncryptionShortKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryption(middleware.EncryptionConfig{ActiveKey: []byte("too short")})
	})
}

func TestEncryptedStoreContract(t *testing.T) {
	secure := middleware.Chain(memory.New(), middleware.NewEncryption(middleware.EncryptionConfig{
		ActiveKey: generateKey(t),
	}))
	ports.RunSessionStoreContract(t, secure)
}
