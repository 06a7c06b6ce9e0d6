package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

// envelopeKey is the single key present in an encrypted state envelope.
const envelopeKey = "__encrypted__"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.SessionStore
	config EncryptionConfig
}

// NewEncryption creates a middleware that encrypts session answers at rest
// using AES-GCM. The backing store only ever sees an opaque envelope;
// confirmation flags stay in the clear since they carry no answers.
func NewEncryption(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &encryptionMiddleware{
			next:   next,
			config: config,
		}
	}
}

func (m *encryptionMiddleware) SetState(ctx context.Context, key ports.SessionKey, state form.State) (form.State, error) {
	plainText, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	ciphertext, err := encrypt(plainText, m.config.ActiveKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt state: %w", err)
	}

	envelope := form.State{
		envelopeKey: base64.StdEncoding.EncodeToString(ciphertext),
	}
	if _, err := m.next.SetState(ctx, key, envelope); err != nil {
		return nil, err
	}
	// Callers get the logical state back, never the envelope.
	return state, nil
}

func (m *encryptionMiddleware) GetState(ctx context.Context, key ports.SessionKey) (form.State, error) {
	envelope, err := m.next.GetState(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(envelope) == 0 {
		// No stored answers yet.
		return envelope, nil
	}

	encryptedStr, ok := envelope[envelopeKey].(string)
	if !ok {
		// Once encryption is configured we expect every stored state to be
		// an envelope. A plain state here means mixed configuration; fail
		// secure rather than guess.
		return nil, errors.New("state is missing encrypted data envelope")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encryptedStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}

	plainText, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt state: %w", err)
	}

	var state form.State
	if err := json.Unmarshal(plainText, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted state: %w", err)
	}
	return state, nil
}

func (m *encryptionMiddleware) ClearState(ctx context.Context, key ports.SessionKey) error {
	return m.next.ClearState(ctx, key)
}

func (m *encryptionMiddleware) GetConfirmationState(ctx context.Context, key ports.SessionKey) (ports.ConfirmationState, error) {
	return m.next.GetConfirmationState(ctx, key)
}

func (m *encryptionMiddleware) SetConfirmationState(ctx context.Context, key ports.SessionKey, confirmation ports.ConfirmationState) error {
	return m.next.SetConfirmationState(ctx, key, confirmation)
}

// Helpers

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	// Try active key first
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}

	// Try fallbacks in order
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}

	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertextBytes := ciphertext[gcm.NonceSize():]

	return gcm.Open(nil, nonce, ciphertextBytes, nil)
}
