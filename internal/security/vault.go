package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/veldry/chatvault/internal/domain"
	"golang.org/x/crypto/hkdf"
)

// TenantKeySize is the size of a raw per-chat key (AES-256).
const TenantKeySize = 32

// hkdfInfo is versioned so a future derivation change cannot silently
// produce keys that unwrap old tokens.
const hkdfInfo = "chatvault/master-key/v1"

// KeyVault wraps and unwraps per-chat keys under a master key derived from
// the configured master secret. The secret is configuration, never stored
// alongside tenant data.
type KeyVault struct {
	aead cipher.AEAD
}

// NewKeyVault derives the master key from secret via HKDF-SHA256 and
// prepares the wrapping cipher.
func NewKeyVault(secret string) (*KeyVault, error) {
	if secret == "" {
		return nil, fmt.Errorf("master secret is empty")
	}

	masterKey := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, masterKey); err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &KeyVault{aead: aead}, nil
}

// GenerateTenantKey generates a new random per-chat key
func GenerateTenantKey() ([]byte, error) {
	key := make([]byte, TenantKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate tenant key: %w", err)
	}
	return key, nil
}

// WrapKey seals a raw tenant key under the master key. The returned token is
// nonce-prefixed and safe to persist on the chat row.
func (v *KeyVault) WrapKey(rawKey []byte) ([]byte, error) {
	if len(rawKey) != TenantKeySize {
		return nil, fmt.Errorf("invalid tenant key length: %d", len(rawKey))
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return v.aead.Seal(nonce, nonce, rawKey, nil), nil
}

// UnwrapKey opens a wrapped tenant key. Any authentication failure means the
// token was produced under a different master secret or has been tampered
// with and surfaces as domain.ErrKeyCorruption.
func (v *KeyVault) UnwrapKey(wrapped []byte) ([]byte, error) {
	nonceSize := v.aead.NonceSize()
	if len(wrapped) < nonceSize {
		return nil, fmt.Errorf("wrapped key too short: %w", domain.ErrKeyCorruption)
	}

	nonce, sealed := wrapped[:nonceSize], wrapped[nonceSize:]
	rawKey, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key: %w", domain.ErrKeyCorruption)
	}
	return rawKey, nil
}
