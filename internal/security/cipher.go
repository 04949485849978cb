package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/veldry/chatvault/internal/domain"
)

// Content tokens are self-contained:
//
//	[1-byte version][8-byte big-endian unix seconds][nonce][ciphertext]
//
// The header is fed to the AEAD as associated data, so version and timestamp
// are authenticated along with the payload. The random nonce makes
// encryption non-deterministic: two encryptions of the same plaintext under
// the same key yield different tokens.
const (
	tokenVersion    = 1
	tokenHeaderSize = 9
)

// EncryptContent seals plaintext under a chat key into a content token.
func EncryptContent(chatKey, plaintext []byte) ([]byte, error) {
	aead, err := contentAEAD(chatKey)
	if err != nil {
		return nil, err
	}

	header := make([]byte, tokenHeaderSize)
	header[0] = tokenVersion
	binary.BigEndian.PutUint64(header[1:], uint64(time.Now().Unix()))

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	token := make([]byte, 0, tokenHeaderSize+len(nonce)+len(plaintext)+aead.Overhead())
	token = append(token, header...)
	token = append(token, nonce...)
	return aead.Seal(token, nonce, plaintext, header), nil
}

// DecryptContent opens a content token with the chat key. Malformed or
// foreign-key tokens fail with domain.ErrDecryption; retrying cannot change
// a cryptographic mismatch.
func DecryptContent(chatKey, token []byte) ([]byte, error) {
	aead, err := contentAEAD(chatKey)
	if err != nil {
		return nil, err
	}

	nonceSize := aead.NonceSize()
	if len(token) < tokenHeaderSize+nonceSize {
		return nil, fmt.Errorf("content token too short: %w", domain.ErrDecryption)
	}
	if token[0] != tokenVersion {
		return nil, fmt.Errorf("unknown content token version %d: %w", token[0], domain.ErrDecryption)
	}

	header := token[:tokenHeaderSize]
	nonce := token[tokenHeaderSize : tokenHeaderSize+nonceSize]
	ciphertext := token[tokenHeaderSize+nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt content: %w", domain.ErrDecryption)
	}
	return plaintext, nil
}

// TokenTimestamp returns the freshness timestamp embedded in a content
// token. The value is read without authentication, so callers must treat it
// as advisory until the token has been decrypted.
func TokenTimestamp(token []byte) (time.Time, error) {
	if len(token) < tokenHeaderSize {
		return time.Time{}, fmt.Errorf("content token too short: %w", domain.ErrDecryption)
	}
	return time.Unix(int64(binary.BigEndian.Uint64(token[1:tokenHeaderSize])), 0).UTC(), nil
}

func contentAEAD(chatKey []byte) (cipher.AEAD, error) {
	if len(chatKey) != TenantKeySize {
		return nil, fmt.Errorf("invalid chat key length: %d", len(chatKey))
	}
	block, err := aes.NewCipher(chatKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
