// Package cryptox implements symmetric encryption of small structured
// payloads into opaque hex tokens.
//
// A token is hex(iv) immediately followed by hex(ciphertext), where iv is a
// fresh random 16-byte value per call and ciphertext is AES-256-GCM output
// (including the authentication tag). The key is derived from a secret and a
// salt with scrypt, so it is deterministic for a given pair and expensive to
// brute-force.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/teamboard/internal/common"
	"golang.org/x/crypto/scrypt"
)

const (
	// IVSize is the per-token initialization vector length in bytes.
	IVSize = 16
	// KeySize is the derived key length (AES-256).
	KeySize = 32

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// DeriveKey derives a KeySize-byte key from secret and salt with scrypt.
func DeriveKey(secret, salt []byte) ([]byte, error) {
	return scrypt.Key(secret, salt, scryptN, scryptR, scryptP, KeySize)
}

// TokenCrypto encrypts and decrypts payloads with a key derived once at
// construction. It is safe for concurrent use.
type TokenCrypto struct {
	aead cipher.AEAD
}

// NewTokenCrypto derives the key for (secret, salt) and prepares the cipher.
func NewTokenCrypto(secret, salt []byte) (*TokenCrypto, error) {
	if len(secret) == 0 || len(salt) == 0 {
		return nil, fmt.Errorf("%w: secret and salt are required", common.ErrorValidation)
	}

	key, err := DeriveKey(secret, salt)
	if err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, err
	}

	return &TokenCrypto{aead: aead}, nil
}

// Encrypt serializes payload to JSON and returns hex(iv)+hex(ciphertext).
//
// Example:
//
//	tc, _ := cryptox.NewTokenCrypto([]byte("secret"), []byte("salt"))
//	token, err := tc.Encrypt(models.InvitePayload{Email: "bob@x.com", InviteID: id, ExpireAt: exp})
func (c *TokenCrypto) Encrypt(payload any) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}

	ciphertext := c.aead.Seal(nil, iv, plaintext, nil)

	return hex.EncodeToString(iv) + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt and unmarshals the plaintext into v. Any
// malformed, tampered, or foreign token yields common.ErrDecryption.
func (c *TokenCrypto) Decrypt(token string, v any) error {
	minLen := 2 * (IVSize + c.aead.Overhead())
	if len(token) < minLen || len(token)%2 != 0 || !isLowerHex(token) {
		return common.ErrDecryption
	}

	iv, err := hex.DecodeString(token[:2*IVSize])
	if err != nil {
		return common.ErrDecryption
	}
	ciphertext, err := hex.DecodeString(token[2*IVSize:])
	if err != nil {
		return common.ErrDecryption
	}

	plaintext, err := c.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return common.ErrDecryption
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return common.ErrDecryption
	}
	return nil
}

// isLowerHex reports whether s only contains [0-9a-f]. Upper-case digits
// would decode to the same bytes, so they are rejected to keep the token
// encoding canonical.
func isLowerHex(s string) bool {
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}
