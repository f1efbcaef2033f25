package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

const opaqueTokenBytes = 32

// TokenHasher derives keyed digests for bearer secrets so only the digest is
// ever persisted.
type TokenHasher struct {
	key []byte
}

func NewTokenHasher(secret string) (*TokenHasher, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	return &TokenHasher{key: []byte(secret)}, nil
}

// Issue generates a fresh opaque token and returns it together with its digest.
func (h *TokenHasher) Issue() (token string, digest string, err error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, h.Digest(token), nil
}

// Digest returns the hex HMAC-SHA256 of token.
func (h *TokenHasher) Digest(token string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches compares token against a stored digest in constant time.
func (h *TokenHasher) Matches(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	computed := h.Digest(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}
