package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
)

// TokenStore owns the raw per-device session token. The raw token never
// leaves the process that generated it; everything backend-facing carries
// only the hash, so a leaked sessions table cannot be replayed.
type TokenStore struct {
	mu    sync.Mutex
	token string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Token returns the stored token, generating one on first use. Repeated
// calls within the same store return the same value.
func (ts *TokenStore) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" {
		return ts.token, nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	ts.token = base64.RawURLEncoding.EncodeToString(raw)
	return ts.token, nil
}

// Hash returns the backend-facing hash of the stored token, generating the
// token first if needed.
func (ts *TokenStore) Hash() (string, error) {
	token, err := ts.Token()
	if err != nil {
		return "", err
	}
	return HashSessionToken(token), nil
}

// Clear drops the token so the next call to Token issues a fresh one. Used
// after a forced sign-out.
func (ts *TokenStore) Clear() {
	ts.mu.Lock()
	ts.token = ""
	ts.mu.Unlock()
}

// HashSessionToken returns the SHA-256 hash of the token, hex-encoded. This
// is the only form of the token ever persisted or transmitted.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenHashEqual compares two token hashes in constant time.
func TokenHashEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
