package services

import (
	"encoding/hex"
	"testing"
)

func TestTokenStoreStableUntilCleared(t *testing.T) {
	store := NewTokenStore()

	first, err := store.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if first == "" {
		t.Fatal("Token() returned empty token")
	}

	second, err := store.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if second != first {
		t.Errorf("Token() changed between calls: %q != %q", second, first)
	}

	store.Clear()

	third, err := store.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if third == first {
		t.Error("Token() after Clear() returned the old token")
	}
	t.Logf("Token before clear: %s", first)
	t.Logf("Token after clear: %s", third)
}

func TestTokenStoreHashMatchesToken(t *testing.T) {
	store := NewTokenStore()

	token, err := store.Token()
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	hash, err := store.Hash()
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if hash != HashSessionToken(token) {
		t.Errorf("Hash() = %q, want %q", hash, HashSessionToken(token))
	}
	if hash == token {
		t.Error("Hash() must not equal the raw token")
	}
}

func TestHashSessionToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
	}{
		{name: "Normal token", token: "some-session-token"},
		{name: "Empty token", token: ""},
		{name: "Unicode token", token: "токен-сессии"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := HashSessionToken(tt.token)
			second := HashSessionToken(tt.token)

			t.Logf("Token: %q", tt.token)
			t.Logf("Hash: %s", first)

			if first != second {
				t.Errorf("HashSessionToken() not deterministic: %q != %q", first, second)
			}
			if len(first) != 64 {
				t.Errorf("HashSessionToken() length = %d, want 64", len(first))
			}
			if _, err := hex.DecodeString(first); err != nil {
				t.Errorf("HashSessionToken() is not valid hex: %v", err)
			}
		})
	}

	if HashSessionToken("a") == HashSessionToken("b") {
		t.Error("different tokens produced the same hash")
	}
}

func TestTokenHashEqual(t *testing.T) {
	a := HashSessionToken("token-a")
	b := HashSessionToken("token-b")

	if !TokenHashEqual(a, a) {
		t.Error("TokenHashEqual() = false for identical hashes")
	}
	if TokenHashEqual(a, b) {
		t.Error("TokenHashEqual() = true for different hashes")
	}
	if TokenHashEqual(a, "") {
		t.Error("TokenHashEqual() = true for empty hash")
	}
}
