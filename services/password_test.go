package services

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	password := "SecurePass123!"

	hashed, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	t.Logf("Stored form: %s", hashed)

	if !strings.Contains(hashed, "$") {
		t.Error("stored password is missing the salt separator")
	}
	if hashed == password {
		t.Error("stored password equals the plaintext")
	}

	ok, err := VerifyPassword(hashed, password)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() rejected the correct password")
	}

	ok, err = VerifyPassword(hashed, "WrongPass123!")
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("VerifyPassword() accepted the wrong password")
	}
}

func TestHashPasswordRejectsWeakPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "Too short", password: "a1!"},
		{name: "No number", password: "password!"},
		{name: "No special character", password: "password1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := HashPassword(tt.password); err == nil {
				t.Errorf("HashPassword(%q) accepted a weak password", tt.password)
			}
		})
	}
}

func TestVerifyPasswordMalformedStoredValue(t *testing.T) {
	if _, err := VerifyPassword("not-a-stored-hash", "SecurePass123!"); err == nil {
		t.Error("VerifyPassword() accepted a malformed stored value")
	}
}
