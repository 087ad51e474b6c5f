package auth

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "battery staple") {
		t.Error("expected wrong password to be rejected")
	}
}

func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword(16)
	if err != nil {
		t.Fatalf("GeneratePassword: %v", err)
	}
	if len(pw) != 16 {
		t.Errorf("expected 16 characters, got %d", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(passwordCharset, r) {
			t.Errorf("unexpected character %q", r)
		}
	}

	if _, err := GeneratePassword(0); err == nil {
		t.Error("expected error for zero length")
	}
}
