package security

import (
	"strings"
	"testing"
)

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	if err != nil {
		t.Fatalf("GenerateNumericCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digits, got %q", code)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", code)
		}
	}

	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected error for non-positive length")
	}
}

func TestGenerateBackupCodeAlphabet(t *testing.T) {
	code, err := GenerateBackupCode(8)
	if err != nil {
		t.Fatalf("GenerateBackupCode returned error: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("expected 8 characters, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(backupCodeAlphabet, r) {
			t.Fatalf("character %q outside the unambiguous alphabet", r)
		}
	}
}

func TestGenerateSecureTokenUnique(t *testing.T) {
	a, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	b, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("value")
	b := HashToken("value")
	if a != b {
		t.Fatal("expected deterministic hashing")
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(a))
	}
	if a == HashToken("other") {
		t.Fatal("expected different inputs to hash differently")
	}
}
