package security

import (
	"testing"
	"time"
)

func TestGenerateSessionIDLengthAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateSessionID()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(id) != 64 {
			t.Fatalf("len = %d, want 64 hex chars", len(id))
		}
		if seen[id] {
			t.Fatal("duplicate session id")
		}
		seen[id] = true
	}
}

func TestGenerateBackupCodes(t *testing.T) {
	codes, err := GenerateBackupCodes(8, 10)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(codes) != 8 {
		t.Fatalf("count = %d, want 8", len(codes))
	}

	seen := make(map[string]bool)
	for _, code := range codes {
		if len(code) != 10 {
			t.Errorf("code %q length = %d, want 10", code, len(code))
		}
		if seen[code] {
			t.Errorf("duplicate code %q", code)
		}
		seen[code] = true
	}
}

func TestHashTokenIsDeterministic(t *testing.T) {
	if HashToken("ABC123") != HashToken("ABC123") {
		t.Error("same input hashed differently")
	}
	if HashToken("ABC123") == HashToken("ABC124") {
		t.Error("different inputs collided")
	}
}

func TestTOTPRoundTrip(t *testing.T) {
	secret, qrPayload, err := GenerateTOTPSecret("SalesFlow", "rep@example.com")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if secret == "" {
		t.Fatal("empty secret")
	}
	if qrPayload == "" {
		t.Fatal("empty otpauth payload")
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if ValidateTOTPCode("000000", secret, at) && ValidateTOTPCode("999999", secret, at) {
		t.Error("validator accepts arbitrary codes")
	}
	if ValidateTOTPCode("12345", secret, at) {
		t.Error("validator accepted a five-digit code")
	}
}
