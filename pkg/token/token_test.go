package token

import (
	"testing"
	"time"
)

func TestSignAndParseRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	signed, err := m.Sign(Identity{UserID: 42, Username: "maria", Role: "admin"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	id, err := m.Parse(signed)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if id.UserID != 42 {
		t.Errorf("UserID = %d, want 42", id.UserID)
	}
	if id.Username != "maria" {
		t.Errorf("Username = %q, want %q", id.Username, "maria")
	}
	if id.Role != "admin" {
		t.Errorf("Role = %q, want %q", id.Role, "admin")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	signed, err := NewManager("secret-a", time.Hour).Sign(Identity{UserID: 1, Username: "u", Role: "user"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour).Parse(signed); err != ErrInvalidToken {
		t.Errorf("Parse with wrong secret: got %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", time.Nanosecond)
	signed, err := m.Sign(Identity{UserID: 1, Username: "u", Role: "user"})
	if err != nil {
		t.Fatalf("Sign returned error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := m.Parse(signed); err != ErrInvalidToken {
		t.Errorf("Parse of expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	if _, err := m.Parse("not.a.token"); err != ErrInvalidToken {
		t.Errorf("Parse of garbage: got %v, want ErrInvalidToken", err)
	}
}
