package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("S1", RoleSeller)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.CallerID != "S1" {
		t.Errorf("expected subject S1, got %q", claims.CallerID)
	}
	if claims.Role != RoleSeller {
		t.Errorf("expected role seller, got %q", claims.Role)
	}
}

func TestValidateRejects(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	other := NewJWTManager("other-secret", time.Hour)
	expired := NewJWTManager("test-secret", -time.Minute)

	foreign, err := other.Generate("U1", RoleBuyer)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	stale, err := expired.Generate("U1", RoleBuyer)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"expired", stale},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestGenerateRequiresKnownRole(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	if _, err := m.Generate("U1", Role("admin")); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("expected ErrUnknownRole, got %v", err)
	}
	if _, err := m.Generate("", RoleBuyer); err == nil {
		t.Error("expected error for empty subject")
	}
}
