package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/planora/planora/internal/store"
)

func newTestService() *Service {
	return NewService(nil, "test-secret", time.Hour)
}

func TestIssueAndParseToken(t *testing.T) {
	svc := newTestService()
	u := &store.User{ID: "uuid-9", Email: "x@y.com", Name: "Pat"}

	token, err := svc.IssueToken(u)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Subject != "uuid-9" {
		t.Errorf("expected subject uuid-9, got %q", claims.Subject)
	}
	if claims.Email != "x@y.com" {
		t.Errorf("expected email x@y.com, got %q", claims.Email)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService()
	other := NewService(nil, "other-secret", time.Hour)

	token, err := other.IssueToken(&store.User{ID: "u-1", Email: "a@b.com"})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := svc.ParseToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestService()

	now := time.Now()
	claims := Claims{
		Email: "a@b.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ParseToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseTokenRejectsMissingClaims(t *testing.T) {
	svc := newTestService()

	// Signed correctly but without subject/email.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ParseToken(token); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken for empty claims, got %v", err)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"valid", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"missing header", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no token", "Bearer", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := extractBearerToken(r); got != tt.want {
				t.Errorf("extractBearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}
