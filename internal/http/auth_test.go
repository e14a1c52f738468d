package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func claimsFor(subject, role string) Claims {
	return Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestJWTVerifier_Verify(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, []string{"admin", "Staff"})

	t.Run("student token", func(t *testing.T) {
		principal, err := verifier.Verify(context.Background(), signToken(t, testSecret, claimsFor("alice", "student")))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if principal.UserID != "alice" || principal.IsAdmin {
			t.Fatalf("unexpected principal: %+v", principal)
		}
	})

	t.Run("admin role is case insensitive", func(t *testing.T) {
		principal, err := verifier.Verify(context.Background(), signToken(t, testSecret, claimsFor("bob", "staff")))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !principal.IsAdmin {
			t.Fatal("expected administrator")
		}
	})

	t.Run("roles array", func(t *testing.T) {
		claims := claimsFor("carol", "")
		claims.Roles = []string{"student", "admin"}
		principal, err := verifier.Verify(context.Background(), signToken(t, testSecret, claims))
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if !principal.IsAdmin {
			t.Fatal("expected administrator from roles claim")
		}
	})

	rejected := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{name: "wrong secret", token: func(t *testing.T) string {
			return signToken(t, "other-secret", claimsFor("alice", "student"))
		}},
		{name: "expired", token: func(t *testing.T) string {
			claims := claimsFor("alice", "student")
			claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return signToken(t, testSecret, claims)
		}},
		{name: "missing subject", token: func(t *testing.T) string {
			return signToken(t, testSecret, claimsFor("", "admin"))
		}},
		{name: "unsigned", token: func(t *testing.T) string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claimsFor("alice", "admin")).SignedString(jwt.UnsafeAllowNoneSignatureType)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return token
		}},
		{name: "garbage", token: func(t *testing.T) string { return "not-a-jwt" }},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), tt.token(t))
			if !errors.Is(err, errInvalidToken) {
				t.Fatalf("expected errInvalidToken, got %v", err)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "Bearer", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		if got := bearerToken(tt.header); got != tt.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
