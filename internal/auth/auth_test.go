package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestResolve_ValidTokens(t *testing.T) {
	resolver := NewResolver("secret")

	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS256, jwt.SigningMethodHS512} {
		token := signToken(t, method, "secret", "user-42")
		userID, err := resolver.Resolve("Bearer " + token)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", method.Alg(), err)
		}
		if userID != "user-42" {
			t.Fatalf("%s: userID = %q, want user-42", method.Alg(), userID)
		}
	}
}

func TestResolve_MissingToken(t *testing.T) {
	resolver := NewResolver("secret")

	for _, header := range []string{"", "Bearer ", "Token abc", "secret"} {
		if _, err := resolver.Resolve(header); !errors.Is(err, ErrNoToken) {
			t.Fatalf("header %q: err = %v, want ErrNoToken", header, err)
		}
	}
}

func TestResolve_InvalidTokens(t *testing.T) {
	resolver := NewResolver("secret")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, jwt.SigningMethodHS256, "other", "user-42")},
		{"garbage", "not.a.token"},
		{"empty subject", signToken(t, jwt.SigningMethodHS256, "secret", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := resolver.Resolve("Bearer " + tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestResolve_ExpiredToken(t *testing.T) {
	resolver := NewResolver("secret")
	claims := jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := resolver.Resolve("Bearer " + token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
