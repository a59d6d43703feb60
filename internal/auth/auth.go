// Package auth resolves the current user from a bearer token. Token issuing
// belongs to the account system; this service only verifies and extracts the
// subject so handlers receive an explicit user identity.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoToken indicates the request carried no bearer token.
	ErrNoToken = errors.New("auth: missing bearer token")
	// ErrInvalidToken indicates the token failed verification or carries no subject.
	ErrInvalidToken = errors.New("auth: invalid token")
)

// Resolver verifies HMAC-signed tokens and extracts the user identity.
type Resolver struct {
	secret []byte
}

// NewResolver constructs a Resolver for the given shared secret.
func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve parses an Authorization header value and returns the user id from
// the token subject. Only HMAC signing methods are accepted.
func (r *Resolver) Resolve(header string) (string, error) {
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return "", ErrNoToken
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if raw == "" {
		return "", ErrNoToken
	}

	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", ErrInvalidToken
	}
	return subject, nil
}
