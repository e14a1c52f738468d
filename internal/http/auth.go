package http

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/campus-reservations/internal/application"
)

var errInvalidToken = errors.New("invalid bearer token")

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (application.Principal, error)
}

// Claims are the JWT claims understood by the service. The subject is the
// actor id; either role or roles may carry role names.
type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HMAC signed tokens issued by the identity provider.
type JWTVerifier struct {
	secret     []byte
	adminRoles map[string]bool
	parser     *jwt.Parser
}

// NewJWTVerifier builds a verifier for the shared secret. Principals holding
// any of adminRoles are administrators.
func NewJWTVerifier(secret string, adminRoles []string) *JWTVerifier {
	roles := make(map[string]bool, len(adminRoles))
	for _, role := range adminRoles {
		roles[strings.ToLower(strings.TrimSpace(role))] = true
	}
	return &JWTVerifier{
		secret:     []byte(secret),
		adminRoles: roles,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{
				jwt.SigningMethodHS256.Alg(),
				jwt.SigningMethodHS384.Alg(),
				jwt.SigningMethodHS512.Alg(),
			}),
			jwt.WithLeeway(30*time.Second),
		),
	}
}

// Verify parses and validates the token.
func (v *JWTVerifier) Verify(ctx context.Context, raw string) (application.Principal, error) {
	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return application.Principal{}, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	if !token.Valid {
		return application.Principal{}, errInvalidToken
	}

	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return application.Principal{}, fmt.Errorf("%w: missing subject", errInvalidToken)
	}

	return application.Principal{UserID: subject, IsAdmin: v.isAdmin(claims)}, nil
}

func (v *JWTVerifier) isAdmin(claims *Claims) bool {
	if v.adminRoles[strings.ToLower(claims.Role)] {
		return true
	}
	for _, role := range claims.Roles {
		if v.adminRoles[strings.ToLower(role)] {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
