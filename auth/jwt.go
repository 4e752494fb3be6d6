package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("missing authorization header")
	ErrInvalidCredential = errors.New("invalid auth token")
)

// Verifier resolves a bearer credential to a user id
type Verifier interface {
	ResolveUser(ctx context.Context, authorization string) (string, error)
}

// Claims is the subset of a Supabase access token we rely on
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 access tokens signed with the project JWT secret
type JWTVerifier struct {
	secret   []byte
	audience string
}

func NewJWTVerifier(secret, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), audience: audience}
}

// BearerToken strips the scheme from an Authorization header value
func BearerToken(authorization string) string {
	parts := strings.Fields(authorization)
	if len(parts) == 0 {
		return ""
	}
	if strings.EqualFold(parts[0], "bearer") {
		if len(parts) < 2 {
			return ""
		}
		return parts[1]
	}
	return parts[0]
}

func (v *JWTVerifier) ResolveUser(ctx context.Context, authorization string) (string, error) {
	raw := BearerToken(authorization)
	if raw == "" {
		return "", ErrMissingCredential
	}
	if len(v.secret) == 0 {
		return "", fmt.Errorf("%w: verifier not configured", ErrInvalidCredential)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidCredential
	}

	return claims.Subject, nil
}

// IssueToken signs an access token for userID. Used by dev tooling and tests;
// production tokens come from the identity provider.
func (v *JWTVerifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.audience != "" {
		claims.Audience = jwt.ClaimStrings{v.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
