package client

import (
	"context"
	"errors"
	"fmt"

	"doubleordie/db"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthUnavailable is returned by providers that cannot sign anyone in
var ErrAuthUnavailable = errors.New("auth is not configured")

// Session is a signed-in identity
type Session struct {
	UserID      string
	AccessToken string
}

// AuthProvider is the identity capability the controller depends on
type AuthProvider interface {
	Session(ctx context.Context) (*Session, error)
	Profile(ctx context.Context, session *Session) (*db.ProfileRecord, error)
	SignIn(ctx context.Context, accessToken string) (*Session, error)
	SignOut(ctx context.Context) error
}

// NullAuth is the offline provider: nobody is ever signed in
type NullAuth struct{}

func (NullAuth) Session(ctx context.Context) (*Session, error) { return nil, nil }

func (NullAuth) Profile(ctx context.Context, session *Session) (*db.ProfileRecord, error) {
	return nil, nil
}

func (NullAuth) SignIn(ctx context.Context, accessToken string) (*Session, error) {
	return nil, ErrAuthUnavailable
}

func (NullAuth) SignOut(ctx context.Context) error { return nil }

// TokenAuth signs in with an access token issued by the identity provider.
// The server verifies the token; the client only reads its subject.
type TokenAuth struct {
	api     API
	session *Session
}

func NewTokenAuth(api API) *TokenAuth {
	return &TokenAuth{api: api}
}

func (a *TokenAuth) Session(ctx context.Context) (*Session, error) {
	return a.session, nil
}

func (a *TokenAuth) Profile(ctx context.Context, session *Session) (*db.ProfileRecord, error) {
	if session == nil {
		return nil, nil
	}
	return a.api.Profile(ctx, session.AccessToken)
}

func (a *TokenAuth) SignIn(ctx context.Context, accessToken string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, fmt.Errorf("unreadable access token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("access token has no subject")
	}

	a.session = &Session{UserID: claims.Subject, AccessToken: accessToken}
	return a.session, nil
}

func (a *TokenAuth) SignOut(ctx context.Context) error {
	a.session = nil
	return nil
}
