// Package services contains the application services the CLI drives:
// signing in and out, listing the games the signed-in account owns, and
// buying a game.
package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gamevault/internal/client/auth"
	"github.com/dmitrijs2005/gamevault/internal/client/session"
)

// AuthService manages the backend session.
//
// Contract:
//   - Login: exchange credentials for a session and persist it.
//   - Logout: drop the session from memory and storage.
//   - WhoAmI: the persisted session and the in-memory token status.
type AuthService interface {
	Login(ctx context.Context, email, password string) (session.Record, error)
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) (session.Record, auth.Status, error)
}

// LoginAPI is the backend login endpoint; *auth.API satisfies it.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (session.Record, error)
}

// SessionManager is the token-store surface the services need;
// *auth.TokenStore satisfies it.
type SessionManager interface {
	Session(ctx context.Context) (session.Record, error)
	Set(ctx context.Context, rec session.Record) error
	Clear(ctx context.Context) error
	Status() auth.Status
}

type authService struct {
	api    LoginAPI
	tokens SessionManager
}

func NewAuthService(api LoginAPI, tokens SessionManager) AuthService {
	return &authService{api: api, tokens: tokens}
}

func (a *authService) Login(ctx context.Context, email, password string) (session.Record, error) {
	rec, err := a.api.Login(ctx, email, password)
	if err != nil {
		return session.Record{}, fmt.Errorf("login: %w", err)
	}
	if err := a.tokens.Set(ctx, rec); err != nil {
		return session.Record{}, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.tokens.Clear(ctx)
}

func (a *authService) WhoAmI(ctx context.Context) (session.Record, auth.Status, error) {
	rec, err := a.tokens.Session(ctx)
	if err != nil {
		return session.Record{}, "", err
	}
	return rec, a.tokens.Status(), nil
}
