// Package session persists the authenticated session between runs. A
// Record with an empty AccessToken means "no session".
package session

import (
	"context"
	"time"
)

type Record struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	AccountID    string     `json:"accountId,omitempty"`
	AccountType  string     `json:"accountType,omitempty"`
}

// Empty reports whether r carries no access token.
func (r Record) Empty() bool { return r.AccessToken == "" }

// Store is the persistence boundary for the session. Get returns a zero
// Record when nothing is stored.
type Store interface {
	Get(ctx context.Context) (Record, error)
	Put(ctx context.Context, r Record) error
	Delete(ctx context.Context) error
}
