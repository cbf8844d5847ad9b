// Package auth owns the client's access token: it hydrates it from the
// persisted session, refreshes it at most once at a time, and clears it on
// logout or when the backend stops accepting it.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/client/session"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/dmitrijs2005/gamevault/internal/ratelimit"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

type Status string

const (
	StatusUnauthenticated Status = "unauthenticated"
	StatusAuthenticated   Status = "authenticated"
	StatusRefreshing      Status = "refreshing"
	StatusExpired         Status = "expired"
)

const (
	DefaultRefreshAttempts = 3
	DefaultRefreshWindow   = time.Minute
)

const refreshKey = "refresh"

type TokenStore struct {
	mu     sync.RWMutex
	token  string
	status Status
	// gen changes whenever the session is replaced or cleared; a refresh
	// started under an older gen must not write its result back.
	gen uint64

	store     session.Store
	refresher Refresher
	limiter   *ratelimit.Limiter
	flight    singleflight.Group
	log       logging.Logger
}

// NewTokenStore builds a store with nothing in memory. limiter may be nil,
// in which case the default 3 refreshes per minute per account apply.
func NewTokenStore(store session.Store, refresher Refresher, limiter *ratelimit.Limiter, log logging.Logger) *TokenStore {
	if limiter == nil {
		limiter = ratelimit.NewLimiter(DefaultRefreshWindow, DefaultRefreshAttempts)
	}
	return &TokenStore{
		status:    StatusUnauthenticated,
		store:     store,
		refresher: refresher,
		limiter:   limiter,
		log:       log,
	}
}

// GetToken returns the in-memory access token, or "" without touching
// storage.
func (s *TokenStore) GetToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Token returns the in-memory token, loading it from the persisted session
// first when memory is empty.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	if t := s.GetToken(); t != "" {
		return t, nil
	}

	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	rec, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.token == "" && !rec.Empty() {
		s.token = rec.AccessToken
		s.status = StatusAuthenticated
	}
	return s.token, nil
}

// Session returns the persisted record.
func (s *TokenStore) Session(ctx context.Context) (session.Record, error) {
	return s.store.Get(ctx)
}

func (s *TokenStore) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Set persists rec and makes its token current.
func (s *TokenStore) Set(ctx context.Context, rec session.Record) error {
	if rec.ExpiresAt == nil {
		rec.ExpiresAt = expiryFromToken(rec.AccessToken)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Put(ctx, rec); err != nil {
		return err
	}
	s.gen++
	s.token = rec.AccessToken
	s.status = StatusAuthenticated
	return nil
}

// Clear drops the session from memory and storage and forgets the refresh
// attempts recorded for its account.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	s.token = ""
	s.status = StatusUnauthenticated
	s.mu.Unlock()

	account := "anonymous"
	if rec, err := s.store.Get(ctx); err == nil && rec.AccountID != "" {
		account = rec.AccountID
	}
	s.limiter.Reset(account)

	s.log.Warn(ctx, "session cleared", "account", account)
	return s.store.Delete(ctx)
}

// Refresh obtains a new access token. Concurrent callers share one refresh:
// only the first reaches the backend, the rest wait for its outcome. The
// shared work is not cancelled when the caller that started it gives up.
func (s *TokenStore) Refresh(ctx context.Context) (string, error) {
	ch := s.flight.DoChan(refreshKey, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *TokenStore) refresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	gen := s.gen
	s.mu.RUnlock()

	rec, err := s.store.Get(ctx)
	if err != nil {
		return "", common.NewError(common.CodeRefreshFailed, "load session", err)
	}
	if rec.RefreshToken == "" {
		return "", common.NewError(common.CodeNoRefreshToken, "refresh", nil)
	}

	account := rec.AccountID
	if account == "" {
		account = "anonymous"
	}
	if !s.limiter.Allow(account) {
		s.log.Warn(ctx, "refresh rate limited", "account", account)
		return "", common.NewError(common.CodeTooManyAttempts, "refresh", nil)
	}

	s.setStatus(gen, StatusRefreshing)

	res, err := s.refresher.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		s.setStatus(gen, StatusExpired)
		s.log.Warn(ctx, "refresh failed", "account", account, "err", err)
		return "", common.NewError(common.CodeRefreshFailed, "refresh", err)
	}

	rec.AccessToken = res.Token
	rec.ExpiresAt = res.ExpiresAt
	if rec.ExpiresAt == nil {
		rec.ExpiresAt = expiryFromToken(res.Token)
	}
	if res.RefreshToken != "" {
		rec.RefreshToken = res.RefreshToken
	}

	// The write happens under mu so a concurrent Clear either sees the new
	// record and deletes it, or bumps gen first and the write is dropped.
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		s.log.Warn(ctx, "session changed during refresh, result dropped", "account", account)
		return "", common.NewError(common.CodeRefreshFailed, "refresh", common.ErrSessionChanged)
	}
	if err := s.store.Put(ctx, rec); err != nil {
		s.status = StatusExpired
		s.mu.Unlock()
		return "", common.NewError(common.CodeRefreshFailed, "save session", err)
	}
	s.token = rec.AccessToken
	s.status = StatusAuthenticated
	s.mu.Unlock()

	s.log.Info(ctx, "access token refreshed", "account", account)
	return rec.AccessToken, nil
}

// setStatus applies st only while the session is still the one gen saw.
func (s *TokenStore) setStatus(gen uint64, st Status) {
	s.mu.Lock()
	if s.gen == gen {
		s.status = st
	}
	s.mu.Unlock()
}

// expiryFromToken reads the exp claim without verifying the signature; the
// client has no key to verify with and only uses it as a hint.
func expiryFromToken(token string) *time.Time {
	if token == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	t := exp.Time
	return &t
}
