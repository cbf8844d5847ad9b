package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/client/session"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls   int32
	tokens  []string
	err     error
	started chan struct{}
	release chan struct{}
	seen    []string
	mu      sync.Mutex
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	n := atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.seen = append(f.seen, refreshToken)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return RefreshResult{}, f.err
	}
	tok := "new-token"
	if int(n) <= len(f.tokens) {
		tok = f.tokens[n-1]
	}
	return RefreshResult{Token: tok}, nil
}

func seeded(t *testing.T, rec session.Record) *session.MemoryStore {
	t.Helper()
	s := session.NewMemoryStore()
	require.NoError(t, s.Put(context.Background(), rec))
	return s
}

func TestToken_HydratesFromStorage(t *testing.T) {
	store := seeded(t, session.Record{AccessToken: "persisted", RefreshToken: "r"})
	ts := NewTokenStore(store, &fakeRefresher{}, nil, logging.Nop())

	assert.Equal(t, "", ts.GetToken())
	assert.Equal(t, StatusUnauthenticated, ts.Status())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "persisted", tok)
	assert.Equal(t, "persisted", ts.GetToken())
	assert.Equal(t, StatusAuthenticated, ts.Status())
}

func TestToken_NoSession(t *testing.T) {
	ts := NewTokenStore(session.NewMemoryStore(), &fakeRefresher{}, nil, logging.Nop())

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRefresh_ConcurrentCallersShareOneCall(t *testing.T) {
	store := seeded(t, session.Record{AccessToken: "old", RefreshToken: "r1", AccountID: "acc"})
	ref := &fakeRefresher{started: make(chan struct{}, 5), release: make(chan struct{})}
	ts := NewTokenStore(store, ref, nil, logging.Nop())

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ts.Refresh(context.Background())
		}(i)
	}

	<-ref.started
	time.Sleep(50 * time.Millisecond)
	close(ref.release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&ref.calls))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "new-token", results[i])
	}

	rec, _ := store.Get(context.Background())
	assert.Equal(t, "new-token", rec.AccessToken)
	assert.Equal(t, "r1", rec.RefreshToken)
	assert.Equal(t, "new-token", ts.GetToken())
	assert.Equal(t, StatusAuthenticated, ts.Status())
}

func TestRefresh_NoRefreshToken(t *testing.T) {
	ref := &fakeRefresher{}
	ts := NewTokenStore(seeded(t, session.Record{AccessToken: "a"}), ref, nil, logging.Nop())

	_, err := ts.Refresh(context.Background())
	require.ErrorIs(t, err, common.ErrNoRefreshToken)
	assert.Zero(t, ref.calls)
}

func TestRefresh_RateLimitedWithoutNetwork(t *testing.T) {
	ref := &fakeRefresher{}
	ts := NewTokenStore(seeded(t, session.Record{AccessToken: "a", RefreshToken: "r", AccountID: "acc"}), ref, nil, logging.Nop())
	ctx := context.Background()

	for i := 0; i < DefaultRefreshAttempts; i++ {
		_, err := ts.Refresh(ctx)
		require.NoError(t, err)
	}

	_, err := ts.Refresh(ctx)
	require.ErrorIs(t, err, common.ErrTooManyAttempts)
	assert.Equal(t, int32(DefaultRefreshAttempts), ref.calls)
}

func TestRefresh_FailureReleasesFlight(t *testing.T) {
	ref := &fakeRefresher{err: errors.New("503")}
	store := seeded(t, session.Record{AccessToken: "a", RefreshToken: "r"})
	ts := NewTokenStore(store, ref, nil, logging.Nop())
	ctx := context.Background()

	_, err := ts.Refresh(ctx)
	require.ErrorIs(t, err, common.ErrRefreshFailed)
	assert.Equal(t, StatusExpired, ts.Status())

	ref.err = nil
	tok, err := ts.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-token", tok)
	assert.Equal(t, int32(2), ref.calls)

	rec, _ := store.Get(ctx)
	assert.Equal(t, "r", rec.RefreshToken, "failed refresh must not clear the session")
}

func TestRefresh_CallerCancellationDoesNotAbortSharedRefresh(t *testing.T) {
	ref := &fakeRefresher{started: make(chan struct{}, 1), release: make(chan struct{})}
	ts := NewTokenStore(seeded(t, session.Record{AccessToken: "a", RefreshToken: "r"}), ref, nil, logging.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := ts.Refresh(ctx)
		done <- err
	}()

	<-ref.started
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(ref.release)
	require.Eventually(t, func() bool { return ts.GetToken() == "new-token" }, time.Second, 5*time.Millisecond)
}

func TestRefresh_ClearWhileInFlightIsNotUndone(t *testing.T) {
	store := seeded(t, session.Record{AccessToken: "old", RefreshToken: "r", AccountID: "acc"})
	ref := &fakeRefresher{started: make(chan struct{}, 1), release: make(chan struct{})}
	ts := NewTokenStore(store, ref, nil, logging.Nop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := ts.Refresh(ctx)
		done <- err
	}()

	<-ref.started
	require.NoError(t, ts.Clear(ctx))
	close(ref.release)

	require.ErrorIs(t, <-done, common.ErrRefreshFailed)
	rec, _ := store.Get(ctx)
	assert.True(t, rec.Empty(), "cleared session must stay cleared")
	assert.Empty(t, ts.GetToken())
	assert.Equal(t, StatusUnauthenticated, ts.Status())
}

func TestRefresh_LoginWhileInFlightKeepsNewSession(t *testing.T) {
	store := seeded(t, session.Record{AccessToken: "old", RefreshToken: "r", AccountID: "acc"})
	ref := &fakeRefresher{started: make(chan struct{}, 1), release: make(chan struct{})}
	ts := NewTokenStore(store, ref, nil, logging.Nop())
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := ts.Refresh(ctx)
		done <- err
	}()

	<-ref.started
	require.NoError(t, ts.Set(ctx, session.Record{AccessToken: "login", RefreshToken: "r-login", AccountID: "other"}))
	close(ref.release)

	require.ErrorIs(t, <-done, common.ErrRefreshFailed)
	rec, _ := store.Get(ctx)
	assert.Equal(t, "login", rec.AccessToken)
	assert.Equal(t, "r-login", rec.RefreshToken)
	assert.Equal(t, "login", ts.GetToken())
	assert.Equal(t, StatusAuthenticated, ts.Status())
}

func TestClear_ResetsRefreshAttempts(t *testing.T) {
	rec := session.Record{AccessToken: "a", RefreshToken: "r", AccountID: "acc"}
	ref := &fakeRefresher{}
	ts := NewTokenStore(seeded(t, rec), ref, nil, logging.Nop())
	ctx := context.Background()

	for i := 0; i < DefaultRefreshAttempts; i++ {
		_, err := ts.Refresh(ctx)
		require.NoError(t, err)
	}
	_, err := ts.Refresh(ctx)
	require.ErrorIs(t, err, common.ErrTooManyAttempts)

	require.NoError(t, ts.Clear(ctx))
	require.NoError(t, ts.Set(ctx, rec))

	tok, err := ts.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-token", tok)
}

func TestRefresh_RotatedRefreshTokenAndJWTExpiry(t *testing.T) {
	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	store := seeded(t, session.Record{AccessToken: "a", RefreshToken: "r1"})
	ts := NewTokenStore(store, &rotatingRefresher{token: signed}, nil, logging.Nop())

	_, err = ts.Refresh(context.Background())
	require.NoError(t, err)

	rec, _ := store.Get(context.Background())
	assert.Equal(t, "r2", rec.RefreshToken)
	require.NotNil(t, rec.ExpiresAt)
	assert.True(t, exp.Equal(*rec.ExpiresAt))
}

type rotatingRefresher struct{ token string }

func (r *rotatingRefresher) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	return RefreshResult{Token: r.token, RefreshToken: "r2"}, nil
}

func TestSetAndClear(t *testing.T) {
	store := session.NewMemoryStore()
	ts := NewTokenStore(store, &fakeRefresher{}, nil, logging.Nop())
	ctx := context.Background()

	require.NoError(t, ts.Set(ctx, session.Record{AccessToken: "a", RefreshToken: "r"}))
	assert.Equal(t, "a", ts.GetToken())
	assert.Equal(t, StatusAuthenticated, ts.Status())

	require.NoError(t, ts.Clear(ctx))
	assert.Empty(t, ts.GetToken())
	assert.Equal(t, StatusUnauthenticated, ts.Status())
	rec, _ := store.Get(ctx)
	assert.True(t, rec.Empty())
}

func TestExpiryFromToken(t *testing.T) {
	assert.Nil(t, expiryFromToken(""))
	assert.Nil(t, expiryFromToken("opaque-token"))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.Nil(t, expiryFromToken(noExp))
}
