// Package transport attaches the session's bearer token to backend requests
// and recovers from a single expired-token rejection by refreshing.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/google/uuid"
)

// Tokens is the token-store surface the transport needs; *auth.TokenStore
// satisfies it.
type Tokens interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

type retriedKey struct{}

// Transport is an http.RoundTripper. On a 401 for a request that has not
// been retried yet it refreshes the token and resends once. If the refresh
// is refused by the backend or the resend fails the session is cleared.
type Transport struct {
	base   http.RoundTripper
	tokens Tokens
	log    logging.Logger
}

func NewTransport(base http.RoundTripper, tokens Tokens, log logging.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, tokens: tokens, log: log}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	first := prepare(req, token)
	resp, err := t.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized || retried(ctx) {
		return resp, err
	}

	retry, err := rewind(req)
	if err != nil {
		return resp, nil
	}

	fresh, rerr := t.tokens.Refresh(ctx)
	if rerr != nil {
		if sessionLost(rerr) {
			t.log.Warn(ctx, "token refresh failed, dropping session", "path", req.URL.Path, "err", rerr)
			t.clear(ctx)
		} else {
			t.log.Warn(ctx, "token refresh not completed", "path", req.URL.Path, "err", rerr)
		}
		return resp, nil
	}
	drain(resp)

	retry = retry.WithContext(context.WithValue(ctx, retriedKey{}, true))
	second, err := t.base.RoundTrip(prepare(retry, fresh))
	if err != nil || second.StatusCode == http.StatusUnauthorized {
		t.log.Warn(ctx, "request rejected after refresh, dropping session", "path", req.URL.Path)
		t.clear(ctx)
	}
	return second, err
}

// sessionLost reports whether a refresh error means the stored session can
// no longer be used. The caller giving up, or another actor having already
// cleared or replaced the session, leaves it alone.
func sessionLost(err error) bool {
	if errors.Is(err, common.ErrSessionChanged) {
		return false
	}
	switch common.CodeOf(err) {
	case common.CodeNoRefreshToken, common.CodeTooManyAttempts, common.CodeRefreshFailed:
		return true
	}
	return false
}

func (t *Transport) clear(ctx context.Context) {
	if err := t.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		t.log.Error(ctx, "clear session", "err", err)
	}
}

// prepare clones req with the bearer token and a request id. The original
// request is never modified.
func prepare(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	} else {
		r.Header.Del(common.AuthorizationHeaderName)
	}
	if r.Header.Get(common.RequestIDHeaderName) == "" {
		r.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	}
	return r
}

// rewind returns a copy of req whose body can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	r.Body = body
	return r, nil
}

func retried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// bodyReader turns a JSON payload into a replayable request body.
func bodyReader(payload []byte) io.Reader {
	if payload == nil {
		return nil
	}
	return bytes.NewReader(payload)
}
