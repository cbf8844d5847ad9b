package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/client/session"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// RefreshResult is what the refresh endpoint hands back. RefreshToken is
// set only when the backend rotates it.
type RefreshResult struct {
	Token        string
	RefreshToken string
	ExpiresAt    *time.Time
}

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (RefreshResult, error)
}

// API talks to the unauthenticated auth endpoints of the backend. It must
// not be built on top of the authenticating transport.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, hc *http.Client) *API {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	Token        string     `json:"token"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	AccountID    string     `json:"accountId,omitempty"`
	AccountType  string     `json:"accountType,omitempty"`
	Error        string     `json:"error,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	var resp tokenResponse
	if err := a.post(ctx, "/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return RefreshResult{}, err
	}
	if resp.Token == "" {
		return RefreshResult{}, errors.New("refresh: response has no token")
	}
	return RefreshResult{Token: resp.Token, RefreshToken: resp.RefreshToken, ExpiresAt: resp.ExpiresAt}, nil
}

// Login exchanges credentials for a full session record.
func (a *API) Login(ctx context.Context, email, password string) (session.Record, error) {
	var resp tokenResponse
	err := a.post(ctx, "/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return session.Record{}, err
	}
	if resp.Token == "" {
		return session.Record{}, errors.New("login: response has no token")
	}
	if resp.AccountType == "" {
		resp.AccountType = common.AccountTypeEVM
	}
	return session.Record{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
		AccountID:    resp.AccountID,
		AccountType:  resp.AccountType,
	}, nil
}

func (a *API) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", path, err)
	}

	if resp.StatusCode >= 300 {
		var e tokenResponse
		_ = json.Unmarshal(data, &e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized && path == "/login" {
			return fmt.Errorf("%s: %w: %s", path, ErrInvalidCredentials, e.Error)
		}
		return fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, e.Error)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	if e, ok := out.(*tokenResponse); ok && e.Error != "" {
		return fmt.Errorf("%s: %s", path, e.Error)
	}
	return nil
}
