package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/gamevault/internal/client/auth"
	"github.com/dmitrijs2005/gamevault/internal/client/session"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/ownership"
	"github.com/dmitrijs2005/gamevault/internal/purchase"
	"github.com/dmitrijs2005/gamevault/internal/registry"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeSessions struct {
	rec      session.Record
	getErr   error
	setErr   error
	status   auth.Status
	cleared  int
	lastSet  session.Record
	setCalls int
}

func (f *fakeSessions) Session(ctx context.Context) (session.Record, error) { return f.rec, f.getErr }
func (f *fakeSessions) Set(ctx context.Context, rec session.Record) error {
	f.setCalls++
	f.lastSet = rec
	return f.setErr
}
func (f *fakeSessions) Clear(ctx context.Context) error { f.cleared++; return nil }
func (f *fakeSessions) Status() auth.Status             { return f.status }

type fakeLoginAPI struct {
	rec       session.Record
	err       error
	lastEmail string
}

func (f *fakeLoginAPI) Login(ctx context.Context, email, password string) (session.Record, error) {
	f.lastEmail = email
	return f.rec, f.err
}

type fakeOwned struct {
	games       []ownership.OwnedGameRecord
	err         error
	lastAccount ethcommon.Address
	lastFrom    uint64
	calls       int
}

func (f *fakeOwned) ListOwnedGames(ctx context.Context, account ethcommon.Address, fromBlock uint64) ([]ownership.OwnedGameRecord, error) {
	f.calls++
	f.lastAccount, f.lastFrom = account, fromBlock
	return f.games, f.err
}

type fakePurchaser struct {
	lastReq  purchase.Request
	lastHash ethcommon.Hash
	err      error
}

func (f *fakePurchaser) Buy(ctx context.Context, req purchase.Request) (*purchase.PendingPurchase, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &purchase.PendingPurchase{Hash: ethcommon.Hash{9}}, nil
}

func (f *fakePurchaser) AwaitReceipt(ctx context.Context, hash ethcommon.Hash) error {
	f.lastHash = hash
	return f.err
}

const account = "0x00000000000000000000000000000000000000ac"

// ---- auth ----

func TestAuthService_LoginPersistsSession(t *testing.T) {
	api := &fakeLoginAPI{rec: session.Record{AccessToken: "a", RefreshToken: "r", AccountID: account, AccountType: "evm"}}
	sessions := &fakeSessions{}
	svc := NewAuthService(api, sessions)

	rec, err := svc.Login(context.Background(), "me@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", api.lastEmail)
	assert.Equal(t, rec, sessions.lastSet)
}

func TestAuthService_LoginErrors(t *testing.T) {
	svc := NewAuthService(&fakeLoginAPI{err: auth.ErrInvalidCredentials}, &fakeSessions{})
	_, err := svc.Login(context.Background(), "x", "y")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	sessions := &fakeSessions{setErr: errors.New("disk full")}
	svc = NewAuthService(&fakeLoginAPI{rec: session.Record{AccessToken: "a"}}, sessions)
	_, err = svc.Login(context.Background(), "x", "y")
	require.ErrorContains(t, err, "save session")
}

func TestAuthService_LogoutAndWhoAmI(t *testing.T) {
	sessions := &fakeSessions{rec: session.Record{AccessToken: "a", AccountID: account}, status: auth.StatusAuthenticated}
	svc := NewAuthService(&fakeLoginAPI{}, sessions)

	rec, st, err := svc.WhoAmI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, account, rec.AccountID)
	assert.Equal(t, auth.StatusAuthenticated, st)

	require.NoError(t, svc.Logout(context.Background()))
	assert.Equal(t, 1, sessions.cleared)
}

// ---- library ----

func TestLibraryService_SessionChecks(t *testing.T) {
	tests := []struct {
		name string
		rec  session.Record
		want error
	}{
		{name: "no session", rec: session.Record{}, want: common.ErrMissingSession},
		{name: "no account", rec: session.Record{AccessToken: "a", AccountType: "evm"}, want: common.ErrMissingSession},
		{name: "email account", rec: session.Record{AccessToken: "a", AccountID: "me@example.com", AccountType: "email"}, want: common.ErrUnsupportedAccountType},
		{name: "bad address", rec: session.Record{AccessToken: "a", AccountID: "0x12", AccountType: "evm"}, want: common.ErrInvalidAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owned := &fakeOwned{}
			svc := NewLibraryService(&fakeSessions{rec: tt.rec}, owned, 0)

			_, err := svc.ListOwnedGamesForCurrentSession(context.Background())
			require.ErrorIs(t, err, tt.want)
			assert.Zero(t, owned.calls)
		})
	}
}

func TestLibraryService_ListsForSessionAccount(t *testing.T) {
	want := []ownership.OwnedGameRecord{{GameRecord: registry.GameRecord{GameID: ethcommon.Hash{2}}, OwnsLicense: true}}
	owned := &fakeOwned{games: want}
	sessions := &fakeSessions{rec: session.Record{AccessToken: "a", AccountID: account, AccountType: common.AccountTypeEVM}}
	svc := NewLibraryService(sessions, owned, 1234)

	got, err := svc.ListOwnedGamesForCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, ethcommon.HexToAddress(account), owned.lastAccount)
	assert.Equal(t, uint64(1234), owned.lastFrom)
}

func TestLibraryService_PropagatesReadErrors(t *testing.T) {
	owned := &fakeOwned{err: common.NewError(common.CodeRPCFailed, "scan", errors.New("timeout"))}
	sessions := &fakeSessions{rec: session.Record{AccessToken: "a", AccountID: account, AccountType: "evm"}}

	got, err := NewLibraryService(sessions, owned, 0).ListOwnedGamesForCurrentSession(context.Background())
	require.ErrorIs(t, err, common.ErrRPCFailed)
	assert.Nil(t, got)
}

// ---- store ----

func TestStoreService_BuyGameParsesInput(t *testing.T) {
	p := &fakePurchaser{}
	svc := NewStoreService(p)

	pending, err := svc.BuyGame(context.Background(), "0x00000000000000000000000000000000000000a1", "native")
	require.NoError(t, err)
	assert.Equal(t, ethcommon.Hash{9}, pending.Hash)
	require.NotNil(t, p.lastReq.Target.License)
	assert.Equal(t, ethcommon.HexToAddress("0xa1"), *p.lastReq.Target.License)
	assert.Equal(t, ethcommon.Address{}, p.lastReq.PaymentToken)

	_, err = svc.BuyGame(context.Background(), "zelda", "")
	require.Error(t, err)
	_, err = svc.BuyGame(context.Background(), "0x00000000000000000000000000000000000000a1", "usdc")
	require.Error(t, err)
}

func TestStoreService_BuyGamePassesPurchaseErrors(t *testing.T) {
	p := &fakePurchaser{err: common.NewError(common.CodeAlreadyOwned, "buy", nil)}
	_, err := NewStoreService(p).BuyGame(context.Background(), "0x"+"01"+"00000000000000000000000000000000000000000000000000000000000000", "")
	require.ErrorIs(t, err, common.ErrAlreadyOwned)
}

func TestStoreService_AwaitReceipt(t *testing.T) {
	p := &fakePurchaser{}
	svc := NewStoreService(p)

	h := ethcommon.Hash{7}
	require.NoError(t, svc.AwaitReceipt(context.Background(), h.Hex()))
	assert.Equal(t, h, p.lastHash)

	require.Error(t, svc.AwaitReceipt(context.Background(), "0x1234"))
}
