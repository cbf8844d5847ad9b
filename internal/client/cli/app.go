package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/dmitrijs2005/gamevault/internal/client/auth"
	"github.com/dmitrijs2005/gamevault/internal/client/client"
	"github.com/dmitrijs2005/gamevault/internal/client/config"
	"github.com/dmitrijs2005/gamevault/internal/client/services"
	"github.com/dmitrijs2005/gamevault/internal/client/session"
	"github.com/dmitrijs2005/gamevault/internal/client/transport"
	"github.com/dmitrijs2005/gamevault/internal/filex"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/dmitrijs2005/gamevault/internal/ownership"
	"github.com/dmitrijs2005/gamevault/internal/purchase"
	"github.com/dmitrijs2005/gamevault/internal/ratelimit"
	"github.com/dmitrijs2005/gamevault/internal/registry"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const redisSessionTTL = 30 * 24 * time.Hour

// Backend is the authenticated backend client surface the request command
// uses; *transport.Client satisfies it.
type Backend interface {
	Do(ctx context.Context, method, path string, body any) (*transport.Response, error)
}

type App struct {
	config *config.Config
	log    logging.Logger

	authService    services.AuthService
	libraryService services.LibraryService
	storeService   services.StoreService
	backend        Backend
	tokens         *auth.TokenStore

	in     *bufio.Scanner
	out    io.Writer
	closer []func() error
}

// NewApp connects to local storage, the backend and the chain node.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel)
	a := &App{config: c, log: log, in: bufio.NewScanner(os.Stdin), out: os.Stdout}

	store, err := a.openSessionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: c.RequestTimeout}
	api := auth.NewAPI(c.BackendURL, httpClient)
	limiter := ratelimit.NewLimiter(c.RefreshWindow, c.RefreshMaxAttempts)
	a.tokens = auth.NewTokenStore(store, api, limiter, log)
	a.backend = transport.NewClient(c.BackendURL, transport.NewTransport(nil, a.tokens, log), c.RequestTimeout)
	a.authService = services.NewAuthService(api, a.tokens)

	node, err := chain.Dial(ctx, c.RPCURL)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closer = append(a.closer, func() error { node.Close(); return nil })

	reader := chain.NewRPCReader(node, c.RequestTimeout)
	scanner := chain.NewScanner(reader, c.MaxBlockSpan, log)
	index := registry.NewIndex(reader, scanner, ethcommon.HexToAddress(c.RegistryAddress), log)
	licenseID := big.NewInt(c.LicenseTokenID)

	resolver := ownership.NewResolver(index, reader, licenseID, c.OwnershipWorkers, log)
	a.libraryService = services.NewLibraryService(a.tokens, resolver, c.RegistryFromBlock)

	var wallet chain.Wallet
	if c.WalletKeyHex != "" {
		w, err := chain.NewKeyWallet(node, c.WalletKeyHex)
		if err != nil {
			a.Close()
			return nil, err
		}
		wallet = w
	}
	orch, err := purchase.NewOrchestrator(index, reader, wallet, purchase.Options{
		ChainID:        big.NewInt(c.ChainID),
		LicenseTokenID: licenseID,
		FromBlock:      c.RegistryFromBlock,
	}, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.storeService = services.NewStoreService(orch)

	return a, nil
}

func (a *App) openSessionStore(ctx context.Context) (session.Store, error) {
	switch a.config.SessionBackend {
	case config.SessionBackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: a.config.RedisAddr, Password: a.config.RedisPassword})
		a.closer = append(a.closer, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis %s: %w", a.config.RedisAddr, err)
		}
		return session.NewRedisStore(rdb, "", redisSessionTTL), nil
	default:
		path, err := filex.ResolveDataPath(a.config.DBPath)
		if err != nil {
			return nil, err
		}
		db, err := client.InitDatabase(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("init database: %w", err)
		}
		a.closer = append(a.closer, db.Close)
		return session.NewSQLiteStore(db), nil
	}
}

// Run starts the REPL and blocks until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if _, err := a.tokens.Token(ctx); err != nil {
		a.log.Warn(ctx, "could not load saved session", "err", err)
	}
	fmt.Fprintln(a.out, "Welcome to gamevault (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.in, a.out)
}

// Close releases storage and node connections in reverse order.
func (a *App) Close() {
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil {
			a.log.Warn(context.Background(), "close", "err", err)
		}
	}
	a.closer = nil
}

func (a *App) isLoggedIn() bool {
	return a.tokens != nil && a.tokens.GetToken() != ""
}

func (a *App) status() string {
	if a.tokens == nil {
		return ""
	}
	return string(a.tokens.Status())
}
