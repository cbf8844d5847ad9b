// Package ownership answers "which registered games does this account own".
package ownership

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/dmitrijs2005/gamevault/internal/registry"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent per-game lookups.
const DefaultWorkers = 4

// OwnedGameRecord is a registry record plus the ownership verdict for one
// account. It is derived per query and never stored.
type OwnedGameRecord struct {
	registry.GameRecord
	OwnsLicense bool
}

// GameIndex is the registry surface the resolver needs.
type GameIndex interface {
	ListRegisteredGameIDs(ctx context.Context, fromBlock uint64) ([]ethcommon.Hash, error)
	ResolveGame(ctx context.Context, id ethcommon.Hash) (registry.GameRecord, error)
}

type Resolver struct {
	index     GameIndex
	reader    chain.Reader
	licenseID *big.Int
	workers   int
	log       logging.Logger
}

func NewResolver(index GameIndex, reader chain.Reader, licenseID *big.Int, workers int, log logging.Logger) *Resolver {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if licenseID == nil {
		licenseID = chain.DefaultLicenseTokenID
	}
	return &Resolver{index: index, reader: reader, licenseID: licenseID, workers: workers, log: log}
}

// ListOwnedGames returns the games account holds a license for. Callers must
// treat the result as a set. Any failure, including a registry record that
// cannot be decoded, fails the whole query with RPC_FAILED: an empty slice
// always means "owns nothing".
func (r *Resolver) ListOwnedGames(ctx context.Context, account ethcommon.Address, fromBlock uint64) ([]OwnedGameRecord, error) {
	ids, err := r.index.ListRegisteredGameIDs(ctx, fromBlock)
	if err != nil {
		return nil, asRPCFailed("list registered games", err)
	}

	var (
		mu    sync.Mutex
		owned = make([]OwnedGameRecord, 0)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, id := range ids {
		g.Go(func() error {
			rec, ok, err := r.check(gctx, id, account)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				owned = append(owned, OwnedGameRecord{GameRecord: rec, OwnsLicense: true})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.log.Debug(ctx, "resolved ownership", "account", account.Hex(), "registered", len(ids), "owned", len(owned))
	return owned, nil
}

func (r *Resolver) check(ctx context.Context, id ethcommon.Hash, account ethcommon.Address) (registry.GameRecord, bool, error) {
	rec, err := r.index.ResolveGame(ctx, id)
	if err != nil {
		return registry.GameRecord{}, false, asRPCFailed("resolve game "+id.Hex(), err)
	}

	balance, err := LicenseBalance(ctx, r.reader, rec.License, account, r.licenseID)
	if err != nil {
		return registry.GameRecord{}, false, asRPCFailed("balance "+id.Hex(), err)
	}
	return rec, balance.Sign() > 0, nil
}

// LicenseBalance reads account's balance of licenseID on license.
func LicenseBalance(ctx context.Context, reader chain.Reader, license, account ethcommon.Address, licenseID *big.Int) (*big.Int, error) {
	out, err := reader.Call(ctx, license, chain.LicenseABI, "balanceOf", account, licenseID)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, common.NewError(common.CodeRPCFailed, "balanceOf", fmt.Errorf("expected 1 value, got %d", len(out)))
	}
	balance, ok := chain.AsBigInt(out[0])
	if !ok {
		return nil, common.NewError(common.CodeRPCFailed, "balanceOf", fmt.Errorf("unexpected %T", out[0]))
	}
	return balance, nil
}

// asRPCFailed keeps err in the chain so errors.Is still finds e.g. a
// malformed-record cause.
func asRPCFailed(op string, err error) error {
	if common.CodeOf(err) == common.CodeRPCFailed {
		return err
	}
	return common.NewError(common.CodeRPCFailed, op, err)
}
