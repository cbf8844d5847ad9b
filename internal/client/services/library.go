package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/ownership"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// LibraryService lists what the signed-in account owns.
type LibraryService interface {
	ListOwnedGamesForCurrentSession(ctx context.Context) ([]ownership.OwnedGameRecord, error)
}

// OwnershipLister is satisfied by *ownership.Resolver.
type OwnershipLister interface {
	ListOwnedGames(ctx context.Context, account ethcommon.Address, fromBlock uint64) ([]ownership.OwnedGameRecord, error)
}

type libraryService struct {
	sessions  SessionManager
	owned     OwnershipLister
	fromBlock uint64
}

func NewLibraryService(sessions SessionManager, owned OwnershipLister, fromBlock uint64) LibraryService {
	return &libraryService{sessions: sessions, owned: owned, fromBlock: fromBlock}
}

// ListOwnedGamesForCurrentSession resolves the session's account and lists
// its games. Only EVM accounts are supported.
func (l *libraryService) ListOwnedGamesForCurrentSession(ctx context.Context) ([]ownership.OwnedGameRecord, error) {
	rec, err := l.sessions.Session(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec.Empty() || rec.AccountID == "" {
		return nil, common.NewError(common.CodeMissingSession, "library", nil)
	}
	if rec.AccountType != common.AccountTypeEVM {
		return nil, common.NewError(common.CodeUnsupportedAccountType, "library",
			fmt.Errorf("account type %q", rec.AccountType))
	}
	if !chain.IsAddress(rec.AccountID) {
		return nil, common.NewError(common.CodeInvalidAccount, "library",
			fmt.Errorf("account %q is not an address", rec.AccountID))
	}

	return l.owned.ListOwnedGames(ctx, ethcommon.HexToAddress(rec.AccountID), l.fromBlock)
}
