package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogSource is the subset of a node needed to scan logs.
type LogSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// Reader is the read surface of a node. Call packs args for method using
// contractABI, executes an eth_call against contract and returns the decoded
// outputs in declaration order.
type Reader interface {
	LogSource
	Call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...any) ([]any, error)
}

// TxRequest describes a contract write.
type TxRequest struct {
	From   common.Address
	To     common.Address
	ABI    *abi.ABI
	Method string
	Args   []any
	Value  *big.Int
}

// Wallet is the signer surface. SwitchChain fails when the signer cannot (or
// the user will not) move to chainID.
type Wallet interface {
	Accounts(ctx context.Context) ([]common.Address, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	Simulate(ctx context.Context, tx TxRequest) error
	Send(ctx context.Context, tx TxRequest) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}
