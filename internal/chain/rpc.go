package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// DefaultCallTimeout bounds every individual node call.
const DefaultCallTimeout = 15 * time.Second

// Backend is the node surface RPCReader needs; *ethclient.Client satisfies it.
type Backend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// RPCReader implements Reader over a JSON-RPC node. Every call runs under its
// own timeout; a timed-out call is reported as RPC_FAILED like any other
// transport error.
type RPCReader struct {
	backend Backend
	timeout time.Duration
}

func NewRPCReader(backend Backend, timeout time.Duration) *RPCReader {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &RPCReader{backend: backend, timeout: timeout}
}

// Dial connects to the node at url.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return c, nil
}

func (r *RPCReader) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.backend.BlockNumber(ctx)
	if err != nil {
		return 0, common.NewError(common.CodeRPCFailed, "eth_blockNumber", err)
	}
	return n, nil
}

func (r *RPCReader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logs, err := r.backend.FilterLogs(ctx, q)
	if err != nil {
		return nil, common.NewError(common.CodeRPCFailed, "eth_getLogs", err)
	}
	return logs, nil
}

func (r *RPCReader) Call(ctx context.Context, contract ethcommon.Address, contractABI *abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, common.NewError(common.CodeRPCFailed, "eth_call "+method, err)
	}

	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, common.NewError(common.CodeRPCFailed, "decode "+method, err)
	}
	return values, nil
}
