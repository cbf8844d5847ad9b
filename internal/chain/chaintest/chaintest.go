// Package chaintest provides in-memory chain.Reader and chain.Wallet fakes
// that record every call they receive.
package chaintest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Call is one recorded contract read.
type Call struct {
	Contract common.Address
	Method   string
	Args     []any
}

// Reader serves logs from Logs (filtered by block range, address and topic0)
// and answers contract reads through Handler.
type Reader struct {
	mu sync.Mutex

	Head    uint64
	Logs    []types.Log
	LogsErr error
	Handler func(contract common.Address, method string, args []any) ([]any, error)

	Calls      []Call
	LogQueries int
}

func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	return r.Head, nil
}

func (r *Reader) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LogQueries++
	if r.LogsErr != nil {
		return nil, r.LogsErr
	}
	var out []types.Log
	for _, l := range r.Logs {
		if q.FromBlock != nil && l.BlockNumber < q.FromBlock.Uint64() {
			continue
		}
		if q.ToBlock != nil && l.BlockNumber > q.ToBlock.Uint64() {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddress(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && (len(l.Topics) == 0 || !containsHash(q.Topics[0], l.Topics[0])) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *Reader) Call(ctx context.Context, contract common.Address, contractABI *abi.ABI, method string, args ...any) ([]any, error) {
	r.mu.Lock()
	r.Calls = append(r.Calls, Call{Contract: contract, Method: method, Args: args})
	h := r.Handler
	r.mu.Unlock()
	if h == nil {
		return nil, fmt.Errorf("chaintest: no handler for %s", method)
	}
	return h(contract, method, args)
}

// Count returns how many reads of method were made.
func (r *Reader) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Wallet is a scripted signer. Events records the order of operations as
// "switch", "simulate:<method>", "send:<method>" and "wait".
type Wallet struct {
	mu sync.Mutex

	Addrs       []common.Address
	AccountsErr error
	SwitchErr   error
	SimulateErr error
	SendErr     map[string]error
	WaitErr     error

	Simulated  []chain.TxRequest
	Sent       []chain.TxRequest
	Waited     []common.Hash
	Events     []string
	SwitchedTo *big.Int
}

func (w *Wallet) Accounts(ctx context.Context) ([]common.Address, error) {
	return w.Addrs, w.AccountsErr
}

func (w *Wallet) SwitchChain(ctx context.Context, chainID *big.Int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, "switch")
	w.SwitchedTo = chainID
	return w.SwitchErr
}

func (w *Wallet) Simulate(ctx context.Context, tx chain.TxRequest) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, "simulate:"+tx.Method)
	w.Simulated = append(w.Simulated, tx)
	return w.SimulateErr
}

func (w *Wallet) Send(ctx context.Context, tx chain.TxRequest) (common.Hash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, "send:"+tx.Method)
	if err := w.SendErr[tx.Method]; err != nil {
		return common.Hash{}, err
	}
	w.Sent = append(w.Sent, tx)
	return common.BigToHash(big.NewInt(int64(len(w.Sent)))), nil
}

func (w *Wallet) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Events = append(w.Events, "wait")
	w.Waited = append(w.Waited, hash)
	if w.WaitErr != nil {
		return nil, w.WaitErr
	}
	return &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful}, nil
}

// RegisteredLog builds a GameRegistered log for id at block.
func RegisteredLog(registry common.Address, id common.Hash, license, publisher common.Address, block uint64) types.Log {
	return types.Log{
		Address:     registry,
		BlockNumber: block,
		Topics: []common.Hash{
			chain.GameRegisteredTopic,
			id,
			common.BytesToHash(license.Bytes()),
			common.BytesToHash(publisher.Bytes()),
		},
	}
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
