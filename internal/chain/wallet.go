package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// WalletBackend is what KeyWallet needs from a node; *ethclient.Client
// satisfies it.
type WalletBackend interface {
	bind.ContractBackend
	ChainID(ctx context.Context) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error)
}

var (
	ErrChainSwitchUnsupported = errors.New("signer cannot switch chains")
	ErrTransactionReverted    = errors.New("transaction reverted")
)

// KeyWallet signs with a single private key against one node. It cannot
// switch networks: SwitchChain succeeds only when the node already serves the
// requested chain.
type KeyWallet struct {
	backend      WalletBackend
	key          *ecdsa.PrivateKey
	address      ethcommon.Address
	pollInterval time.Duration
}

// NewKeyWallet parses a hex private key (with or without 0x).
func NewKeyWallet(backend WalletBackend, hexKey string) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return &KeyWallet{
		backend:      backend,
		key:          key,
		address:      crypto.PubkeyToAddress(key.PublicKey),
		pollInterval: 2 * time.Second,
	}, nil
}

func (w *KeyWallet) Accounts(ctx context.Context) ([]ethcommon.Address, error) {
	return []ethcommon.Address{w.address}, nil
}

func (w *KeyWallet) SwitchChain(ctx context.Context, chainID *big.Int) error {
	if chainID == nil {
		return fmt.Errorf("%w: no target chain id", ErrChainSwitchUnsupported)
	}
	current, err := w.backend.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read chain id: %w", err)
	}
	if current.Cmp(chainID) != 0 {
		return fmt.Errorf("%w: node is on %s, want %s", ErrChainSwitchUnsupported, current, chainID)
	}
	return nil
}

func (w *KeyWallet) Simulate(ctx context.Context, tx TxRequest) error {
	data, err := tx.ABI.Pack(tx.Method, tx.Args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", tx.Method, err)
	}
	to := tx.To
	_, err = w.backend.CallContract(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: tx.Value,
		Data:  data,
	}, nil)
	return err
}

func (w *KeyWallet) Send(ctx context.Context, tx TxRequest) (ethcommon.Hash, error) {
	chainID, err := w.backend.ChainID(ctx)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("read chain id: %w", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	opts.Context = ctx
	opts.Value = tx.Value

	contract := bind.NewBoundContract(tx.To, *tx.ABI, w.backend, w.backend, w.backend)
	sent, err := contract.Transact(opts, tx.Method, tx.Args...)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	return sent.Hash(), nil
}

// WaitMined polls for the receipt of hash until it is included or ctx ends.
// A receipt with a failed status is returned together with
// ErrTransactionReverted.
func (w *KeyWallet) WaitMined(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, hash)
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
