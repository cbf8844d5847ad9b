// Package purchase drives the buy flow for one game against its license
// contract.
package purchase

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/dmitrijs2005/gamevault/internal/ownership"
	"github.com/dmitrijs2005/gamevault/internal/registry"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Registry is the lookup surface Buy needs; *registry.Index satisfies it.
type Registry interface {
	ResolveGame(ctx context.Context, id ethcommon.Hash) (registry.GameRecord, error)
	FindByLicense(ctx context.Context, license ethcommon.Address, fromBlock uint64) (registry.GameRecord, error)
}

type Options struct {
	ChainID        *big.Int
	LicenseTokenID *big.Int
	// FromBlock bounds the registry scan when buying by license address.
	FromBlock uint64
}

type Orchestrator struct {
	registry Registry
	reader   chain.Reader
	wallet   chain.Wallet
	opts     Options
	log      logging.Logger
}

var ErrNoChainID = errors.New("purchase: chain id must be positive")

// NewOrchestrator builds an orchestrator. wallet may be nil, in which case
// every Buy fails with WALLET_NOT_FOUND. opts.ChainID is required.
func NewOrchestrator(reg Registry, reader chain.Reader, wallet chain.Wallet, opts Options, log logging.Logger) (*Orchestrator, error) {
	if opts.ChainID == nil || opts.ChainID.Sign() <= 0 {
		return nil, ErrNoChainID
	}
	if opts.LicenseTokenID == nil {
		opts.LicenseTokenID = chain.DefaultLicenseTokenID
	}
	return &Orchestrator{registry: reg, reader: reader, wallet: wallet, opts: opts, log: log}, nil
}

// Buy runs one purchase attempt. Every step is a precondition for the next
// and any failure ends the attempt; nothing is retried. On success the buy
// transaction has been submitted but not necessarily mined.
func (o *Orchestrator) Buy(ctx context.Context, req Request) (*PendingPurchase, error) {
	pc := &Context{AttemptID: uuid.New(), RequestedPaymentToken: req.PaymentToken}
	log := o.log.With("attempt", pc.AttemptID.String(), "target", req.Target.String())

	buyer, err := o.buyer(ctx)
	if err != nil {
		return nil, err
	}
	pc.Buyer = buyer

	if err := o.wallet.SwitchChain(ctx, o.opts.ChainID); err != nil {
		return nil, common.NewError(common.CodeNetworkMismatch, "switch chain", err)
	}

	rec, err := o.lookup(ctx, req.Target)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, common.NewError(common.CodeGameInactive, "buy "+rec.GameID.Hex(), nil)
	}
	pc.GameID, pc.License = rec.GameID, rec.License
	log.Info(ctx, "purchase started", "game", pc.GameID.Hex(), "license", pc.License.Hex(), "buyer", pc.Buyer.Hex())

	balance, err := ownership.LicenseBalance(ctx, o.reader, pc.License, pc.Buyer, o.opts.LicenseTokenID)
	if err != nil {
		return nil, readFailed("balanceOf", err)
	}
	if balance.Sign() > 0 {
		return nil, common.NewError(common.CodeAlreadyOwned, "buy "+pc.GameID.Hex(), nil)
	}

	if err := o.resolvePricing(ctx, pc); err != nil {
		return nil, err
	}

	pending := &PendingPurchase{
		AttemptID:    pc.AttemptID,
		GameID:       pc.GameID,
		License:      pc.License,
		Buyer:        pc.Buyer,
		Price:        pc.ResolvedPrice,
		PaymentToken: pc.ResolvedPaymentToken,
	}

	if pc.RequestedPaymentToken == pc.ResolvedPaymentToken && pc.ResolvedPaymentToken == chain.NativeToken {
		pending.Hash, err = o.buyNative(ctx, pc)
	} else {
		pending.ApprovalHash, pending.Hash, err = o.buyWithToken(ctx, log, pc)
	}
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "purchase submitted", "tx", pending.Hash.Hex(), "price", pc.ResolvedPrice.String())
	return pending, nil
}

// AwaitReceipt blocks until hash is mined. A reverted transaction is
// TRANSACTION_FAILED.
func (o *Orchestrator) AwaitReceipt(ctx context.Context, hash ethcommon.Hash) error {
	if o.wallet == nil {
		return common.NewError(common.CodeWalletNotFound, "await receipt", nil)
	}
	if _, err := o.wallet.WaitMined(ctx, hash); err != nil {
		return common.NewError(common.CodeTransactionFailed, "await "+hash.Hex(), err)
	}
	return nil
}

func (o *Orchestrator) buyer(ctx context.Context) (ethcommon.Address, error) {
	if o.wallet == nil {
		return ethcommon.Address{}, common.NewError(common.CodeWalletNotFound, "wallet", nil)
	}
	accounts, err := o.wallet.Accounts(ctx)
	if err != nil {
		return ethcommon.Address{}, common.NewError(common.CodeWalletNotFound, "wallet accounts", err)
	}
	if len(accounts) == 0 {
		return ethcommon.Address{}, common.NewError(common.CodeWalletNotFound, "wallet accounts", errors.New("no accounts"))
	}
	return accounts[0], nil
}

func (o *Orchestrator) lookup(ctx context.Context, t Target) (registry.GameRecord, error) {
	switch {
	case t.GameID != nil:
		return o.registry.ResolveGame(ctx, *t.GameID)
	case t.License != nil:
		return o.registry.FindByLicense(ctx, *t.License, o.opts.FromBlock)
	default:
		return registry.GameRecord{}, common.NewError(common.CodeGameNotRegistered, "buy", errors.New("empty target"))
	}
}

func (o *Orchestrator) resolvePricing(ctx context.Context, pc *Context) error {
	out, err := o.reader.Call(ctx, pc.License, chain.LicenseABI, "price")
	if err != nil {
		return readFailed("price", err)
	}
	price, ok := single(out, chain.AsBigInt)
	if !ok {
		return readFailed("price", fmt.Errorf("unexpected result %v", out))
	}

	out, err = o.reader.Call(ctx, pc.License, chain.LicenseABI, "paymentToken")
	if err != nil {
		return readFailed("paymentToken", err)
	}
	token, ok := single(out, chain.AsAddress)
	if !ok {
		return readFailed("paymentToken", fmt.Errorf("unexpected result %v", out))
	}

	if token == chain.NativeToken && pc.RequestedPaymentToken != chain.NativeToken {
		return common.NewError(common.CodePaymentTokenMismatch, "buy "+pc.GameID.Hex(),
			fmt.Errorf("license accepts the native asset, not %s", pc.RequestedPaymentToken.Hex()))
	}

	pc.ResolvedPrice, pc.ResolvedPaymentToken = price, token
	return nil
}

func (o *Orchestrator) buyNative(ctx context.Context, pc *Context) (ethcommon.Hash, error) {
	tx := chain.TxRequest{
		From:   pc.Buyer,
		To:     pc.License,
		ABI:    chain.LicenseABI,
		Method: "buy",
		Value:  new(big.Int).Set(pc.ResolvedPrice),
	}
	if err := o.wallet.Simulate(ctx, tx); err != nil {
		return ethcommon.Hash{}, common.NewError(common.CodeSimulationFailed, "simulate buy", err)
	}
	hash, err := o.wallet.Send(ctx, tx)
	if err != nil {
		return ethcommon.Hash{}, common.NewError(common.CodeTransactionFailed, "send buy", err)
	}
	return hash, nil
}

// buyWithToken tops up the ERC-20 allowance to exactly the price when short,
// waits for that approval to be mined, then submits buy without value.
func (o *Orchestrator) buyWithToken(ctx context.Context, log logging.Logger, pc *Context) (*ethcommon.Hash, ethcommon.Hash, error) {
	if pc.RequestedPaymentToken != pc.ResolvedPaymentToken {
		log.Warn(ctx, "requested payment token differs from license token",
			"requested", pc.RequestedPaymentToken.Hex(), "license", pc.ResolvedPaymentToken.Hex())
	}

	out, err := o.reader.Call(ctx, pc.ResolvedPaymentToken, chain.ERC20ABI, "allowance", pc.Buyer, pc.License)
	if err != nil {
		return nil, ethcommon.Hash{}, readFailed("allowance", err)
	}
	allowance, ok := single(out, chain.AsBigInt)
	if !ok {
		return nil, ethcommon.Hash{}, readFailed("allowance", fmt.Errorf("unexpected result %v", out))
	}

	var approval *ethcommon.Hash
	if allowance.Cmp(pc.ResolvedPrice) < 0 {
		approve := chain.TxRequest{
			From:   pc.Buyer,
			To:     pc.ResolvedPaymentToken,
			ABI:    chain.ERC20ABI,
			Method: "approve",
			Args:   []any{pc.License, new(big.Int).Set(pc.ResolvedPrice)},
		}
		h, err := o.wallet.Send(ctx, approve)
		if err != nil {
			return nil, ethcommon.Hash{}, common.NewError(common.CodeTransactionFailed, "send approve", err)
		}
		log.Info(ctx, "approval submitted", "tx", h.Hex(), "allowance", allowance.String())
		if _, err := o.wallet.WaitMined(ctx, h); err != nil {
			return nil, ethcommon.Hash{}, common.NewError(common.CodeTransactionFailed, "await approve", err)
		}
		approval = &h
	}

	hash, err := o.wallet.Send(ctx, chain.TxRequest{
		From:   pc.Buyer,
		To:     pc.License,
		ABI:    chain.LicenseABI,
		Method: "buy",
		Value:  new(big.Int),
	})
	if err != nil {
		return approval, ethcommon.Hash{}, common.NewError(common.CodeTransactionFailed, "send buy", err)
	}
	return approval, hash, nil
}

func single[T any](out []any, conv func(any) (T, bool)) (T, bool) {
	var zero T
	if len(out) != 1 {
		return zero, false
	}
	return conv(out[0])
}

func readFailed(op string, err error) error {
	if common.CodeOf(err) != "" {
		return err
	}
	return common.NewError(common.CodeRPCFailed, op, err)
}
