package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gamevault/internal/purchase"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// StoreService buys games. BuyGame returns once the purchase is submitted;
// AwaitReceipt can then be used to wait for it to be mined.
type StoreService interface {
	BuyGame(ctx context.Context, target, paymentToken string) (*purchase.PendingPurchase, error)
	AwaitReceipt(ctx context.Context, txHash string) error
}

// Purchaser is satisfied by *purchase.Orchestrator.
type Purchaser interface {
	Buy(ctx context.Context, req purchase.Request) (*purchase.PendingPurchase, error)
	AwaitReceipt(ctx context.Context, hash ethcommon.Hash) error
}

type storeService struct {
	purchaser Purchaser
}

func NewStoreService(p Purchaser) StoreService {
	return &storeService{purchaser: p}
}

// BuyGame accepts a game id or license address and a payment token address
// ("" or "native" for the chain's native asset).
func (s *storeService) BuyGame(ctx context.Context, target, paymentToken string) (*purchase.PendingPurchase, error) {
	t, err := purchase.ParseTarget(target)
	if err != nil {
		return nil, err
	}
	token, err := purchase.ParsePaymentToken(paymentToken)
	if err != nil {
		return nil, err
	}
	return s.purchaser.Buy(ctx, purchase.Request{Target: t, PaymentToken: token})
}

func (s *storeService) AwaitReceipt(ctx context.Context, txHash string) error {
	b := ethcommon.FromHex(txHash)
	if len(b) != ethcommon.HashLength {
		return fmt.Errorf("tx hash %q: want 32 bytes", txHash)
	}
	return s.purchaser.AwaitReceipt(ctx, ethcommon.BytesToHash(b))
}
