package purchase

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
)

// Target names what to buy: either a registry game id or the game's license
// contract. Exactly one of the two is set.
type Target struct {
	GameID  *ethcommon.Hash
	License *ethcommon.Address
}

func (t Target) String() string {
	switch {
	case t.GameID != nil:
		return t.GameID.Hex()
	case t.License != nil:
		return t.License.Hex()
	default:
		return "<none>"
	}
}

// ParseTarget accepts a 0x-prefixed 32-byte game id or 20-byte license
// address.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Target{}, fmt.Errorf("target %q: expected 0x-prefixed hex", s)
	}
	switch len(s) {
	case 66:
		if _, err := hexBytes(s); err != nil {
			return Target{}, fmt.Errorf("target %q: %w", s, err)
		}
		id := ethcommon.HexToHash(s)
		return Target{GameID: &id}, nil
	case 42:
		if !chain.IsAddress(s) {
			return Target{}, fmt.Errorf("target %q: not an address", s)
		}
		addr := ethcommon.HexToAddress(s)
		return Target{License: &addr}, nil
	default:
		return Target{}, fmt.Errorf("target %q: want a 32-byte game id or 20-byte license address", s)
	}
}

// ParsePaymentToken maps "", "native" and "eth" to the native asset.
func ParsePaymentToken(s string) (ethcommon.Address, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native", "eth":
		return chain.NativeToken, nil
	}
	if !chain.IsAddress(s) {
		return ethcommon.Address{}, fmt.Errorf("payment token %q: not an address", s)
	}
	return ethcommon.HexToAddress(s), nil
}

func hexBytes(s string) ([]byte, error) {
	b := ethcommon.FromHex(s)
	if len(b)*2 != len(s)-2 {
		return nil, fmt.Errorf("invalid hex")
	}
	return b, nil
}

type Request struct {
	Target       Target
	PaymentToken ethcommon.Address
}

// Context is the state of a single purchase attempt. It is built up step by
// step and dropped when Buy returns.
type Context struct {
	AttemptID             uuid.UUID
	GameID                ethcommon.Hash
	License               ethcommon.Address
	RequestedPaymentToken ethcommon.Address
	Buyer                 ethcommon.Address
	ResolvedPrice         *big.Int
	ResolvedPaymentToken  ethcommon.Address
}

// PendingPurchase is the handle returned once the buy transaction has been
// submitted. It does not imply inclusion.
type PendingPurchase struct {
	AttemptID    uuid.UUID
	Hash         ethcommon.Hash
	ApprovalHash *ethcommon.Hash
	GameID       ethcommon.Hash
	License      ethcommon.Address
	Buyer        ethcommon.Address
	Price        *big.Int
	PaymentToken ethcommon.Address
}

// Native reports whether the purchase paid in the chain's native asset.
func (p *PendingPurchase) Native() bool {
	return p.PaymentToken == chain.NativeToken
}
