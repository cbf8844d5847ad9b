// Package registry reads the on-chain game registry: which games exist and
// what each game's current record looks like.
package registry

import (
	"github.com/ethereum/go-ethereum/common"
)

// GameRecord is the registry's view of one game. Everything except Active is
// fixed at registration.
type GameRecord struct {
	GameID    common.Hash
	License   common.Address
	Publisher common.Address
	CreatedAt uint64
	Active    bool
}
