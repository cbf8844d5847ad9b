package registry

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gamevault/internal/chain"
	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogFetcher is the scanner surface Index needs; *chain.Scanner satisfies it.
type LogFetcher interface {
	FetchLogs(ctx context.Context, address ethcommon.Address, topic ethcommon.Hash, from uint64, to *uint64) ([]types.Log, error)
}

// Index answers registry questions. It keeps no state between calls: every
// result is assembled from the chain and returned whole.
type Index struct {
	reader   chain.Reader
	scanner  LogFetcher
	registry ethcommon.Address
	log      logging.Logger
}

func NewIndex(reader chain.Reader, scanner LogFetcher, registry ethcommon.Address, log logging.Logger) *Index {
	return &Index{reader: reader, scanner: scanner, registry: registry, log: log}
}

// ListRegisteredGameIDs returns every game id registered since fromBlock,
// once each, in first-seen order.
func (i *Index) ListRegisteredGameIDs(ctx context.Context, fromBlock uint64) ([]ethcommon.Hash, error) {
	logs, err := i.scanner.FetchLogs(ctx, i.registry, chain.GameRegisteredTopic, fromBlock, nil)
	if err != nil {
		return nil, err
	}

	seen := make(map[ethcommon.Hash]struct{}, len(logs))
	ids := make([]ethcommon.Hash, 0, len(logs))
	for _, l := range logs {
		if len(l.Topics) < 2 {
			return nil, common.NewError(common.CodeRPCFailed, "list games",
				fmt.Errorf("GameRegistered log %s#%d has no gameId topic", l.TxHash, l.Index))
		}
		id := l.Topics[1]
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	i.log.Debug(ctx, "listed registered games", "logs", len(logs), "games", len(ids))
	return ids, nil
}

// ResolveGame reads the current record of id. An unknown id (zero license
// address) is GAME_NOT_REGISTERED; an unreadable value is
// MALFORMED_REGISTRY_RECORD.
func (i *Index) ResolveGame(ctx context.Context, id ethcommon.Hash) (GameRecord, error) {
	out, err := i.reader.Call(ctx, i.registry, chain.RegistryABI, "getGame", id)
	if err != nil {
		return GameRecord{}, err
	}

	rec, err := decodeGameRecord(id, out)
	if err != nil {
		return GameRecord{}, common.NewError(common.CodeMalformedRegistryRecord, "getGame "+id.Hex(), err)
	}
	if rec.License == (ethcommon.Address{}) {
		return GameRecord{}, common.NewError(common.CodeGameNotRegistered, "getGame "+id.Hex(), nil)
	}
	return rec, nil
}

// FindByLicense resolves a license contract address back to its game by
// walking the games registered since fromBlock.
func (i *Index) FindByLicense(ctx context.Context, license ethcommon.Address, fromBlock uint64) (GameRecord, error) {
	ids, err := i.ListRegisteredGameIDs(ctx, fromBlock)
	if err != nil {
		return GameRecord{}, err
	}
	for _, id := range ids {
		rec, err := i.ResolveGame(ctx, id)
		if err != nil {
			return GameRecord{}, err
		}
		if rec.License == license {
			return rec, nil
		}
	}
	return GameRecord{}, common.NewError(common.CodeGameNotRegistered, "find license "+license.Hex(), nil)
}
