package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/dmitrijs2005/gamevault/internal/common"
	"github.com/dmitrijs2005/gamevault/internal/logging"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DefaultMaxBlockSpan is the widest block range requested in one eth_getLogs
// call. Most hosted providers reject wider ranges.
const DefaultMaxBlockSpan uint64 = 100_000

// Window is an inclusive block range.
type Window struct {
	From uint64
	To   uint64
}

// Windows splits [from, to] into consecutive inclusive windows no wider than
// span blocks. It returns nil when from > to.
func Windows(from, to, span uint64) []Window {
	if from > to || span == 0 {
		return nil
	}
	var out []Window
	for start := from; ; {
		end := start + span - 1
		if end > to || end < start {
			end = to
		}
		out = append(out, Window{From: start, To: end})
		if end == to {
			return out
		}
		start = end + 1
	}
}

// Scanner fetches logs window by window. Windows are requested sequentially
// so a long scan never puts more than one getLogs call in flight.
type Scanner struct {
	src  LogSource
	span uint64
	log  logging.Logger
}

func NewScanner(src LogSource, span uint64, log logging.Logger) *Scanner {
	if span == 0 {
		span = DefaultMaxBlockSpan
	}
	return &Scanner{src: src, span: span, log: log}
}

// FetchLogs returns every log emitted by address with topic0 == topic in
// [from, to], ascending. A nil to means the current head, read once. Any
// window failure aborts the scan and nothing collected so far is returned.
func (s *Scanner) FetchLogs(ctx context.Context, address ethcommon.Address, topic ethcommon.Hash, from uint64, to *uint64) ([]types.Log, error) {
	var head uint64
	if to != nil {
		head = *to
	} else {
		n, err := s.src.BlockNumber(ctx)
		if err != nil {
			return nil, common.NewError(common.CodeRPCFailed, "block number", err)
		}
		head = n
	}

	windows := Windows(from, head, s.span)
	if len(windows) == 0 {
		return []types.Log{}, nil
	}

	var logs []types.Log
	for i, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, common.NewError(common.CodeRPCFailed, "get logs", err)
		}

		q := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(w.From),
			ToBlock:   new(big.Int).SetUint64(w.To),
			Addresses: []ethcommon.Address{address},
			Topics:    [][]ethcommon.Hash{{topic}},
		}
		batch, err := s.src.FilterLogs(ctx, q)
		if err != nil {
			return nil, common.NewError(common.CodeRPCFailed,
				fmt.Sprintf("get logs [%d,%d]", w.From, w.To), err)
		}
		s.log.Debug(ctx, "scanned window", "window", i+1, "of", len(windows),
			"from", w.From, "to", w.To, "logs", len(batch))
		logs = append(logs, batch...)
	}
	if logs == nil {
		logs = []types.Log{}
	}
	return logs, nil
}
