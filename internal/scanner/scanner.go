// Package scanner is the Range Scanner (C4): given (chain, scope,
// fromBlock, toBlock), chunks the range into bounded getLogs queries,
// hands each chunk's logs to a family-specific decoder, and reports how far
// it safely advanced (§4.4). Grounded on internal/ingester/service.go's
// process/fetchBatchParallel/saveBatch loop, generalized from whole-block
// Flow fetches to eth_getLogs chunked EVM scans.
package scanner

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/config"
	"indexerfleet/internal/progress"
	"indexerfleet/internal/rpcpool"
)

// Chunk is the fixed getLogs sub-query size (§4.4.1).
const Chunk = 2000

// InterChunkSleep is the mandatory pause between chunks, doubling as
// backpressure (§5).
const InterChunkSleep = 50 * time.Millisecond

// Decoder is a family's specialization point (§4.4.2): it knows its own
// topic set/addresses and how to turn matched logs into persisted rows.
// Implementations live under internal/families/*.
type Decoder interface {
	// Addresses are the contract(s) whose logs this family cares about.
	Addresses() []common.Address
	// Topics is the OR-set of event topics to filter on.
	Topics() []common.Hash
	// DecodeAndPersist is handed one chunk's matched logs (already filtered
	// to Addresses/Topics by the getLogs query) and must upsert/append the
	// derived rows. It returns per-kind event counts for the Progress
	// Observatory and must not itself advance any checkpoint.
	DecodeAndPersist(ctx context.Context, logs []types.Log) (progress.EventCounts, error)
}

// ErrorSink records per-chunk decode/fetch failures for the indexing-error
// ledger (§3, Supplemented Features), without aborting the whole batch.
type ErrorSink interface {
	LogIndexingError(ctx context.Context, indexerName string, blockNumber uint64, txHash string, message string)
}

// ChainSource is the subset of rpcpool.ChainClient the scanner needs;
// narrowed to an interface so families' tests can fake it without dialing
// real RPC endpoints.
type ChainSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

// PoolSource resolves a chain to its client, satisfied by *rpcpool.Pool.
type PoolSource interface {
	Chain(chain config.ChainID) (ChainSource, error)
}

// Scanner drives one chain's chunked log fetch loop.
type Scanner struct {
	pool PoolSource
	errs ErrorSink
}

// New constructs a Scanner bound to any PoolSource (real or faked in tests).
func New(pool PoolSource, errs ErrorSink) *Scanner {
	return &Scanner{pool: pool, errs: errs}
}

// poolAdapter narrows *rpcpool.Pool's concrete *ChainClient return down to
// the ChainSource interface this package depends on.
type poolAdapter struct {
	pool *rpcpool.Pool
}

func (a poolAdapter) Chain(chain config.ChainID) (ChainSource, error) {
	return a.pool.Chain(chain)
}

// NewFromPool is the production constructor, wiring the real rpcpool.Pool.
func NewFromPool(pool *rpcpool.Pool, errs ErrorSink) *Scanner {
	return New(poolAdapter{pool: pool}, errs)
}

// Result reports how far the scan safely advanced and what it found.
type Result struct {
	// AdvancedTo is the highest block the checkpoint may safely advance to:
	// toBlock if every chunk succeeded, or the end of the last
	// contiguously successful chunk range if one failed (§4.4.1: "failed
	// chunks are implicitly left unindexed for this pass — checkpoint does
	// not advance past them").
	AdvancedTo uint64
	Counts     progress.EventCounts
}

// Scan fetches logs for [fromBlock, toBlock] in Chunk-sized sub-ranges,
// decodes each chunk via d, and reports the safe advance point (§4.4.1,
// §4.4.3). fromBlock > toBlock is a no-op per §8.3.
func (s *Scanner) Scan(ctx context.Context, indexerName string, chain config.ChainID, d Decoder, fromBlock, toBlock uint64) (Result, error) {
	res := Result{AdvancedTo: fromBlock, Counts: make(progress.EventCounts)}
	if fromBlock > toBlock {
		return res, nil
	}

	cc, err := s.pool.Chain(chain)
	if err != nil {
		return res, fmt.Errorf("scanner: %s: %w", indexerName, err)
	}

	topics := [][]common.Hash{d.Topics()}
	addresses := d.Addresses()

	advanced := fromBlock
	hadFailure := false

	for start := fromBlock; start <= toBlock; start += Chunk {
		end := start + Chunk - 1
		if end > toBlock {
			end = toBlock
		}

		q := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(start),
			ToBlock:   new(big.Int).SetUint64(end),
			Addresses: addresses,
			Topics:    topics,
		}

		logs, err := cc.FilterLogs(ctx, q)
		if err != nil {
			log.Printf("[scanner:%s] chunk [%d,%d] failed after retries: %v", indexerName, start, end, err)
			if s.errs != nil {
				s.errs.LogIndexingError(ctx, indexerName, start, "", err.Error())
			}
			hadFailure = true
			break
		}

		counts, err := d.DecodeAndPersist(ctx, logs)
		if err != nil {
			log.Printf("[scanner:%s] chunk [%d,%d] decode/persist failed: %v", indexerName, start, end, err)
			if s.errs != nil {
				s.errs.LogIndexingError(ctx, indexerName, start, "", err.Error())
			}
			hadFailure = true
			break
		}
		for k, v := range counts {
			res.Counts[k] += v
		}

		advanced = end
		if end < toBlock {
			time.Sleep(InterChunkSleep)
		}
	}

	res.AdvancedTo = advanced
	if hadFailure {
		// One bad chunk must not poison the whole batch (§4.4.1): we stop
		// at the contiguous boundary but do not treat this as a batch
		// error, so the caller commits partial progress and the next tick
		// retries the unindexed remainder.
		return res, nil
	}
	return res, nil
}
