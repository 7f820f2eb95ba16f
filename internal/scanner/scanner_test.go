package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"indexerfleet/internal/config"
	"indexerfleet/internal/progress"
)

type fakeChainSource struct {
	// failChunkStart, if nonzero, makes the chunk beginning at that block fail.
	failChunkStart uint64
}

func (f fakeChainSource) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if f.failChunkStart != 0 && q.FromBlock.Uint64() == f.failChunkStart {
		return nil, errors.New("simulated rpc failure")
	}
	return []types.Log{{BlockNumber: q.ToBlock.Uint64()}}, nil
}

type fakePool struct {
	source ChainSource
}

func (p fakePool) Chain(chain config.ChainID) (ChainSource, error) {
	return p.source, nil
}

type fakeDecoder struct {
	calls int
}

func (d *fakeDecoder) Addresses() []common.Address { return nil }
func (d *fakeDecoder) Topics() []common.Hash        { return nil }
func (d *fakeDecoder) DecodeAndPersist(ctx context.Context, logs []types.Log) (progress.EventCounts, error) {
	d.calls++
	return progress.EventCounts{"deposit": int64(len(logs))}, nil
}

type fakeErrorSink struct {
	messages []string
}

func (s *fakeErrorSink) LogIndexingError(ctx context.Context, indexerName string, blockNumber uint64, txHash string, message string) {
	s.messages = append(s.messages, message)
}

func TestScanEmptyRangeIsNoop(t *testing.T) {
	sc := New(fakePool{source: fakeChainSource{}}, nil)
	dec := &fakeDecoder{}
	res, err := sc.Scan(context.Background(), "w0", config.ChainDFK, dec, 2000, 1000)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.AdvancedTo != 2000 {
		t.Errorf("AdvancedTo = %d, want unchanged fromBlock 2000 (§8.3 fromBlock > toBlock)", res.AdvancedTo)
	}
	if dec.calls != 0 {
		t.Errorf("decoder should not be called for an empty range")
	}
}

func TestScanAdvancesThroughMultipleChunks(t *testing.T) {
	sc := New(fakePool{source: fakeChainSource{}}, nil)
	dec := &fakeDecoder{}
	res, err := sc.Scan(context.Background(), "w0", config.ChainDFK, dec, 0, 5000)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.AdvancedTo != 5000 {
		t.Errorf("AdvancedTo = %d, want 5000", res.AdvancedTo)
	}
	if dec.calls != 3 {
		t.Errorf("expected 3 chunks of 2000 to cover [0,5000], got %d calls", dec.calls)
	}
	if res.Counts["deposit"] != 3 {
		t.Errorf("Counts[deposit] = %d, want 3 (one log per chunk)", res.Counts["deposit"])
	}
}

func TestScanStopsAtFirstFailedChunkWithoutError(t *testing.T) {
	sink := &fakeErrorSink{}
	sc := New(fakePool{source: fakeChainSource{failChunkStart: 2000}}, sink)
	dec := &fakeDecoder{}
	res, err := sc.Scan(context.Background(), "w0", config.ChainDFK, dec, 0, 5999)
	if err != nil {
		t.Fatalf("a single bad chunk must not abort the whole batch: %v", err)
	}
	if res.AdvancedTo != 1999 {
		t.Errorf("AdvancedTo = %d, want 1999 (checkpoint must not advance past the failed chunk)", res.AdvancedTo)
	}
	if dec.calls != 1 {
		t.Errorf("expected only the first chunk to have been decoded, got %d calls", dec.calls)
	}
	if len(sink.messages) != 1 {
		t.Errorf("expected one indexing error logged, got %d", len(sink.messages))
	}
}
