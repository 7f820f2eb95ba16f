package adapters

import (
	"context"

	"indexerfleet/internal/config"
	"indexerfleet/internal/rpcpool"
)

// PoolHeadReader implements both worker.HeadReader and fleet.HeadReader
// (identical single-method shape) against a shared *rpcpool.Pool, dialing a
// chain's client lazily the same way every other rpcpool caller does.
type PoolHeadReader struct {
	Pool *rpcpool.Pool
}

func NewPoolHeadReader(pool *rpcpool.Pool) *PoolHeadReader {
	return &PoolHeadReader{Pool: pool}
}

func (h *PoolHeadReader) HeadBlock(ctx context.Context, chain config.ChainID) (uint64, error) {
	client, err := h.Pool.Chain(chain)
	if err != nil {
		return 0, err
	}
	return client.HeadBlock(ctx)
}
