package rpcpool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"indexerfleet/internal/config"
)

// ChainClient wraps one or more ethclient.Client connections for a single
// chain (teacher precedent: flow/client.go's multi-node pool with round-
// robin selection over grpcClients).
type ChainClient struct {
	chain     config.ChainID
	ethClient *ethclient.Client // primary client, used for bind.ContractBackend
	endpoints []*ethclient.Client
	rr        uint32
	limiter   *rate.Limiter
}

func dialChain(chain config.ChainID, urls []string) (*ChainClient, error) {
	endpoints := make([]*ethclient.Client, 0, len(urls))
	var firstErr error
	for _, u := range urls {
		c, err := ethclient.Dial(u)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("dial %s: %w", u, err)
			}
			continue
		}
		endpoints = append(endpoints, c)
	}
	if len(endpoints) == 0 {
		if firstErr != nil {
			return nil, firstErr
		}
		return nil, fmt.Errorf("no endpoints configured")
	}
	return &ChainClient{
		chain:     chain,
		ethClient: endpoints[0],
		endpoints: endpoints,
		limiter:   rateLimiterFor(chain),
	}, nil
}

func (c *ChainClient) pick() *ethclient.Client {
	if len(c.endpoints) == 1 {
		return c.endpoints[0]
	}
	idx := int(atomic.AddUint32(&c.rr, 1)) % len(c.endpoints)
	return c.endpoints[idx]
}

// HeadBlock returns the current chain head block number.
func (c *ChainClient) HeadBlock(ctx context.Context) (uint64, error) {
	var head uint64
	err := c.withRetry(ctx, "HeadBlock", func() error {
		h, err := c.pick().BlockNumber(ctx)
		if err != nil {
			return err
		}
		head = h
		return nil
	})
	return head, err
}

// FilterLogs issues a bounded getLogs query (§4.4.1). Callers are
// responsible for chunking to CHUNK=2000 blocks per spec §4.4.1; this
// method performs exactly one RPC call per invocation.
func (c *ChainClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var logs []types.Log
	err := c.withRetry(ctx, "FilterLogs", func() error {
		l, err := c.pick().FilterLogs(ctx, q)
		if err != nil {
			return err
		}
		logs = l
		return nil
	})
	return logs, err
}

// CallContract is exposed for collaborators (e.g. direct view calls) that
// need the raw ethereum.ContractCaller shape.
func (c *ChainClient) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var out []byte
	err := c.withRetry(ctx, "CallContract", func() error {
		b, err := c.pick().CallContract(ctx, call, blockNumber)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// withRetry implements the C1 retry policy (§4.1): up to 5 attempts, delay
// base*2^attempt + jitter with base=1s. Retryable: socket hang-up, connection
// reset, timeout, DNS failure, 5xx, 429. Non-retryable: 4xx (other than 429),
// decode errors. The context argument names the operation for attribution in
// the final error (§4.1).
func (c *ChainClient) withRetry(ctx context.Context, op string, fn func() error) error {
	const maxAttempts = 5
	const base = time.Second

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return fmt.Errorf("rpcpool: %s: %w", op, err)
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := base*time.Duration(1<<uint(attempt)) + jitter()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("rpcpool: %s: max retries reached: %w", op, lastErr)
}

func jitter() time.Duration {
	return time.Duration(rand.Intn(250)) * time.Millisecond
}

// isRetryable classifies an error per §4.1's taxonomy: transient network
// failures and HTTP 5xx/429 are retryable; HTTP 4xx (other than 429) and
// decode errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 || httpErr.StatusCode >= 500 {
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		// Any net.OpError (dial/read/write failure, timeout, DNS failure)
		// surfacing this deep is connection-level and always transient here.
		return true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "socket hang up"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "eof"),
		strings.Contains(msg, "too many requests"):
		return true
	}
	return false
}
