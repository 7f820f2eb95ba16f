// Package worker is the Worker Controller (C5): per worker, one cooperative
// batch-then-sleep task that leases its name, reads its checkpoint, scans
// one batch via C4, and on exhausting its whole assigned range consults the
// Work-Steal Arbiter (C6) before returning. Grounded on
// internal/ingester/async_worker.go's AsyncWorker lease-acquire/process/
// complete-or-fail loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"indexerfleet/internal/checkpoint"
	"indexerfleet/internal/config"
	"indexerfleet/internal/progress"
	"indexerfleet/internal/scanner"
	"indexerfleet/internal/steal"
)

// ErrAlreadyRunning is returned when a worker name's lease is already held
// (§4.5 step 1, §4.5 "re-entrant-safe").
var ErrAlreadyRunning = errors.New("worker: already_running")

// HeadReader resolves a chain's current head block, used to cap a tail
// worker's batch target (§4.5 step 2-3).
type HeadReader interface {
	HeadBlock(ctx context.Context, chain config.ChainID) (uint64, error)
}

// Siblings supplies the other workers in a fleet for work-steal lookups
// (§4.6); the caller (fleet.Supervisor) owns the authoritative list.
type Siblings interface {
	Siblings(fleetKey, excludeWorkerID string) []steal.Sibling
}

// Spec describes one worker's static assignment; BatchSize is
// family-dependent (§4.5: 200_000 for LP-staking/gardening, 100_000 for PvE).
type Spec struct {
	Name        string
	FleetKey    string
	Chain       config.ChainID
	IndexerType string
	Scope       string
	Decoder     scanner.Decoder
	RangeStart  uint64
	RangeEnd    *uint64
	BatchSize   uint64
}

// Controller drives one worker's batch-then-sleep cycle.
type Controller struct {
	lease      Lease
	checkpoint *checkpoint.Controller
	store      checkpoint.Store
	scan       *scanner.Scanner
	obs        *progress.Observatory
	heads      HeadReader
	siblings   Siblings
	arbiter    *steal.Arbiter
}

// New wires a Controller's collaborators.
func New(lease Lease, store checkpoint.Store, scan *scanner.Scanner, obs *progress.Observatory, heads HeadReader, siblings Siblings, arbiter *steal.Arbiter) *Controller {
	return &Controller{
		lease:      lease,
		checkpoint: checkpoint.New(store),
		store:      store,
		scan:       scan,
		obs:        obs,
		heads:      heads,
		siblings:   siblings,
		arbiter:    arbiter,
	}
}

// RunOnce executes exactly one batch for spec's worker (§4.5 steps 1-7).
// Returns ErrAlreadyRunning without side effects if the worker's lease is
// already held by a concurrent call.
func (c *Controller) RunOnce(ctx context.Context, spec Spec) error {
	if !c.lease.TryAcquire(spec.Name) {
		return ErrAlreadyRunning
	}
	defer c.lease.Release(spec.Name)

	cp, err := c.checkpoint.EnsureInit(ctx, spec.Name, spec.IndexerType, spec.Scope, spec.RangeStart, spec.RangeEnd)
	if err != nil {
		return fmt.Errorf("worker %s: %w", spec.Name, err)
	}

	target := spec.RangeEnd
	var targetBlock uint64
	if target != nil {
		targetBlock = *target
	} else {
		head, err := c.heads.HeadBlock(ctx, spec.Chain)
		if err != nil {
			return fmt.Errorf("worker %s: head block: %w", spec.Name, err)
		}
		targetBlock = head
	}

	if cp.LastIndexedBlock >= targetBlock {
		c.obs.Complete(spec.FleetKey, spec.Name)
		c.tryStealAfterCompletion(ctx, spec)
		return nil
	}

	endBlock := cp.LastIndexedBlock + spec.BatchSize
	if endBlock > targetBlock {
		endBlock = targetBlock
	}
	fromBlock := cp.LastIndexedBlock + 1

	c.obs.StartBatch(spec.FleetKey, spec.Name, cp.LastIndexedBlock, endBlock)

	res, err := c.scan.Scan(ctx, spec.Name, spec.Chain, spec.Decoder, fromBlock, endBlock)
	if err != nil {
		if failErr := c.checkpoint.FailBatch(ctx, spec.Name, err); failErr != nil {
			log.Printf("[worker:%s] failed to persist batch-error status: %v", spec.Name, failErr)
		}
		c.obs.FinishBatch(spec.FleetKey, spec.Name, err)
		return fmt.Errorf("worker %s: batch [%d,%d]: %w", spec.Name, fromBlock, endBlock, err)
	}

	var eventsAdded uint64
	for _, v := range res.Counts {
		eventsAdded += uint64(v)
	}

	if err := c.checkpoint.CommitBatch(ctx, spec.Name, res.AdvancedTo, eventsAdded, spec.RangeEnd); err != nil {
		return fmt.Errorf("worker %s: commit: %w", spec.Name, err)
	}
	c.obs.RecordChunk(spec.FleetKey, spec.Name, res.AdvancedTo, res.Counts)
	c.obs.FinishBatch(spec.FleetKey, spec.Name, nil)

	if res.AdvancedTo >= targetBlock {
		c.obs.Complete(spec.FleetKey, spec.Name)
		c.tryStealAfterCompletion(ctx, spec)
	}
	return nil
}

// tryStealAfterCompletion implements §4.5 step 7: once a worker exhausts
// its whole assigned range, it asks C6 for more work before going idle.
func (c *Controller) tryStealAfterCompletion(ctx context.Context, spec Spec) {
	if c.siblings == nil || c.arbiter == nil {
		return
	}
	siblings := c.siblings.Siblings(spec.FleetKey, spec.Name)
	descriptor := c.arbiter.FindWorkToSteal(spec.Name, siblings)
	if descriptor == nil {
		return
	}
	defer c.arbiter.Release(descriptor.DonorID)

	// Shrink the donor's range first, then reassign the thief, matching
	// §4.6's required ordering so a crash mid-steal never loses blocks.
	if err := c.checkpoint.ShrinkRangeEnd(ctx, descriptor.DonorID, descriptor.NewDonorEnd); err != nil {
		log.Printf("[worker:%s] steal: shrink donor %s failed: %v", spec.Name, descriptor.DonorID, err)
		return
	}
	newEnd := descriptor.ThiefNewEnd
	if err := c.checkpoint.Reassign(ctx, spec.Name, descriptor.ThiefNewStart, &newEnd); err != nil {
		log.Printf("[worker:%s] steal: reassign thief failed: %v", spec.Name, err)
		return
	}
	log.Printf("[worker:%s] stole %d blocks from %s: new range [%d,%d]", spec.Name, descriptor.BlocksStolen, descriptor.DonorID, descriptor.ThiefNewStart, descriptor.ThiefNewEnd)
}
