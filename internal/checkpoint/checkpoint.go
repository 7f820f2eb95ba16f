// Package checkpoint is the Checkpoint Store (C2): the single persistent
// per-indexer progress row, owned exclusively by the worker whose
// indexerName it names (§3.2). Grounded on the teacher's
// postgres_leasing.go UpdateCheckpoint/AdvanceCheckpointSafe pattern,
// generalized from Flow block heights to arbitrary per-family checkpoints.
package checkpoint

import (
	"context"
	"fmt"

	"indexerfleet/internal/models"
)

// Store is the persistence boundary C2 calls through; internal/repository
// implements it against Postgres.
type Store interface {
	Get(ctx context.Context, name string) (*models.Checkpoint, error)
	Init(ctx context.Context, name, indexerType, scope string, rangeStart uint64, rangeEnd *uint64) (*models.Checkpoint, error)
	Update(ctx context.Context, name string, patch Patch) error
	Delete(ctx context.Context, name string) error
}

// Patch is a partial update to a checkpoint row; nil fields are left
// unchanged (§4.2's `update(name, patch)`).
type Patch struct {
	RangeStart         *uint64
	RangeEnd           *RangeEndValue
	LastIndexedBlock   *uint64
	TotalEventsIndexed *uint64
	Status             *models.IndexerStatus
	LastError          *string
}

// RangeEndValue distinguishes "leave rangeEnd unchanged" (a nil
// *RangeEndValue in Patch) from "set rangeEnd to this value, possibly nil
// for unbounded" (a non-nil *RangeEndValue whose Value may itself be nil).
type RangeEndValue struct {
	Value *uint64
}

// Controller is a thin convenience wrapper giving C4/C5 the two state
// transitions they actually need: marking a batch's success or failure,
// each of which derives `status` the way §4.2 specifies.
type Controller struct {
	store Store
}

// New wraps a Store with the status-transition helpers C4/C5 use.
func New(store Store) *Controller {
	return &Controller{store: store}
}

// EnsureInit calls Store.Init, which is a no-op if the row already exists.
func (c *Controller) EnsureInit(ctx context.Context, name, indexerType, scope string, rangeStart uint64, rangeEnd *uint64) (*models.Checkpoint, error) {
	cp, err := c.store.Init(ctx, name, indexerType, scope, rangeStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: init %s: %w", name, err)
	}
	return cp, nil
}

// CommitBatch advances lastIndexedBlock after a successful batch, deriving
// status: complete if the range's end has been reached, otherwise idle
// (§4.2, §4.4.3).
func (c *Controller) CommitBatch(ctx context.Context, name string, toBlock uint64, eventsAdded uint64, rangeEnd *uint64) error {
	status := models.StatusIdle
	if rangeEnd != nil && toBlock >= *rangeEnd {
		status = models.StatusComplete
	}

	cp, err := c.store.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("checkpoint: read %s before commit: %w", name, err)
	}
	var total uint64
	if cp != nil {
		total = cp.TotalEventsIndexed + eventsAdded
	} else {
		total = eventsAdded
	}

	empty := ""
	return c.store.Update(ctx, name, Patch{
		LastIndexedBlock:   &toBlock,
		TotalEventsIndexed: &total,
		Status:             &status,
		LastError:          &empty,
	})
}

// FailBatch leaves lastIndexedBlock untouched (§4.4.3: "the checkpoint is
// set to status=error ... but lastIndexedBlock is not advanced") and
// records the error for operator visibility.
func (c *Controller) FailBatch(ctx context.Context, name string, cause error) error {
	status := models.StatusError
	msg := cause.Error()
	return c.store.Update(ctx, name, Patch{
		Status:    &status,
		LastError: &msg,
	})
}

// ShrinkRangeEnd lowers only a donor's rangeEnd after a work-steal, leaving
// rangeStart untouched (§4.6: "shrink the donor's range first").
func (c *Controller) ShrinkRangeEnd(ctx context.Context, name string, newRangeEnd uint64) error {
	return c.store.Update(ctx, name, Patch{
		RangeEnd: &RangeEndValue{Value: &newRangeEnd},
	})
}

// Reassign rewrites a worker's assigned range after a work-steal (§4.6):
// the donor's rangeEnd shrinks, or the thief's rangeStart/rangeEnd are set
// to its newly acquired slice. newRangeEnd == nil means "track to chain
// head" (only ever true for a fleet's tail worker).
func (c *Controller) Reassign(ctx context.Context, name string, rangeStart uint64, newRangeEnd *uint64) error {
	return c.store.Update(ctx, name, Patch{
		RangeStart: &rangeStart,
		RangeEnd:   &RangeEndValue{Value: newRangeEnd},
	})
}

// Reset implements §3.2's only legal "reset" operation: delete the row.
func (c *Controller) Reset(ctx context.Context, name string) error {
	return c.store.Delete(ctx, name)
}
