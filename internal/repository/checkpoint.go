package repository

import (
	"context"
	"fmt"
	"hash/crc32"

	"github.com/jackc/pgx/v5"

	"indexerfleet/internal/checkpoint"
	"indexerfleet/internal/models"
)

// Get implements checkpoint.Store. A missing row is not an error — callers
// (checkpoint.Controller.EnsureInit) treat nil as "not yet initialized".
func (r *Repository) Get(ctx context.Context, name string) (*models.Checkpoint, error) {
	row := r.db.QueryRow(ctx, `
		SELECT indexer_name, indexer_type, scope, lp_token, range_start, range_end,
		       last_indexed_block, total_events_indexed, status, last_error, updated_at
		FROM checkpoints WHERE indexer_name = $1`, name)

	var cp models.Checkpoint
	var rangeEnd *uint64
	err := row.Scan(&cp.IndexerName, &cp.IndexerType, &cp.Scope, &cp.LPToken, &cp.RangeStart, &rangeEnd,
		&cp.LastIndexedBlock, &cp.TotalEventsIndexed, &cp.Status, &cp.LastError, &cp.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: get checkpoint %s: %w", name, err)
	}
	cp.RangeEnd = rangeEnd
	return &cp, nil
}

// Init inserts a new checkpoint row if one doesn't already exist, a no-op
// otherwise (§4.2: Init is idempotent).
func (r *Repository) Init(ctx context.Context, name, indexerType, scope string, rangeStart uint64, rangeEnd *uint64) (*models.Checkpoint, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO checkpoints (indexer_name, indexer_type, scope, range_start, range_end,
		                          last_indexed_block, total_events_indexed, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $4, 0, $6, NOW())
		ON CONFLICT (indexer_name) DO NOTHING`,
		name, indexerType, scope, rangeStart, rangeEnd, models.StatusIdle)
	if err != nil {
		return nil, fmt.Errorf("repository: init checkpoint %s: %w", name, err)
	}
	return r.Get(ctx, name)
}

// Update applies a partial patch; nil fields are left unchanged (§4.2).
func (r *Repository) Update(ctx context.Context, name string, patch checkpoint.Patch) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE checkpoints SET
			range_start          = COALESCE($2, range_start),
			range_end            = CASE WHEN $3::boolean THEN $4 ELSE range_end END,
			last_indexed_block   = COALESCE($5, last_indexed_block),
			total_events_indexed = COALESCE($6, total_events_indexed),
			status               = COALESCE($7, status),
			last_error           = COALESCE($8, last_error),
			updated_at           = NOW()
		WHERE indexer_name = $1`,
		name,
		patch.RangeStart,
		patch.RangeEnd != nil, rangeEndParam(patch.RangeEnd),
		patch.LastIndexedBlock,
		patch.TotalEventsIndexed,
		patch.Status,
		patch.LastError,
	)
	if err != nil {
		return fmt.Errorf("repository: update checkpoint %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repository: update checkpoint %s: no such row", name)
	}
	return nil
}

// rangeEndParam unwraps the RangeEndValue indirection: nil patch field means
// "don't touch it" (handled by the CASE in Update); a non-nil field whose
// Value is itself nil means "set it to unbounded".
func rangeEndParam(v *checkpoint.RangeEndValue) *uint64 {
	if v == nil {
		return nil
	}
	return v.Value
}

// Delete implements checkpoint.Store.Reset — the only legal "reset"
// operation per §3.2.
func (r *Repository) Delete(ctx context.Context, name string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM checkpoints WHERE indexer_name = $1`, name); err != nil {
		return fmt.Errorf("repository: delete checkpoint %s: %w", name, err)
	}
	return nil
}

// LogIndexingError implements scanner.ErrorSink, grounded directly on the
// teacher's raw.indexing_errors / LogIndexingError (postgres_leasing.go),
// including its error_hash dedup key so a chunk that keeps hitting the same
// decode failure doesn't spam one row per log. Failures writing the error
// row are swallowed (best-effort telemetry, per §7: a logging failure must
// never abort the batch that triggered it) — the caller in internal/scanner
// still log.Printf's the message regardless of whether this persists.
func (r *Repository) LogIndexingError(ctx context.Context, indexerName string, blockNumber uint64, txHash string, message string) {
	errHash := fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(message)))
	_, _ = r.db.Exec(ctx, `
		INSERT INTO indexing_errors (indexer_name, block_number, tx_hash, error_hash, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (indexer_name, block_number, tx_hash, error_hash) DO NOTHING`,
		indexerName, blockNumber, txHash, errHash, message)
}

// ListCheckpoints backs the indexer-status CLI tool's fleet-wide overview
// (§3 Supplemented Features): every worker's live range/progress in one
// query rather than one Get call per known worker name.
func (r *Repository) ListCheckpoints(ctx context.Context) ([]models.Checkpoint, error) {
	rows, err := r.db.Query(ctx, `
		SELECT indexer_name, indexer_type, scope, lp_token, range_start, range_end,
		       last_indexed_block, total_events_indexed, status, last_error, updated_at
		FROM checkpoints
		ORDER BY indexer_type, indexer_name`)
	if err != nil {
		return nil, fmt.Errorf("repository: list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []models.Checkpoint
	for rows.Next() {
		var cp models.Checkpoint
		var rangeEnd *uint64
		if err := rows.Scan(&cp.IndexerName, &cp.IndexerType, &cp.Scope, &cp.LPToken, &cp.RangeStart, &rangeEnd,
			&cp.LastIndexedBlock, &cp.TotalEventsIndexed, &cp.Status, &cp.LastError, &cp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan checkpoint: %w", err)
		}
		cp.RangeEnd = rangeEnd
		out = append(out, cp)
	}
	return out, rows.Err()
}

// GetRecentErrors backs the indexer-status CLI tool's error tail (§3
// Supplemented Features).
func (r *Repository) GetRecentErrors(ctx context.Context, indexerName string, limit int) ([]models.IndexingError, error) {
	rows, err := r.db.Query(ctx, `
		SELECT indexer_name, block_number, tx_hash, error_hash, error_message, created_at
		FROM indexing_errors
		WHERE indexer_name = $1
		ORDER BY created_at DESC
		LIMIT $2`, indexerName, limit)
	if err != nil {
		return nil, fmt.Errorf("repository: recent errors for %s: %w", indexerName, err)
	}
	defer rows.Close()

	var out []models.IndexingError
	for rows.Next() {
		var e models.IndexingError
		if err := rows.Scan(&e.IndexerName, &e.BlockNumber, &e.TxHash, &e.ErrorHash, &e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan indexing error: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
