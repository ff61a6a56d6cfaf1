package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stwalsh4118/addrsync/internal/config"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
	"github.com/stwalsh4118/addrsync/internal/registry"
	"github.com/stwalsh4118/addrsync/internal/repository"
)

// ErrRunInProgress indicates another sync run is already executing against
// the address dataset. Concurrent runs over the same record set are unsafe,
// so the pipeline admits one run at a time.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// SyncOutcome classifies the result of one record's registry sync.
type SyncOutcome string

const (
	// OutcomeSucceeded means the registry assigned an identifier and it was
	// backfilled onto the record.
	OutcomeSucceeded SyncOutcome = "succeeded"
	// OutcomeSkipped means the registry reported the record already exists;
	// no identifier was written.
	OutcomeSkipped SyncOutcome = "skipped"
	// OutcomeFailed means the record's upsert or backfill errored; the batch
	// continued without it.
	OutcomeFailed SyncOutcome = "failed"
)

// SkippedReasonExists is the reason recorded for duplicate-sentinel skips.
const SkippedReasonExists = "already exists in registry"

// RecordResult is the per-record outcome of the sync stage.
type RecordResult struct {
	ID         int64       `json:"id"`
	Outcome    SyncOutcome `json:"outcome"`
	RegistryID *int64      `json:"registryId,omitempty"`
	Reason     string      `json:"reason,omitempty"`
}

// SyncSummary reports what one pipeline run did. No partial state is rolled
// back on failure: records synchronized before a later failure keep their
// identifiers.
type SyncSummary struct {
	RunID         string         `json:"runId"`
	Attempted     int            `json:"attempted"`
	BIAUpdated    int            `json:"biaUpdated"`
	BIASkipped    bool           `json:"biaSkipped"`
	ParcelUpdated int            `json:"parcelUpdated"`
	ParcelSkipped bool           `json:"parcelSkipped"`
	Succeeded     int            `json:"succeeded"`
	Skipped       int            `json:"skipped"`
	Failed        int            `json:"failed"`
	Results       []RecordResult `json:"results"`
}

// SyncPipeline orchestrates one enrichment-and-sync run over the selected
// address records.
type SyncPipeline interface {
	// Run executes the full pipeline: filter, BIA enrichment, parcel
	// enrichment, coordinate projection, then per-record registry sync.
	// A non-empty ids list names the records to operate on explicitly;
	// an empty list falls back to the records marked selected in the store.
	// Returns ErrNoSelection before any mutation if the selection resolves
	// to nothing, and ErrRunInProgress if another run holds the dataset.
	Run(ctx context.Context, ids []int64, srid int) (*SyncSummary, error)
}

// syncPipeline is the concrete implementation of SyncPipeline.
type syncPipeline struct {
	repo      repository.AddressRepository
	joins     repository.SpatialJoinRepository
	client    registry.Client
	filter    *RecordFilter
	transfer  *AttributeTransferEngine
	projector *GeometryProjector
	layers    config.LayersConfig
	log       *logger.Logger

	// mu serializes runs; the shared state being guarded is the external
	// record set, not in-process memory.
	mu sync.Mutex
}

// NewSyncPipeline creates a new SyncPipeline.
func NewSyncPipeline(
	repo repository.AddressRepository,
	joins repository.SpatialJoinRepository,
	client registry.Client,
	layers config.LayersConfig,
	log *logger.Logger,
) SyncPipeline {
	return &syncPipeline{
		repo:      repo,
		joins:     joins,
		client:    client,
		filter:    NewRecordFilter(log),
		transfer:  NewAttributeTransferEngine(log),
		projector: NewGeometryProjector(repo, log),
		layers:    layers,
		log:       log.WithComponent("pipeline"),
	}
}

// Run executes the stages strictly in sequence. Enrichment stages operate on
// the whole batch at once; registry sync is per record, one transaction at a
// time, and never aborts the batch for a single record's failure.
func (p *syncPipeline) Run(ctx context.Context, ids []int64, srid int) (*SyncSummary, error) {
	if !p.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.mu.Unlock()

	runID := uuid.New().String()
	log := p.log.WithRunID(runID)

	// Filter: selection is fatal to get wrong, before any mutation
	records, err := p.loadSelection(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load selected records: %w", err)
	}

	records, err = p.filter.Select(records)
	if err != nil {
		return nil, err
	}

	pending := p.filter.ExcludeSynced(records)

	summary := &SyncSummary{
		RunID:     runID,
		Attempted: len(pending),
		Results:   make([]RecordResult, 0, len(pending)),
	}

	if len(pending) == 0 {
		log.Info("All selected records already synchronized", map[string]interface{}{
			"selected": len(records),
		})
		return summary, nil
	}

	// BIA enrichment
	summary.BIAUpdated, summary.BIASkipped, err = p.enrich(ctx, log, pending, p.layers.BIATable, p.layers.BIAColumn, BIABinding())
	if err != nil {
		return nil, err
	}

	// Parcel enrichment
	summary.ParcelUpdated, summary.ParcelSkipped, err = p.enrich(ctx, log, pending, p.layers.ParcelTable, p.layers.ParcelColumn, ParcelIDBinding())
	if err != nil {
		return nil, err
	}

	// Projection
	if err := p.projector.Project(ctx, pending, srid); err != nil {
		return nil, err
	}

	// Registry sync, one record at a time
	failedIDs := p.syncBatch(ctx, log, pending, summary)

	log.Info("Sync run complete", map[string]interface{}{
		"attempted": summary.Attempted,
		"succeeded": summary.Succeeded,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	})
	if len(failedIDs) > 0 {
		log.Warn("Some records failed to synchronize", map[string]interface{}{
			"record_ids": failedIDs,
		})
	}

	// Cancellation is only honored between records; report it after the
	// partial summary is assembled so the caller sees what did complete.
	if ctx.Err() != nil {
		return summary, fmt.Errorf("run canceled mid-batch: %w", ctx.Err())
	}

	return summary, nil
}

// loadSelection resolves the records a run operates on: an explicit id list
// when the caller supplied one, the store's selected set otherwise.
func (p *syncPipeline) loadSelection(ctx context.Context, ids []int64) ([]*models.AddressRecord, error) {
	if len(ids) > 0 {
		return p.repo.ListByIDs(ctx, ids)
	}
	return p.repo.ListSelected(ctx)
}

// enrich runs one attribute-transfer stage against a reference layer. A
// missing layer aborts only this stage; a schema mismatch (ambiguous joined
// field) or query failure aborts the run.
func (p *syncPipeline) enrich(ctx context.Context, log *logger.Logger, pending []*models.AddressRecord, layer, attribute string, binding AttributeBinding) (updated int, skipped bool, err error) {
	ids := recordIDs(pending)

	result, err := p.joins.JoinAttribute(ctx, layer, attribute, ids)
	if err != nil {
		if errors.Is(err, repository.ErrLayerMissing) {
			log.Warn("Reference layer missing, skipping enrichment stage", map[string]interface{}{
				"layer":     layer,
				"attribute": attribute,
			})
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("enrichment stage %q failed: %w", layer, err)
	}

	updated, err = p.transfer.Transfer(pending, result, binding)
	if err != nil {
		return updated, false, err
	}

	return updated, false, nil
}

// syncBatch pushes each pending record to the registry, isolating failures
// per record, and fills the summary. Returns the ids that failed.
func (p *syncPipeline) syncBatch(ctx context.Context, log *logger.Logger, pending []*models.AddressRecord, summary *SyncSummary) []int64 {
	var failedIDs []int64

	for _, rec := range pending {
		// Cancellation checkpoint between records; never inside one
		if ctx.Err() != nil {
			break
		}

		result := p.syncOne(ctx, log, rec)
		summary.Results = append(summary.Results, result)

		switch result.Outcome {
		case OutcomeSucceeded:
			summary.Succeeded++
		case OutcomeSkipped:
			summary.Skipped++
		case OutcomeFailed:
			summary.Failed++
			failedIDs = append(failedIDs, rec.ID)
		}
	}

	return failedIDs
}

// syncOne persists one record's derived fields, performs the registry
// upsert, and backfills the returned identifier. Every error path converts
// to a failed outcome; nothing propagates out of the loop.
func (p *syncPipeline) syncOne(ctx context.Context, log *logger.Logger, rec *models.AddressRecord) RecordResult {
	// Persist enrichment outputs before pushing to the registry so the
	// store and the registry agree on what was sent.
	if err := p.repo.UpdateDerived(ctx, rec); err != nil {
		log.Error("Failed to persist derived fields", err, map[string]interface{}{
			"record_id": rec.ID,
		})
		return RecordResult{ID: rec.ID, Outcome: OutcomeFailed, Reason: err.Error()}
	}

	id, err := p.client.Upsert(ctx, registry.BuildParams(rec))
	if err != nil {
		// No automatic retry: the upsert is not guaranteed idempotent beyond
		// the duplicate sentinel. The caller reruns; ExcludeSynced keeps
		// reruns safe.
		log.Error("Registry upsert failed", err, map[string]interface{}{
			"record_id": rec.ID,
		})
		return RecordResult{ID: rec.ID, Outcome: OutcomeFailed, Reason: err.Error()}
	}

	if id == registry.DuplicateSentinel {
		log.Warn("Record already exists in registry", map[string]interface{}{
			"record_id": rec.ID,
		})
		return RecordResult{ID: rec.ID, Outcome: OutcomeSkipped, Reason: SkippedReasonExists}
	}

	if err := p.repo.SetRegistryID(ctx, rec.ID, id); err != nil {
		log.Error("Failed to backfill registry id", err, map[string]interface{}{
			"record_id":   rec.ID,
			"registry_id": id,
		})
		return RecordResult{ID: rec.ID, Outcome: OutcomeFailed, Reason: err.Error()}
	}

	rec.RegistryID = &id

	log.Info("Record synchronized", map[string]interface{}{
		"record_id":   rec.ID,
		"registry_id": id,
	})

	return RecordResult{ID: rec.ID, Outcome: OutcomeSucceeded, RegistryID: &id}
}

// recordIDs collects the ids of a record batch.
func recordIDs(records []*models.AddressRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}
