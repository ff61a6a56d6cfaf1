package services

import (
	"errors"

	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
)

// ErrNoSelection indicates no address records are selected. It is fatal to
// the run; the pipeline must never silently fall back to the full dataset.
var ErrNoSelection = errors.New("no address records selected")

// RecordFilter restricts a run to the selected, not-yet-synchronized subset
// of address records.
type RecordFilter struct {
	log *logger.Logger
}

// NewRecordFilter creates a new RecordFilter.
func NewRecordFilter(log *logger.Logger) *RecordFilter {
	return &RecordFilter{
		log: log.WithComponent("filter"),
	}
}

// Select validates the caller's selection. An empty selection returns
// ErrNoSelection; anything else passes through unchanged.
func (f *RecordFilter) Select(records []*models.AddressRecord) ([]*models.AddressRecord, error) {
	if len(records) == 0 {
		f.log.Warn("Run requested with no selected records", nil)
		return nil, ErrNoSelection
	}

	f.log.Info("Selection validated", map[string]interface{}{
		"selected": len(records),
	})

	return records, nil
}

// ExcludeSynced drops records that already carry a registry identifier,
// preventing duplicate registry inserts on reruns. The operation is
// idempotent: applying it twice yields the same set as once.
func (f *RecordFilter) ExcludeSynced(records []*models.AddressRecord) []*models.AddressRecord {
	pending := make([]*models.AddressRecord, 0, len(records))
	for _, rec := range records {
		if rec.Synced() {
			continue
		}
		pending = append(pending, rec)
	}

	if dropped := len(records) - len(pending); dropped > 0 {
		f.log.Info("Excluded already-synchronized records", map[string]interface{}{
			"excluded": dropped,
			"pending":  len(pending),
		})
	}

	return pending
}
