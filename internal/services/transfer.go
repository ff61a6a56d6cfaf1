package services

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
	"github.com/stwalsh4118/addrsync/internal/repository"
)

// AttributeBinding binds a join-result value onto one target field of an
// address record. Assign owns the type conversion from whatever scalar form
// the join produced.
type AttributeBinding struct {
	Name   string
	Assign func(rec *models.AddressRecord, value interface{}) error
}

// BIABinding binds the BIA zone code. Join results can surface the code as
// any integer width or as a numeric string depending on the layer schema.
func BIABinding() AttributeBinding {
	return AttributeBinding{
		Name: "bia",
		Assign: func(rec *models.AddressRecord, value interface{}) error {
			code, err := cast.ToIntE(value)
			if err != nil {
				return fmt.Errorf("bia value %v (%T) is not an integer code: %w", value, value, err)
			}
			rec.BIA = &code
			return nil
		},
	}
}

// ParcelIDBinding binds the parcel identifier string.
func ParcelIDBinding() AttributeBinding {
	return AttributeBinding{
		Name: "parcel_id",
		Assign: func(rec *models.AddressRecord, value interface{}) error {
			id, err := cast.ToStringE(value)
			if err != nil {
				return fmt.Errorf("parcel id value %v (%T) is not a string: %w", value, value, err)
			}
			rec.ParcelID = &id
			return nil
		},
	}
}

// AttributeTransferEngine merges spatial join results back onto the target
// records.
type AttributeTransferEngine struct {
	log *logger.Logger
}

// NewAttributeTransferEngine creates a new AttributeTransferEngine.
func NewAttributeTransferEngine(log *logger.Logger) *AttributeTransferEngine {
	return &AttributeTransferEngine{
		log: log.WithComponent("transfer"),
	}
}

// Transfer overwrites the bound field on every record whose id appears in the
// join result, leaves all other records untouched, and returns the number of
// records updated. Unmatched targets are expected (a point can sit outside
// every polygon); a value that fails to convert is a schema mismatch and
// fails the transfer.
func (e *AttributeTransferEngine) Transfer(records []*models.AddressRecord, result *repository.JoinResult, binding AttributeBinding) (int, error) {
	updated := 0

	for _, rec := range records {
		value, ok := result.Values[rec.ID]
		if !ok {
			continue
		}

		if err := binding.Assign(rec, value); err != nil {
			return updated, fmt.Errorf("failed to transfer %s onto record %d: %w", binding.Name, rec.ID, err)
		}
		updated++
	}

	e.log.Info("Attribute transfer complete", map[string]interface{}{
		"attribute": binding.Name,
		"field":     result.Field,
		"matched":   len(result.Values),
		"updated":   updated,
		"targets":   len(records),
	})

	return updated, nil
}
