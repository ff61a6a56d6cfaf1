package services

import (
	"context"
	"fmt"

	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
	"github.com/stwalsh4118/addrsync/internal/repository"
)

// DecimalDegreesSRID is the SRID for WGS84 decimal degree coordinates, the
// default coordinate representation for registry sync.
const DecimalDegreesSRID = 4326

// GeometryProjector recomputes each record's planar X/Y attributes from its
// authoritative geometry.
type GeometryProjector struct {
	repo repository.AddressRepository
	log  *logger.Logger
}

// NewGeometryProjector creates a new GeometryProjector.
func NewGeometryProjector(repo repository.AddressRepository, log *logger.Logger) *GeometryProjector {
	return &GeometryProjector{
		repo: repo,
		log:  log.WithComponent("projector"),
	}
}

// Project stores planar coordinates in the requested SRID onto every record.
// Coordinates always come from a fresh read of the geometry column, so stale
// cached x/y values are overwritten unconditionally. No other field is
// touched.
func (p *GeometryProjector) Project(ctx context.Context, records []*models.AddressRecord, srid int) error {
	if len(records) == 0 {
		return nil
	}
	if srid <= 0 {
		return fmt.Errorf("invalid projection srid %d", srid)
	}

	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	coords, err := p.repo.Coordinates(ctx, ids, srid)
	if err != nil {
		return fmt.Errorf("failed to read authoritative coordinates: %w", err)
	}

	for _, rec := range records {
		c, ok := coords[rec.ID]
		if !ok {
			// Geometry should always exist; a gap means the record vanished
			// mid-run, which the sync stage will surface on its own.
			p.log.Warn("No geometry returned for record", map[string]interface{}{
				"record_id": rec.ID,
			})
			continue
		}

		x, y := c.X, c.Y
		rec.X = &x
		rec.Y = &y
	}

	p.log.Info("Coordinates projected", map[string]interface{}{
		"records": len(records),
		"srid":    srid,
	})

	return nil
}
