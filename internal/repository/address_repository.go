package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/addrsync/internal/database"
	"github.com/stwalsh4118/addrsync/internal/models"
)

// Coordinate is a planar coordinate pair read from a record's authoritative
// geometry at query time.
type Coordinate struct {
	X float64
	Y float64
}

// AddressRepository defines the interface for address point data access.
type AddressRepository interface {
	// ListByIDs returns the records with the given ids, ordered by id.
	// Unknown ids are simply absent from the result; the pipeline decides
	// whether an empty result is fatal.
	ListByIDs(ctx context.Context, ids []int64) ([]*models.AddressRecord, error)

	// ListSelected returns all records currently marked selected.
	// Returns an empty slice if nothing is selected (not an error; the
	// pipeline decides whether that is fatal).
	ListSelected(ctx context.Context) ([]*models.AddressRecord, error)

	// Coordinates reads the current geometry of the given records and returns
	// planar X/Y per record id, transformed into the requested SRID. The read
	// always goes to the geometry column, never to the cached x/y attributes.
	Coordinates(ctx context.Context, ids []int64, srid int) (map[int64]Coordinate, error)

	// UpdateDerived persists the enrichment outputs (parcel_id, bia, x, y)
	// for a single record.
	UpdateDerived(ctx context.Context, rec *models.AddressRecord) error

	// SetRegistryID backfills the registry-assigned identifier onto a record.
	// The write is guarded so an already-assigned identifier is never
	// overwritten; attempting to do so is an error.
	SetRegistryID(ctx context.Context, id int64, registryID int64) error
}

// addressRepository is the concrete implementation of AddressRepository.
type addressRepository struct {
	db    *database.Database
	table string
}

// NewAddressRepository creates a new instance of AddressRepository reading
// from the configured address point table.
func NewAddressRepository(db *database.Database, table string) AddressRepository {
	return &addressRepository{
		db:    db,
		table: table,
	}
}

// addressColumns is the column list shared by address record queries.
const addressColumns = `
		id,
		selected,
		house_number,
		prefix_direction,
		street_name,
		street_type,
		suffix_direction,
		unit_type,
		unit_number,
		city,
		province,
		postal_code,
		plat,
		lot,
		block,
		subdivision,
		section,
		township,
		range,
		project_ref,
		parcel_id,
		bia,
		x,
		y,
		registry_id,
		ST_AsGeoJSON(geom) as geometry,
		created_at,
		edited_by,
		edited_at`

// ListByIDs queries the address table for the given record ids, ordered by
// id so runs are deterministic.
func (r *addressRepository) ListByIDs(ctx context.Context, ids []int64) ([]*models.AddressRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = ANY($1)
		ORDER BY id
	`, addressColumns, pgx.Identifier{r.table}.Sanitize())

	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query address records by id: %w", err)
	}
	defer rows.Close()

	return collectAddressRecords(rows)
}

// ListSelected queries the address table for all records marked selected,
// ordered by id so runs are deterministic.
func (r *addressRepository) ListSelected(ctx context.Context) ([]*models.AddressRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE selected = true
		ORDER BY id
	`, addressColumns, pgx.Identifier{r.table}.Sanitize())

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query selected address records: %w", err)
	}
	defer rows.Close()

	return collectAddressRecords(rows)
}

// collectAddressRecords drains a result set into records. An empty result is
// an empty slice, not an error.
func collectAddressRecords(rows pgx.Rows) ([]*models.AddressRecord, error) {
	var records []*models.AddressRecord

	for rows.Next() {
		rec, err := scanAddressRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address record rows: %w", err)
	}

	if records == nil {
		records = []*models.AddressRecord{}
	}

	return records, nil
}

// scanAddressRecord scans one address row, parsing the GeoJSON geometry
// column through the Point scanner.
func scanAddressRecord(rows pgx.Rows) (*models.AddressRecord, error) {
	var rec models.AddressRecord
	var geomJSON []byte

	err := rows.Scan(
		&rec.ID,
		&rec.Selected,
		&rec.HouseNumber,
		&rec.PrefixDirection,
		&rec.StreetName,
		&rec.StreetType,
		&rec.SuffixDirection,
		&rec.UnitType,
		&rec.UnitNumber,
		&rec.City,
		&rec.Province,
		&rec.PostalCode,
		&rec.Plat,
		&rec.Lot,
		&rec.Block,
		&rec.Subdivision,
		&rec.Section,
		&rec.Township,
		&rec.Range,
		&rec.ProjectRef,
		&rec.ParcelID,
		&rec.BIA,
		&rec.X,
		&rec.Y,
		&rec.RegistryID,
		&geomJSON,
		&rec.CreatedAt,
		&rec.EditedBy,
		&rec.EditedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan address record row: %w", err)
	}

	if err := rec.Geom.Scan(geomJSON); err != nil {
		return nil, fmt.Errorf("failed to parse geometry for record %d: %w", rec.ID, err)
	}

	return &rec, nil
}

// Coordinates reads planar coordinates straight from the geometry column for
// the given record ids. ST_Transform reprojects into the requested SRID; for
// 4326 the result is decimal degrees.
func (r *addressRepository) Coordinates(ctx context.Context, ids []int64, srid int) (map[int64]Coordinate, error) {
	query := fmt.Sprintf(`
		SELECT
			id,
			ST_X(ST_Transform(geom, $2)) as x,
			ST_Y(ST_Transform(geom, $2)) as y
		FROM %s
		WHERE id = ANY($1)
	`, pgx.Identifier{r.table}.Sanitize())

	rows, err := r.db.Pool.Query(ctx, query, ids, srid)
	if err != nil {
		return nil, fmt.Errorf("failed to query coordinates (srid=%d): %w", srid, err)
	}
	defer rows.Close()

	coords := make(map[int64]Coordinate, len(ids))

	for rows.Next() {
		var id int64
		var c Coordinate
		if err := rows.Scan(&id, &c.X, &c.Y); err != nil {
			return nil, fmt.Errorf("failed to scan coordinate row: %w", err)
		}
		coords[id] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coordinate rows: %w", err)
	}

	return coords, nil
}

// UpdateDerived persists the derived fields of one record. The values are
// overwritten wholesale; the enrichment stages own them.
func (r *addressRepository) UpdateDerived(ctx context.Context, rec *models.AddressRecord) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parcel_id = $2, bia = $3, x = $4, y = $5
		WHERE id = $1
	`, pgx.Identifier{r.table}.Sanitize())

	tag, err := r.db.Pool.Exec(ctx, query, rec.ID, rec.ParcelID, rec.BIA, rec.X, rec.Y)
	if err != nil {
		return fmt.Errorf("failed to update derived fields for record %d: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d not found while updating derived fields", rec.ID)
	}

	return nil
}

// SetRegistryID writes the registry identifier onto a record. The WHERE
// clause requires registry_id to still be NULL, which enforces the
// set-at-most-once invariant at the storage layer.
func (r *addressRepository) SetRegistryID(ctx context.Context, id int64, registryID int64) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET registry_id = $2
		WHERE id = $1 AND registry_id IS NULL
	`, pgx.Identifier{r.table}.Sanitize())

	tag, err := r.db.Pool.Exec(ctx, query, id, registryID)
	if err != nil {
		return fmt.Errorf("failed to set registry id for record %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %d missing or registry id already assigned", id)
	}

	return nil
}
