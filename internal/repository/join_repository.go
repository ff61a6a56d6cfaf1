package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/stwalsh4118/addrsync/internal/database"
)

// ErrLayerMissing indicates a required reference polygon layer does not exist
// in the GIS store. It aborts the enrichment stage that needed the layer.
var ErrLayerMissing = errors.New("reference layer not found")

// AmbiguousFieldError indicates the joined attribute column could not be
// resolved to exactly one result column. This is a schema mismatch, not a
// data problem, and is fatal to the run.
type AmbiguousFieldError struct {
	Base       string
	Candidates []string
}

func (e *AmbiguousFieldError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("no join result column matches attribute %q", e.Base)
	}
	return fmt.Sprintf("attribute %q matches multiple join result columns: %s",
		e.Base, strings.Join(e.Candidates, ", "))
}

// JoinResult is the outcome of a spatial join between the address points and
// one reference polygon layer. Field carries the resolved result-column
// identity, fixed once at query time; Values maps each matched target record
// id to the joined attribute value. Targets that intersect no polygon are
// simply absent from Values.
type JoinResult struct {
	Field  string
	Values map[int64]interface{}
}

// SpatialJoinRepository defines the interface for spatial join operations
// against reference polygon layers.
type SpatialJoinRepository interface {
	// LayerExists reports whether the named reference layer is present.
	LayerExists(ctx context.Context, layer string) (bool, error)

	// JoinAttribute performs a one-to-one intersection join between the given
	// address records and the reference layer, returning the named attribute
	// per matched record. At most one polygon's value is kept per record.
	JoinAttribute(ctx context.Context, layer, attribute string, ids []int64) (*JoinResult, error)
}

// spatialJoinRepository is the concrete implementation of SpatialJoinRepository.
type spatialJoinRepository struct {
	db           *database.Database
	addressTable string
}

// NewSpatialJoinRepository creates a new instance of SpatialJoinRepository
// joining against the configured address point table.
func NewSpatialJoinRepository(db *database.Database, addressTable string) SpatialJoinRepository {
	return &spatialJoinRepository{
		db:           db,
		addressTable: addressTable,
	}
}

// LayerExists checks the layer name against the catalog with to_regclass.
func (r *spatialJoinRepository) LayerExists(ctx context.Context, layer string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, layer).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check reference layer %q: %w", layer, err)
	}
	return exists, nil
}

// JoinAttribute joins the address points against the reference layer by
// intersection. The query selects every reference column, so a reference
// column colliding with an address column comes back under a store-renamed
// alias; ResolveJoinedField locates the requested attribute among the result
// columns once, and the resolved identity travels with the JoinResult.
func (r *spatialJoinRepository) JoinAttribute(ctx context.Context, layer, attribute string, ids []int64) (*JoinResult, error) {
	exists, err := r.LayerExists(ctx, layer)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrLayerMissing, layer)
	}

	// DISTINCT ON keeps at most one polygon per target record
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (a.id) a.id AS target_id, p.*
		FROM %s a
		JOIN %s p ON ST_Intersects(a.geom, p.geom)
		WHERE a.id = ANY($1)
		ORDER BY a.id
	`, pgx.Identifier{r.addressTable}.Sanitize(), pgx.Identifier{layer}.Sanitize())

	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to join %q against %q: %w", r.addressTable, layer, err)
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, fd.Name)
	}

	fieldIdx, fieldName, err := ResolveJoinedField(columns, attribute)
	if err != nil {
		return nil, err
	}

	result := &JoinResult{
		Field:  fieldName,
		Values: make(map[int64]interface{}),
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read join row: %w", err)
		}

		targetID, ok := values[0].(int64)
		if !ok {
			return nil, fmt.Errorf("unexpected target id type %T in join result", values[0])
		}

		// A NULL attribute on the matched polygon is treated as no match;
		// absent entries never overwrite target values downstream.
		if values[fieldIdx] == nil {
			continue
		}

		result.Values[targetID] = values[fieldIdx]
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating join rows: %w", err)
	}

	return result, nil
}

// ResolveJoinedField locates the result column carrying the joined attribute.
// The first column is the target id and never a candidate. A reference column
// whose name collides with an address column is renamed by the store with a
// suffix, so matching is by prefix; zero or multiple candidates mean the
// schemas drifted and the caller must not guess.
func ResolveJoinedField(columns []string, attribute string) (int, string, error) {
	idx := -1
	var candidates []string

	for i, name := range columns {
		if i == 0 {
			continue
		}
		if strings.HasPrefix(name, attribute) {
			candidates = append(candidates, name)
			idx = i
		}
	}

	if len(candidates) != 1 {
		return 0, "", &AmbiguousFieldError{Base: attribute, Candidates: candidates}
	}

	return idx, candidates[0], nil
}
