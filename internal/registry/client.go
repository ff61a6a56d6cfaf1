package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/addrsync/internal/config"
	"github.com/stwalsh4118/addrsync/internal/database"
)

// DuplicateSentinel is the identifier the registry procedure returns when the
// record already exists. The meaning is an external contract documented by
// the registry owners; this service never reinterprets it.
const DuplicateSentinel int64 = -1

// UpsertParams is the registry procedure's fixed parameter schema. The field
// correspondence to AddressRecord is static and lives in BuildParams.
type UpsertParams struct {
	HouseNumber     *string
	PrefixDirection *string
	StreetName      *string
	StreetType      *string
	SuffixDirection *string
	UnitType        *string
	UnitNumber      *string
	City            *string
	Province        *string
	PostalCode      *string
	Plat            *string
	Lot             *string
	Block           *string
	Subdivision     *string
	Section         *int
	Township        *string
	Range           *string
	ProjectRef      *string
	CreatedAt       time.Time
	EditedBy        *string
	EditedAt        *time.Time
	ParcelID        *string
	X               *float64
	Y               *float64
	BIA             *int
}

// Client is the capability interface for the external registry. Upsert
// executes one transactional upsert and returns the registry identifier, or
// DuplicateSentinel if the record already exists.
//
// The default implementation uses one connection and one transaction per
// call, committed before the next record begins. That serialization is the
// documented policy, not an accident: it prevents duplicate-identifier races
// between overlapping transactions against the same procedure. An
// implementation that batches or pools must preserve that guarantee.
type Client interface {
	Upsert(ctx context.Context, params UpsertParams) (int64, error)
}

// procClient invokes the registry stored procedure over pgx.
type procClient struct {
	db        *database.Database
	procedure string
}

// NewClient creates a registry Client bound to the given registry database
// and procedure name.
func NewClient(db *database.Database, cfg config.RegistryConfig) Client {
	return &procClient{
		db:        db,
		procedure: cfg.Procedure,
	}
}

// Upsert acquires a connection, opens a transaction, invokes the procedure,
// and commits. Errors are returned as-is for the caller to classify; there is
// no retry here because the procedure is not guaranteed idempotent beyond the
// duplicate sentinel.
func (c *procClient) Upsert(ctx context.Context, p UpsertParams) (int64, error) {
	conn, err := c.db.Pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire registry connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin registry transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	query := fmt.Sprintf(`
		SELECT %s(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25
		)
	`, c.procedure)

	var id int64
	err = tx.QueryRow(ctx, query,
		p.HouseNumber,
		p.PrefixDirection,
		p.StreetName,
		p.StreetType,
		p.SuffixDirection,
		p.UnitType,
		p.UnitNumber,
		p.City,
		p.Province,
		p.PostalCode,
		p.Plat,
		p.Lot,
		p.Block,
		p.Subdivision,
		p.Section,
		p.Township,
		p.Range,
		p.ProjectRef,
		p.CreatedAt,
		p.EditedBy,
		p.EditedAt,
		p.ParcelID,
		p.X,
		p.Y,
		p.BIA,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("registry upsert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit registry transaction: %w", err)
	}

	return id, nil
}
