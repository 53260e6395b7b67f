// Package store persists regions and points of interest. PostgreSQL is the
// production backend; a SQLite twin exists for local development. Duplicate
// suppression across processes relies on the database's unique indexes, not
// in-process state.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("not found")

// Outcome reports what an upsert did.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// UpsertResult describes the persisted row after an upsert.
type UpsertResult struct {
	ID      int64
	Outcome Outcome
}

// Store is the persistence boundary for the pipeline.
type Store interface {
	// Migrate creates or updates the schema.
	Migrate(ctx context.Context) error

	// EnsureRegion inserts the region if missing and returns it either way.
	EnsureRegion(ctx context.Context, name, code string) (model.Region, error)
	// RegionByName looks a region up by its full name.
	RegionByName(ctx context.Context, name string) (model.Region, error)
	// ListRegions returns all regions ordered by name.
	ListRegions(ctx context.Context) ([]model.Region, error)

	// Upsert inserts or merges a point of interest. Identity is the
	// provider place ID when present, otherwise (kind, name key, region).
	// Existing non-empty fields are preserved when the incoming value is
	// empty.
	Upsert(ctx context.Context, poi *model.PointOfInterest) (UpsertResult, error)

	// ClaimPending atomically moves up to limit pending entities of the
	// given kind to in_progress, incrementing their attempt counters.
	// Entities whose counters have reached maxAttempts are never claimed,
	// so a repeatedly failing entity stops costing generation calls across
	// process restarts.
	ClaimPending(ctx context.Context, kind model.Kind, limit, maxAttempts int) ([]model.PointOfInterest, error)
	// CompleteEnrichment merges enriched fields and marks the entity
	// completed in one statement.
	CompleteEnrichment(ctx context.Context, id int64, fields model.EnrichedFields) error
	// ReleaseEnrichment returns a claimed entity to pending so a later run
	// can retry it.
	ReleaseEnrichment(ctx context.Context, id int64) error

	Close()
}
