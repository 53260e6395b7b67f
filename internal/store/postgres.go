package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pittman021/golf-directory-sub000/internal/db"
	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS regions (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	code        TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS points_of_interest (
	id                  BIGSERIAL PRIMARY KEY,
	kind                TEXT NOT NULL,
	place_id            TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL,
	name_key            TEXT NOT NULL,
	lat                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	lng                 DOUBLE PRECISION NOT NULL DEFAULT 0,
	region_id           BIGINT NOT NULL REFERENCES regions(id),
	subtype             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	website             TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	tags                TEXT[] NOT NULL DEFAULT '{}',
	holes               INT,
	par                 INT,
	length_yards        INT,
	rating              DOUBLE PRECISION NOT NULL DEFAULT 0,
	price_level         INT NOT NULL DEFAULT 0,
	photo_url           TEXT NOT NULL DEFAULT '',
	image_url           TEXT NOT NULL DEFAULT '',
	image_public_id     TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	enrichment_status   TEXT NOT NULL DEFAULT 'pending',
	enrichment_attempts INT NOT NULL DEFAULT 0,
	last_attempted_at   TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS poi_place_id_idx
	ON points_of_interest (place_id) WHERE place_id <> '';

CREATE UNIQUE INDEX IF NOT EXISTS poi_name_region_idx
	ON points_of_interest (kind, name_key, region_id) WHERE place_id = '';

CREATE INDEX IF NOT EXISTS poi_enrichment_idx
	ON points_of_interest (kind, enrichment_status);
`

// Migrate creates the schema if needed.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	zap.L().Info("schema ready")
	return nil
}

func (s *Postgres) EnsureRegion(ctx context.Context, name, code string) (model.Region, error) {
	var r model.Region
	err := s.pool.QueryRow(ctx, `
		INSERT INTO regions (name, code) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET code = EXCLUDED.code
		RETURNING id, name, code, created_at`,
		name, code,
	).Scan(&r.ID, &r.Name, &r.Code, &r.CreatedAt)
	if err != nil {
		return model.Region{}, eris.Wrapf(err, "store: ensure region %s", name)
	}
	return r, nil
}

func (s *Postgres) RegionByName(ctx context.Context, name string) (model.Region, error) {
	var r model.Region
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, code, created_at FROM regions WHERE name = $1`,
		name,
	).Scan(&r.ID, &r.Name, &r.Code, &r.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return model.Region{}, eris.Wrapf(ErrNotFound, "store: region %s", name)
		}
		return model.Region{}, eris.Wrapf(err, "store: region by name %s", name)
	}
	return r, nil
}

func (s *Postgres) ListRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, code, created_at FROM regions ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "store: list regions")
	}
	defer rows.Close()

	var regions []model.Region
	for rows.Next() {
		var r model.Region
		if err := rows.Scan(&r.ID, &r.Name, &r.Code, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan region")
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

// upsertByPlaceID and upsertByNameKey differ only in the conflict target.
// EXCLUDED values merge over existing rows with empty-wins-never semantics:
// an empty incoming string or null numeric never clobbers a stored value.
const upsertColumns = `
	kind, place_id, name, name_key, lat, lng, region_id, subtype,
	phone, website, address, description, tags,
	holes, par, length_yards, rating, price_level,
	photo_url, notes`

const upsertValues = `
	$1, $2, $3, $4, $5, $6, $7, $8,
	$9, $10, $11, $12, $13,
	$14, $15, $16, $17, $18,
	$19, $20`

const upsertMerge = `
	name            = EXCLUDED.name,
	lat             = EXCLUDED.lat,
	lng             = EXCLUDED.lng,
	subtype         = COALESCE(NULLIF(EXCLUDED.subtype, ''), points_of_interest.subtype),
	phone           = COALESCE(NULLIF(EXCLUDED.phone, ''), points_of_interest.phone),
	website         = COALESCE(NULLIF(EXCLUDED.website, ''), points_of_interest.website),
	address         = COALESCE(NULLIF(EXCLUDED.address, ''), points_of_interest.address),
	description     = COALESCE(NULLIF(EXCLUDED.description, ''), points_of_interest.description),
	tags            = CASE WHEN cardinality(EXCLUDED.tags) > 0 THEN EXCLUDED.tags ELSE points_of_interest.tags END,
	holes           = COALESCE(EXCLUDED.holes, points_of_interest.holes),
	par             = COALESCE(EXCLUDED.par, points_of_interest.par),
	length_yards    = COALESCE(EXCLUDED.length_yards, points_of_interest.length_yards),
	rating          = CASE WHEN EXCLUDED.rating > 0 THEN EXCLUDED.rating ELSE points_of_interest.rating END,
	price_level     = CASE WHEN EXCLUDED.price_level > 0 THEN EXCLUDED.price_level ELSE points_of_interest.price_level END,
	photo_url       = COALESCE(NULLIF(EXCLUDED.photo_url, ''), points_of_interest.photo_url),
	notes           = COALESCE(NULLIF(EXCLUDED.notes, ''), points_of_interest.notes),
	updated_at      = now()`

func (s *Postgres) Upsert(ctx context.Context, poi *model.PointOfInterest) (UpsertResult, error) {
	if poi.RegionID == 0 {
		return UpsertResult{}, eris.New("store: upsert without region")
	}
	if poi.NameKey == "" {
		poi.NameKey = model.NormalizeName(poi.Name)
	}

	conflict := `(place_id) WHERE place_id <> ''`
	if poi.PlaceID == "" {
		conflict = `(kind, name_key, region_id) WHERE place_id = ''`
	}

	query := `
		INSERT INTO points_of_interest (` + upsertColumns + `)
		VALUES (` + upsertValues + `)
		ON CONFLICT ` + conflict + ` DO UPDATE SET ` + upsertMerge + `
		RETURNING id, (xmax = 0)`

	var (
		id      int64
		created bool
	)
	err := s.pool.QueryRow(ctx, query,
		poi.Kind, poi.PlaceID, poi.Name, poi.NameKey, poi.Lat, poi.Lng, poi.RegionID, poi.Subtype,
		poi.Phone, poi.Website, poi.Address, poi.Description, poi.Tags,
		poi.Holes, poi.Par, poi.LengthYards, poi.Rating, poi.PriceLevel,
		poi.PhotoURL, poi.Notes,
	).Scan(&id, &created)
	if err != nil {
		return UpsertResult{}, eris.Wrapf(err, "store: upsert %s", poi.Name)
	}

	poi.ID = id
	outcome := OutcomeUpdated
	if created {
		outcome = OutcomeCreated
	}
	return UpsertResult{ID: id, Outcome: outcome}, nil
}

const poiColumns = `
	id, kind, place_id, name, name_key, lat, lng, region_id, subtype,
	phone, website, address, description, tags,
	holes, par, length_yards, rating, price_level,
	photo_url, image_url, image_public_id, notes,
	enrichment_status, enrichment_attempts, last_attempted_at,
	created_at, updated_at`

func scanPOI(row pgx.Row) (model.PointOfInterest, error) {
	var p model.PointOfInterest
	err := row.Scan(
		&p.ID, &p.Kind, &p.PlaceID, &p.Name, &p.NameKey, &p.Lat, &p.Lng, &p.RegionID, &p.Subtype,
		&p.Phone, &p.Website, &p.Address, &p.Description, &p.Tags,
		&p.Holes, &p.Par, &p.LengthYards, &p.Rating, &p.PriceLevel,
		&p.PhotoURL, &p.ImageURL, &p.ImagePublicID, &p.Notes,
		&p.EnrichmentStatus, &p.EnrichmentAttempts, &p.LastAttemptedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

// ClaimPending claims pending rows with SKIP LOCKED so concurrent workers
// never double-claim. Rows whose attempt counters have reached the ceiling
// are left alone.
func (s *Postgres) ClaimPending(ctx context.Context, kind model.Kind, limit, maxAttempts int) ([]model.PointOfInterest, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE points_of_interest SET
			enrichment_status   = 'in_progress',
			enrichment_attempts = enrichment_attempts + 1,
			last_attempted_at   = now()
		WHERE id IN (
			SELECT id FROM points_of_interest
			WHERE kind = $1 AND enrichment_status = 'pending'
				AND enrichment_attempts < $2
			ORDER BY id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+poiColumns,
		kind, maxAttempts, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: claim pending")
	}
	defer rows.Close()

	var claimed []model.PointOfInterest
	for rows.Next() {
		p, err := scanPOI(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan claimed")
		}
		claimed = append(claimed, p)
	}
	return claimed, rows.Err()
}

func (s *Postgres) CompleteEnrichment(ctx context.Context, id int64, f model.EnrichedFields) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE points_of_interest SET
			subtype         = COALESCE(NULLIF($2, ''), subtype),
			description     = COALESCE(NULLIF($3, ''), description),
			tags            = CASE WHEN cardinality($4::text[]) > 0 THEN $4::text[] ELSE tags END,
			phone           = COALESCE(NULLIF($5, ''), phone),
			website         = COALESCE(NULLIF($6, ''), website),
			holes           = CASE WHEN $7 > 0 THEN $7 ELSE holes END,
			par             = CASE WHEN $8 > 0 THEN $8 ELSE par END,
			length_yards    = CASE WHEN $9 > 0 THEN $9 ELSE length_yards END,
			notes           = COALESCE(NULLIF($10, ''), notes),
			image_url       = COALESCE(NULLIF($11, ''), image_url),
			image_public_id = COALESCE(NULLIF($12, ''), image_public_id),
			enrichment_status = 'completed',
			updated_at      = now()
		WHERE id = $1`,
		id, string(f.Subtype), f.Description, f.Tags, f.Phone, f.Website,
		f.Holes, f.Par, f.LengthYards, f.Notes, f.ImageURL, f.ImagePublicID)
	if err != nil {
		return eris.Wrapf(err, "store: complete enrichment %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "store: complete enrichment %d", id)
	}
	return nil
}

func (s *Postgres) ReleaseEnrichment(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE points_of_interest SET
			enrichment_status = 'pending',
			updated_at        = now()
		WHERE id = $1`,
		id)
	if err != nil {
		return eris.Wrapf(err, "store: release enrichment %d", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "store: release enrichment %d", id)
	}
	return nil
}
