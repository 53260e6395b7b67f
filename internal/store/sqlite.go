package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// SQLite implements Store on a local file for development. It is a
// single-process sink: identity is still resolved before write, but with a
// lookup inside a transaction rather than the partial-index conflict targets
// PostgreSQL uses.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates the database file.
func NewSQLite(path string) (*SQLite, error) {
	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open sqlite %s", path)
	}
	handle.SetMaxOpenConns(1)
	if _, err := handle.Exec(`PRAGMA journal_mode = WAL; PRAGMA foreign_keys = ON;`); err != nil {
		handle.Close()
		return nil, eris.Wrap(err, "store: sqlite pragmas")
	}
	return &SQLite{db: handle}, nil
}

func (s *SQLite) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("sqlite close", zap.Error(err))
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS regions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	code        TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS points_of_interest (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	kind                TEXT NOT NULL,
	place_id            TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL,
	name_key            TEXT NOT NULL,
	lat                 REAL NOT NULL DEFAULT 0,
	lng                 REAL NOT NULL DEFAULT 0,
	region_id           INTEGER NOT NULL REFERENCES regions(id),
	subtype             TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	website             TEXT NOT NULL DEFAULT '',
	address             TEXT NOT NULL DEFAULT '',
	description         TEXT NOT NULL DEFAULT '',
	tags                TEXT NOT NULL DEFAULT '[]',
	holes               INTEGER,
	par                 INTEGER,
	length_yards        INTEGER,
	rating              REAL NOT NULL DEFAULT 0,
	price_level         INTEGER NOT NULL DEFAULT 0,
	photo_url           TEXT NOT NULL DEFAULT '',
	image_url           TEXT NOT NULL DEFAULT '',
	image_public_id     TEXT NOT NULL DEFAULT '',
	notes               TEXT NOT NULL DEFAULT '',
	enrichment_status   TEXT NOT NULL DEFAULT 'pending',
	enrichment_attempts INTEGER NOT NULL DEFAULT 0,
	last_attempted_at   TIMESTAMP,
	created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS poi_place_id_idx
	ON points_of_interest (place_id) WHERE place_id <> '';

CREATE UNIQUE INDEX IF NOT EXISTS poi_name_region_idx
	ON points_of_interest (kind, name_key, region_id) WHERE place_id = '';
`

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return eris.Wrap(err, "store: sqlite migrate")
	}
	return nil
}

func (s *SQLite) EnsureRegion(ctx context.Context, name, code string) (model.Region, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regions (name, code) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET code = excluded.code`,
		name, code)
	if err != nil {
		return model.Region{}, eris.Wrapf(err, "store: ensure region %s", name)
	}
	return s.RegionByName(ctx, name)
}

func (s *SQLite) RegionByName(ctx context.Context, name string) (model.Region, error) {
	var r model.Region
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, code, created_at FROM regions WHERE name = ?`,
		name,
	).Scan(&r.ID, &r.Name, &r.Code, &r.CreatedAt)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return model.Region{}, eris.Wrapf(ErrNotFound, "store: region %s", name)
		}
		return model.Region{}, eris.Wrapf(err, "store: region by name %s", name)
	}
	return r, nil
}

func (s *SQLite) ListRegions(ctx context.Context) ([]model.Region, error) {
	rows, err := s.db.QueryContext(ctx, `
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

func (s *SQLite) Upsert(ctx context.Context, poi *model.PointOfInterest) (UpsertResult, error) {
	if poi.RegionID == 0 {
		return UpsertResult{}, eris.New("store: upsert without region")
	}
	if poi.NameKey == "" {
		poi.NameKey = model.NormalizeName(poi.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, eris.Wrap(err, "store: begin upsert")
	}
	defer tx.Rollback()

	var existing int64
	if poi.PlaceID != "" {
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM points_of_interest WHERE place_id = ?`, poi.PlaceID,
		).Scan(&existing)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM points_of_interest
			 WHERE place_id = '' AND kind = ? AND name_key = ? AND region_id = ?`,
			poi.Kind, poi.NameKey, poi.RegionID,
		).Scan(&existing)
	}

	tags, merr := json.Marshal(poi.Tags)
	if merr != nil {
		return UpsertResult{}, eris.Wrap(merr, "store: encode tags")
	}

	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE points_of_interest SET
				name            = ?,
				lat             = ?,
				lng             = ?,
				subtype         = CASE WHEN ? <> '' THEN ? ELSE subtype END,
				phone           = CASE WHEN ? <> '' THEN ? ELSE phone END,
				website         = CASE WHEN ? <> '' THEN ? ELSE website END,
				address         = CASE WHEN ? <> '' THEN ? ELSE address END,
				description     = CASE WHEN ? <> '' THEN ? ELSE description END,
				tags            = CASE WHEN ? <> '[]' THEN ? ELSE tags END,
				holes           = COALESCE(?, holes),
				par             = COALESCE(?, par),
				length_yards    = COALESCE(?, length_yards),
				rating          = CASE WHEN ? > 0 THEN ? ELSE rating END,
				price_level     = CASE WHEN ? > 0 THEN ? ELSE price_level END,
				photo_url       = CASE WHEN ? <> '' THEN ? ELSE photo_url END,
				notes           = CASE WHEN ? <> '' THEN ? ELSE notes END,
				updated_at      = CURRENT_TIMESTAMP
			WHERE id = ?`,
			poi.Name, poi.Lat, poi.Lng,
			poi.Subtype, poi.Subtype,
			poi.Phone, poi.Phone,
			poi.Website, poi.Website,
			poi.Address, poi.Address,
			poi.Description, poi.Description,
			string(tags), string(tags),
			poi.Holes, poi.Par, poi.LengthYards,
			poi.Rating, poi.Rating,
			poi.PriceLevel, poi.PriceLevel,
			poi.PhotoURL, poi.PhotoURL,
			poi.Notes, poi.Notes,
			existing)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "store: update %s", poi.Name)
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, eris.Wrap(err, "store: commit upsert")
		}
		poi.ID = existing
		return UpsertResult{ID: existing, Outcome: OutcomeUpdated}, nil

	case eris.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO points_of_interest (
				kind, place_id, name, name_key, lat, lng, region_id, subtype,
				phone, website, address, description, tags,
				holes, par, length_yards, rating, price_level, photo_url, notes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			poi.Kind, poi.PlaceID, poi.Name, poi.NameKey, poi.Lat, poi.Lng, poi.RegionID, poi.Subtype,
			poi.Phone, poi.Website, poi.Address, poi.Description, string(tags),
			poi.Holes, poi.Par, poi.LengthYards, poi.Rating, poi.PriceLevel, poi.PhotoURL, poi.Notes)
		if err != nil {
			return UpsertResult{}, eris.Wrapf(err, "store: insert %s", poi.Name)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return UpsertResult{}, eris.Wrap(err, "store: last insert id")
		}
		if err := tx.Commit(); err != nil {
			return UpsertResult{}, eris.Wrap(err, "store: commit upsert")
		}
		poi.ID = id
		return UpsertResult{ID: id, Outcome: OutcomeCreated}, nil

	default:
		return UpsertResult{}, eris.Wrapf(err, "store: lookup %s", poi.Name)
	}
}

func (s *SQLite) ClaimPending(ctx context.Context, kind model.Kind, limit, maxAttempts int) ([]model.PointOfInterest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, place_id, name, name_key, lat, lng, region_id, subtype,
			phone, website, address, description, tags,
			holes, par, length_yards, rating, price_level,
			photo_url, image_url, image_public_id, notes,
			enrichment_status, enrichment_attempts, last_attempted_at,
			created_at, updated_at
		FROM points_of_interest
		WHERE kind = ? AND enrichment_status = 'pending'
			AND enrichment_attempts < ?
		ORDER BY id LIMIT ?`,
		kind, maxAttempts, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: claim pending")
	}
	defer rows.Close()

	var claimed []model.PointOfInterest
	for rows.Next() {
		var (
			p    model.PointOfInterest
			tags string
			last sql.NullTime
		)
		err := rows.Scan(
			&p.ID, &p.Kind, &p.PlaceID, &p.Name, &p.NameKey, &p.Lat, &p.Lng, &p.RegionID, &p.Subtype,
			&p.Phone, &p.Website, &p.Address, &p.Description, &tags,
			&p.Holes, &p.Par, &p.LengthYards, &p.Rating, &p.PriceLevel,
			&p.PhotoURL, &p.ImageURL, &p.ImagePublicID, &p.Notes,
			&p.EnrichmentStatus, &p.EnrichmentAttempts, &last,
			&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan claimed")
		}
		if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
			return nil, eris.Wrap(err, "store: decode tags")
		}
		if last.Valid {
			t := last.Time
			p.LastAttemptedAt = &t
		}
		claimed = append(claimed, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: claim pending rows")
	}

	now := time.Now().UTC()
	for i := range claimed {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE points_of_interest SET
				enrichment_status   = 'in_progress',
				enrichment_attempts = enrichment_attempts + 1,
				last_attempted_at   = ?
			WHERE id = ?`,
			now, claimed[i].ID); err != nil {
			return nil, eris.Wrapf(err, "store: mark in progress %d", claimed[i].ID)
		}
		claimed[i].EnrichmentStatus = model.EnrichmentInProgress
		claimed[i].EnrichmentAttempts++
		claimed[i].LastAttemptedAt = &now
	}
	return claimed, nil
}

func (s *SQLite) CompleteEnrichment(ctx context.Context, id int64, f model.EnrichedFields) error {
	tags, err := json.Marshal(f.Tags)
	if err != nil {
		return eris.Wrap(err, "store: encode tags")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE points_of_interest SET
			subtype         = CASE WHEN ? <> '' THEN ? ELSE subtype END,
			description     = CASE WHEN ? <> '' THEN ? ELSE description END,
			tags            = CASE WHEN ? <> '[]' THEN ? ELSE tags END,
			phone           = CASE WHEN ? <> '' THEN ? ELSE phone END,
			website         = CASE WHEN ? <> '' THEN ? ELSE website END,
			holes           = CASE WHEN ? > 0 THEN ? ELSE holes END,
			par             = CASE WHEN ? > 0 THEN ? ELSE par END,
			length_yards    = CASE WHEN ? > 0 THEN ? ELSE length_yards END,
			notes           = CASE WHEN ? <> '' THEN ? ELSE notes END,
			image_url       = CASE WHEN ? <> '' THEN ? ELSE image_url END,
			image_public_id = CASE WHEN ? <> '' THEN ? ELSE image_public_id END,
			enrichment_status = 'completed',
			updated_at      = CURRENT_TIMESTAMP
		WHERE id = ?`,
		f.Subtype, f.Subtype,
		f.Description, f.Description,
		string(tags), string(tags),
		f.Phone, f.Phone,
		f.Website, f.Website,
		f.Holes, f.Holes,
		f.Par, f.Par,
		f.LengthYards, f.LengthYards,
		f.Notes, f.Notes,
		f.ImageURL, f.ImageURL,
		f.ImagePublicID, f.ImagePublicID,
		id)
	if err != nil {
		return eris.Wrapf(err, "store: complete enrichment %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "store: complete enrichment %d", id)
	}
	return nil
}

func (s *SQLite) ReleaseEnrichment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE points_of_interest SET
			enrichment_status = 'pending',
			updated_at        = CURRENT_TIMESTAMP
		WHERE id = ?`,
		id)
	if err != nil {
		return eris.Wrapf(err, "store: release enrichment %d", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "store: release enrichment %d", id)
	}
	return nil
}
