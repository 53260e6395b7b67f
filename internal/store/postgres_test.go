package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pittman021/golf-directory-sub000/internal/model"
)

func newMockStore(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgres(mock), mock
}

func TestEnsureRegion(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO regions").
		WithArgs("Arizona", "AZ").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code", "created_at"}).
			AddRow(int64(1), "Arizona", "AZ", now))

	r, err := s.EnsureRegion(context.Background(), "Arizona", "AZ")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, "AZ", r.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegionByNameMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, code, created_at FROM regions").
		WithArgs("Atlantis").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "code", "created_at"}))

	_, err := s.RegionByName(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertCreated(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`ON CONFLICT \(place_id\)`).
		WithArgs(model.KindCourse, "ChIJabc", "Desert Ridge Golf Course", "desert ridge golf course",
			pgxmock.AnyArg(), pgxmock.AnyArg(), int64(1), model.SubtypePublic,
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "?column?"}).
			AddRow(int64(42), true))

	poi := &model.PointOfInterest{
		Kind:     model.KindCourse,
		PlaceID:  "ChIJabc",
		Name:     "Desert Ridge Golf Course",
		RegionID: 1,
		Subtype:  model.SubtypePublic,
	}
	res, err := s.Upsert(context.Background(), poi)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, res.Outcome)
	assert.Equal(t, int64(42), poi.ID)
	assert.NotEmpty(t, poi.NameKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUpdatedByNameKey(t *testing.T) {
	s, mock := newMockStore(t)

	// Without a provider place ID the conflict target is the fallback
	// identity (kind, name_key, region_id).
	mock.ExpectQuery(`ON CONFLICT \(kind, name_key, region_id\)`).
		WithArgs(model.KindCourse, "", "Café Golf Club", "cafe golf club",
			pgxmock.AnyArg(), pgxmock.AnyArg(), int64(2), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "?column?"}).
			AddRow(int64(7), false))

	poi := &model.PointOfInterest{
		Kind:     model.KindCourse,
		Name:     "Café Golf Club",
		RegionID: 2,
	}
	res, err := s.Upsert(context.Background(), poi)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, "cafe golf club", poi.NameKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRequiresRegion(t *testing.T) {
	s, _ := newMockStore(t)

	_, err := s.Upsert(context.Background(), &model.PointOfInterest{
		Kind: model.KindCourse,
		Name: "Orphan Links",
	})
	require.Error(t, err)
}

func poiRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "kind", "place_id", "name", "name_key", "lat", "lng", "region_id", "subtype",
		"phone", "website", "address", "description", "tags",
		"holes", "par", "length_yards", "rating", "price_level",
		"photo_url", "image_url", "image_public_id", "notes",
		"enrichment_status", "enrichment_attempts", "last_attempted_at",
		"created_at", "updated_at",
	})
}

func TestClaimPending(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("UPDATE points_of_interest").
		WithArgs(model.KindCourse, 3, 5).
		WillReturnRows(poiRows().AddRow(
			int64(3), model.KindCourse, "ChIJx", "Stone Creek GC", "stone creek gc", 33.5, -112.0, int64(1), model.SubtypePublic,
			"", "", "", "", []string{},
			nil, nil, nil, 4.5, 2,
			"", "", "", "",
			model.EnrichmentInProgress, 1, &now,
			now, now,
		))

	claimed, err := s.ClaimPending(context.Background(), model.KindCourse, 5, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, int64(3), claimed[0].ID)
	assert.Equal(t, model.EnrichmentInProgress, claimed[0].EnrichmentStatus)
	assert.Equal(t, 1, claimed[0].EnrichmentAttempts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimPendingExcludesExhaustedCounters(t *testing.T) {
	s, mock := newMockStore(t)

	// The claim filter must carry the attempt ceiling so entities that
	// burned through their attempts stop being picked up by later runs.
	mock.ExpectQuery(`enrichment_attempts < \$2`).
		WithArgs(model.KindCourse, 3, 5).
		WillReturnRows(poiRows())

	claimed, err := s.ClaimPending(context.Background(), model.KindCourse, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteEnrichment(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE points_of_interest").
		WithArgs(int64(3), "public", "A links-style course.", []string{"links"},
			"", "", 18, 72, 6800, "", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteEnrichment(context.Background(), 3, model.EnrichedFields{
		Subtype:     model.SubtypePublic,
		Description: "A links-style course.",
		Tags:        []string{"links"},
		Holes:       18,
		Par:         72,
		LengthYards: 6800,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteEnrichmentMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE points_of_interest").
		WithArgs(int64(99), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteEnrichment(context.Background(), 99, model.EnrichedFields{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReleaseEnrichment(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE points_of_interest").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.ReleaseEnrichment(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
