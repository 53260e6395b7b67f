package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pittman021/golf-directory-sub000/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL))
}

func TestNearbySearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "33.450000,-112.070000", q.Get("location"))
		assert.Equal(t, "50000", q.Get("radius"))
		assert.Equal(t, "golf course", q.Get("keyword"))
		assert.Equal(t, "golf_course", q.Get("type"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "OK",
			"next_page_token": "tok-abc",
			"results": [{
				"place_id": "p1",
				"name": "Papago Golf Course",
				"geometry": {"location": {"lat": 33.4566, "lng": -111.9488}},
				"types": ["golf_course", "point_of_interest"],
				"vicinity": "5595 E Karsten Way, Phoenix",
				"rating": 4.5,
				"price_level": 2,
				"photos": [{"photo_reference": "ref1", "width": 4000, "height": 3000}]
			}]
		}`))
	})

	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{
		Lat:          33.45,
		Lng:          -112.07,
		RadiusMeters: 50000,
		Keyword:      "golf course",
		Type:         "golf_course",
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", resp.NextPageToken)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Papago Golf Course", resp.Results[0].Name)
	assert.Equal(t, 33.4566, resp.Results[0].Geometry.Location.Lat)
}

func TestNearbySearchPageToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-abc", r.URL.Query().Get("pagetoken"))
		w.Write([]byte(`{"status": "OK", "results": []}`))
	})

	_, err := c.NearbySearch(context.Background(), NearbySearchRequest{PageToken: "tok-abc"})
	require.NoError(t, err)
}

func TestNearbySearchZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{Keyword: "golf"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestNearbySearchStatusMapping(t *testing.T) {
	tests := []struct {
		status string
		code   ErrorCode
	}{
		{"OVER_QUERY_LIMIT", CodeQuota},
		{"REQUEST_DENIED", CodeDenied},
		{"INVALID_REQUEST", CodeInvalid},
		{"UNKNOWN_ERROR", CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status": "` + tt.status + `", "error_message": "boom"}`))
			})

			_, err := c.NearbySearch(context.Background(), NearbySearchRequest{Keyword: "golf"})
			require.Error(t, err)
			perr, ok := AsProviderError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, perr.Code)
			assert.Equal(t, tt.status, perr.Status)
		})
	}
}

func TestNearbySearchServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.NearbySearch(context.Background(), NearbySearchRequest{Keyword: "golf"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/place/details/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "p1", q.Get("place_id"))
		assert.Equal(t, "formatted_address,website", q.Get("fields"))

		w.Write([]byte(`{
			"status": "OK",
			"result": {
				"place_id": "p1",
				"formatted_address": "5595 E Karsten Way, Phoenix, AZ 85008, USA",
				"website": "https://papagogolf.example.com"
			}
		}`))
	})

	detail, err := c.Details(context.Background(), "p1", []string{"formatted_address", "website"})
	require.NoError(t, err)
	assert.Contains(t, detail.FormattedAddress, "AZ 85008")
	assert.NotEmpty(t, detail.Website)
}

func TestDetailsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "NOT_FOUND"}`))
	})

	_, err := c.Details(context.Background(), "missing", nil)
	require.Error(t, err)
	perr, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, CodeNotFound, perr.Code)
}

func TestReverseGeocode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "33.450000,-112.070000", r.URL.Query().Get("latlng"))

		w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Phoenix, AZ, USA",
				"address_components": [
					{"long_name": "Phoenix", "short_name": "Phoenix", "types": ["locality"]},
					{"long_name": "Arizona", "short_name": "AZ", "types": ["administrative_area_level_1", "political"]}
				]
			}]
		}`))
	})

	geo, err := c.ReverseGeocode(context.Background(), 33.45, -112.07)
	require.NoError(t, err)
	assert.Equal(t, "Arizona", geo.AdminArea)
	assert.Equal(t, "AZ", geo.AdminAreaCode)
}

func TestReverseGeocodeEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	geo, err := c.ReverseGeocode(context.Background(), 0.0, 0.0)
	require.NoError(t, err)
	assert.Empty(t, geo.AdminArea)
}

func TestPhotoURL(t *testing.T) {
	c := NewClient("api-key", WithPhotoKey("photo-key"))
	u := c.PhotoURL("ref1", 1200)
	assert.Contains(t, u, "photo_reference=ref1")
	assert.Contains(t, u, "maxwidth=1200")
	assert.Contains(t, u, "key=photo-key")
}

func TestNormalizeRating(t *testing.T) {
	assert.Equal(t, 4.5, NormalizeRating(4.5))
	assert.Equal(t, 5.0, NormalizeRating(7.2))
	assert.Equal(t, 0.0, NormalizeRating(-1))
	assert.Equal(t, 4.3, NormalizeRating(4.349))
}

func TestNormalizePriceLevel(t *testing.T) {
	assert.Equal(t, 0, NormalizePriceLevel(-3))
	assert.Equal(t, 2, NormalizePriceLevel(2))
	assert.Equal(t, 4, NormalizePriceLevel(9))
}
