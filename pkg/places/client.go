// Package places wraps the Google Maps web services used by the pipeline:
// nearby search, place details, reverse geocoding, and photo URLs. Every call
// is synchronous and single-attempt; retry policy belongs to callers.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pittman021/golf-directory-sub000/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com"

// Client performs place-search and geocoding provider operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
	Details(ctx context.Context, placeID string, fields []string) (*Detail, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
	PhotoURL(photoRef string, maxWidth int) string
}

// NearbySearchRequest describes one page of a nearby search. PageToken, when
// set, continues a previous request; the provider requires a short delay
// before a fresh token becomes valid.
type NearbySearchRequest struct {
	Lat          float64
	Lng          float64
	RadiusMeters int
	Keyword      string
	Type         string
	PageToken    string
}

// NearbySearchResponse is one page of nearby-search results.
type NearbySearchResponse struct {
	Results       []Result
	NextPageToken string
}

// Result is a single raw place from a search page.
type Result struct {
	PlaceID    string     `json:"place_id"`
	Name       string     `json:"name"`
	Geometry   Geometry   `json:"geometry"`
	Types      []string   `json:"types"`
	Vicinity   string     `json:"vicinity"`
	Rating     float64    `json:"rating"`
	PriceLevel int        `json:"price_level"`
	Photos     []PhotoRef `json:"photos"`
}

// Geometry holds a result's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PhotoRef references a provider-hosted photo.
type PhotoRef struct {
	Reference string `json:"photo_reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Detail is the response of a place-details call.
type Detail struct {
	PlaceID          string     `json:"place_id"`
	Name             string     `json:"name"`
	FormattedAddress string     `json:"formatted_address"`
	FormattedPhone   string     `json:"formatted_phone_number"`
	Website          string     `json:"website"`
	Geometry         Geometry   `json:"geometry"`
	Types            []string   `json:"types"`
	Rating           float64    `json:"rating"`
	PriceLevel       int        `json:"price_level"`
	Photos           []PhotoRef `json:"photos"`
}

// GeocodeResult is the first result of a reverse-geocode call, reduced to
// the components the pipeline consumes.
type GeocodeResult struct {
	FormattedAddress string
	// AdminArea is the long name of the first-level administrative
	// component (the state), "" when the provider omitted it.
	AdminArea string
	// AdminAreaCode is the short name of the same component.
	AdminAreaCode string
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithPhotoKey sets a separate key for photo URL construction; some
// deployments restrict the search key to server-side referrers.
func WithPhotoKey(key string) Option {
	return func(c *httpClient) { c.photoKey = key }
}

type httpClient struct {
	apiKey   string
	photoKey string
	baseURL  string
	http     *http.Client
}

// NewClient creates a provider gateway with the given API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.photoKey == "" {
		c.photoKey = c.apiKey
	}
	return c
}

type nearbyEnvelope struct {
	Results       []Result `json:"results"`
	NextPageToken string   `json:"next_page_token"`
	Status        string   `json:"status"`
	ErrorMessage  string   `json:"error_message"`
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{"key": {c.apiKey}}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", fmt.Sprintf("%f,%f", req.Lat, req.Lng))
		params.Set("radius", fmt.Sprintf("%d", req.RadiusMeters))
		if req.Keyword != "" {
			params.Set("keyword", req.Keyword)
		}
		if req.Type != "" {
			params.Set("type", req.Type)
		}
	}

	var env nearbyEnvelope
	if err := c.get(ctx, "/maps/api/place/nearbysearch/json", params, &env); err != nil {
		return nil, err
	}
	if err := statusError(env.Status, env.ErrorMessage); err != nil {
		return nil, err
	}
	return &NearbySearchResponse{Results: env.Results, NextPageToken: env.NextPageToken}, nil
}

type detailEnvelope struct {
	Result       Detail `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (c *httpClient) Details(ctx context.Context, placeID string, fields []string) (*Detail, error) {
	if placeID == "" {
		return nil, eris.New("places: details: empty place id")
	}
	params := url.Values{
		"key":      {c.apiKey},
		"place_id": {placeID},
	}
	if len(fields) > 0 {
		params.Set("fields", strings.Join(fields, ","))
	}

	var env detailEnvelope
	if err := c.get(ctx, "/maps/api/place/details/json", params, &env); err != nil {
		return nil, err
	}
	if env.Status == "ZERO_RESULTS" {
		return nil, &ProviderError{Code: CodeNotFound, Status: env.Status}
	}
	if err := statusError(env.Status, env.ErrorMessage); err != nil {
		return nil, err
	}
	return &env.Result, nil
}

type geocodeEnvelope struct {
	Results []struct {
		FormattedAddress  string `json:"formatted_address"`
		AddressComponents []struct {
			LongName  string   `json:"long_name"`
			ShortName string   `json:"short_name"`
			Types     []string `json:"types"`
		} `json:"address_components"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (c *httpClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	params := url.Values{
		"key":    {c.apiKey},
		"latlng": {fmt.Sprintf("%f,%f", lat, lng)},
	}

	var env geocodeEnvelope
	if err := c.get(ctx, "/maps/api/geocode/json", params, &env); err != nil {
		return nil, err
	}
	if err := statusError(env.Status, env.ErrorMessage); err != nil {
		return nil, err
	}
	if len(env.Results) == 0 {
		return &GeocodeResult{}, nil
	}

	first := env.Results[0]
	out := &GeocodeResult{FormattedAddress: first.FormattedAddress}
	for _, comp := range first.AddressComponents {
		for _, t := range comp.Types {
			if t == "administrative_area_level_1" {
				out.AdminArea = comp.LongName
				out.AdminAreaCode = comp.ShortName
			}
		}
	}
	return out, nil
}

// PhotoURL builds the provider photo URL for a reference at the given width.
func (c *httpClient) PhotoURL(photoRef string, maxWidth int) string {
	if photoRef == "" {
		return ""
	}
	if maxWidth <= 0 {
		maxWidth = 800
	}
	params := url.Values{
		"maxwidth":        {fmt.Sprintf("%d", maxWidth)},
		"photo_reference": {photoRef},
		"key":             {c.photoKey},
	}
	return c.baseURL + "/maps/api/place/photo?" + params.Encode()
}

// get performs one GET and decodes the JSON body. Transport failures and
// retryable HTTP statuses are wrapped as transient so callers can classify.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "places: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "places: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "places: read response"), resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}

// statusError converts a provider status into an error. OK and ZERO_RESULTS
// are success (with or without data).
func statusError(status, message string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	}
	return &ProviderError{Code: codeForStatus(status), Status: status, Message: message}
}

// NormalizeRating clamps a provider rating into [0,5] and rounds it to one
// decimal, the precision the provider reports.
func NormalizeRating(r float64) float64 {
	if r < 0 || math.IsNaN(r) {
		return 0
	}
	if r > 5 {
		r = 5
	}
	return math.Round(r*10) / 10
}

// NormalizePriceLevel clamps a provider price tier into [0,4].
func NormalizePriceLevel(p int) int {
	if p < 0 {
		return 0
	}
	if p > 4 {
		return 4
	}
	return p
}
