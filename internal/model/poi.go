// Package model defines the domain types shared across the discovery and
// enrichment pipeline.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind distinguishes the two point-of-interest families.
type Kind string

const (
	KindCourse  Kind = "course"
	KindLodging Kind = "lodging"
)

// Subtype is the closed classification of a point of interest.
type Subtype string

// Course subtypes.
const (
	SubtypePublic       Subtype = "public"
	SubtypePrivate      Subtype = "private"
	SubtypeSemiPrivate  Subtype = "semi_private"
	SubtypeResortCourse Subtype = "resort"
	SubtypeMunicipal    Subtype = "municipal"
)

// Lodging subtypes.
const (
	SubtypeHotel        Subtype = "hotel"
	SubtypeResortLodge  Subtype = "resort_lodge"
	SubtypeBedBreakfast Subtype = "bed_and_breakfast"
	SubtypeLodge        Subtype = "lodge"
)

// CourseSubtypes is the closed set of valid course subtypes.
var CourseSubtypes = map[Subtype]bool{
	SubtypePublic:       true,
	SubtypePrivate:      true,
	SubtypeSemiPrivate:  true,
	SubtypeResortCourse: true,
	SubtypeMunicipal:    true,
}

// LodgingSubtypes is the closed set of valid lodging subtypes.
var LodgingSubtypes = map[Subtype]bool{
	SubtypeHotel:        true,
	SubtypeResortLodge:  true,
	SubtypeBedBreakfast: true,
	SubtypeLodge:        true,
}

// SubtypesFor returns the closed subtype set for a kind.
func SubtypesFor(kind Kind) map[Subtype]bool {
	if kind == KindLodging {
		return LodgingSubtypes
	}
	return CourseSubtypes
}

// EnrichmentStatus tracks the per-entity enrichment lifecycle.
type EnrichmentStatus string

const (
	EnrichmentPending    EnrichmentStatus = "pending"
	EnrichmentInProgress EnrichmentStatus = "in_progress"
	EnrichmentCompleted  EnrichmentStatus = "completed"
)

// Candidate is a raw, unverified result from a place-search provider.
// Candidates are consumed within one pipeline run and never persisted.
type Candidate struct {
	PlaceID          string
	Name             string
	Lat              float64
	Lng              float64
	Types            []string
	Vicinity         string
	FormattedAddress string
	Rating           float64
	PriceLevel       int
	PhotoRefs        []string
	Website          string
	Phone            string
}

// Region is an administrative area (state-equivalent). Regions must exist
// before a PointOfInterest can reference them.
type Region struct {
	ID        int64
	Name      string
	Code      string
	CreatedAt time.Time
}

// PointOfInterest is a persisted course or lodging.
type PointOfInterest struct {
	ID         int64
	Kind       Kind
	PlaceID    string
	Name       string
	NameKey    string
	Lat        float64
	Lng        float64
	RegionID   int64
	RegionName string
	Subtype    Subtype

	Phone       string
	Website     string
	Address     string
	Description string
	Tags        []string

	// Course numerics; nil for lodgings.
	Holes       *int
	Par         *int
	LengthYards *int

	Rating     float64
	PriceLevel int

	PhotoURL      string
	ImageURL      string
	ImagePublicID string

	Notes string

	EnrichmentStatus   EnrichmentStatus
	EnrichmentAttempts int
	LastAttemptedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EnrichedFields is the sanitized output of one successful enrichment pass.
// The whole struct is merged into the entity in a single update.
type EnrichedFields struct {
	Subtype     Subtype
	Description string
	Tags        []string
	Phone       string
	Website     string
	Holes       int
	Par         int
	LengthYards int
	Notes       string

	ImageURL      string
	ImagePublicID string
}

// DedupKey identifies a candidate across strategies and runs. The external
// identifier wins; records without one fall back to the normalized name plus
// coordinates rounded to provider precision.
type DedupKey struct {
	PlaceID string
	NameKey string
	Lat     float64
	Lng     float64
}

// CoordPrecision is the decimal precision the provider reports coordinates
// at; the fallback dedup key rounds to it.
const CoordPrecision = 4

// KeyFor derives the dedup key for a candidate.
func KeyFor(c Candidate) DedupKey {
	if c.PlaceID != "" {
		return DedupKey{PlaceID: c.PlaceID}
	}
	return DedupKey{
		NameKey: NormalizeName(c.Name),
		Lat:     RoundCoord(c.Lat),
		Lng:     RoundCoord(c.Lng),
	}
}

// String renders the key for use as a map key and in logs.
func (k DedupKey) String() string {
	if k.PlaceID != "" {
		return "place:" + k.PlaceID
	}
	return fmt.Sprintf("name:%s@%.4f,%.4f", k.NameKey, k.Lat, k.Lng)
}

// RoundCoord rounds a coordinate to CoordPrecision decimals.
func RoundCoord(v float64) float64 {
	p := math.Pow10(CoordPrecision)
	return math.Round(v*p) / p
}

var nameNormalizer = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName lowercases a name, strips diacritics and punctuation, and
// collapses whitespace, producing the stable half of the fallback identity.
func NormalizeName(name string) string {
	stripped, _, err := transform.String(nameNormalizer, name)
	if err != nil {
		stripped = name
	}
	var b strings.Builder
	b.Grow(len(stripped))
	lastSpace := true
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// Rejection records why a candidate was not persisted, with enough context
// for manual review.
type Rejection struct {
	PlaceID string `json:"place_id,omitempty"`
	Name    string `json:"name"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// Rejection reason codes.
const (
	ReasonRegionMismatch = "region_mismatch"
	ReasonRegionUnknown  = "region_unknown"
	ReasonMissingRegion  = "missing_region"
	ReasonInvalidEntity  = "invalid_entity"
	ReasonValidation     = "validation"
	ReasonNoWebsite      = "no_website"
	ReasonMalformed      = "malformed_record"
)

// RunSummary is the operator-facing outcome of one pipeline run.
type RunSummary struct {
	RunID      string      `json:"run_id"`
	Area       string      `json:"area"`
	Region     string      `json:"region"`
	Created    int         `json:"created"`
	Updated    int         `json:"updated"`
	Rejected   int         `json:"rejected"`
	Failed     int         `json:"failed"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Reject appends a rejection and bumps the counter.
func (s *RunSummary) Reject(c Candidate, reason, detail string) {
	s.Rejected++
	s.Rejections = append(s.Rejections, Rejection{
		PlaceID: c.PlaceID,
		Name:    c.Name,
		Reason:  reason,
		Detail:  detail,
	})
}

// ValidationError reports mandatory fields missing on create.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing mandatory fields: " + strings.Join(e.Missing, ", ")
}

// Validate checks that a PointOfInterest carries every field the sink
// requires on create. Merge updates are exempt; only new entities pass
// through here.
func (p *PointOfInterest) Validate() error {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if p.Lat == 0 && p.Lng == 0 {
		missing = append(missing, "coordinates")
	}
	if p.RegionID == 0 {
		missing = append(missing, "region")
	}
	if p.Subtype == "" {
		missing = append(missing, "subtype")
	}
	if p.Kind == KindCourse {
		if p.Holes == nil || *p.Holes <= 0 {
			missing = append(missing, "holes")
		}
		if p.Par == nil || *p.Par <= 0 {
			missing = append(missing, "par")
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// IntPtr is a small helper for the course numeric fields.
func IntPtr(v int) *int { return &v }
