// Package region resolves candidate coordinates and addresses to US state
// regions and enforces that a candidate actually lies in the region a search
// strategy targeted.
package region

import (
	"context"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/pittman021/golf-directory-sub000/internal/model"
	"github.com/pittman021/golf-directory-sub000/pkg/places"
)

// Resolution is the outcome of resolving a candidate to a region.
type Resolution struct {
	// Name is the full region name, e.g. "Arizona". Empty when unresolved.
	Name string
	// Code is the two-letter region code, e.g. "AZ". Empty when unresolved.
	Code string
	// Source records which signal produced the resolution: "geocode",
	// "address" or "details".
	Source string
}

// Verifier resolves candidates to regions using reverse geocoding with
// address parsing as a fallback.
type Verifier struct {
	places places.Client
}

// NewVerifier returns a Verifier backed by the given places client.
func NewVerifier(client places.Client) *Verifier {
	return &Verifier{places: client}
}

// Resolve determines the region a candidate belongs to. Resolution order is
// reverse geocoding of the coordinates, then parsing the candidate's own
// address strings, then a details lookup for the formatted address. When a
// signal is unavailable, transport errors included, the next one applies; an
// error is returned only for quota or access failures that the caller must
// not swallow. A zero Resolution with nil error means the region could not
// be determined.
func (v *Verifier) Resolve(ctx context.Context, c model.Candidate) (Resolution, error) {
	if c.Lat != 0 || c.Lng != 0 {
		geo, err := v.places.ReverseGeocode(ctx, c.Lat, c.Lng)
		switch {
		case err != nil:
			if fatal := providerFailure(err); fatal != nil {
				return Resolution{}, fatal
			}
			zap.L().Debug("reverse geocode unavailable",
				zap.String("name", c.Name), zap.Error(err))
		case geo.AdminAreaCode != "" && places.RegionNameForCode(geo.AdminAreaCode) != "":
			return Resolution{
				Name:   places.RegionNameForCode(geo.AdminAreaCode),
				Code:   geo.AdminAreaCode,
				Source: "geocode",
			}, nil
		case geo.AdminArea != "":
			if code := places.RegionCodeForName(geo.AdminArea); code != "" {
				return Resolution{Name: places.RegionNameForCode(code), Code: code, Source: "geocode"}, nil
			}
		}
	}

	for _, addr := range []string{c.FormattedAddress, c.Vicinity} {
		if res, ok := ParseRegion(addr); ok {
			res.Source = "address"
			return res, nil
		}
	}

	if c.PlaceID != "" {
		detail, err := v.places.Details(ctx, c.PlaceID, []string{"formatted_address"})
		if err != nil {
			if fatal := providerFailure(err); fatal != nil {
				return Resolution{}, fatal
			}
			zap.L().Debug("details lookup unavailable",
				zap.String("place_id", c.PlaceID), zap.Error(err))
		} else if res, ok := ParseRegion(detail.FormattedAddress); ok {
			res.Source = "details"
			return res, nil
		}
	}

	zap.L().Debug("region unresolved",
		zap.String("place_id", c.PlaceID),
		zap.String("name", c.Name))
	return Resolution{}, nil
}

// providerFailure returns the error when it signals a quota or access
// problem nothing downstream can recover from, nil otherwise.
func providerFailure(err error) error {
	if perr, ok := places.AsProviderError(err); ok {
		if perr.Code == places.CodeQuota || perr.Code == places.CodeDenied {
			return err
		}
	}
	return nil
}

// Verify resolves the candidate's region and checks it against the expected
// region name. It returns the resolution, whether it matched, and a rejection
// reason when it did not. A non-nil error means resolution failed in a way
// the caller must handle rather than reject the candidate for.
func (v *Verifier) Verify(ctx context.Context, c model.Candidate, expected string) (Resolution, bool, string, error) {
	res, err := v.Resolve(ctx, c)
	if err != nil {
		return Resolution{}, false, "", err
	}
	if res.Name == "" {
		return res, false, model.ReasonRegionUnknown, nil
	}
	if !strings.EqualFold(res.Name, expected) {
		return res, false, model.ReasonRegionMismatch, nil
	}
	return res, true, "", nil
}

// ParseRegion extracts a US state from a formatted address. It scans comma
// segments from the end looking for a two-letter state code (optionally
// followed by a ZIP) or a full state name. The trailing segment is usually a
// country, so all segments are considered.
func ParseRegion(address string) (Resolution, bool) {
	if address == "" {
		return Resolution{}, false
	}
	segments := strings.Split(address, ",")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := strings.TrimSpace(segments[i])
		if seg == "" {
			continue
		}
		if res, ok := parseSegment(seg); ok {
			return res, true
		}
	}
	return Resolution{}, false
}

func parseSegment(seg string) (Resolution, bool) {
	fields := strings.Fields(seg)
	if len(fields) == 0 {
		return Resolution{}, false
	}

	// "AZ" or "AZ 85001".
	first := fields[0]
	if len(first) == 2 && isUpperAlpha(first) {
		if len(fields) == 1 || isZIP(fields[1]) {
			if name := places.RegionNameForCode(first); name != "" {
				return Resolution{Name: name, Code: first}, true
			}
		}
	}

	// Full state name, possibly with a trailing ZIP.
	candidate := seg
	if last := fields[len(fields)-1]; isZIP(last) {
		candidate = strings.TrimSpace(strings.TrimSuffix(seg, last))
	}
	if code := places.RegionCodeForName(candidate); code != "" {
		return Resolution{Name: places.RegionNameForCode(code), Code: code}, true
	}
	return Resolution{}, false
}

func isUpperAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) || r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isZIP(s string) bool {
	if len(s) != 5 && !(len(s) == 10 && s[5] == '-') {
		return false
	}
	for i, r := range s {
		if i == 5 && len(s) == 10 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
