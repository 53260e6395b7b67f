// Package classify decides whether a discovered candidate is a real golf
// course or lodging property and assigns its subtype. Deny terms are checked
// before allow terms so that "mini golf" style noise never passes on a
// coincidental keyword.
package classify

import (
	"strings"

	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// courseDeny lists name fragments that disqualify a candidate as a course
// regardless of what else its name contains.
var courseDeny = []string{
	"mini golf",
	"minigolf",
	"miniature",
	"putt putt",
	"putt-putt",
	"adventure golf",
	"simulator",
	"driving range",
	"topgolf",
	"indoor golf",
	"golf cart",
	"cart rental",
	"golf shop",
	"pro shop",
	"golf store",
	"golf repair",
	"golf lessons",
	"golf academy",
	"disc golf",
	"footgolf",
	"arcade",
}

// courseDenyTypes lists provider place types that disqualify a candidate.
var courseDenyTypes = []string{
	"amusement_park",
	"bowling_alley",
	"movie_theater",
	"shopping_mall",
	"store",
	"restaurant",
	"bar",
	"night_club",
}

var courseAllow = []string{
	"golf course",
	"golf club",
	"country club",
	"golf links",
	"golf resort",
	"golf & country",
	"national golf",
}

var lodgingDeny = []string{
	"hostel",
	"rv park",
	"campground",
	"apartment",
	"extended stay",
}

var lodgingAllow = []string{
	"hotel",
	"resort",
	"inn",
	"lodge",
	"bed and breakfast",
	"bed & breakfast",
	"b&b",
	"suites",
}

// IsCourse reports whether a candidate should be treated as a playable golf
// course.
func IsCourse(c model.Candidate) bool {
	name := strings.ToLower(c.Name)
	for _, term := range courseDeny {
		if strings.Contains(name, term) {
			return false
		}
	}
	for _, t := range c.Types {
		for _, deny := range courseDenyTypes {
			if t == deny {
				return false
			}
		}
	}
	for _, t := range c.Types {
		if t == "golf_course" {
			return true
		}
	}
	for _, term := range courseAllow {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// IsLodging reports whether a candidate should be treated as a lodging
// property.
func IsLodging(c model.Candidate) bool {
	name := strings.ToLower(c.Name)
	for _, term := range lodgingDeny {
		if strings.Contains(name, term) {
			return false
		}
	}
	for _, t := range c.Types {
		if t == "lodging" || t == "hotel" {
			return true
		}
	}
	for _, term := range lodgingAllow {
		if strings.Contains(name, term) {
			return true
		}
	}
	return false
}

// CourseSubtype infers a course subtype from the candidate name. Matching is
// ordered: the first rule that fires wins, and unmatched names default to
// public.
func CourseSubtype(c model.Candidate) model.Subtype {
	name := strings.ToLower(c.Name)
	switch {
	case strings.Contains(name, "country club"):
		return model.SubtypePrivate
	case strings.Contains(name, "semi-private"), strings.Contains(name, "semi private"):
		return model.SubtypeSemiPrivate
	case strings.Contains(name, "private"):
		return model.SubtypePrivate
	case strings.Contains(name, "resort"):
		return model.SubtypeResortCourse
	case strings.Contains(name, "municipal"), strings.Contains(name, " muni"):
		return model.SubtypeMunicipal
	default:
		return model.SubtypePublic
	}
}

// LodgingSubtype infers a lodging subtype from the candidate name.
func LodgingSubtype(c model.Candidate) model.Subtype {
	name := strings.ToLower(c.Name)
	switch {
	case strings.Contains(name, "resort"):
		return model.SubtypeResortLodge
	case strings.Contains(name, "bed and breakfast"),
		strings.Contains(name, "bed & breakfast"),
		strings.Contains(name, "b&b"),
		strings.Contains(name, "inn"):
		return model.SubtypeBedBreakfast
	case strings.Contains(name, "lodge"):
		return model.SubtypeLodge
	default:
		return model.SubtypeHotel
	}
}

// Defaults holds fallback numeric attributes applied when enrichment returns
// unusable values.
type Defaults struct {
	Holes       int
	Par         int
	LengthYards int
}

// DefaultsFor returns the fallback course attributes for a subtype. Every
// subtype currently shares the regulation 18-hole profile; the indirection
// exists so executive and par-3 profiles can diverge later.
func DefaultsFor(subtype model.Subtype) Defaults {
	return Defaults{Holes: 18, Par: 72, LengthYards: 6500}
}
