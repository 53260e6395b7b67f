package discover

import (
	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// Strategy is one provider search: a keyword and optional place type executed
// against every search point in the area. Strategies run in order and the run
// can stop early when a completed strategy stops producing new entities.
type Strategy struct {
	Name    string
	Keyword string
	Type    string
	Kind    model.Kind
}

// Area is the geographic target of a run: a center point plus the region the
// results must belong to.
type Area struct {
	Label  string
	Region string
	Lat    float64
	Lng    float64
	// SatelliteKM expands the search into a ring of offset points around
	// the center when positive.
	SatelliteKM float64
}

// CourseStrategies returns the default keyword ladder for course discovery,
// ordered from highest to lowest expected precision.
func CourseStrategies() []Strategy {
	return []Strategy{
		{Name: "course-type", Keyword: "golf course", Type: "golf_course", Kind: model.KindCourse},
		{Name: "course-keyword", Keyword: "golf course", Kind: model.KindCourse},
		{Name: "club-keyword", Keyword: "golf club", Kind: model.KindCourse},
		{Name: "country-club", Keyword: "country club golf", Kind: model.KindCourse},
		{Name: "resort-course", Keyword: "golf resort", Kind: model.KindCourse},
	}
}

// LodgingStrategies returns the default keyword ladder for lodging discovery
// near courses.
func LodgingStrategies() []Strategy {
	return []Strategy{
		{Name: "lodging-type", Keyword: "hotel", Type: "lodging", Kind: model.KindLodging},
		{Name: "resort-lodging", Keyword: "golf resort hotel", Kind: model.KindLodging},
		{Name: "inn-keyword", Keyword: "inn", Kind: model.KindLodging},
	}
}

// StrategiesFor returns the default ladder for a kind.
func StrategiesFor(kind model.Kind) []Strategy {
	if kind == model.KindLodging {
		return LodgingStrategies()
	}
	return CourseStrategies()
}
