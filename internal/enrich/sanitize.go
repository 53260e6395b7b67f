package enrich

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pittman021/golf-directory-sub000/internal/classify"
	"github.com/pittman021/golf-directory-sub000/internal/model"
)

// courseTagVocab is the closed vocabulary for course tags. Anything the
// model invents outside this set is dropped.
var courseTagVocab = map[string]bool{
	"links":        true,
	"parkland":     true,
	"desert":       true,
	"mountain":     true,
	"coastal":      true,
	"wooded":       true,
	"water":        true,
	"championship": true,
	"executive":    true,
	"par_3":        true,
	"walkable":     true,
	"resort":       true,
	"historic":     true,
	"traditional":  true,
}

// lodgingTagVocab is the closed vocabulary for lodging tags.
var lodgingTagVocab = map[string]bool{
	"on_course":    true,
	"near_course":  true,
	"spa":          true,
	"pool":         true,
	"restaurant":   true,
	"pet_friendly": true,
	"budget":       true,
	"luxury":       true,
	"historic":     true,
	"traditional":  true,
}

// fallbackTag is applied when no valid tags survive sanitization.
const fallbackTag = "traditional"

// flexInt tolerates numbers, numeric strings and null. Anything unparsable
// decodes to zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		// Try a float the model rendered like "72.0".
		if fl, ferr := strconv.ParseFloat(strings.TrimSpace(s), 64); ferr == nil {
			*f = flexInt(int(fl))
			return nil
		}
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

// flexStrings tolerates a bare string where an array was expected.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*f = nil
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var arr []string
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		*f = arr
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*f = []string{single}
	return nil
}

// rawEnrichment is the loosely typed payload as the model emits it.
type rawEnrichment struct {
	Subtype      string      `json:"subtype"`
	Description  string      `json:"description"`
	CourseTags   flexStrings `json:"course_tags"`
	Tags         flexStrings `json:"tags"`
	Phone        string      `json:"phone"`
	Website      string      `json:"website"`
	Holes        flexInt     `json:"holes"`
	Par          flexInt     `json:"par"`
	LengthYards  flexInt     `json:"length_yards"`
	OfficialName string      `json:"official_name"`
	Notes        string      `json:"notes"`
}

// Sanitize converts a raw model payload into fields safe to merge. Invalid
// subtypes are discarded, non-positive course numerics fall back to the
// subtype defaults, tags are filtered against the closed vocabulary, and the
// official name is recorded in notes rather than replacing the stored name.
func Sanitize(kind model.Kind, currentSubtype model.Subtype, currentName string, raw rawEnrichment) model.EnrichedFields {
	fields := model.EnrichedFields{
		Description: strings.TrimSpace(raw.Description),
		Phone:       strings.TrimSpace(raw.Phone),
		Website:     strings.TrimSpace(raw.Website),
		Notes:       strings.TrimSpace(raw.Notes),
	}

	subtype := model.Subtype(strings.TrimSpace(strings.ToLower(raw.Subtype)))
	if model.SubtypesFor(kind)[subtype] {
		fields.Subtype = subtype
	}

	effective := fields.Subtype
	if effective == "" {
		effective = currentSubtype
	}

	if kind == model.KindCourse {
		d := classify.DefaultsFor(effective)
		fields.Holes = positiveOr(int(raw.Holes), d.Holes)
		fields.Par = positiveOr(int(raw.Par), d.Par)
		fields.LengthYards = positiveOr(int(raw.LengthYards), d.LengthYards)
	}

	vocab := courseTagVocab
	if kind == model.KindLodging {
		vocab = lodgingTagVocab
	}
	fields.Tags = sanitizeTags(append(raw.CourseTags, raw.Tags...), vocab)

	if official := strings.TrimSpace(raw.OfficialName); official != "" && !strings.EqualFold(official, currentName) {
		note := "official name: " + official
		if fields.Notes != "" {
			fields.Notes += "; " + note
		} else {
			fields.Notes = note
		}
	}

	return fields
}

func sanitizeTags(raw []string, vocab map[string]bool) []string {
	seen := map[string]bool{}
	var tags []string
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(t, " ", "_")))
		if t == "" || seen[t] || !vocab[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) == 0 {
		return []string{fallbackTag}
	}
	return tags
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
