package places

import (
	"sort"
	"strings"
)

// stateNames maps USPS two-letter codes to full state names. The table is an
// explicit immutable lookup owned by the gateway so callers never depend on
// ambient constants or environment setup.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia",
	"HI": "Hawaii", "ID": "Idaho", "IL": "Illinois", "IN": "Indiana",
	"IA": "Iowa", "KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana",
	"ME": "Maine", "MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan",
	"MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri", "MT": "Montana",
	"NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey",
	"NM": "New Mexico", "NY": "New York", "NC": "North Carolina",
	"ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "RI": "Rhode Island", "SC": "South Carolina",
	"SD": "South Dakota", "TN": "Tennessee", "TX": "Texas", "UT": "Utah",
	"VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// stateCodes is the reverse of stateNames, keyed by lowercase full name.
var stateCodes = func() map[string]string {
	m := make(map[string]string, len(stateNames))
	for code, name := range stateNames {
		m[strings.ToLower(name)] = code
	}
	return m
}()

// RegionNameForCode resolves a two-letter region code to its full name.
// Returns "" for unknown codes.
func RegionNameForCode(code string) string {
	return stateNames[strings.ToUpper(strings.TrimSpace(code))]
}

// RegionCodeForName resolves a full region name (case-insensitive) to its
// two-letter code. Returns "" for unknown names.
func RegionCodeForName(name string) string {
	return stateCodes[strings.ToLower(strings.TrimSpace(name))]
}

// IsRegionName reports whether name is a known region's full name.
func IsRegionName(name string) bool {
	return RegionCodeForName(name) != ""
}

// AllRegionNames returns every known region name sorted alphabetically.
func AllRegionNames() []string {
	names := make([]string, 0, len(stateNames))
	for _, name := range stateNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
