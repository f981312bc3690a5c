package dsire

import "strings"

var stateCodeToName = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

var stateNameToCode = func() map[string]string {
	m := make(map[string]string, len(stateCodeToName))
	for code, name := range stateCodeToName {
		m[strings.ToUpper(name)] = code
	}
	return m
}()

// NormalizeState maps a two-letter code or a full state name onto the
// two-letter code, or "" when unrecognized.
func NormalizeState(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return ""
	}
	upper := strings.ToUpper(s)
	if len(s) == 2 {
		if _, ok := stateCodeToName[upper]; ok {
			return upper
		}
	}
	return stateNameToCode[upper]
}

// StateName returns the full name for a two-letter code, or "" when unknown
func StateName(code string) string {
	return stateCodeToName[strings.ToUpper(strings.TrimSpace(code))]
}
