package model

import "fmt"

// Contact matrix dimensions.  A contact is one logged interaction with a
// member of the public, classified by ethnicity, gender and age band.  The
// composite key for a matrix cell is the plain concatenation
// `{ethnicity}{gender}{ageBand}` (e.g. "whiteMaleUnder13"), which is the
// exact key format stored in the `contact_statistics` JSON column.

// Ethnicities in declared order.
var Ethnicities = []string{"white", "afroCaribbean", "asian", "easternEuropean"}

// Genders in declared order.
var Genders = []string{"Male", "Female"}

// AgeBands in declared order.
var AgeBands = []string{"Under13", "13To17", "18To25", "Over25"}

// EthnicityLabels maps ethnicity keys to display labels.
var EthnicityLabels = map[string]string{
	"white":           "White",
	"afroCaribbean":   "Afro/Caribbean",
	"asian":           "Asian",
	"easternEuropean": "Eastern European",
}

// AgeBandLabels maps age-band keys to display labels.
var AgeBandLabels = map[string]string{
	"Under13": "Under 13",
	"13To17":  "13-17",
	"18To25":  "18-25",
	"Over25":  "Over 25",
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ContactKey builds the composite matrix key for the given dimensions.  It
// rejects any value outside the fixed domain so unknown keys can never be
// introduced into a patrol's contact statistics.
func ContactKey(ethnicity, gender, ageBand string) (string, error) {
	if !contains(Ethnicities, ethnicity) {
		return "", fmt.Errorf("unknown ethnicity %q", ethnicity)
	}
	if !contains(Genders, gender) {
		return "", fmt.Errorf("unknown gender %q", gender)
	}
	if !contains(AgeBands, ageBand) {
		return "", fmt.Errorf("unknown age band %q", ageBand)
	}
	return ethnicity + gender + ageBand, nil
}

// ContactKeys returns all 32 composite keys, ethnicity-major then age band
// then gender, matching the order a new patrol's matrix is initialized in.
func ContactKeys() []string {
	keys := make([]string, 0, len(Ethnicities)*len(Genders)*len(AgeBands))
	for _, e := range Ethnicities {
		for _, a := range AgeBands {
			for _, g := range Genders {
				keys = append(keys, e+g+a)
			}
		}
	}
	return keys
}

// ZeroContactStatistics returns a StatMap with all 32 cells present and
// zero, matching what a freshly created patrol stores.
func ZeroContactStatistics() StatMap {
	keys := ContactKeys()
	m := make(StatMap, len(keys))
	for _, k := range keys {
		m[k] = 0
	}
	return m
}
