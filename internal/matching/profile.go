package matching

import (
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
)

// Profile is the normalized form of the user's raw facet selections used
// for catalog scoring. Bucket values are representative points inside the
// selected range; nil means the axis was not selected.
type Profile struct {
	Years     *int
	Revenue   *float64
	Employees *int
	Needs     []string
	Profiles  []string
	Location  string
	Stage     string
}

// The phrase tables below are data, not code: they carry the French
// business-support wording the selection values use. Extending a locale or
// domain means extending these tables, not the parser.

type stageBucket struct {
	phrases []string
	stage   string
	years   int
}

var stageBuckets = []stageBucket{
	{phrases: []string{"idée", "projet"}, stage: "idée", years: 0},
	{phrases: []string{"< 2 ans", "jeune"}, stage: "jeune", years: 1},
	{phrases: []string{"2-5 ans", "établie"}, stage: "établie", years: 3},
	{phrases: []string{"> 5 ans", "mature"}, stage: "mature", years: 6},
}

type revenueBucket struct {
	phrases []string
	all     []string
	amount  float64
}

var revenueBuckets = []revenueBucket{
	{phrases: []string{"pas encore"}, amount: 0},
	{phrases: []string{"moins de 50", "< 50"}, amount: 25000},
	{all: []string{"50 000", "100 000"}, amount: 75000},
	{all: []string{"100 000", "500 000"}, amount: 250000},
	{phrases: []string{"plus de 500", "> 500"}, amount: 600000},
}

type employeeBucket struct {
	phrases []string
	count   int
}

var employeeBuckets = []employeeBucket{
	{phrases: []string{"solo", "seul"}, count: 0},
	{phrases: []string{"1 à 5", "1-5"}, count: 3},
	{phrases: []string{"6 à 20", "6-20"}, count: 10},
	{phrases: []string{"plus de 20", "> 20"}, count: 25},
}

type needEntry struct {
	need    string
	phrases []string
}

var needTable = []needEntry{
	{need: "financement", phrases: []string{"financement", "prêt", "subvention", "investisseur", "garantie"}},
	{need: "formation", phrases: []string{"formation", "gestion", "digital", "commercial", "export"}},
	{need: "accompagnement", phrases: []string{"accompagnement", "mentorat", "coaching", "réseau", "conseil"}},
	{need: "recrutement", phrases: []string{"recrutement", "alternance", "stage", "cdi", "équipe"}},
	{need: "formalités", phrases: []string{"formalités", "création", "modification", "certifications"}},
}

type profileTag struct {
	tag     string
	phrases []string
}

var profileTags = []profileTag{
	{tag: "femme", phrases: []string{"femme"}},
	{tag: "jeune", phrases: []string{"jeune", "< 26"}},
	{tag: "senior", phrases: []string{"senior", "> 50"}},
	{tag: "handicap", phrases: []string{"handicap", "rqth"}},
	{tag: "demandeur_emploi", phrases: []string{"demandeur", "chômage"}},
	{tag: "rsa", phrases: []string{"rsa"}},
}

var idfMarkers = []string{"île-de-france", "idf", "paris", "93", "seine-saint-denis"}

// ParseProfile maps raw facet selections to a normalized profile using the
// phrase tables above. It is a pure function; unmatched values simply
// leave their axis unset.
func ParseProfile(selections domain.Selections) Profile {
	var profile Profile

	for facetID, selected := range selections {
		if selected == nil {
			continue
		}
		value := strings.ToLower(*selected)

		switch facetID {
		case "business_stage":
			for _, bucket := range stageBuckets {
				if containsAny(value, bucket.phrases) {
					years := bucket.years
					profile.Stage = bucket.stage
					profile.Years = &years
					break
				}
			}

		case "revenue_range":
			for _, bucket := range revenueBuckets {
				if matchesBucket(value, bucket) {
					amount := bucket.amount
					profile.Revenue = &amount
					break
				}
			}

		case "employees":
			for _, bucket := range employeeBuckets {
				if containsAny(value, bucket.phrases) {
					count := bucket.count
					profile.Employees = &count
					break
				}
			}

		case "main_need":
			for _, entry := range needTable {
				if containsAny(value, entry.phrases) {
					profile.Needs = append(profile.Needs, entry.need)
				}
			}

		case "profile":
			for _, entry := range profileTags {
				if containsAny(value, entry.phrases) {
					profile.Profiles = append(profile.Profiles, entry.tag)
				}
			}

		case "location":
			profile.Location = value
			if containsAny(value, idfMarkers) {
				profile.Location = "ile-de-france"
			}
		}
	}

	return profile
}

func containsAny(value string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(value, phrase) {
			return true
		}
	}
	return false
}

func matchesBucket(value string, bucket revenueBucket) bool {
	if len(bucket.all) > 0 {
		for _, phrase := range bucket.all {
			if !strings.Contains(value, phrase) {
				return false
			}
		}
		return true
	}
	return containsAny(value, bucket.phrases)
}
