package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qda-labs/funnel/internal/domain"
)

// ScoredService is a catalog offering annotated with its match score and
// up to three human-readable match reasons.
type ScoredService struct {
	Service
	Score        float64  `json:"_score"`
	MatchReasons []string `json:"_match_reasons"`
}

// Catalog scores the service inventory against a user's selections.
type Catalog struct {
	services []Service
}

// NewCatalog loads the service inventory from the given JSON document.
// A missing file degrades to an empty catalog.
func NewCatalog(path string) (*Catalog, error) {
	var services []Service
	if err := loadList(path, "services", &services); err != nil {
		return nil, err
	}
	return &Catalog{services: services}, nil
}

// Services returns the loaded inventory.
func (c *Catalog) Services() []Service {
	return c.services
}

// ServiceByID returns a specific service, or nil when unknown.
func (c *Catalog) ServiceByID(id string) *Service {
	for i := range c.services {
		if c.services[i].ID == id {
			return &c.services[i]
		}
	}
	return nil
}

// FilterServices scores every offering against the parsed selections and
// returns the shortlist sorted by score descending, ties keeping inventory
// order. Offerings scoring zero or less are excluded. The result is never
// nil: an empty shortlist still marks the catalog branch as active.
func (c *Catalog) FilterServices(selections domain.Selections, maxResults int) []ScoredService {
	profile := ParseProfile(selections)

	scored := []ScoredService{}
	for _, service := range c.services {
		score := matchScore(service, profile)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredService{
			Service:      service,
			Score:        score,
			MatchReasons: matchReasons(service, profile),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}
	return scored
}

func intBound(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func floatBound(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

// matchScore computes the bounded additive score for one offering,
// clamped to [0, 1].
func matchScore(service Service, profile Profile) float64 {
	eligibility := service.Eligibility

	// Base score for being in the catalog at all.
	score := 0.1

	if profile.Years != nil {
		minYears := intBound(eligibility.MinYears, 0)
		maxYears := intBound(eligibility.MaxYears, 100)
		switch {
		case minYears <= *profile.Years && *profile.Years <= maxYears:
			score += 0.15
		case *profile.Years < minYears:
			score -= 0.05
		}
	}

	if profile.Revenue != nil {
		minRevenue := floatBound(eligibility.MinRevenue, 0)
		maxRevenue := floatBound(eligibility.MaxRevenue, math.Inf(1))
		switch {
		case minRevenue <= *profile.Revenue && *profile.Revenue <= maxRevenue:
			score += 0.15
		case *profile.Revenue < minRevenue:
			// Not eligible yet, but could become so.
			score += 0.02
		}
	}

	if profile.Employees != nil {
		minEmployees := intBound(eligibility.MinEmployees, 0)
		maxEmployees := intBound(eligibility.MaxEmployees, math.MaxInt32)
		if minEmployees <= *profile.Employees && *profile.Employees <= maxEmployees {
			score += 0.1
		}
	}

	for _, tag := range profile.Profiles {
		if containsString(eligibility.Profile, tag) {
			score += 0.25
		}
	}

	for _, need := range profile.Needs {
		if strings.Contains(service.Category, need) || strings.Contains(service.Subcategory, need) {
			score += 0.2
		}
		for _, tag := range service.Tags {
			if strings.Contains(tag, need) {
				score += 0.1
				break
			}
		}
	}

	if profile.Location != "" {
		location := strings.ToLower(eligibility.Location)
		switch {
		case location == "all" || location == "":
			score += 0.05
		case strings.Contains(location, profile.Location):
			score += 0.15
		case strings.Contains(location, "qpv"):
			score += 0.1
		}
	}

	if service.Price == 0 {
		score += 0.05
	}

	if service.Provider == "Quartiers d'Affaires" {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

var profileReasonLabels = map[string]string{
	"femme":            "Programme dédié aux femmes entrepreneures",
	"jeune":            "Programme dédié aux jeunes entrepreneurs",
	"senior":           "Programme dédié aux seniors",
	"handicap":         "Aide spécifique handicap",
	"demandeur_emploi": "Accessible aux demandeurs d'emploi",
	"rsa":              "Accessible aux bénéficiaires RSA",
}

var needReasonLabels = map[string]string{
	"financement":    "Répond à votre besoin de financement",
	"formation":      "Répond à votre besoin de formation",
	"accompagnement": "Répond à votre besoin d'accompagnement",
	"recrutement":    "Répond à votre besoin de recrutement",
}

// matchReasons derives up to three reasons from the same signals as the
// score, in priority order: eligibility window, revenue, profile tag,
// category, free price.
func matchReasons(service Service, profile Profile) []string {
	var reasons []string
	eligibility := service.Eligibility

	if profile.Years != nil {
		minYears := intBound(eligibility.MinYears, 0)
		maxYears := intBound(eligibility.MaxYears, 100)
		if minYears <= *profile.Years && *profile.Years <= maxYears {
			if minYears == 0 && maxYears < 100 {
				reasons = append(reasons, fmt.Sprintf("Adapté aux entreprises de moins de %d ans", maxYears))
			} else if minYears > 0 {
				reasons = append(reasons, fmt.Sprintf("Vous avez l'ancienneté requise (%d+ ans)", minYears))
			}
		}
	}

	if profile.Revenue != nil {
		minRevenue := floatBound(eligibility.MinRevenue, 0)
		if *profile.Revenue >= minRevenue && minRevenue > 0 {
			reasons = append(reasons, fmt.Sprintf("Votre CA correspond aux critères (>%.0f€)", minRevenue))
		}
	}

	for _, tag := range profile.Profiles {
		if containsString(eligibility.Profile, tag) {
			label, ok := profileReasonLabels[tag]
			if !ok {
				label = "Correspond à votre profil"
			}
			reasons = append(reasons, label)
		}
	}

	for _, need := range profile.Needs {
		if strings.Contains(service.Category, need) {
			label, ok := needReasonLabels[need]
			if !ok {
				label = "Correspond à vos besoins"
			}
			reasons = append(reasons, label)
		}
	}

	if service.Price == 0 {
		reasons = append(reasons, "Gratuit")
	}

	if len(reasons) > 3 {
		reasons = reasons[:3]
	}
	return reasons
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

// FormatServicesForPrompt renders a service shortlist for injection into
// the compiled prompt.
func FormatServicesForPrompt(services []ScoredService, maxServices int) string {
	if len(services) == 0 {
		return "Aucun service spécifique trouvé pour ce profil."
	}
	if maxServices > 0 && len(services) > maxServices {
		services = services[:maxServices]
	}

	lines := []string{"SERVICES CORRESPONDANT À VOTRE PROFIL :", ""}
	for i, service := range services {
		description := service.Description
		if runes := []rune(description); len(runes) > 200 {
			description = string(runes[:200]) + "..."
		}
		lines = append(lines,
			fmt.Sprintf("%d. **%s** (%s)", i+1, service.Name, service.Provider),
			"   "+description,
		)
		if len(service.MatchReasons) > 0 {
			lines = append(lines, "   ✓ "+strings.Join(service.MatchReasons, " | "))
		}
		if len(service.Highlights) > 0 {
			highlights := service.Highlights
			if len(highlights) > 2 {
				highlights = highlights[:2]
			}
			lines = append(lines, "   → "+strings.Join(highlights, ", "))
		}
		if service.Price == 0 {
			lines = append(lines, "   Gratuit")
		} else {
			lines = append(lines, fmt.Sprintf("   %.0f€", service.Price))
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
