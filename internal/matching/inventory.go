// Package matching scores a fixed inventory of offerings and member
// businesses against the user's inferred profile. Inventories are loaded
// once at startup and treated as immutable for the process lifetime; the
// matchers are pure functions over them and safe for concurrent use.
package matching

import (
	"encoding/json"
	"fmt"
	"os"
)

// Eligibility is a service's eligibility window. Nil bounds mean
// unbounded on that side.
type Eligibility struct {
	MinYears     *int     `json:"min_years"`
	MaxYears     *int     `json:"max_years"`
	MinRevenue   *float64 `json:"min_revenue"`
	MaxRevenue   *float64 `json:"max_revenue"`
	MinEmployees *int     `json:"min_employees"`
	MaxEmployees *int     `json:"max_employees"`
	Profile      []string `json:"profile"`
	Location     string   `json:"location"`
}

// Service is one business-support offering in the catalog.
type Service struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Provider    string      `json:"provider"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Subcategory string      `json:"subcategory"`
	Tags        []string    `json:"tags"`
	Highlights  []string    `json:"highlights"`
	Price       float64     `json:"price"`
	Eligibility Eligibility `json:"eligibility"`
}

// MemberLocation is where a member business operates.
type MemberLocation struct {
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	Department     string `json:"department"`
	DepartmentName string `json:"department_name"`
	Region         string `json:"region"`
}

// MemberStats carries the rating signals used for ordering.
type MemberStats struct {
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// Membership records the member's standing in the network.
type Membership struct {
	Since   string `json:"since"`
	Program string `json:"program"`
}

// MemberContact is the member's contact channel data.
type MemberContact struct {
	ContactPerson    string `json:"contact_person"`
	Phone            string `json:"phone"`
	Mobile           string `json:"mobile"`
	Email            string `json:"email"`
	Website          string `json:"website"`
	PreferredContact string `json:"preferred_contact"`
}

// MemberFounder identifies the member's founder.
type MemberFounder struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Member is one member business in the network directory.
type Member struct {
	ID          string         `json:"id"`
	CompanyName string         `json:"company_name"`
	Description string         `json:"description"`
	Sector      string         `json:"sector"`
	SectorLabel string         `json:"sector_label"`
	Services    []string       `json:"services"`
	Location    MemberLocation `json:"location"`
	Stats       MemberStats    `json:"stats"`
	Membership  Membership     `json:"qda_member"`
	Contact     MemberContact  `json:"contact"`
	Founder     MemberFounder  `json:"founder"`
}

// Sector is a reference-table entry mapping a sector id to its names and
// search keywords.
type Sector struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	NameFr   string   `json:"name_fr"`
	Keywords []string `json:"keywords"`
}

// Department is a reference-table entry for a French department.
type Department struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// loadList reads a JSON document of the form {"<key>": [...]} into out.
// A missing file degrades to an empty list.
func loadList(path, key string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if item, ok := doc[key]; ok {
		if err := json.Unmarshal(item, out); err != nil {
			return fmt.Errorf("parse %s %q: %w", path, key, err)
		}
	}
	return nil
}
