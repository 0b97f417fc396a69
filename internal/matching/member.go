package matching

import (
	"fmt"
	"sort"
	"strings"
)

// MemberFilters are the search criteria for the member directory.
type MemberFilters struct {
	Sector     string
	Department string
	Region     string
	Keywords   []string
	MinRating  float64
	MaxResults int
}

// ScoredMember is a member annotated with its relevance score.
type ScoredMember struct {
	Member
	Score float64 `json:"_score"`
}

// ContactCard is the formatted contact payload for one member.
type ContactCard struct {
	CompanyName      string `json:"company_name"`
	ContactPerson    string `json:"contact_person"`
	Title            string `json:"title"`
	Phone            string `json:"phone"`
	Mobile           string `json:"mobile,omitempty"`
	Email            string `json:"email"`
	Website          string `json:"website,omitempty"`
	PreferredContact string `json:"preferred_contact"`
	City             string `json:"city"`
	PostalCode       string `json:"postal_code"`
	Department       string `json:"department"`
	Region           string `json:"region"`
	MemberBadge      string `json:"member_badge"`
	Program          string `json:"program,omitempty"`
	DiscountMessage  string `json:"discount_message"`
}

// Directory searches the member-business inventory.
type Directory struct {
	members     []Member
	sectorIndex map[string]Sector
	deptIndex   map[string]Department
}

// NewDirectory loads the member, sector and department documents. Missing
// files degrade to empty lists.
func NewDirectory(membersPath, sectorsPath, departmentsPath string) (*Directory, error) {
	var members []Member
	var sectors []Sector
	var departments []Department
	if err := loadList(membersPath, "members", &members); err != nil {
		return nil, err
	}
	if err := loadList(sectorsPath, "sectors", &sectors); err != nil {
		return nil, err
	}
	if err := loadList(departmentsPath, "departments", &departments); err != nil {
		return nil, err
	}

	d := &Directory{
		members:     members,
		sectorIndex: make(map[string]Sector, len(sectors)),
		deptIndex:   make(map[string]Department, len(departments)),
	}
	for _, s := range sectors {
		d.sectorIndex[s.ID] = s
	}
	for _, dept := range departments {
		d.deptIndex[dept.Code] = dept
	}
	return d, nil
}

// Members returns the loaded inventory.
func (d *Directory) Members() []Member {
	return d.members
}

// Search scores every member against the filters and returns the shortlist
// ordered by (score, rating) descending, stable on ties. Members failing a
// disqualifying filter (rating floor, sector, department, region) are
// excluded outright.
func (d *Directory) Search(filters MemberFilters) []ScoredMember {
	var scored []ScoredMember
	for _, member := range d.members {
		score := d.memberScore(member, filters)
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredMember{Member: member, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Stats.Rating > scored[j].Stats.Rating
	})

	if filters.MaxResults > 0 && len(scored) > filters.MaxResults {
		scored = scored[:filters.MaxResults]
	}
	return scored
}

func (d *Directory) memberScore(member Member, filters MemberFilters) float64 {
	score := 0.0

	if filters.MinRating > 0 && member.Stats.Rating < filters.MinRating {
		return 0
	}

	if filters.Sector != "" {
		sector := strings.ToLower(filters.Sector)
		memberSector := strings.ToLower(member.Sector)
		switch {
		case memberSector == sector:
			score += 1.0
		case d.sectorMatchesKeywords(memberSector, sector):
			score += 0.8
		default:
			return 0
		}
	} else {
		score += 0.1
	}

	if filters.Department != "" {
		department := strings.ToLower(strings.TrimSpace(filters.Department))
		if strings.ToLower(member.Location.Department) == department {
			score += 0.5
		} else {
			return 0
		}
	} else if filters.Region != "" {
		region := strings.ToLower(filters.Region)
		if region == "paca" {
			region = "provence-alpes-côte d'azur"
		}
		memberRegion := strings.ToLower(member.Location.Region)
		if memberRegion == region || strings.Contains(memberRegion, region) || strings.Contains(region, memberRegion) {
			score += 0.3
		} else {
			return 0
		}
	}

	if len(filters.Keywords) > 0 {
		score += keywordScore(member, filters.Keywords) * 0.3
	}

	score += (member.Stats.Rating - 4.0) * 0.1

	if member.Membership.Program != "" {
		score += 0.05
	}

	reviewsBonus := float64(member.Stats.ReviewsCount) / 100
	if reviewsBonus > 0.1 {
		reviewsBonus = 0.1
	}
	score += reviewsBonus

	return score
}

func (d *Directory) sectorMatchesKeywords(memberSector, searchTerm string) bool {
	info, ok := d.sectorIndex[memberSector]
	if !ok {
		return false
	}
	for _, keyword := range info.Keywords {
		kw := strings.ToLower(keyword)
		if strings.Contains(kw, searchTerm) || strings.Contains(searchTerm, kw) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(info.Name), searchTerm)
}

// keywordScore counts keyword hits over the member's searchable text,
// normalized by the number of keywords.
func keywordScore(member Member, keywords []string) float64 {
	searchable := strings.ToLower(strings.Join([]string{
		member.CompanyName,
		member.Description,
		member.SectorLabel,
		strings.Join(member.Services, " "),
		member.Location.City,
		member.Location.DepartmentName,
	}, " "))

	hits := 0.0
	for _, keyword := range keywords {
		if strings.Contains(searchable, strings.ToLower(keyword)) {
			hits++
		}
	}
	return hits / float64(len(keywords))
}

// MemberByID returns a specific member, or nil when unknown.
func (d *Directory) MemberByID(id string) *Member {
	for i := range d.members {
		if d.members[i].ID == id {
			return &d.members[i]
		}
	}
	return nil
}

// MemberContactCard returns formatted contact details for one member, or
// nil when the member is unknown.
func (d *Directory) MemberContactCard(id string) *ContactCard {
	member := d.MemberByID(id)
	if member == nil {
		return nil
	}

	contactPerson := member.Contact.ContactPerson
	if contactPerson == "" {
		contactPerson = member.Founder.Name
	}
	preferred := member.Contact.PreferredContact
	if preferred == "" {
		preferred = "phone"
	}

	return &ContactCard{
		CompanyName:      member.CompanyName,
		ContactPerson:    contactPerson,
		Title:            member.Founder.Title,
		Phone:            member.Contact.Phone,
		Mobile:           member.Contact.Mobile,
		Email:            member.Contact.Email,
		Website:          member.Contact.Website,
		PreferredContact: preferred,
		City:             member.Location.City,
		PostalCode:       member.Location.PostalCode,
		Department:       member.Location.DepartmentName,
		Region:           member.Location.Region,
		MemberBadge:      "QDA Member since " + member.Membership.Since,
		Program:          member.Membership.Program,
		DiscountMessage:  "Mention 'Quartiers d'Affaires' to get preferential rates",
	}
}

// FormatMembersForPrompt renders a member shortlist for injection into the
// compiled prompt.
func FormatMembersForPrompt(members []ScoredMember, maxMembers int) string {
	if len(members) == 0 {
		return "No member businesses found matching your criteria."
	}
	if maxMembers > 0 && len(members) > maxMembers {
		members = members[:maxMembers]
	}

	lines := []string{"QDA MEMBER BUSINESSES MATCHING YOUR SEARCH:", ""}
	for i, member := range members {
		rating := member.Stats.Rating
		filled := int(rating)
		if filled < 0 {
			filled = 0
		}
		if filled > 5 {
			filled = 5
		}
		stars := strings.Repeat("★", filled) + strings.Repeat("☆", 5-filled)
		lines = append(lines,
			fmt.Sprintf("%d. **%s** %s (%.1f/5, %d reviews)", i+1, member.CompanyName, stars, rating, member.Stats.ReviewsCount),
			fmt.Sprintf("   %s (%s) - %s", member.Location.City, member.Location.Department, member.Location.Region),
			"   "+member.SectorLabel,
		)
		services := member.Services
		if len(services) > 4 {
			services = services[:4]
		}
		lines = append(lines, "   Services: "+strings.Join(services, ", "))
		if member.Membership.Program != "" {
			lines = append(lines, "   QDA "+member.Membership.Program+" alumnus")
		}
		lines = append(lines, "")
	}
	lines = append(lines, "Select a member to get full contact details (phone, email, website).")
	return strings.Join(lines, "\n")
}
