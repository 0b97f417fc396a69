package matching

import (
	"strings"
	"testing"
)

func testDirectory() *Directory {
	members := []Member{
		{
			ID:          "m-web",
			CompanyName: "Pixel & Co",
			Description: "Agence web et création de sites",
			Sector:      "digital",
			SectorLabel: "Digital & Web",
			Services:    []string{"Sites web", "SEO", "Branding", "Apps", "Ads"},
			Location: MemberLocation{
				City: "Saint-Denis", PostalCode: "93200", Department: "93",
				DepartmentName: "Seine-Saint-Denis", Region: "Île-de-France",
			},
			Stats:      MemberStats{Rating: 4.8, ReviewsCount: 120},
			Membership: Membership{Since: "2021", Program: "Croissance"},
			Contact:    MemberContact{Phone: "01 00 00 00 01", Email: "hello@pixel.example"},
			Founder:    MemberFounder{Name: "A. Diallo", Title: "Fondatrice"},
		},
		{
			ID:          "m-compta",
			CompanyName: "Compta Plus",
			Description: "Cabinet comptable pour TPE",
			Sector:      "accounting",
			SectorLabel: "Comptabilité",
			Location: MemberLocation{
				Department: "93", Region: "Île-de-France",
			},
			Stats: MemberStats{Rating: 4.5, ReviewsCount: 40},
		},
		{
			ID:          "m-sud",
			CompanyName: "Studio Sud",
			Description: "Communication et design graphique",
			Sector:      "communication",
			SectorLabel: "Communication",
			Location: MemberLocation{
				Department: "13", Region: "Provence-Alpes-Côte d'Azur",
			},
			Stats: MemberStats{Rating: 4.2, ReviewsCount: 15},
		},
	}
	return &Directory{
		members: members,
		sectorIndex: map[string]Sector{
			"digital":       {ID: "digital", Name: "Digital", Keywords: []string{"web", "site", "seo"}},
			"accounting":    {ID: "accounting", Name: "Accounting", Keywords: []string{"comptable", "compta"}},
			"communication": {ID: "communication", Name: "Communication", Keywords: []string{"design", "graphisme"}},
		},
		deptIndex: map[string]Department{
			"93": {Code: "93", Name: "Seine-Saint-Denis", Region: "Île-de-France"},
			"13": {Code: "13", Name: "Bouches-du-Rhône", Region: "Provence-Alpes-Côte d'Azur"},
		},
	}
}

func resultIDs(members []ScoredMember) []string {
	out := make([]string, 0, len(members))
	for _, m := range members {
		out = append(out, m.ID)
	}
	return out
}

func TestSearch_SectorIsDisqualifying(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{Sector: "plumbing", Department: "93"})
	if len(got) != 0 {
		t.Errorf("Search(plumbing) = %v, want empty", resultIDs(got))
	}
}

func TestSearch_SectorExactBeatsKeyword(t *testing.T) {
	d := testDirectory()

	exact := d.Search(MemberFilters{Sector: "digital"})
	if len(exact) != 1 || exact[0].ID != "m-web" {
		t.Fatalf("Search(digital) = %v, want [m-web]", resultIDs(exact))
	}

	keyword := d.Search(MemberFilters{Sector: "web"})
	if len(keyword) != 1 || keyword[0].ID != "m-web" {
		t.Fatalf("Search(web) = %v, want keyword-matched [m-web]", resultIDs(keyword))
	}
	if keyword[0].Score >= exact[0].Score {
		t.Errorf("keyword score %v should be below exact score %v", keyword[0].Score, exact[0].Score)
	}
}

func TestSearch_DepartmentIsDisqualifying(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{Department: "75"})
	if len(got) != 0 {
		t.Errorf("Search(dept 75) = %v, want empty", resultIDs(got))
	}
}

func TestSearch_RegionAlias(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{Region: "PACA"})
	if len(got) != 1 || got[0].ID != "m-sud" {
		t.Errorf("Search(PACA) = %v, want [m-sud]", resultIDs(got))
	}
}

func TestSearch_RatingFloor(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{MinRating: 4.6})
	if len(got) != 1 || got[0].ID != "m-web" {
		t.Errorf("Search(min 4.6) = %v, want [m-web]", resultIDs(got))
	}
}

func TestSearch_OrderedByScoreThenRating(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{Department: "93"})
	want := []string{"m-web", "m-compta"}
	gotIDs := resultIDs(got)
	if len(gotIDs) != 2 || gotIDs[0] != want[0] || gotIDs[1] != want[1] {
		t.Errorf("Search(dept 93) = %v, want %v", gotIDs, want)
	}
}

func TestSearch_KeywordBonus(t *testing.T) {
	d := testDirectory()
	with := d.Search(MemberFilters{Sector: "digital", Keywords: []string{"seo", "zzz"}})
	without := d.Search(MemberFilters{Sector: "digital"})
	if len(with) != 1 || len(without) != 1 {
		t.Fatal("expected one digital member in both searches")
	}
	// One of two keywords hits, normalized then weighted.
	delta := with[0].Score - without[0].Score
	if delta < 0.149 || delta > 0.151 {
		t.Errorf("keyword bonus = %v, want 0.15", delta)
	}
}

func TestSearch_MaxResults(t *testing.T) {
	d := testDirectory()
	got := d.Search(MemberFilters{MaxResults: 1})
	if len(got) != 1 {
		t.Errorf("Search(max 1) returned %d, want 1", len(got))
	}
}

func TestMemberContactCard(t *testing.T) {
	d := testDirectory()

	if card := d.MemberContactCard("nope"); card != nil {
		t.Errorf("MemberContactCard(unknown) = %v, want nil", card)
	}

	card := d.MemberContactCard("m-web")
	if card == nil {
		t.Fatal("MemberContactCard(m-web) = nil")
	}
	if card.ContactPerson != "A. Diallo" {
		t.Errorf("contact person = %q, want founder fallback", card.ContactPerson)
	}
	if card.PreferredContact != "phone" {
		t.Errorf("preferred contact = %q, want phone default", card.PreferredContact)
	}
	if card.MemberBadge != "QDA Member since 2021" {
		t.Errorf("badge = %q", card.MemberBadge)
	}
	if !strings.Contains(card.DiscountMessage, "Quartiers d'Affaires") {
		t.Errorf("discount message = %q", card.DiscountMessage)
	}
}

func TestFormatMembersForPrompt_RatingOutOfRange(t *testing.T) {
	members := []ScoredMember{
		{Member: Member{ID: "m-high", CompanyName: "High", Stats: MemberStats{Rating: 6.2}}, Score: 0.5},
		{Member: Member{ID: "m-low", CompanyName: "Low", Stats: MemberStats{Rating: -1}}, Score: 0.4},
	}
	got := FormatMembersForPrompt(members, 5)
	if !strings.Contains(got, "**High** ★★★★★ (6.2/5") {
		t.Errorf("rating above 5 not clamped:\n%s", got)
	}
	if !strings.Contains(got, "**Low** ☆☆☆☆☆ (-1.0/5") {
		t.Errorf("negative rating not clamped:\n%s", got)
	}
}

func TestFormatMembersForPrompt(t *testing.T) {
	if got := FormatMembersForPrompt(nil, 5); got != "No member businesses found matching your criteria." {
		t.Errorf("empty shortlist = %q", got)
	}

	d := testDirectory()
	got := FormatMembersForPrompt(d.Search(MemberFilters{Department: "93"}), 5)

	if !strings.Contains(got, "QDA MEMBER BUSINESSES MATCHING YOUR SEARCH:") {
		t.Errorf("missing banner:\n%s", got)
	}
	if !strings.Contains(got, "**Pixel & Co** ★★★★☆ (4.8/5, 120 reviews)") {
		t.Errorf("missing rating line:\n%s", got)
	}
	if !strings.Contains(got, "Services: Sites web, SEO, Branding, Apps") || strings.Contains(got, "Ads") {
		t.Errorf("services not capped at 4:\n%s", got)
	}
	if !strings.Contains(got, "QDA Croissance alumnus") {
		t.Errorf("missing program line:\n%s", got)
	}
	if !strings.Contains(got, "Select a member to get full contact details") {
		t.Errorf("missing footer:\n%s", got)
	}
}
