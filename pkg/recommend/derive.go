package recommend

import (
	"fmt"
	"slices"
	"strings"
)

// Recommendation is everything the recommendation screen renders.
type Recommendation struct {
	Snapshot     Snapshot `json:"snapshot"`
	Plan         Plan     `json:"plan"`
	Sentence     string   `json:"sentence"`
	Needs        []string `json:"needs"`
	PeopleLabel  string   `json:"peopleLabel"`
	DevicesLabel string   `json:"devicesLabel"`
	Tags         []string `json:"tags"`
}

// maxCited is how many usage labels the explanation cites.
const maxCited = 3

// Derive maps a snapshot to a recommendation. A snapshot that does not
// validate is replaced by Default first, so the output is always complete.
func Derive(s Snapshot) Recommendation {
	s = s.Normalize()
	if s.Validate() != nil {
		s = Default()
	}

	cited := s.Usage[:min(len(s.Usage), maxCited)]
	needs := make([]string, 0, len(cited))
	for _, u := range cited {
		needs = append(needs, usageNeeds[u])
	}

	plan := SuggestPlan(s)
	people := householdPeople[s.Household]
	sentence := fmt.Sprintf(
		"With %s %s and %s devices, %s balances speed and value for %s. The plan focuses on %s, so your household stays connected without slowdowns.",
		people, pluralPeople(people), s.Devices, plan.Name, JoinNatural(cited), JoinNatural(needs),
	)

	return Recommendation{
		Snapshot:     s,
		Plan:         plan,
		Sentence:     sentence,
		Needs:        needs,
		PeopleLabel:  people + " " + pluralPeople(people),
		DevicesLabel: s.Devices + " devices",
		Tags:         slices.Clone(cited),
	}
}

func pluralPeople(n string) string {
	if n == "1" {
		return "person"
	}
	return "people"
}

// SuggestPlan picks the catalogue tier for a snapshot.
func SuggestPlan(s Snapshot) Plan {
	heavy := s.Household == HouseholdChaos ||
		s.Devices == Devices16plus ||
		(slices.Contains(s.Usage, UsageGaming) && slices.Contains(s.Usage, UsageDownloads))
	if heavy {
		return mustPlan("premium")
	}
	if s.Household == HouseholdSolo && s.Devices == Devices1to5 && lightUsage(s.Usage) {
		return mustPlan("starter")
	}
	return mustPlan("plus")
}

func lightUsage(usage []string) bool {
	for _, u := range usage {
		if u != UsageBrowsing && u != UsageHomePhone {
			return false
		}
	}
	return true
}

// JoinNatural joins items as "A", "A and B" or "A, B and C".
func JoinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
