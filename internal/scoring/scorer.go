package scoring

import (
	"math"
	"strconv"
	"strings"
)

// Category is one weighted component of the compatibility score. Compare
// returns a sub-score in [0,100]; it must handle missing data on either
// side and never panic.
type Category struct {
	Name    string
	Weight  int
	Compare func(a, b *Profile) float64
}

// Categories is the scoring policy as data: each category is normalized to
// [0,100] independently and combined by weight. Testable in isolation via
// CategoryScore.
var Categories = []Category{
	{Name: "religion", Weight: 20, Compare: compareReligion},
	{Name: "caste", Weight: 15, Compare: compareCaste},
	{Name: "education", Weight: 15, Compare: compareEducation},
	{Name: "occupation", Weight: 10, Compare: compareOccupation},
	{Name: "lifestyle", Weight: 15, Compare: compareLifestyle},
	{Name: "interests", Weight: 15, Compare: compareInterests},
	{Name: "values", Weight: 10, Compare: compareValues},
	{Name: "distance", Weight: 8, Compare: compareDistance},
}

// Score computes the 0-100 compatibility score between viewer and
// candidate. Pure and deterministic: no I/O, no side effects.
func Score(viewer, candidate *Profile) int {
	var total float64
	for _, c := range Categories {
		total += c.Compare(viewer, candidate) * float64(c.Weight) / 100
	}
	s := int(math.Round(total))
	if s > 100 {
		s = 100
	}
	if s < 0 {
		s = 0
	}
	return s
}

// CategoryScore computes a single category's sub-score by name. Returns
// -1 for an unknown category.
func CategoryScore(name string, a, b *Profile) float64 {
	for _, c := range Categories {
		if c.Name == name {
			return c.Compare(a, b)
		}
	}
	return -1
}

func compareReligion(a, b *Profile) float64 {
	// Missing on either side: a stated preference for the known value is
	// still a partial signal.
	if a.Religion == "" || b.Religion == "" {
		if a.Religion != "" && contains(b.Prefs.PreferredReligion, a.Religion) {
			return 70
		}
		if b.Religion != "" && contains(a.Prefs.PreferredReligion, b.Religion) {
			return 70
		}
		return 50
	}

	if a.Religion == b.Religion {
		return 100
	}

	aPrefers := contains(a.Prefs.PreferredReligion, b.Religion)
	bPrefers := contains(b.Prefs.PreferredReligion, a.Religion)
	switch {
	case aPrefers && bPrefers:
		return 80
	case aPrefers || bPrefers:
		return 60
	}
	return 20
}

func compareCaste(a, b *Profile) float64 {
	if a.Caste == "" || b.Caste == "" {
		return 50
	}

	if a.Caste == b.Caste {
		if a.SubCaste != "" && b.SubCaste != "" && a.SubCaste == b.SubCaste {
			return 100
		}
		return 90
	}

	aPrefers := contains(a.Prefs.PreferredCaste, b.Caste)
	bPrefers := contains(b.Prefs.PreferredCaste, a.Caste)
	switch {
	case aPrefers && bPrefers:
		return 70
	case aPrefers || bPrefers:
		return 50
	}
	return 30
}

func compareEducation(a, b *Profile) float64 {
	if a.Education == "" || b.Education == "" {
		return 50
	}

	if a.Education == b.Education {
		if a.HighestDegree != "" && b.HighestDegree != "" && a.HighestDegree == b.HighestDegree {
			return 100
		}
		return 90
	}

	aPrefers := contains(a.Prefs.EducationPreference, b.Education)
	bPrefers := contains(b.Prefs.EducationPreference, a.Education)
	switch {
	case aPrefers && bPrefers:
		return 80
	case aPrefers || bPrefers:
		return 60
	}
	return 40
}

func compareOccupation(a, b *Profile) float64 {
	if a.Occupation == "" || b.Occupation == "" {
		return 50
	}

	if a.Occupation == b.Occupation {
		return 90
	}

	aPrefers := contains(a.Prefs.OccupationPreference, b.Occupation)
	bPrefers := contains(b.Prefs.OccupationPreference, a.Occupation)
	switch {
	case aPrefers && bPrefers:
		return 80
	case aPrefers || bPrefers:
		return 60
	}

	// No occupation signal: fall back to income proximity.
	if a.AnnualIncome != "" && b.AnnualIncome != "" {
		ia := parseIncome(a.AnnualIncome)
		ib := parseIncome(b.AnnualIncome)
		if absInt(ia-ib) < 500000 {
			return 60
		}
	}

	return 40
}

func compareLifestyle(a, b *Profile) float64 {
	if !a.hasLifestyle() && !b.hasLifestyle() {
		return 50
	}
	// One side has data, the other does not: slightly below neutral.
	if !a.hasLifestyle() || !b.hasLifestyle() {
		return 40
	}

	var points, factors float64

	// Diet carries double weight; vegetarian/vegan are adjacent.
	if a.Diet != "" && b.Diet != "" {
		factors += 2
		switch {
		case a.Diet == b.Diet:
			points += 2
		case isVegAdjacent(a.Diet, b.Diet):
			points += 1
		default:
			points += 0.25
		}
	}

	if a.Smoking != "" && b.Smoking != "" {
		factors++
		if a.Smoking == b.Smoking {
			points++
		}
	}

	if a.Drinking != "" && b.Drinking != "" {
		factors++
		if a.Drinking == b.Drinking {
			points++
		}
	}

	if a.LivingArrangement != "" && b.LivingArrangement != "" {
		factors++
		if a.LivingArrangement == b.LivingArrangement {
			points++
		}
	}

	if factors == 0 {
		return 50
	}
	return points / factors * 100
}

func compareInterests(a, b *Profile) float64 {
	if !a.hasPersonality() || !b.hasPersonality() {
		return 50
	}

	var points, total float64

	for _, pair := range [][2][]string{
		{a.Hobbies, b.Hobbies},
		{a.Interests, b.Interests},
		{a.MusicTaste, b.MusicTaste},
		{a.MovieTaste, b.MovieTaste},
		{a.SportsInterest, b.SportsInterest},
	} {
		if len(pair[0]) > 0 && len(pair[1]) > 0 {
			points += overlapRatio(pair[0], pair[1])
			total++
		}
	}

	if a.TravelStyle != "" && b.TravelStyle != "" {
		if a.TravelStyle == b.TravelStyle {
			points++
		} else {
			points += 0.25
		}
		total++
	}

	if total == 0 {
		return 50
	}
	return points / total * 100
}

func compareValues(a, b *Profile) float64 {
	if !a.hasValues() || !b.hasValues() {
		return 50
	}

	var points, factors float64

	for _, pair := range [][2]string{
		{a.FamilyValues, b.FamilyValues},
		{a.ReligiousBeliefs, b.ReligiousBeliefs},
		{a.PoliticalViews, b.PoliticalViews},
		{a.WantsChildren, b.WantsChildren},
		{a.MarriagePlans, b.MarriagePlans},
	} {
		if pair[0] != "" && pair[1] != "" {
			factors++
			if pair[0] == pair[1] {
				points++
			}
		}
	}

	if len(a.FutureGoals) > 0 && len(b.FutureGoals) > 0 {
		factors++
		points += overlapRatio(a.FutureGoals, b.FutureGoals)
	}

	if factors == 0 {
		return 50
	}
	return points / factors * 100
}

func compareDistance(a, b *Profile) float64 {
	if a.Location == nil || b.Location == nil {
		return 50
	}

	d := DistanceKM(*a.Location, *b.Location)
	switch {
	case d < 10:
		return 100
	case d < 30:
		return 90
	case d < 100:
		return 80
	case d < 300:
		return 60
	case d < 1000:
		return 40
	}
	return 20
}

// --- helpers ---

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// overlapRatio is |intersection| over the larger list's length.
func overlapRatio(a, b []string) float64 {
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	shared := 0
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := set[s]; ok {
			shared++
		}
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 0
	}
	return float64(shared) / float64(maxLen)
}

func isVegAdjacent(d1, d2 string) bool {
	return (d1 == "Vegetarian" && d2 == "Vegan") || (d1 == "Vegan" && d2 == "Vegetarian")
}

// parseIncome strips non-digits from an income band label and parses the
// remainder, so "₹5,00,000 - ₹10,00,000" style values still compare.
func parseIncome(income string) int {
	var sb strings.Builder
	for _, r := range income {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	n, err := strconv.Atoi(sb.String())
	if err != nil {
		return 0
	}
	return n
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
