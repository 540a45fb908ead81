package scoring

import "time"

// Coordinates is a geo point in degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Preferences are a user's stated partner preferences, as read by the
// scorer. Empty slices mean "no stated preference".
type Preferences struct {
	AcceptedGenders      []string
	AgeMin               *int
	AgeMax               *int
	MaxDistanceKM        *int
	PreferredReligion    []string
	PreferredCaste       []string
	EducationPreference  []string
	OccupationPreference []string
	IncomePreference     string
}

// Profile is the scorer's read model of a user. Every field is optional;
// the zero value means "unknown", which every category treats as a valid
// input distinct from a known mismatch.
type Profile struct {
	UserID    string
	Gender    string
	BirthDate *time.Time

	Religion string
	Caste    string
	SubCaste string

	Education     string
	HighestDegree string
	Occupation    string
	AnnualIncome  string

	Diet              string
	Smoking           string
	Drinking          string
	LivingArrangement string

	Hobbies        []string
	Interests      []string
	MusicTaste     []string
	MovieTaste     []string
	SportsInterest []string
	TravelStyle    string

	FamilyValues     string
	ReligiousBeliefs string
	PoliticalViews   string
	WantsChildren    string
	MarriagePlans    string
	FutureGoals      []string

	Location *Coordinates

	Prefs Preferences
}

// hasLifestyle reports whether the lifestyle section carries any data.
func (p *Profile) hasLifestyle() bool {
	return p.Diet != "" || p.Smoking != "" || p.Drinking != "" || p.LivingArrangement != ""
}

// hasPersonality reports whether the personality/interests section carries
// any data.
func (p *Profile) hasPersonality() bool {
	return len(p.Hobbies) > 0 || len(p.Interests) > 0 || len(p.MusicTaste) > 0 ||
		len(p.MovieTaste) > 0 || len(p.SportsInterest) > 0 || p.TravelStyle != ""
}

// hasValues reports whether the values/plans section carries any data.
func (p *Profile) hasValues() bool {
	return p.FamilyValues != "" || p.ReligiousBeliefs != "" || p.PoliticalViews != "" ||
		p.WantsChildren != "" || p.MarriagePlans != "" || len(p.FutureGoals) > 0
}
