package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/scoring"
)

// UserRepository is the ProfileStore: read access to users, their profile
// attributes and stated preferences.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// GetUser fetches a user row by id.
func (r *UserRepository) GetUser(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether a user id is known.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// GetUserFull loads a user with profile and preference rows preloaded.
// The caller distinguishes missing sections from empty ones via the nil
// association pointers.
func (r *UserRepository) GetUserFull(ctx context.Context, userID string) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Preference").
		First(&u, "id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetScoringProfile loads a user's profile and preferences in the scorer's
// read model. Missing profile or preference rows yield zero-valued
// sections, which the scorer treats as "unknown".
func (r *UserRepository) GetScoringProfile(ctx context.Context, userID string) (*scoring.Profile, error) {
	u, err := r.GetUserFull(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToScoringProfile(u), nil
}

// FindCandidates returns every active user whose gender is in the
// accepted set and whose id is not excluded, with profile and preferences
// preloaded. The caller scores, sorts, and paginates; the query is re-run
// on every call so interaction/block changes take effect immediately.
func (r *UserRepository) FindCandidates(
	ctx context.Context,
	genders []string,
	excludedIDs []string,
) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("users.active = ?", true).
		Where("profiles.gender IN ?", genders).
		Preload("Profile").
		Preload("Preference")

	if len(excludedIDs) > 0 {
		query = query.Where("users.id NOT IN ?", excludedIDs)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetDisplayCard returns the lightweight identity used in match and chat
// listings.
func (r *UserRepository) GetDisplayCard(ctx context.Context, userID string) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// TouchLastActive stamps the user's last activity time. Best-effort from
// the realtime layer.
func (r *UserRepository) TouchLastActive(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Update("last_active_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}

// ToScoringProfile converts a preloaded user row into the scorer's pure
// read model.
func ToScoringProfile(u *db.User) *scoring.Profile {
	sp := &scoring.Profile{UserID: u.ID}

	if p := u.Profile; p != nil {
		sp.Gender = p.Gender
		sp.BirthDate = p.BirthDate
		sp.Religion = p.Religion
		sp.Caste = p.Caste
		sp.SubCaste = p.SubCaste
		sp.Education = p.Education
		sp.HighestDegree = p.HighestDegree
		sp.Occupation = p.Occupation
		sp.AnnualIncome = p.AnnualIncome
		sp.Diet = p.Diet
		sp.Smoking = p.Smoking
		sp.Drinking = p.Drinking
		sp.LivingArrangement = p.LivingArrangement
		sp.Hobbies = p.Hobbies
		sp.Interests = p.Interests
		sp.MusicTaste = p.MusicTaste
		sp.MovieTaste = p.MovieTaste
		sp.SportsInterest = p.SportsInterest
		sp.TravelStyle = p.TravelStyle
		sp.FamilyValues = p.FamilyValues
		sp.ReligiousBeliefs = p.ReligiousBeliefs
		sp.PoliticalViews = p.PoliticalViews
		sp.WantsChildren = p.WantsChildren
		sp.MarriagePlans = p.MarriagePlans
		sp.FutureGoals = p.FutureGoals
		if p.Latitude != nil && p.Longitude != nil {
			sp.Location = &scoring.Coordinates{Latitude: *p.Latitude, Longitude: *p.Longitude}
		}
	}

	if pref := u.Preference; pref != nil {
		sp.Prefs = scoring.Preferences{
			AcceptedGenders:      pref.AcceptedGenders,
			AgeMin:               pref.AgeMin,
			AgeMax:               pref.AgeMax,
			MaxDistanceKM:        pref.MaxDistanceKM,
			PreferredReligion:    pref.PreferredReligion,
			PreferredCaste:       pref.PreferredCaste,
			EducationPreference:  pref.EducationPreference,
			OccupationPreference: pref.OccupationPreference,
			IncomePreference:     pref.IncomePreference,
		}
	}

	return sp
}
