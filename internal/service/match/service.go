package match

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/app"
	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/repository"
	"github.com/bandhanapp/bandhan-server/internal/scoring"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
)

// Service implements candidate selection and the match lifecycle
// state machine (NONE → PENDING → {ACCEPTED, REJECTED}).
type Service struct {
	appCtx   *app.AppContext
	users    *repository.UserRepository
	matches  *repository.MatchRepository
	blocks   *repository.BlockRepository
	chats    *repository.ChatRepository
	notifier *notify.Service
}

// NewService creates the match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier *notify.Service) *Service {
	return &Service{
		appCtx:   appCtx,
		users:    repository.NewUserRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		chats:    repository.NewChatRepository(appCtx.DB),
		notifier: notifier,
	}
}

// Candidate is a scored potential match surfaced to the viewer.
type Candidate struct {
	UserID         string   `json:"userId"`
	DisplayName    string   `json:"displayName,omitempty"`
	ProfilePicture string   `json:"profilePicture,omitempty"`
	Age            *int     `json:"age,omitempty"`
	City           string   `json:"city,omitempty"`
	Religion       string   `json:"religion,omitempty"`
	Occupation     string   `json:"occupation,omitempty"`
	DistanceKM     *float64 `json:"distance,omitempty"`
	Compatibility  int      `json:"compatibility"`
}

// FindCandidates scores and ranks the viewer's candidate pool.
//
// Never cached: interaction, match, and block state all invalidate prior
// results, so the exclusion set and population query run fresh every call.
// Ordering is score descending with a stable candidate-id tie-break.
func (s *Service) FindCandidates(ctx context.Context, viewerID string, limit, offset int) ([]Candidate, error) {
	viewer, err := s.users.GetUserFull(ctx, viewerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load viewer", err)
	}
	if viewer.Profile == nil || viewer.Profile.Gender == "" || viewer.Preference == nil {
		return nil, apperr.IncompleteProfile("complete your profile and preferences to see matches")
	}

	viewerScoring := repository.ToScoringProfile(viewer)
	genders := acceptedGenders(viewer)

	excluded, err := s.exclusionSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.users.FindCandidates(ctx, genders, excluded)
	if err != nil {
		return nil, apperr.Internal("failed to query candidates", err)
	}

	scored := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		u := &candidates[i]
		sp := repository.ToScoringProfile(u)
		c := Candidate{
			UserID:        u.ID,
			Compatibility: scoring.Score(viewerScoring, sp),
		}
		if p := u.Profile; p != nil {
			c.DisplayName = p.DisplayName
			c.ProfilePicture = p.ProfilePictureURL
			c.City = p.City
			c.Religion = p.Religion
			c.Occupation = p.Occupation
			c.Age = ageOf(p.BirthDate)
			if viewerScoring.Location != nil && sp.Location != nil {
				d := scoring.DistanceKM(*viewerScoring.Location, *sp.Location)
				c.DistanceKM = &d
			}
		}
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Compatibility != scored[j].Compatibility {
			return scored[i].Compatibility > scored[j].Compatibility
		}
		return scored[i].UserID < scored[j].UserID
	})

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(scored) {
		return []Candidate{}, nil
	}
	end := offset + limit
	if end > len(scored) {
		end = len(scored)
	}
	return scored[offset:end], nil
}

// InterestResult is the outcome of ExpressInterest or Decide.
type InterestResult struct {
	MatchID    string  `json:"matchId"`
	Status     string  `json:"status"`
	ChatRoomID *string `json:"chatRoomId,omitempty"`
}

// ExpressInterest records fromID's interest in toID.
//
// No prior row: creates a PENDING match, a like, and a LIKE notification.
// A PENDING row where the other party acted first is the reciprocal like:
// the match flips to ACCEPTED and its room is created exactly once.
// Re-expressing from the same side, or against a decided match, fails
// with DuplicateInterest.
func (s *Service) ExpressInterest(ctx context.Context, fromID, toID string) (*InterestResult, error) {
	if fromID == toID {
		return nil, apperr.InvalidArgument("cannot express interest in yourself")
	}

	exists, err := s.users.Exists(ctx, toID)
	if err != nil {
		return nil, apperr.Internal("failed to look up user", err)
	}
	if !exists {
		return nil, apperr.NotFound("user not found")
	}

	existing, err := s.matches.FindByPair(ctx, fromID, toID)
	if err != nil {
		return nil, apperr.Internal("failed to look up match", err)
	}

	if existing != nil {
		if existing.SenderID == fromID || existing.Status != db.MatchStatusPending {
			return nil, apperr.DuplicateInterest("interest already expressed for this user")
		}
		// The other party expressed interest first: reciprocal like.
		if err := s.matches.CreateLike(ctx, fromID, toID); err != nil {
			return nil, apperr.Internal("failed to record like", err)
		}
		return s.accept(ctx, existing)
	}

	m := &db.Match{
		SenderID:   fromID,
		ReceiverID: toID,
		Status:     db.MatchStatusPending,
	}
	if err := s.matches.Create(ctx, m); err != nil {
		return nil, apperr.Internal("failed to create match", err)
	}
	if err := s.matches.CreateLike(ctx, fromID, toID); err != nil {
		return nil, apperr.Internal("failed to record like", err)
	}

	key := s.appCtx.RedisCache.KeyForPendingInterests(toID)
	s.appCtx.RedisCache.BumpCounter(ctx, key, 1)

	if _, err := s.notifier.Notify(ctx, toID, db.NotificationTypeLike,
		"New Interest", "Someone is interested in your profile!",
		map[string]any{"matchId": m.ID}); err != nil {
		s.appCtx.Logger.Error("failed to notify receiver of interest", "match_id", m.ID, "err", err)
	}

	return &InterestResult{MatchID: m.ID, Status: m.Status}, nil
}

// Decide resolves a PENDING match. Only the receiver may decide.
func (s *Service) Decide(ctx context.Context, matchID, deciderID, decision string) (*InterestResult, error) {
	if decision != db.MatchStatusAccepted && decision != db.MatchStatusRejected {
		return nil, apperr.InvalidArgument("decision must be ACCEPTED or REJECTED")
	}

	m, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("match not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load match", err)
	}
	if m.ReceiverID != deciderID {
		return nil, apperr.Forbidden("only the receiver can decide this match")
	}
	if m.Status != db.MatchStatusPending {
		// The accept race may already have resolved this match; an accept
		// decision on an accepted match returns the existing room.
		if m.Status == db.MatchStatusAccepted && decision == db.MatchStatusAccepted && m.ChatRoomID != nil {
			return &InterestResult{MatchID: m.ID, Status: m.Status, ChatRoomID: m.ChatRoomID}, nil
		}
		return nil, apperr.InvalidTransition("match is already decided")
	}

	if decision == db.MatchStatusRejected {
		err := s.matches.Reject(ctx, matchID)
		if errors.Is(err, repository.ErrNotPending) {
			return nil, apperr.InvalidTransition("match is already decided")
		}
		if err != nil {
			return nil, apperr.Internal("failed to reject match", err)
		}
		key := s.appCtx.RedisCache.KeyForPendingInterests(deciderID)
		s.appCtx.RedisCache.BumpCounter(ctx, key, -1)
		return &InterestResult{MatchID: m.ID, Status: db.MatchStatusRejected}, nil
	}

	return s.accept(ctx, m)
}

// accept flips a PENDING match to ACCEPTED with exactly-once room
// creation. The conditional update in the repository decides the race;
// the losing path re-reads the match and returns the winner's room.
func (s *Service) accept(ctx context.Context, m *db.Match) (*InterestResult, error) {
	room, err := s.matches.AcceptAndCreateRoom(ctx, m.ID)
	if errors.Is(err, repository.ErrNotPending) {
		current, rerr := s.matches.GetByID(ctx, m.ID)
		if rerr != nil {
			return nil, apperr.Internal("failed to re-read match", rerr)
		}
		if current.Status == db.MatchStatusAccepted && current.ChatRoomID != nil {
			return &InterestResult{MatchID: current.ID, Status: current.Status, ChatRoomID: current.ChatRoomID}, nil
		}
		return nil, apperr.InvalidTransition("match is already decided")
	}
	if err != nil {
		return nil, apperr.Internal("failed to accept match", err)
	}

	key := s.appCtx.RedisCache.KeyForPendingInterests(m.ReceiverID)
	s.appCtx.RedisCache.BumpCounter(ctx, key, -1)

	for _, pair := range [][2]string{
		{m.SenderID, m.ReceiverID},
		{m.ReceiverID, m.SenderID},
	} {
		if _, err := s.notifier.Notify(ctx, pair[0], db.NotificationTypeMatch,
			"New Match!", "You have a new match!",
			map[string]any{"matchId": m.ID, "userId": pair[1]}); err != nil {
			s.appCtx.Logger.Error("failed to notify match", "match_id", m.ID, "user_id", pair[0], "err", err)
		}
	}

	return &InterestResult{MatchID: m.ID, Status: db.MatchStatusAccepted, ChatRoomID: &room.ID}, nil
}

// ConfirmedMatch is one entry of the confirmed-matches listing.
type ConfirmedMatch struct {
	MatchID        string       `json:"matchId"`
	UserID         string       `json:"userId"`
	DisplayName    string       `json:"displayName,omitempty"`
	ProfilePicture string       `json:"profilePicture,omitempty"`
	MatchedOn      time.Time    `json:"matchedOn"`
	ChatRoomID     *string      `json:"chatRoomId,omitempty"`
	LastMessage    *LastMessage `json:"lastMessage,omitempty"`
}

// LastMessage is the preview attached to match and chat listings.
type LastMessage struct {
	Content    string    `json:"content"`
	SentAt     time.Time `json:"sentAt"`
	IsSentByMe bool      `json:"isSentByMe"`
}

// ConfirmedMatches lists the user's ACCEPTED matches with the other
// party's display card and the room's last message.
func (s *Service) ConfirmedMatches(ctx context.Context, userID string) ([]ConfirmedMatch, error) {
	matches, err := s.matches.ListConfirmed(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list matches", err)
	}

	out := make([]ConfirmedMatch, 0, len(matches))
	for _, m := range matches {
		cm := ConfirmedMatch{
			MatchID:    m.ID,
			UserID:     otherParty(&m, userID),
			MatchedOn:  m.UpdatedAt,
			ChatRoomID: m.ChatRoomID,
		}
		if card, err := s.users.GetDisplayCard(ctx, cm.UserID); err == nil {
			cm.DisplayName = card.DisplayName
			cm.ProfilePicture = card.ProfilePictureURL
		}
		if m.ChatRoomID != nil {
			if msg, err := s.chats.LastMessage(ctx, *m.ChatRoomID); err == nil && msg != nil {
				cm.LastMessage = &LastMessage{
					Content:    msg.Content,
					SentAt:     msg.SentAt,
					IsSentByMe: msg.SenderID == userID,
				}
			}
		}
		out = append(out, cm)
	}
	return out, nil
}

// MatchDetail returns one match as seen by one of its parties.
func (s *Service) MatchDetail(ctx context.Context, matchID, userID string) (*ConfirmedMatch, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("match not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load match", err)
	}
	if m.SenderID != userID && m.ReceiverID != userID {
		// Not a party: behave as not found, do not leak existence.
		return nil, apperr.NotFound("match not found")
	}

	cm := &ConfirmedMatch{
		MatchID:    m.ID,
		UserID:     otherParty(m, userID),
		MatchedOn:  m.CreatedAt,
		ChatRoomID: m.ChatRoomID,
	}
	if card, err := s.users.GetDisplayCard(ctx, cm.UserID); err == nil {
		cm.DisplayName = card.DisplayName
		cm.ProfilePicture = card.ProfilePictureURL
	}
	return cm, nil
}

// Summary returns the user's match counters. The pending counter is
// cache-first with a DB fallback.
func (s *Service) Summary(ctx context.Context, userID string) (*repository.Summary, error) {
	summary, err := s.matches.GetSummary(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to compute summary", err)
	}

	key := s.appCtx.RedisCache.KeyForPendingInterests(userID)
	if n, ok, _ := s.appCtx.RedisCache.GetCounter(ctx, key); ok {
		summary.PendingMatches = n
	} else {
		_ = s.appCtx.RedisCache.SetCounter(ctx, key, summary.PendingMatches)
	}
	return summary, nil
}

// Block records a block from blockerID to blockedID. Idempotent.
func (s *Service) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return apperr.InvalidArgument("cannot block yourself")
	}
	exists, err := s.users.Exists(ctx, blockedID)
	if err != nil {
		return apperr.Internal("failed to look up user", err)
	}
	if !exists {
		return apperr.NotFound("user not found")
	}
	if err := s.blocks.Create(ctx, blockerID, blockedID); err != nil {
		return apperr.Internal("failed to create block", err)
	}
	return nil
}

// exclusionSet builds the candidate exclusion list: the viewer, everyone
// in any match with the viewer, and everyone linked by a block in either
// direction.
func (s *Service) exclusionSet(ctx context.Context, viewerID string) ([]string, error) {
	interacted, err := s.matches.InteractedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal("failed to query interactions", err)
	}
	blocked, err := s.blocks.LinkedUserIDs(ctx, viewerID)
	if err != nil {
		return nil, apperr.Internal("failed to query blocks", err)
	}

	seen := map[string]struct{}{viewerID: {}}
	out := []string{viewerID}
	for _, id := range append(interacted, blocked...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// acceptedGenders derives the candidate gender filter from the viewer's
// stated preference, falling back to the opposite of their own gender.
func acceptedGenders(viewer *db.User) []string {
	if viewer.Preference != nil && len(viewer.Preference.AcceptedGenders) > 0 {
		return viewer.Preference.AcceptedGenders
	}
	switch viewer.Profile.Gender {
	case "Male":
		return []string{"Female"}
	case "Female":
		return []string{"Male"}
	default:
		return []string{"Male", "Female", "Non-binary", "Other"}
	}
}

func otherParty(m *db.Match, userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

func ageOf(birthDate *time.Time) *int {
	if birthDate == nil {
		return nil
	}
	years := int(time.Since(*birthDate).Hours() / 24 / 365.25)
	return &years
}
