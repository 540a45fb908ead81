package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bandhanapp/bandhan-server/internal/db"
)

// ErrNotPending is returned when a conditional status flip finds the match
// no longer PENDING. Callers re-read the row to observe the winner's state.
var ErrNotPending = errors.New("match is not pending")

// MatchRepository provides data access for Match and Like rows.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// GetByID fetches a match by id.
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByPair returns the match row between two users regardless of which
// side acted first, or nil when none exists.
func (r *MatchRepository) FindByPair(ctx context.Context, userA, userB string) (*db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userA, userB, userB, userA).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new match row.
func (r *MatchRepository) Create(ctx context.Context, m *db.Match) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// CreateLike appends a directed like. Idempotent: a duplicate like is a
// no-op, the record is never mutated.
func (r *MatchRepository) CreateLike(ctx context.Context, fromID, toID string) error {
	like := db.Like{FromUserID: fromID, ToUserID: toID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like).Error
}

// AcceptAndCreateRoom atomically flips a PENDING match to ACCEPTED,
// creates its chat room with both participants, and stamps the room id on
// the match — all in one transaction.
//
// The flip is a conditional update guarded by the current status, so two
// racing accept paths cannot both create a room: the loser's update
// affects zero rows, its transaction rolls back (including the room it
// provisionally created), and ErrNotPending is returned. The caller then
// re-reads the match to find the winner's room id.
func (r *MatchRepository) AcceptAndCreateRoom(ctx context.Context, matchID string) (*db.ChatRoom, error) {
	var room db.ChatRoom

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m db.Match
		if err := tx.First(&m, "id = ?", matchID).Error; err != nil {
			return err
		}

		room = db.ChatRoom{}
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		participants := []db.ChatParticipant{
			{ChatRoomID: room.ID, UserID: m.SenderID},
			{ChatRoomID: room.ID, UserID: m.ReceiverID},
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}

		res := tx.Model(&db.Match{}).
			Where("id = ? AND status = ?", matchID, db.MatchStatusPending).
			Updates(map[string]any{
				"status":       db.MatchStatusAccepted,
				"chat_room_id": room.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race (or the match was already decided). Roll the
			// whole transaction back, room included.
			return ErrNotPending
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Reject flips a PENDING match to REJECTED. Conditional on the current
// status; ErrNotPending when another path decided first.
func (r *MatchRepository) Reject(ctx context.Context, matchID string) error {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND status = ?", matchID, db.MatchStatusPending).
		Update("status", db.MatchStatusRejected)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotPending
	}
	return nil
}

// InteractedUserIDs returns every user appearing as either party in any
// match involving the given user, in any status. Used to build the
// candidate exclusion set.
func (r *MatchRepository) InteractedUserIDs(ctx context.Context, userID string) ([]string, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Select("sender_id", "receiver_id").
		Where("sender_id = ? OR receiver_id = ?", userID, userID).
		Find(&matches).Error
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.SenderID != userID {
			ids = append(ids, m.SenderID)
		}
		if m.ReceiverID != userID {
			ids = append(ids, m.ReceiverID)
		}
	}
	return ids, nil
}

// ListConfirmed returns the user's ACCEPTED matches, most recent first.
func (r *MatchRepository) ListConfirmed(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, db.MatchStatusAccepted).
		Order("updated_at DESC").
		Find(&matches).Error
	return matches, err
}

// CountPendingFor counts PENDING matches awaiting the user's decision.
// Used with the Redis counter (DB is the fallback).
func (r *MatchRepository) CountPendingFor(ctx context.Context, receiverID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("receiver_id = ? AND status = ?", receiverID, db.MatchStatusPending).
		Count(&count).Error
	return count, err
}

// Summary holds the match counters surfaced on the profile screen.
type Summary struct {
	TotalMatches    int64 `json:"totalMatches"`
	PendingMatches  int64 `json:"pendingMatches"`
	SentInterests   int64 `json:"sentInterests"`
	RejectedMatches int64 `json:"rejectedMatches"`
}

// GetSummary computes the user's match counters.
func (r *MatchRepository) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	s := &Summary{}
	q := r.db.WithContext(ctx).Model(&db.Match{})

	err := q.Session(&gorm.Session{}).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, db.MatchStatusAccepted).
		Count(&s.TotalMatches).Error
	if err != nil {
		return nil, err
	}
	err = q.Session(&gorm.Session{}).
		Where("receiver_id = ? AND status = ?", userID, db.MatchStatusPending).
		Count(&s.PendingMatches).Error
	if err != nil {
		return nil, err
	}
	err = q.Session(&gorm.Session{}).
		Where("sender_id = ? AND status = ?", userID, db.MatchStatusPending).
		Count(&s.SentInterests).Error
	if err != nil {
		return nil, err
	}
	err = q.Session(&gorm.Session{}).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, db.MatchStatusRejected).
		Count(&s.RejectedMatches).Error
	if err != nil {
		return nil, err
	}
	return s, nil
}
