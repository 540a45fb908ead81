package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/utils/pagination"
)

// ChatRepository provides data access for rooms, participants, messages
// and read receipts.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new repository bound to the given DB connection.
func NewChatRepository(database *gorm.DB) *ChatRepository {
	return &ChatRepository{db: database}
}

// GetRoom fetches a room by id.
func (r *ChatRepository) GetRoom(ctx context.Context, roomID string) (*db.ChatRoom, error) {
	var room db.ChatRoom
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetParticipant returns the membership row for (room, user), or nil when
// the user is not a participant. Membership checks never error on absence
// so callers can decide whether to ignore or reject.
func (r *ChatRepository) GetParticipant(ctx context.Context, roomID, userID string) (*db.ChatParticipant, error) {
	var p db.ChatParticipant
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns every membership row of a room.
func (r *ChatRepository) ListParticipants(ctx context.Context, roomID string) ([]db.ChatParticipant, error) {
	var parts []db.ChatParticipant
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Find(&parts).Error
	return parts, err
}

// ListRoomIDsFor returns the ids of every room the user belongs to,
// ordered by last activity descending.
func (r *ChatRepository) ListRoomIDsFor(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.ChatParticipant{}).
		Select("chat_participants.chat_room_id").
		Joins("JOIN chat_rooms ON chat_rooms.id = chat_participants.chat_room_id").
		Where("chat_participants.user_id = ?", userID).
		Order("chat_rooms.last_activity_at DESC").
		Pluck("chat_participants.chat_room_id", &ids).Error
	return ids, err
}

// CreateMessage persists a message with status SENT and bumps the room's
// last activity, in one transaction.
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&db.ChatRoom{}).
			Where("id = ?", msg.ChatRoomID).
			Update("last_activity_at", time.Now().UTC()).Error
	})
}

// GetMessage fetches a message by id.
func (r *ChatRepository) GetMessage(ctx context.Context, id string) (*db.Message, error) {
	var m db.Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// LastMessage returns the room's most recent message, or nil for an empty
// room.
func (r *ChatRepository) LastMessage(ctx context.Context, roomID string) (*db.Message, error) {
	var m db.Message
	err := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("sent_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CountUnread counts messages in a room sent by others that the user has
// no receipt for.
func (r *ChatRepository) CountUnread(ctx context.Context, roomID, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("messages m").
		Where("m.chat_room_id = ? AND m.sender_id <> ?", roomID, userID).
		Where(`NOT EXISTS (
			SELECT 1 FROM message_read_receipts rr
			WHERE rr.message_id = m.id AND rr.user_id = ?
		)`, userID).
		Count(&count).Error
	return count, err
}

// History returns up to limit messages of a room in chronological order,
// plus the cursor for the next (older) page. The opaque token encodes the
// oldest returned message's sent time and id.
func (r *ChatRepository) History(
	ctx context.Context,
	roomID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("chat_room_id = ?", roomID).
		Order("sent_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.MessageID != "" && cursor.SentUnix > 0 {
		ts := time.UnixMilli(cursor.SentUnix)
		query = query.Where(
			"(sent_at < ? OR (sent_at = ? AND id < ?))",
			ts, ts, cursor.MessageID,
		)
	}

	var messages []db.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MessageID: last.ID,
			SentUnix:  last.SentAt.UnixMilli(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	// Reverse into chronological order for the caller.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nextToken, nil
}

// FilterMessageIDsInRoom returns the subset of ids that are messages of
// the given room, discarding ids from other rooms or nowhere.
func (r *ChatRepository) FilterMessageIDsInRoom(ctx context.Context, roomID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var valid []string
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id IN ? AND chat_room_id = ?", ids, roomID).
		Pluck("id", &valid).Error
	return valid, err
}

// CreateReadReceipt records that a user has read a message. Idempotent:
// a duplicate receipt is a no-op. Returns whether a row was created.
func (r *ChatRepository) CreateReadReceipt(ctx context.Context, messageID, userID string) (bool, error) {
	receipt := db.MessageReadReceipt{MessageID: messageID, UserID: userID}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&receipt)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkMessagesRead flips the given messages to READ where the reader is
// not the sender. A message becomes READ once any non-sender receipt
// exists.
func (r *ChatRepository) MarkMessagesRead(ctx context.Context, roomID, readerID string, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id IN ? AND chat_room_id = ? AND sender_id <> ? AND status = ?",
			messageIDs, roomID, readerID, db.MessageStatusSent).
		Update("status", db.MessageStatusRead).Error
}

// UpdateLastReadAt stamps the participant's read progress.
func (r *ChatRepository) UpdateLastReadAt(ctx context.Context, roomID, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.ChatParticipant{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Update("last_read_at", at).Error
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
