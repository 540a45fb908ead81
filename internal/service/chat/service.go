package chat

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/app"
	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/repository"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
	"github.com/bandhanapp/bandhan-server/internal/utils/pagination"
)

// Pusher fans events out to live connections. Implemented by the realtime
// hub. Fan-out is best-effort: delivery failures never affect the
// persisted state.
type Pusher interface {
	// ToRoom broadcasts to every connection subscribed to roomID.
	// excludeUserID skips that user's connections; empty excludes no one.
	ToRoom(roomID, event string, payload any, excludeUserID string)
	ToUser(userID, event string, payload any)
	IsOnline(userID string) bool
}

// Service carries the room-scoped messaging logic. Both transports (REST
// and the realtime channel) call these methods, so side effects are
// identical regardless of how a message arrives.
type Service struct {
	appCtx   *app.AppContext
	chats    *repository.ChatRepository
	users    *repository.UserRepository
	blocks   *repository.BlockRepository
	notifier *notify.Service
	pusher   Pusher
}

// NewService creates the chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext, notifier *notify.Service, pusher Pusher) *Service {
	return &Service{
		appCtx:   appCtx,
		chats:    repository.NewChatRepository(appCtx.DB),
		users:    repository.NewUserRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		notifier: notifier,
		pusher:   pusher,
	}
}

// IsMember reports whether userID is a participant of roomID. Used by the
// realtime layer to decide join-chat subscriptions; non-membership is not
// an error so the caller can ignore silently without leaking existence.
func (s *Service) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	p, err := s.chats.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return false, apperr.Internal("failed to check membership", err)
	}
	return p != nil, nil
}

// MessageView is the wire shape of a message for both transports.
type MessageView struct {
	ID          string     `json:"id"`
	ChatID      string     `json:"chatId"`
	Content     string     `json:"content"`
	MessageType string     `json:"messageType"`
	Status      string     `json:"status"`
	SentAt      time.Time  `json:"sentAt"`
	Sender      SenderView `json:"sender"`
	IsRead      bool       `json:"isRead,omitempty"`
}

// SenderView identifies a message's author.
type SenderView struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture,omitempty"`
}

// PostMessage persists a message and fans it out.
//
// Side effects, in order: message row (status SENT) + room lastActivityAt
// bump, sender's own read receipt, new-message broadcast to the room,
// then a MESSAGE notification per other participant (live-pushed to their
// personal channel when connected). The broadcast happens synchronously
// after the write commits, so room delivery follows persistence order.
func (s *Service) PostMessage(ctx context.Context, userID, roomID, content, messageType string) (*MessageView, error) {
	if content == "" {
		return nil, apperr.InvalidArgument("message content is required")
	}
	if messageType == "" {
		messageType = "TEXT"
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("not authorized to send messages to this chat")
	}

	room, err := s.chats.GetRoom(ctx, roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load chat", err)
	}
	if !room.IsActive {
		return nil, apperr.InvalidArgument("this chat is no longer active")
	}

	participants, err := s.chats.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, apperr.Internal("failed to load participants", err)
	}

	// A block in either direction prevents new sends, even inside an
	// existing room. Existing history stays untouched.
	for _, p := range participants {
		if p.UserID == userID {
			continue
		}
		blocked, err := s.blocks.ExistsBetween(ctx, userID, p.UserID)
		if err != nil {
			return nil, apperr.Internal("failed to check blocks", err)
		}
		if blocked {
			return nil, apperr.Forbidden("not authorized to send messages to this chat")
		}
	}

	msg := &db.Message{
		ChatRoomID:  roomID,
		SenderID:    userID,
		Content:     content,
		MessageType: messageType,
		Status:      db.MessageStatusSent,
	}
	if err := s.chats.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to persist message", err)
	}

	// A sender always "reads" their own message.
	if _, err := s.chats.CreateReadReceipt(ctx, msg.ID, userID); err != nil {
		s.appCtx.Logger.Error("failed to create sender receipt", "message_id", msg.ID, "err", err)
	}

	view := s.messageView(ctx, msg, userID)

	if s.pusher != nil {
		s.pusher.ToRoom(roomID, "new-message", view, "")
	}

	for _, p := range participants {
		if p.UserID == userID {
			continue
		}
		if _, err := s.notifier.Notify(ctx, p.UserID, db.NotificationTypeMessage,
			"New Message", "New message from "+view.Sender.Name,
			map[string]any{"chatId": roomID, "messageId": msg.ID}); err != nil {
			s.appCtx.Logger.Error("failed to notify participant", "user_id", p.UserID, "err", err)
		}
	}

	return view, nil
}

// Typing broadcasts an ephemeral typing indicator to the room, excluding
// the sender. Nothing is persisted.
func (s *Service) Typing(ctx context.Context, userID, roomID string) error {
	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return apperr.Forbidden("not a participant of this chat")
	}
	if s.pusher != nil {
		s.pusher.ToRoom(roomID, "user-typing", map[string]any{
			"userId": userID,
			"chatId": roomID,
		}, userID)
	}
	return nil
}

// MarkRead records read receipts for the given messages. Idempotent:
// already-receipted ids are skipped. Affected messages flip SENT→READ
// once a non-sender receipt exists, the participant's lastReadAt is
// stamped, and a messages-read event goes to the room excluding the
// caller. Returns how many new receipts were created.
func (s *Service) MarkRead(ctx context.Context, userID, roomID string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, apperr.InvalidArgument("message ids are required")
	}

	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return 0, err
	}
	if !member {
		return 0, apperr.Forbidden("not a participant of this chat")
	}

	valid, err := s.chats.FilterMessageIDsInRoom(ctx, roomID, messageIDs)
	if err != nil {
		return 0, apperr.Internal("failed to validate message ids", err)
	}

	created := 0
	for _, id := range valid {
		ok, err := s.chats.CreateReadReceipt(ctx, id, userID)
		if err != nil {
			return created, apperr.Internal("failed to create read receipt", err)
		}
		if ok {
			created++
		}
	}

	if err := s.chats.MarkMessagesRead(ctx, roomID, userID, valid); err != nil {
		return created, apperr.Internal("failed to update message status", err)
	}
	if err := s.chats.UpdateLastReadAt(ctx, roomID, userID, time.Now().UTC()); err != nil {
		return created, apperr.Internal("failed to update read progress", err)
	}

	if s.pusher != nil {
		s.pusher.ToRoom(roomID, "messages-read", map[string]any{
			"userId":     userID,
			"chatId":     roomID,
			"messageIds": valid,
		}, userID)
	}

	return created, nil
}

// History returns a page of the room's messages in chronological order
// with an opaque cursor for older pages.
func (s *Service) History(ctx context.Context, userID, roomID string, paginationToken *string, limit int) ([]MessageView, *string, error) {
	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, apperr.Forbidden("not a participant of this chat")
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, next, err := s.chats.History(ctx, roomID, paginationToken, limit)
	if errors.Is(err, pagination.ErrInvalidToken) {
		return nil, nil, apperr.InvalidArgument("invalid pagination token")
	}
	if err != nil {
		return nil, nil, apperr.Internal("failed to load history", err)
	}

	views := make([]MessageView, 0, len(messages))
	cards := map[string]*db.Profile{}
	for i := range messages {
		m := &messages[i]
		if _, ok := cards[m.SenderID]; !ok {
			card, err := s.users.GetDisplayCard(ctx, m.SenderID)
			if err != nil {
				card = &db.Profile{UserID: m.SenderID}
			}
			cards[m.SenderID] = card
		}
		card := cards[m.SenderID]
		views = append(views, MessageView{
			ID:          m.ID,
			ChatID:      m.ChatRoomID,
			Content:     m.Content,
			MessageType: m.MessageType,
			Status:      m.Status,
			SentAt:      m.SentAt,
			IsRead:      m.Status == db.MessageStatusRead,
			Sender: SenderView{
				ID:             m.SenderID,
				Name:           displayName(card),
				ProfilePicture: card.ProfilePictureURL,
			},
		})
	}
	return views, next, nil
}

// ChatEntry is one row of the chat list.
type ChatEntry struct {
	ChatID       string       `json:"chatId"`
	User         *SenderView  `json:"user,omitempty"`
	LastMessage  *ChatPreview `json:"lastMessage,omitempty"`
	UnreadCount  int64        `json:"unreadCount"`
	LastActivity time.Time    `json:"lastActivity"`
}

// ChatPreview is the last-message preview in the chat list.
type ChatPreview struct {
	Content     string    `json:"content"`
	SentAt      time.Time `json:"sentAt"`
	SentByMe    bool      `json:"sentByMe"`
	MessageType string    `json:"messageType"`
}

// ChatList returns the user's rooms ordered by last activity, with the
// other participant's card, last message, and unread count.
func (s *Service) ChatList(ctx context.Context, userID string) ([]ChatEntry, error) {
	roomIDs, err := s.chats.ListRoomIDsFor(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to list chats", err)
	}

	out := make([]ChatEntry, 0, len(roomIDs))
	for _, roomID := range roomIDs {
		room, err := s.chats.GetRoom(ctx, roomID)
		if err != nil {
			continue
		}
		entry := ChatEntry{ChatID: roomID, LastActivity: room.LastActivityAt}

		participants, err := s.chats.ListParticipants(ctx, roomID)
		if err == nil {
			for _, p := range participants {
				if p.UserID == userID {
					continue
				}
				card, err := s.users.GetDisplayCard(ctx, p.UserID)
				if err != nil {
					card = &db.Profile{UserID: p.UserID}
				}
				entry.User = &SenderView{
					ID:             p.UserID,
					Name:           displayName(card),
					ProfilePicture: card.ProfilePictureURL,
				}
				break
			}
		}

		if msg, err := s.chats.LastMessage(ctx, roomID); err == nil && msg != nil {
			entry.LastMessage = &ChatPreview{
				Content:     msg.Content,
				SentAt:      msg.SentAt,
				SentByMe:    msg.SenderID == userID,
				MessageType: msg.MessageType,
			}
		}
		if n, err := s.chats.CountUnread(ctx, roomID, userID); err == nil {
			entry.UnreadCount = n
		}

		out = append(out, entry)
	}
	return out, nil
}

// RoomInfo describes a room to one of its members.
type RoomInfo struct {
	ChatID       string        `json:"chatId"`
	CreatedAt    time.Time     `json:"createdAt"`
	IsActive     bool          `json:"isActive"`
	Participants []Participant `json:"participants"`
}

// Participant is another member of a room with their read progress.
type Participant struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	LastSeen       *time.Time `json:"lastSeen,omitempty"`
}

// GetRoomInfo returns room metadata and the other participants. Forbidden
// for non-members.
func (s *Service) GetRoomInfo(ctx context.Context, userID, roomID string) (*RoomInfo, error) {
	member, err := s.IsMember(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperr.Forbidden("not a participant of this chat")
	}

	room, err := s.chats.GetRoom(ctx, roomID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load chat", err)
	}

	participants, err := s.chats.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, apperr.Internal("failed to load participants", err)
	}

	info := &RoomInfo{
		ChatID:    room.ID,
		CreatedAt: room.CreatedAt,
		IsActive:  room.IsActive,
	}
	for _, p := range participants {
		if p.UserID == userID {
			continue
		}
		card, err := s.users.GetDisplayCard(ctx, p.UserID)
		if err != nil {
			card = &db.Profile{UserID: p.UserID}
		}
		info.Participants = append(info.Participants, Participant{
			ID:             p.UserID,
			Name:           displayName(card),
			ProfilePicture: card.ProfilePictureURL,
			LastSeen:       p.LastReadAt,
		})
	}
	return info, nil
}

func (s *Service) messageView(ctx context.Context, m *db.Message, senderID string) *MessageView {
	card, err := s.users.GetDisplayCard(ctx, senderID)
	if err != nil {
		card = &db.Profile{UserID: senderID}
	}
	return &MessageView{
		ID:          m.ID,
		ChatID:      m.ChatRoomID,
		Content:     m.Content,
		MessageType: m.MessageType,
		Status:      m.Status,
		SentAt:      m.SentAt,
		Sender: SenderView{
			ID:             senderID,
			Name:           displayName(card),
			ProfilePicture: card.ProfilePictureURL,
		},
	}
}

func displayName(p *db.Profile) string {
	if p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return "User"
}
