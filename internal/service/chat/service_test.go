package chat_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/app"
	"github.com/bandhanapp/bandhan-server/internal/apperr"
	"github.com/bandhanapp/bandhan-server/internal/cache"
	"github.com/bandhanapp/bandhan-server/internal/config"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/service/chat"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
)

//
// Test helpers
//

type roomEvent struct {
	RoomID  string
	Event   string
	Exclude string
}

// fakePusher records room broadcasts and user pushes.
type fakePusher struct {
	roomEvents []roomEvent
	userEvents []string // "userID:event"
	online     map[string]bool
}

func (f *fakePusher) ToRoom(roomID, event string, _ any, excludeUserID string) {
	f.roomEvents = append(f.roomEvents, roomEvent{RoomID: roomID, Event: event, Exclude: excludeUserID})
}

func (f *fakePusher) ToUser(userID, event string, _ any) {
	f.userEvents = append(f.userEvents, userID+":"+event)
}

func (f *fakePusher) IsOnline(userID string) bool { return f.online[userID] }

type fixture struct {
	svc    *chat.Service
	db     *gorm.DB
	pusher *fakePusher
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	appCtx := app.New(dbase, redisCache, logger)
	pusher := &fakePusher{online: map[string]bool{}}
	notifier := notify.NewService(appCtx, pusher)

	return &fixture{
		svc:    chat.NewService(appCtx, notifier, pusher),
		db:     dbase,
		pusher: pusher,
	}
}

func seedUser(t *testing.T, dbase *gorm.DB, id string) {
	t.Helper()
	require.NoError(t, dbase.Create(&db.User{ID: id, Email: id + "@test.com", Active: true}).Error)
	require.NoError(t, dbase.Create(&db.Profile{UserID: id, DisplayName: id}).Error)
}

func seedRoom(t *testing.T, dbase *gorm.DB, members ...string) *db.ChatRoom {
	t.Helper()
	room := &db.ChatRoom{}
	require.NoError(t, dbase.Create(room).Error)
	for _, m := range members {
		require.NoError(t, dbase.Create(&db.ChatParticipant{ChatRoomID: room.ID, UserID: m}).Error)
	}
	return room
}

func roomEvents(f *fakePusher, event string) []roomEvent {
	var out []roomEvent
	for _, e := range f.roomEvents {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

//
// Tests
//

// TestPostMessage verifies the full side-effect chain of a send: persisted
// message with status SENT, the sender's own receipt, the room broadcast,
// and a MESSAGE notification for the other participant.
func TestPostMessage(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	view, err := f.svc.PostMessage(ctx, "alice", room.ID, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", view.Content)
	assert.Equal(t, "TEXT", view.MessageType)
	assert.Equal(t, db.MessageStatusSent, view.Status)
	assert.Equal(t, "alice", view.Sender.ID)

	// Sender's own receipt exists.
	var receipts int64
	require.NoError(t, f.db.Model(&db.MessageReadReceipt{}).
		Where("message_id = ? AND user_id = ?", view.ID, "alice").
		Count(&receipts).Error)
	assert.Equal(t, int64(1), receipts)

	// Broadcast went to the whole room.
	events := roomEvents(f.pusher, "new-message")
	require.Len(t, events, 1)
	assert.Equal(t, room.ID, events[0].RoomID)
	assert.Empty(t, events[0].Exclude)

	// Other participant got a durable MESSAGE notification.
	var ns []db.Notification
	require.NoError(t, f.db.Where("user_id = ?", "bob").Find(&ns).Error)
	require.Len(t, ns, 1)
	assert.Equal(t, db.NotificationTypeMessage, ns[0].Type)
	assert.Equal(t, room.ID, ns[0].Data["chatId"])
}

func TestPostMessageNonMember(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	seedUser(t, f.db, "mallory")
	room := seedRoom(t, f.db, "alice", "bob")

	_, err := f.svc.PostMessage(ctx, "mallory", room.ID, "hi", "")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	var count int64
	require.NoError(t, f.db.Model(&db.Message{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestPostMessageEmptyContent(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	room := seedRoom(t, f.db, "alice")

	_, err := f.svc.PostMessage(ctx, "alice", room.ID, "", "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestPostMessageBlocked(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	// A block in either direction stops new sends in both directions.
	require.NoError(t, f.db.Create(&db.Block{BlockerID: "bob", BlockedID: "alice"}).Error)

	_, err := f.svc.PostMessage(ctx, "alice", room.ID, "hi", "")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = f.svc.PostMessage(ctx, "bob", room.ID, "hi", "")
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestPostMessageInactiveRoom(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	room := seedRoom(t, f.db, "alice")
	require.NoError(t, f.db.Model(&db.ChatRoom{}).Where("id = ?", room.ID).Update("is_active", false).Error)

	_, err := f.svc.PostMessage(ctx, "alice", room.ID, "hi", "")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

// TestMarkRead: receipts are created once, affected messages flip to READ,
// and a messages-read event excludes the reader. A second identical call
// creates nothing.
func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	m1, err := f.svc.PostMessage(ctx, "alice", room.ID, "one", "")
	require.NoError(t, err)
	m2, err := f.svc.PostMessage(ctx, "alice", room.ID, "two", "")
	require.NoError(t, err)

	created, err := f.svc.MarkRead(ctx, "bob", room.ID, []string{m1.ID, m2.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var msg db.Message
	require.NoError(t, f.db.First(&msg, "id = ?", m1.ID).Error)
	assert.Equal(t, db.MessageStatusRead, msg.Status)

	events := roomEvents(f.pusher, "messages-read")
	require.Len(t, events, 1)
	assert.Equal(t, "bob", events[0].Exclude)

	// Idempotent.
	created, err = f.svc.MarkRead(ctx, "bob", room.ID, []string{m1.ID, m2.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// Read progress stamped.
	var p db.ChatParticipant
	require.NoError(t, f.db.Where("chat_room_id = ? AND user_id = ?", room.ID, "bob").First(&p).Error)
	assert.NotNil(t, p.LastReadAt)
}

func TestMarkReadNonMember(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "mallory")
	room := seedRoom(t, f.db, "alice")

	_, err := f.svc.MarkRead(ctx, "mallory", room.ID, []string{"any"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestTypingExcludesSender(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	require.NoError(t, f.svc.Typing(ctx, "alice", room.ID))

	events := roomEvents(f.pusher, "user-typing")
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Exclude)

	// Nothing persisted.
	var count int64
	require.NoError(t, f.db.Model(&db.Message{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestTypingNonMember(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "mallory")
	room := seedRoom(t, f.db, "alice")

	err := f.svc.Typing(ctx, "mallory", room.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	sent, err := f.svc.PostMessage(ctx, "alice", room.ID, "hello", "")
	require.NoError(t, err)
	_, err = f.svc.MarkRead(ctx, "bob", room.ID, []string{sent.ID})
	require.NoError(t, err)

	views, next, err := f.svc.History(ctx, "bob", room.ID, nil, 50)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Nil(t, next)
	assert.Equal(t, "hello", views[0].Content)
	assert.Equal(t, "alice", views[0].Sender.Name)
	assert.True(t, views[0].IsRead)
}

func TestHistoryNonMember(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "mallory")
	room := seedRoom(t, f.db, "alice")

	_, _, err := f.svc.History(ctx, "mallory", room.ID, nil, 50)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

// A malformed pagination token is the client's fault, not a server
// failure.
func TestHistoryMalformedToken(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	token := "!!!not-a-token!!!"
	_, _, err := f.svc.History(ctx, "alice", room.ID, &token, 50)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidArgument))
}

func TestChatList(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	_, err := f.svc.PostMessage(ctx, "bob", room.ID, "hey alice", "")
	require.NoError(t, err)

	entries, err := f.svc.ChatList(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, room.ID, entry.ChatID)
	require.NotNil(t, entry.User)
	assert.Equal(t, "bob", entry.User.ID)
	require.NotNil(t, entry.LastMessage)
	assert.Equal(t, "hey alice", entry.LastMessage.Content)
	assert.False(t, entry.LastMessage.SentByMe)
	assert.Equal(t, int64(1), entry.UnreadCount)
}

func TestGetRoomInfo(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	seedUser(t, f.db, "bob")
	room := seedRoom(t, f.db, "alice", "bob")

	info, err := f.svc.GetRoomInfo(ctx, "alice", room.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, info.ChatID)
	assert.True(t, info.IsActive)
	require.Len(t, info.Participants, 1)
	assert.Equal(t, "bob", info.Participants[0].ID)

	_, err = f.svc.GetRoomInfo(ctx, "mallory", room.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestIsMember(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	seedUser(t, f.db, "alice")
	room := seedRoom(t, f.db, "alice")

	ok, err := f.svc.IsMember(ctx, room.ID, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsMember(ctx, room.ID, "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
