package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/repository"
	"github.com/bandhanapp/bandhan-server/internal/utils/pagination"
)

func seedRoom(t *testing.T, dbase *gorm.DB, members ...string) *db.ChatRoom {
	t.Helper()
	room := &db.ChatRoom{}
	require.NoError(t, dbase.Create(room).Error)
	for _, m := range members {
		require.NoError(t, dbase.Create(&db.ChatParticipant{ChatRoomID: room.ID, UserID: m}).Error)
	}
	return room
}

func seedMessages(t *testing.T, repo *repository.ChatRepository, roomID, sender string, n int) []db.Message {
	t.Helper()
	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	out := make([]db.Message, 0, n)
	for i := 0; i < n; i++ {
		msg := db.Message{
			ChatRoomID:  roomID,
			SenderID:    sender,
			Content:     fmt.Sprintf("message %d", i+1),
			MessageType: "TEXT",
			Status:      db.MessageStatusSent,
			SentAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.CreateMessage(context.Background(), &msg))
		out = append(out, msg)
	}
	return out
}

func TestGetParticipant(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")

	p, err := repo.GetParticipant(ctx, room.ID, "alice")
	require.NoError(t, err)
	assert.NotNil(t, p)

	// Absence is not an error.
	p, err = repo.GetParticipant(ctx, room.ID, "mallory")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCreateMessageBumpsActivity(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	before := room.LastActivityAt

	time.Sleep(5 * time.Millisecond)
	seedMessages(t, repo, room.ID, "alice", 1)

	got, err := repo.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.LastActivityAt.After(before))
}

// TestHistoryPagination walks three pages of a five-message room with
// limit 2 and verifies chronological order inside each page and that the
// cursor terminates.
func TestHistoryPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	seedMessages(t, repo, room.ID, "alice", 5)

	page1, token1, err := repo.History(ctx, room.ID, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, token1)
	assert.Equal(t, "message 4", page1[0].Content)
	assert.Equal(t, "message 5", page1[1].Content)

	page2, token2, err := repo.History(ctx, room.ID, token1, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	require.NotNil(t, token2)
	assert.Equal(t, "message 2", page2[0].Content)
	assert.Equal(t, "message 3", page2[1].Content)

	page3, token3, err := repo.History(ctx, room.ID, token2, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Nil(t, token3)
	assert.Equal(t, "message 1", page3[0].Content)
}

func TestHistoryBadToken(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	bad := "not-a-cursor"
	_, _, err := repo.History(ctx, room.ID, &bad, 10)
	assert.ErrorIs(t, err, pagination.ErrInvalidToken)
}

func TestCreateReadReceiptIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	msgs := seedMessages(t, repo, room.ID, "alice", 1)

	created, err := repo.CreateReadReceipt(ctx, msgs[0].ID, "bob")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.CreateReadReceipt(ctx, msgs[0].ID, "bob")
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, dbase.Model(&db.MessageReadReceipt{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCountUnread(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	msgs := seedMessages(t, repo, room.ID, "alice", 3)

	// Own messages never count as unread for the sender.
	n, err := repo.CountUnread(ctx, room.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = repo.CountUnread(ctx, room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = repo.CreateReadReceipt(ctx, msgs[0].ID, "bob")
	require.NoError(t, err)

	n, err = repo.CountUnread(ctx, room.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestMarkMessagesReadSkipsSender(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	fromAlice := seedMessages(t, repo, room.ID, "alice", 1)
	fromBob := seedMessages(t, repo, room.ID, "bob", 1)

	ids := []string{fromAlice[0].ID, fromBob[0].ID}
	require.NoError(t, repo.MarkMessagesRead(ctx, room.ID, "bob", ids))

	got, err := repo.GetMessage(ctx, fromAlice[0].ID)
	require.NoError(t, err)
	assert.Equal(t, db.MessageStatusRead, got.Status)

	// Bob reading his own message must not flip it.
	got, err = repo.GetMessage(ctx, fromBob[0].ID)
	require.NoError(t, err)
	assert.Equal(t, db.MessageStatusSent, got.Status)
}

func TestFilterMessageIDsInRoom(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	room := seedRoom(t, dbase, "alice", "bob")
	other := seedRoom(t, dbase, "carol", "dave")
	inRoom := seedMessages(t, repo, room.ID, "alice", 2)
	elsewhere := seedMessages(t, repo, other.ID, "carol", 1)

	valid, err := repo.FilterMessageIDsInRoom(ctx, room.ID,
		[]string{inRoom[0].ID, inRoom[1].ID, elsewhere[0].ID, "ghost"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{inRoom[0].ID, inRoom[1].ID}, valid)
}

func TestListRoomIDsForOrdering(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatRepository(dbase)

	first := seedRoom(t, dbase, "alice", "bob")
	second := seedRoom(t, dbase, "alice", "carol")

	// Activity in the older room moves it to the front.
	time.Sleep(5 * time.Millisecond)
	seedMessages(t, repo, first.ID, "bob", 1)

	ids, err := repo.ListRoomIDsFor(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, first.ID, ids[0])
	assert.Equal(t, second.ID, ids[1])
}
