package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/repository"
)

// setup in-memory DB; shared cache keeps pooled connections on the same
// database across transactions.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("failed to access sql db: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func seedPendingMatch(t *testing.T, dbase *gorm.DB, sender, receiver string) *db.Match {
	t.Helper()
	m := &db.Match{SenderID: sender, ReceiverID: receiver, Status: db.MatchStatusPending}
	require.NoError(t, dbase.Create(m).Error)
	return m
}

func TestAcceptAndCreateRoom(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m := seedPendingMatch(t, dbase, "alice", "bob")

	room, err := repo.AcceptAndCreateRoom(ctx, m.ID)
	require.NoError(t, err)
	require.NotEmpty(t, room.ID)

	// Match flipped and points at the room.
	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.MatchStatusAccepted, got.Status)
	require.NotNil(t, got.ChatRoomID)
	assert.Equal(t, room.ID, *got.ChatRoomID)

	// Both parties are participants.
	var parts []db.ChatParticipant
	require.NoError(t, dbase.Where("chat_room_id = ?", room.ID).Find(&parts).Error)
	assert.Len(t, parts, 2)
}

// TestAcceptAndCreateRoomOnlyOnce covers the accept race: the second flip
// finds the match no longer PENDING, returns ErrNotPending, and its
// provisional room is rolled back so exactly one room ever exists.
func TestAcceptAndCreateRoomOnlyOnce(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m := seedPendingMatch(t, dbase, "alice", "bob")

	room, err := repo.AcceptAndCreateRoom(ctx, m.ID)
	require.NoError(t, err)

	_, err = repo.AcceptAndCreateRoom(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotPending)

	var roomCount int64
	require.NoError(t, dbase.Model(&db.ChatRoom{}).Count(&roomCount).Error)
	assert.Equal(t, int64(1), roomCount)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, room.ID, *got.ChatRoomID)
}

func TestRejectIsConditional(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m := seedPendingMatch(t, dbase, "alice", "bob")

	require.NoError(t, repo.Reject(ctx, m.ID))
	assert.ErrorIs(t, repo.Reject(ctx, m.ID), repository.ErrNotPending)

	got, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, db.MatchStatusRejected, got.Status)
	assert.Nil(t, got.ChatRoomID)
}

func TestRejectAfterAccept(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m := seedPendingMatch(t, dbase, "alice", "bob")
	_, err := repo.AcceptAndCreateRoom(ctx, m.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Reject(ctx, m.ID), repository.ErrNotPending)
}

func TestFindByPairBothDirections(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	m := seedPendingMatch(t, dbase, "alice", "bob")

	got, err := repo.FindByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)

	got, err = repo.FindByPair(ctx, "bob", "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.ID, got.ID)

	got, err = repo.FindByPair(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateLikeIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	require.NoError(t, repo.CreateLike(ctx, "alice", "bob"))
	require.NoError(t, repo.CreateLike(ctx, "alice", "bob"))

	var count int64
	require.NoError(t, dbase.Model(&db.Like{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInteractedUserIDs(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	seedPendingMatch(t, dbase, "alice", "bob")
	seedPendingMatch(t, dbase, "carol", "alice")

	ids, err := repo.InteractedUserIDs(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, ids)
}

func TestGetSummary(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	accepted := seedPendingMatch(t, dbase, "alice", "bob")
	_, err := repo.AcceptAndCreateRoom(ctx, accepted.ID)
	require.NoError(t, err)

	seedPendingMatch(t, dbase, "carol", "alice") // pending toward alice
	seedPendingMatch(t, dbase, "alice", "dave")  // sent by alice

	rejected := seedPendingMatch(t, dbase, "erin", "alice")
	require.NoError(t, repo.Reject(ctx, rejected.ID))

	s, err := repo.GetSummary(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.TotalMatches)
	assert.Equal(t, int64(1), s.PendingMatches)
	assert.Equal(t, int64(1), s.SentInterests)
	assert.Equal(t, int64(1), s.RejectedMatches)
}
