package notify_test

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
	"github.com/bandhanapp/bandhan-server/internal/cache"
	"github.com/bandhanapp/bandhan-server/internal/config"
	"github.com/bandhanapp/bandhan-server/internal/db"
	"github.com/bandhanapp/bandhan-server/internal/service/notify"
)

type fakePusher struct {
	pushed []string
	online map[string]bool
}

func (f *fakePusher) ToUser(userID, event string, _ any) {
	f.pushed = append(f.pushed, userID+":"+event)
}

func (f *fakePusher) IsOnline(userID string) bool { return f.online[userID] }

func setupService(t *testing.T) (*notify.Service, *fakePusher) {
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
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	appCtx := app.New(dbase, redisCache, logger)
	pusher := &fakePusher{online: map[string]bool{}}
	return notify.NewService(appCtx, pusher), pusher
}

func TestNotifyPersistsBeforePush(t *testing.T) {
	ctx := context.Background()
	svc, pusher := setupService(t)

	n, err := svc.Notify(ctx, "alice", db.NotificationTypeLike,
		"New Interest", "Someone is interested!", map[string]any{"matchId": "m1"})
	require.NoError(t, err)
	require.NotEmpty(t, n.ID)

	// Offline: persisted but not pushed.
	assert.Empty(t, pusher.pushed)

	got, err := svc.List(ctx, "alice", false, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, db.NotificationTypeLike, got[0].Type)
	assert.False(t, got[0].IsRead)
}

func TestNotifyPushesWhenOnline(t *testing.T) {
	ctx := context.Background()
	svc, pusher := setupService(t)
	pusher.online["alice"] = true

	_, err := svc.Notify(ctx, "alice", db.NotificationTypeMatch, "New Match!", "You matched", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice:new-notification"}, pusher.pushed)
}

func TestMarkReadScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	n, err := svc.Notify(ctx, "alice", db.NotificationTypeLike, "t", "m", nil)
	require.NoError(t, err)

	// Someone else's id does not flip alice's notification.
	require.NoError(t, svc.MarkRead(ctx, n.ID, "mallory"))
	unread, err := svc.List(ctx, "alice", true, 10, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	require.NoError(t, svc.MarkRead(ctx, n.ID, "alice"))
	unread, err = svc.List(ctx, "alice", true, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	// Marking twice stays settled.
	require.NoError(t, svc.MarkRead(ctx, n.ID, "alice"))
	count, err := svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestUnreadCount(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Notify(ctx, "alice", db.NotificationTypeMessage, "t", "m", nil)
		require.NoError(t, err)
	}

	count, err := svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// Cached read agrees after a mark.
	list, err := svc.List(ctx, "alice", true, 10, 0)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, list[0].ID, "alice"))

	count, err = svc.UnreadCount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
