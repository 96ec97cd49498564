package internal_presence_service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/configs"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/acasochat/acaso/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostgres(t *testing.T, migrate bool) connectors.PostgresConnector {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	pg := connectors.NewPostgresConnector(configs.PostgresConfig{
		Driver:            "sqlite",
		DBName:            "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConnection: 1,
	}, commons.NewNopLogger())
	require.NoError(t, pg.Connect(context.Background()))
	if migrate {
		require.NoError(t, pg.Migrate(context.Background(), internal_entity.All()...))
	}
	t.Cleanup(func() { _ = pg.Disconnect(context.Background()) })
	return pg
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestPresence(t *testing.T) (*presenceService, connectors.PostgresConnector, *clock) {
	cfg := &config.AppConfig{Presence: config.PresenceConfig{StaleAfter: 2 * time.Minute, MatchBatch: 20}}
	pg := newTestPostgres(t, true)
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewPresenceService(cfg, commons.NewNopLogger(), pg).(*presenceService)
	svc.now = c.now
	svc.pick = func(n int) int { return 0 }
	return svc, pg, c
}

func user(id, country string) types.SimplePrinciple {
	return &types.UserPrinciple{UserId: id, Country: country}
}

func TestRegister_UpsertsOnUser(t *testing.T) {
	ctx := context.Background()
	svc, pg, _ := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("u1", "BR"), "peer-a"))
	require.NoError(t, svc.UpdateStatus(ctx, user("u1", "BR"), internal_entity.StatusChatting))
	require.NoError(t, svc.Register(ctx, user("u1", "BR"), "peer-b"))

	var rows []internal_entity.Presence
	require.NoError(t, pg.DB(ctx).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "peer-b", rows[0].PeerID)
	assert.Equal(t, internal_entity.StatusWaiting, rows[0].Status)
	assert.Equal(t, "BR", rows[0].Country)
}

func TestRegister_Unauthenticated(t *testing.T) {
	svc, _, _ := newTestPresence(t)
	assert.ErrorIs(t, svc.Register(context.Background(), nil, "peer"), internal_services.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Register(context.Background(), user("", ""), "peer"), internal_services.ErrUnauthenticated)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestPresence(t)
	err := svc.UpdateStatus(context.Background(), user("u1", ""), "busy")
	assert.ErrorIs(t, err, internal_services.ErrInvalidStatus)
}

func TestFindRandomPeer(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestPresence(t)

	match, err := svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	require.NoError(t, err)
	assert.Nil(t, match, "empty registry is not an error")

	require.NoError(t, svc.Register(ctx, user("u1", ""), "peer-1"))
	require.NoError(t, svc.Register(ctx, user("u2", "PT"), "peer-2"))
	require.NoError(t, svc.Register(ctx, user("u3", "AR"), "peer-3"))
	require.NoError(t, svc.UpdateStatus(ctx, user("u3", "AR"), internal_entity.StatusChatting))

	match, err = svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "peer-2", match.PeerID)
	assert.Equal(t, "PT", match.Country)
}

func TestFindRandomPeer_ExcludesOwnRowsAndStalePeers(t *testing.T) {
	ctx := context.Background()
	svc, pg, c := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("u2", ""), "peer-2"))
	c.advance(3 * time.Minute)
	require.NoError(t, svc.Register(ctx, user("u1", ""), "peer-1"))
	// a leftover row of the same user under another peer id
	require.NoError(t, pg.DB(ctx).Create(&internal_entity.Presence{
		UserID: "u1-old", PeerID: "peer-1", Status: internal_entity.StatusWaiting, UpdatedAt: c.now(),
	}).Error)

	match, err := svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestFindRandomPeer_SkipsBlockedPairs(t *testing.T) {
	ctx := context.Background()
	svc, pg, c := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("u1", ""), "peer-1"))
	require.NoError(t, svc.Register(ctx, user("u2", ""), "peer-2"))
	require.NoError(t, svc.Register(ctx, user("u3", ""), "peer-3"))
	require.NoError(t, pg.DB(ctx).Create(&[]internal_entity.Block{
		{UserID: "u1", BlockedUserID: "u2", CreatedDate: c.now()},
		{UserID: "u3", BlockedUserID: "u1", CreatedDate: c.now()},
	}).Error)

	match, err := svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	require.NoError(t, err)
	assert.Nil(t, match, "blocks apply in both directions")

	match, err = svc.FindRandomPeer(ctx, user("u2", ""), "peer-2")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "peer-3", match.PeerID)
}

func TestFindRandomPeer_UsesBoundedBatch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestPresence(t)
	svc.cfg.Presence.MatchBatch = 2

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, svc.Register(ctx, user("u-"+id, ""), "peer-"+id))
	}
	var seen int
	svc.pick = func(n int) int {
		seen = n
		return n - 1
	}
	match, err := svc.FindRandomPeer(ctx, user("me", ""), "peer-me")
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, 2, seen)
}

func TestFindRandomPeer_RefreshesCallerRow(t *testing.T) {
	ctx := context.Background()
	svc, pg, c := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("u1", ""), "peer-1"))
	c.advance(time.Minute)
	_, err := svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	require.NoError(t, err)

	var row internal_entity.Presence
	require.NoError(t, pg.DB(ctx).Where("user_id = ?", "u1").First(&row).Error)
	assert.True(t, row.UpdatedAt.Equal(c.now()))
}

func TestRemoveAndOwnerOf(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("u1", ""), "peer-1"))
	require.NoError(t, svc.Register(ctx, user("u2", ""), "peer-2"))

	owner, err := svc.OwnerOf(ctx, "peer-2")
	require.NoError(t, err)
	assert.Equal(t, "u2", owner)

	require.NoError(t, svc.Remove(ctx, user("u1", "")))
	require.NoError(t, svc.RemoveByPeer(ctx, "peer-2"))
	require.NoError(t, svc.RemoveByPeer(ctx, "peer-unknown"))

	owner, err = svc.OwnerOf(ctx, "peer-2")
	require.NoError(t, err)
	assert.Empty(t, owner)

	match, err := svc.FindRandomPeer(ctx, user("u3", ""), "peer-3")
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestSweep_DeletesOnlyStaleWaitingRows(t *testing.T) {
	ctx := context.Background()
	svc, pg, c := newTestPresence(t)

	require.NoError(t, svc.Register(ctx, user("stale", ""), "peer-stale"))
	require.NoError(t, svc.Register(ctx, user("busy", ""), "peer-busy"))
	require.NoError(t, svc.UpdateStatus(ctx, user("busy", ""), internal_entity.StatusChatting))
	c.advance(5 * time.Minute)
	require.NoError(t, svc.Register(ctx, user("fresh", ""), "peer-fresh"))

	removed, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	var ids []string
	require.NoError(t, pg.DB(ctx).Model(&internal_entity.Presence{}).Order("user_id").Pluck("user_id", &ids).Error)
	assert.Equal(t, []string{"busy", "fresh"}, ids)
}

func TestMissingRegistry(t *testing.T) {
	ctx := context.Background()
	cfg := &config.AppConfig{Presence: config.PresenceConfig{StaleAfter: time.Minute}}
	svc := NewPresenceService(cfg, commons.NewNopLogger(), newTestPostgres(t, false))

	err := svc.Register(ctx, user("u1", ""), "peer-1")
	assert.ErrorIs(t, err, internal_services.ErrRegistryUnavailable)

	_, err = svc.FindRandomPeer(ctx, user("u1", ""), "peer-1")
	assert.ErrorIs(t, err, internal_services.ErrRegistryUnavailable)
}

func TestRunSweeper_StopsWithContext(t *testing.T) {
	svc, _, _ := newTestPresence(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunSweeper(ctx, commons.NewNopLogger(), svc, 10*time.Millisecond) }()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
