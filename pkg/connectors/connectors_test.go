package connectors

import (
	"context"
	"testing"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/configs"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:20"`
}

func TestPostgresConnector_SqliteLifecycle(t *testing.T) {
	ctx := context.Background()
	pg := NewPostgresConnector(configs.PostgresConfig{
		Driver: "sqlite",
		DBName: "file:connector_lifecycle?mode=memory&cache=shared",
	}, commons.NewNopLogger())

	assert.False(t, pg.IsConnected(ctx), "not connected before Connect")
	require.NoError(t, pg.Connect(ctx))
	assert.True(t, pg.IsConnected(ctx))

	require.NoError(t, pg.Migrate(ctx, &widget{}))
	require.NoError(t, pg.DB(ctx).Create(&widget{Name: "x"}).Error)

	var count int64
	require.NoError(t, pg.DB(ctx).Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, pg.Disconnect(ctx))
}

func TestRedisConnector_WithClient(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	rc := NewRedisConnectorWithClient(client, commons.NewNopLogger())

	mock.ExpectPing().SetVal("PONG")
	assert.True(t, rc.IsConnected(ctx))
	assert.Same(t, client, rc.GetConnection())
	assert.NoError(t, mock.ExpectationsWereMet())
}
