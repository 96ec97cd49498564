package internal_auth_service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acasochat/acaso/api/chat-api/config"
	internal_entity "github.com/acasochat/acaso/api/chat-api/internal/entity"
	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/configs"
	"github.com/acasochat/acaso/pkg/connectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySessions struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemorySessions() *memorySessions {
	return &memorySessions{items: map[string]string{}}
}

func (m *memorySessions) Save(_ context.Context, tokenID, userID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[tokenID] = userID
	return nil
}

func (m *memorySessions) Owner(_ context.Context, tokenID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[tokenID], nil
}

func (m *memorySessions) Revoke(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, tokenID)
	return nil
}

func newTestPostgres(t *testing.T) connectors.PostgresConnector {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	pg := connectors.NewPostgresConnector(configs.PostgresConfig{
		Driver:            "sqlite",
		DBName:            "file:" + name + "?mode=memory&cache=shared",
		MaxOpenConnection: 1,
	}, commons.NewNopLogger())
	require.NoError(t, pg.Connect(context.Background()))
	require.NoError(t, pg.Migrate(context.Background(), internal_entity.All()...))
	t.Cleanup(func() { _ = pg.Disconnect(context.Background()) })
	return pg
}

func newTestAuthService(t *testing.T, requireConfirmation bool) (*authService, *memorySessions) {
	cfg := &config.AppConfig{
		Name:   "chat-api",
		Secret: "0123456789abcdef0123456789abcdef",
		Auth: config.AuthConfig{
			TokenTTL:                 time.Hour,
			RequireEmailConfirmation: requireConfirmation,
		},
	}
	sessions := newMemorySessions()
	svc := NewAuthService(cfg, commons.NewNopLogger(), newTestPostgres(t), sessions).(*authService)
	return svc, sessions
}

func TestSignup_IssuesSessionAndDefaultsUsername(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t, false)

	session, err := svc.Signup(ctx, " Ana@Example.com ", "secret123", "", "BR")
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "ana@example.com", session.User.Email)
	assert.Equal(t, "ana", session.User.Username, "username falls back to the email prefix")
	assert.Equal(t, "BR", session.User.Country)

	principle, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.UserId, principle.GetUserId())
	assert.Equal(t, session.User.TokenId, principle.GetTokenId())
}

func TestSignup_WeakPassword(t *testing.T) {
	svc, _ := newTestAuthService(t, false)
	_, err := svc.Signup(context.Background(), "a@b.c", "123", "a", "")
	assert.ErrorIs(t, err, internal_services.ErrWeakPassword)
}

func TestSignup_ExistingEmailFallsBackToLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t, false)

	first, err := svc.Signup(ctx, "bia@example.com", "secret123", "bia", "")
	require.NoError(t, err)

	again, err := svc.Signup(ctx, "bia@example.com", "secret123", "other", "")
	require.NoError(t, err, "same credentials log the user in")
	assert.Equal(t, first.User.UserId, again.User.UserId)
	assert.Equal(t, "bia", again.User.Username)

	_, err = svc.Signup(ctx, "bia@example.com", "wrongpass", "other", "")
	assert.ErrorIs(t, err, internal_services.ErrConfirmationRequired)
}

func TestSignup_ConfirmationRequired(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t, true)

	_, err := svc.Signup(ctx, "caio@example.com", "secret123", "caio", "")
	assert.ErrorIs(t, err, internal_services.ErrConfirmationRequired)

	_, err = svc.Login(ctx, "caio@example.com", "secret123")
	assert.ErrorIs(t, err, internal_services.ErrEmailNotConfirmed)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t, false)
	_, err := svc.Signup(ctx, "duda@example.com", "secret123", "duda", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
		err      error
	}{
		{"ok", "duda@example.com", "secret123", nil},
		{"case insensitive email", "DUDA@example.com", "secret123", nil},
		{"wrong password", "duda@example.com", "nope-nope", internal_services.ErrInvalidCredentials},
		{"unknown user", "nobody@example.com", "secret123", internal_services.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, tt.email, tt.password)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "duda", session.User.Username)
		})
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	ctx := context.Background()
	svc, sessions := newTestAuthService(t, false)
	session, err := svc.Signup(ctx, "edu@example.com", "secret123", "edu", "")
	require.NoError(t, err)

	principle, err := svc.Authenticate(ctx, session.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, principle))
	require.NoError(t, svc.Logout(ctx, principle), "logout is idempotent")
	assert.Empty(t, sessions.items)

	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, internal_services.ErrUnauthenticated)
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t, false)
	session, err := svc.Signup(ctx, "fabi@example.com", "secret123", "fabi", "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, internal_services.ErrUnauthenticated)

	_, err = svc.Authenticate(ctx, session.Token+"x")
	assert.ErrorIs(t, err, internal_services.ErrUnauthenticated)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Authenticate(ctx, session.Token)
	assert.ErrorIs(t, err, internal_services.ErrUnauthenticated, "expired token")
}
