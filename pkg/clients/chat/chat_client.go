// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package chat_client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/acasochat/acaso/pkg/catalog"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/utils"
)

// presence statuses accepted by UpdateStatus
const (
	PresenceWaiting  = "waiting"
	PresenceChatting = "chatting"
)

var (
	ErrUnauthenticated     = errors.New("not signed in")
	ErrRegistryUnavailable = errors.New("presence registry unavailable")
)

type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Country  string `json:"country,omitempty"`
}

type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Match struct {
	PeerID  string `json:"peerId"`
	Country string `json:"country,omitempty"`
}

type Filters struct {
	Video []catalog.Entry `json:"video"`
	Audio []catalog.Entry `json:"audio"`
}

// APIError is a non-2xx answer from chat-api.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("chat-api %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("chat-api %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRegistryUnavailable:
		return e.Code == utils.CODE_REGISTRY_UNAVAILABLE
	case ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type ChatClient interface {
	Signup(ctx context.Context, email, password, username string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context) error
	// CurrentUser restores the stored session. It returns nil when there is
	// none or it expired.
	CurrentUser(ctx context.Context) (*User, error)
	Token() string

	RegisterPresence(ctx context.Context, peerID string) error
	UpdateStatus(ctx context.Context, status string) error
	FindRandomPeer(ctx context.Context, peerID string) (*Match, error)
	RemovePresence(ctx context.Context) error

	Report(ctx context.Context, peerID string, reason catalog.ReportReason) error
	Filters(ctx context.Context) (*Filters, error)
	ReportReasons(ctx context.Context) ([]catalog.Entry, error)
}

type chatClient struct {
	logger commons.Logger
	http   *resty.Client
	tokens TokenStore

	mu    sync.RWMutex
	token string
}

type envelope struct {
	Code    int             `json:"code"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewChatClient talks to chat-api at baseURL. tokens may be nil for a
// session that is never persisted.
func NewChatClient(logger commons.Logger, baseURL string, timeout time.Duration, tokens TokenStore) ChatClient {
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}
	c := &chatClient{
		logger: logger,
		tokens: tokens,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
	if token, err := tokens.Load(); err != nil {
		logger.Warnw("unable to load stored session", "error", err)
	} else {
		c.token = token
	}
	return c
}

func (c *chatClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *chatClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()

	var err error
	if token == "" {
		err = c.tokens.Clear()
	} else {
		err = c.tokens.Save(token)
	}
	if err != nil {
		c.logger.Warnw("unable to persist session", "error", err)
	}
}

func (c *chatClient) Signup(ctx context.Context, email, password, username string) (*Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password, "username": username}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/signup", false, body, &session); err != nil {
		return nil, err
	}
	c.setToken(session.Token)
	return &session, nil
}

func (c *chatClient) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/v1/auth/login", false, body, &session); err != nil {
		return nil, err
	}
	c.setToken(session.Token)
	return &session, nil
}

// Logout revokes the server session. The local token is dropped even when
// the server call fails.
func (c *chatClient) Logout(ctx context.Context) error {
	if c.Token() == "" {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/v1/auth/logout", true, nil, nil)
	c.setToken("")
	if err != nil && !errors.Is(err, ErrUnauthenticated) {
		return err
	}
	return nil
}

func (c *chatClient) CurrentUser(ctx context.Context) (*User, error) {
	if c.Token() == "" {
		return nil, nil
	}
	var user User
	if err := c.do(ctx, http.MethodGet, "/v1/auth/me", true, nil, &user); err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			c.setToken("")
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (c *chatClient) RegisterPresence(ctx context.Context, peerID string) error {
	return c.do(ctx, http.MethodPut, "/v1/presence", true, map[string]string{"peerId": peerID}, nil)
}

func (c *chatClient) UpdateStatus(ctx context.Context, status string) error {
	return c.do(ctx, http.MethodPatch, "/v1/presence", true, map[string]string{"status": status}, nil)
}

// FindRandomPeer returns nil without error when nobody is waiting.
func (c *chatClient) FindRandomPeer(ctx context.Context, peerID string) (*Match, error) {
	var out struct {
		Match *Match `json:"match"`
	}
	path := "/v1/presence/match?peerId=" + url.QueryEscape(peerID)
	if err := c.do(ctx, http.MethodGet, path, true, nil, &out); err != nil {
		return nil, err
	}
	return out.Match, nil
}

func (c *chatClient) RemovePresence(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/presence", true, nil, nil)
}

func (c *chatClient) Report(ctx context.Context, peerID string, reason catalog.ReportReason) error {
	body := map[string]string{"peerId": peerID, "reason": string(reason)}
	return c.do(ctx, http.MethodPost, "/v1/moderation/reports", true, body, nil)
}

func (c *chatClient) Filters(ctx context.Context) (*Filters, error) {
	var filters Filters
	if err := c.do(ctx, http.MethodGet, "/v1/catalog/filters", false, nil, &filters); err != nil {
		return nil, err
	}
	return &filters, nil
}

func (c *chatClient) ReportReasons(ctx context.Context) ([]catalog.Entry, error) {
	var reasons []catalog.Entry
	if err := c.do(ctx, http.MethodGet, "/v1/catalog/report-reasons", false, nil, &reasons); err != nil {
		return nil, err
	}
	return reasons, nil
}

func (c *chatClient) do(ctx context.Context, method, path string, authed bool, body, out interface{}) error {
	req := c.http.R().SetContext(ctx)
	if authed {
		token := c.Token()
		if token == "" {
			return ErrUnauthenticated
		}
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}

	var env envelope
	req.SetResult(&env).SetError(&env)

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		c.logger.Debugw("chat-api request failed", "method", method, "path", path, "status", apiErr.Status, "code", apiErr.Code)
		return apiErr
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
