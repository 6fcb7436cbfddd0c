package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionHeader carries the session token for non-browser clients.
const SessionHeader = "X-Session-Token"

// SessionManager resolves session tokens issued by the login service into user IDs.
// Sessions live in Redis under "session:<token>".
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
}

// Session is the resolved identity of the current caller.
type Session struct {
	Token     string
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type sessionPayload struct {
	UserID   int64     `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration) *SessionManager {
	return &SessionManager{client: client, cookieName: cookieName, ttl: ttl}
}

// Load returns the session referenced by the request, or ErrUnauthenticated.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	token := sm.tokenFromRequest(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	payload, err := sm.client.Get(ctx, sm.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("shared: load session: %w", err)
	}
	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	if stored.UserID <= 0 {
		return nil, ErrUnauthenticated
	}
	sess := &Session{Token: token, UserID: stored.UserID, IssuedAt: stored.IssuedAt}
	if ttl, err := sm.client.TTL(ctx, sm.redisKey(token)).Result(); err == nil && ttl > 0 {
		sess.ExpiresAt = time.Now().Add(ttl)
	}
	return sess, nil
}

// Issue stores a new session for userID and returns it.
func (sm *SessionManager) Issue(ctx context.Context, userID int64) (*Session, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("shared: issue session: %w", ErrInvalidRequest)
	}
	token := uuid.NewString()
	now := time.Now().UTC()
	data, err := json.Marshal(sessionPayload{UserID: userID, IssuedAt: now})
	if err != nil {
		return nil, err
	}
	if err := sm.client.Set(ctx, sm.redisKey(token), data, sm.ttl).Err(); err != nil {
		return nil, fmt.Errorf("shared: store session: %w", err)
	}
	return &Session{Token: token, UserID: userID, IssuedAt: now, ExpiresAt: now.Add(sm.ttl)}, nil
}

// Revoke deletes the session token.
func (sm *SessionManager) Revoke(ctx context.Context, token string) error {
	if err := sm.client.Del(ctx, sm.redisKey(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

func (sm *SessionManager) tokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(SessionHeader)); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sm.cookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}
