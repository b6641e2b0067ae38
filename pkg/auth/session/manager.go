// Package session keeps one refresh session per issued access token in Redis.
// The access token's jti is the key; only a hash of the refresh token is stored.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	redisclient "github.com/angelmondragon/shopora-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

// backend is the slice of the redis client the manager touches.
type backend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware needs to reject revoked tokens.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// record is the value stored under each session key.
type record struct {
	TokenHash string    `json:"tokenHash"`
	IssuedAt  time.Time `json:"issuedAt"`
	Rotations int       `json:"rotations"`
}

// Manager issues, rotates and revokes refresh sessions.
type Manager struct {
	kv  backend
	ttl time.Duration
	now func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token it backs.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case ttl <= 0:
		return nil, fmt.Errorf("refresh token ttl must be positive")
	case ttl <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return newManager(client, ttl), nil
}

func newManager(kv backend, ttl time.Duration) *Manager {
	return &Manager{kv: kv, ttl: ttl, now: time.Now}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func (m *Manager) key(accessID string) string { return m.kv.AccessSessionKey(accessID) }

// Generate opens a session for accessID and returns the raw refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if blank(accessID) {
		return "", errNoAccessID
	}
	return m.open(ctx, accessID, 0)
}

// Rotate trades a valid refresh token for a new access id and refresh token. The
// old session is deleted before the new one is written, so a replayed token fails.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}

	oldKey := m.key(oldAccessID)
	current, err := m.load(ctx, oldKey)
	if err != nil {
		return "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(current.TokenHash), []byte(hashToken(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}
	if err := m.kv.Del(ctx, oldKey); err != nil {
		return "", "", err
	}

	newAccessID := NewAccessID()
	token, err := m.open(ctx, newAccessID, current.Rotations+1)
	if err != nil {
		return "", "", err
	}
	return newAccessID, token, nil
}

// Revoke ends the session behind accessID. Revoking a missing session is not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errNoAccessID
	}
	return m.kv.Del(ctx, m.key(accessID))
}

// HasSession reports whether accessID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errNoAccessID
	}
	_, err := m.kv.Get(ctx, m.key(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// NewAccessID produces the identifier used as JWT jti and session key.
func NewAccessID() string {
	return uuid.NewString()
}

func (m *Manager) open(ctx context.Context, accessID string, rotations int) (string, error) {
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(record{
		TokenHash: hashToken(token),
		IssuedAt:  m.now().UTC(),
		Rotations: rotations,
	})
	if err != nil {
		return "", fmt.Errorf("encoding session: %w", err)
	}
	if err := m.kv.Set(ctx, m.key(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) load(ctx context.Context, key string) (record, error) {
	raw, err := m.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return record{}, ErrInvalidRefreshToken
		}
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.TokenHash == "" {
		return record{}, ErrInvalidRefreshToken
	}
	return rec, nil
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
