// Package session keeps refresh sessions in Redis. Each access token jti maps
// to one opaque refresh token, and a per-user set indexes the live jtis.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scentlab/perfumery-backend/pkg/config"
	pkgredis "github.com/scentlab/perfumery-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SAddWithTTL(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
}

// AccessSessionChecker is what auth middleware asks on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	keys  pkgredis.Keyspace
	ttl   time.Duration
}

// NewManager requires the refresh lifetime to outlast the access token, or a
// client could never refresh before its session expired.
func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("session manager needs a redis client")
	}
	refreshTTL, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	switch {
	case refreshTTL <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refreshTTL <= accessTTL:
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", refreshTTL, accessTTL)
	}
	return &Manager{store: client, keys: client.Keyspace, ttl: refreshTTL}, nil
}

// NewAccessID mints the jti shared by an access token and its session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID int64, accessID string) (string, error) {
	if isBlank(accessID) {
		return "", errMissingAccessID
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keys.AccessSessionKey(accessID), token, m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := m.store.SAddWithTTL(ctx, m.userKey(userID), m.ttl, accessID); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	return token, nil
}

// Rotate trades a valid refresh token for a fresh jti and refresh token. The
// old session is closed only after the new one exists.
func (m *Manager) Rotate(ctx context.Context, userID int64, oldAccessID, provided string) (string, string, error) {
	if isBlank(oldAccessID) || isBlank(provided) {
		return "", "", ErrInvalidRefreshToken
	}
	stored, err := m.store.Get(ctx, m.keys.AccessSessionKey(oldAccessID))
	switch {
	case errors.Is(err, pkgredis.Nil):
		return "", "", ErrInvalidRefreshToken
	case err != nil:
		return "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, userID, accessID)
	if err != nil {
		return "", "", err
	}
	if err := m.Revoke(ctx, userID, oldAccessID); err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

// Revoke closes one session.
func (m *Manager) Revoke(ctx context.Context, userID int64, accessID string) error {
	if isBlank(accessID) {
		return errMissingAccessID
	}
	if err := m.store.Del(ctx, m.keys.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.SRem(ctx, m.userKey(userID), accessID)
}

// RevokeAllExcept closes every session of the user but keepAccessID. Used
// after a password change.
func (m *Manager) RevokeAllExcept(ctx context.Context, userID int64, keepAccessID string) error {
	live, err := m.store.SMembers(ctx, m.userKey(userID))
	if err != nil {
		return err
	}
	for _, accessID := range live {
		if accessID == keepAccessID {
			continue
		}
		if err := m.Revoke(ctx, userID, accessID); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if isBlank(accessID) {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.keys.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, pkgredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) userKey(userID int64) string {
	return m.keys.UserSessionsKey(strconv.FormatInt(userID, 10))
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
