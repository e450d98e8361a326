package middleware

import (
	"context"

	"github.com/scentlab/perfumery-backend/pkg/enums"
)

// Identity is the authenticated caller as established by Auth or
// OptionalAuth. SessionID is the jti of the presented access token.
type Identity struct {
	UserID    int64
	Username  string
	Role      enums.ActorRole
	SessionID string
}

type identityKey struct{}

// IdentityFromContext returns the caller, or false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID > 0
}

func withIdentityValue(ctx context.Context, id Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// WithIdentity attaches the caller to ctx, keeping any session id already set.
func WithIdentity(ctx context.Context, userID int64, username string, role enums.ActorRole) context.Context {
	id, _ := IdentityFromContext(ctx)
	id.UserID, id.Username, id.Role = userID, username, role
	return withIdentityValue(ctx, id)
}

func WithSessionID(ctx context.Context, sessionID string) context.Context {
	var id Identity
	if ctx != nil {
		id, _ = ctx.Value(identityKey{}).(Identity)
	}
	id.SessionID = sessionID
	return withIdentityValue(ctx, id)
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// OptionalUserID is nil for anonymous callers.
func OptionalUserID(ctx context.Context) *int64 {
	if id, ok := IdentityFromContext(ctx); ok {
		return &id.UserID
	}
	return nil
}

func UsernameFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.Username
}

func RoleFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return string(id.Role)
}

func IsAdminFromContext(ctx context.Context) bool {
	id, ok := IdentityFromContext(ctx)
	return ok && id.Role == enums.ActorRoleAdmin
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id.SessionID
}
