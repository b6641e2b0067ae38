package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/shopora-backend/pkg/errors"
)

type identityKey struct{}

// identity is the authenticated caller as Auth resolved it. Both fields are
// kept as the raw token strings; RequireUserID parses on demand.
type identity struct {
	userID string
	role   string
}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	id, _ := ctx.Value(identityKey{}).(identity)
	return id
}

func withIdentity(ctx context.Context, update func(*identity)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	id := identityFrom(ctx)
	update(&id)
	return context.WithValue(ctx, identityKey{}, id)
}

func UserIDFromContext(ctx context.Context) string { return identityFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return identityFrom(ctx).role }

func WithUserID(ctx context.Context, userID string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.userID = userID })
}

func WithRole(ctx context.Context, role string) context.Context {
	return withIdentity(ctx, func(id *identity) { id.role = role })
}

// RequireUserID returns the authenticated caller or an UNAUTHORIZED error.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}
