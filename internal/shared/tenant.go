package shared

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	tenantContextKey contextKey = "tenant_id"
	actorContextKey  contextKey = "actor_id"
)

// ContextWithTenantID stores the tenant id resolved upstream in the context.
func ContextWithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// TenantIDFromContext returns the tenant id carried by the request context.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ContextWithActorID stores the acting user id resolved upstream.
func ContextWithActorID(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey, actorID)
}

// ActorIDFromContext returns the acting user id, zero when absent.
func ActorIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorContextKey).(int64)
	return id
}
