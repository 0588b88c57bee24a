package gatekit

import (
	"context"
)

// Context keys for GateKit values.
type contextKey string

const (
	contextKeyPrincipalID contextKey = "gatekit:principal_id"
	contextKeyActorID     contextKey = "gatekit:actor_id"
	contextKeyTenantID    contextKey = "gatekit:tenant_id"
	contextKeyIPAddress   contextKey = "gatekit:ip_address"
	contextKeyUserAgent   contextKey = "gatekit:user_agent"
	contextKeyRequestID   contextKey = "gatekit:request_id"
	contextKeyService     contextKey = "gatekit:service"
)

// WithPrincipalID adds a principal ID to the context.
// This is the subject being checked for permissions.
func WithPrincipalID(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, contextKeyPrincipalID, principalID)
}

// GetPrincipalID retrieves the principal ID from context.
// Returns empty string if not set.
func GetPrincipalID(ctx context.Context) string {
	if v := ctx.Value(contextKeyPrincipalID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MustGetPrincipalID retrieves the principal ID from context.
// Panics if not set.
func MustGetPrincipalID(ctx context.Context) string {
	principalID := GetPrincipalID(ctx)
	if principalID == "" {
		panic("gatekit: principal ID not in context")
	}
	return principalID
}

// WithActorID adds an actor ID to the context.
// This is the user performing the action (for audit purposes).
// Often the same as the principal, but can differ for admin actions.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, contextKeyActorID, actorID)
}

// GetActorID retrieves the actor ID from context.
// Falls back to the principal ID if the actor is not explicitly set.
func GetActorID(ctx context.Context) string {
	if v := ctx.Value(contextKeyActorID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return GetPrincipalID(ctx)
}

// WithTenantID adds a tenant ID to the context. Checks made through the
// middleware use it to scope traversals to the caller's tenant.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKeyTenantID, tenantID)
}

// GetTenantID retrieves the tenant ID from context.
func GetTenantID(ctx context.Context) string {
	if v := ctx.Value(contextKeyTenantID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithIPAddress adds the client IP address to the context (for audit).
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	if v := ctx.Value(contextKeyIPAddress); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithUserAgent adds the user agent to the context (for audit).
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	if v := ctx.Value(contextKeyUserAgent); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context (for audit and correlation).
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(contextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// WithService adds a Service to the context.
// This is set by middleware and can be retrieved in handlers.
func WithService(ctx context.Context, service *Service) context.Context {
	return context.WithValue(ctx, contextKeyService, service)
}

// GetService retrieves the Service from context.
// Returns nil if not set.
func GetService(ctx context.Context) *Service {
	if v := ctx.Value(contextKeyService); v != nil {
		if s, ok := v.(*Service); ok {
			return s
		}
	}
	return nil
}

// FromContext retrieves the Service from context.
// Alias for GetService for convenience.
func FromContext(ctx context.Context) *Service {
	return GetService(ctx)
}

// AuditContext holds all audit-related information from context.
type AuditContext struct {
	ActorID   string
	IPAddress string
	UserAgent string
	RequestID string
}

// GetAuditContext extracts all audit information from context.
func GetAuditContext(ctx context.Context) AuditContext {
	return AuditContext{
		ActorID:   GetActorID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
		RequestID: GetRequestID(ctx),
	}
}

// WithAuditContext adds all audit information to context at once.
func WithAuditContext(ctx context.Context, ac AuditContext) context.Context {
	if ac.ActorID != "" {
		ctx = WithActorID(ctx, ac.ActorID)
	}
	if ac.IPAddress != "" {
		ctx = WithIPAddress(ctx, ac.IPAddress)
	}
	if ac.UserAgent != "" {
		ctx = WithUserAgent(ctx, ac.UserAgent)
	}
	if ac.RequestID != "" {
		ctx = WithRequestID(ctx, ac.RequestID)
	}
	return ctx
}
